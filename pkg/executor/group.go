// Copyright (c) 2017 Intel Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package executor

import (
	"runtime"

	"github.com/mvidigueira/hotstuff-bench/pkg/utils/errcollection"
	"golang.org/x/sync/errgroup"
)

// Group runs the same action on several hosts in parallel.
type Group struct {
	executors []Executor
	limit     int
}

// NewGroup returns a Group over executors. At most 8 connections per CPU are
// open at once.
func NewGroup(executors []Executor) *Group {
	return &Group{executors: executors, limit: 8 * runtime.NumCPU()}
}

// Len returns number of hosts.
func (g *Group) Len() int {
	return len(g.executors)
}

// Hosts returns address of every host, in group order.
func (g *Group) Hosts() []string {
	hosts := make([]string, len(g.executors))
	for i, executor := range g.executors {
		hosts[i] = executor.Host()
	}
	return hosts
}

// Each calls fn for every executor in parallel and waits for all of them.
// Errors of every host are combined.
func (g *Group) Each(fn func(i int, executor Executor) error) error {
	errs := &errcollection.ErrorCollection{}
	group := &errgroup.Group{}
	group.SetLimit(g.limit)
	for i, executor := range g.executors {
		i, executor := i, executor
		group.Go(func() error {
			errs.Add(fn(i, executor))
			return nil
		})
	}
	group.Wait()
	return errs.GetErrIfAny()
}

// Execute runs command on every host. Outputs are in group order.
func (g *Group) Execute(command string) ([]Output, error) {
	outputs := make([]Output, len(g.executors))
	err := g.Each(func(i int, executor Executor) (err error) {
		outputs[i], err = executor.Execute(command)
		return err
	})
	return outputs, err
}

// Upload copies local file to remote path on every host.
func (g *Group) Upload(local, remote string) error {
	return g.Each(func(_ int, executor Executor) error {
		return executor.Upload(local, remote)
	})
}
