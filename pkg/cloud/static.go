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

package cloud

import (
	"context"
	"fmt"

	"github.com/mvidigueira/hotstuff-bench/pkg/allocator"
	"github.com/mvidigueira/hotstuff-bench/pkg/config"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// StaticManager serves a fixed list of hosts which are always running.
type StaticManager struct {
	hosts allocator.HostPool
}

// NewStaticManager returns manager of hosts per region.
func NewStaticManager(hosts map[string][]string) *StaticManager {
	return &StaticManager{hosts: allocator.HostPool(hosts)}
}

// Hosts returns the configured hosts.
func (m *StaticManager) Hosts(context.Context) (allocator.HostPool, error) {
	pool := allocator.HostPool{}
	for region, hosts := range m.hosts {
		pool[region] = append([]string(nil), hosts...)
	}
	return pool, nil
}

// Create fails: static hosts cannot be launched.
func (m *StaticManager) Create(context.Context, config.RegionCounts) error {
	return errors.New("static testbed cannot create instances")
}

// Start does nothing.
func (m *StaticManager) Start(context.Context, int) error {
	log.Warn("Static testbed is always running")
	return nil
}

// Stop does nothing.
func (m *StaticManager) Stop(context.Context) error {
	log.Warn("Static testbed cannot be stopped")
	return nil
}

// Terminate fails: static hosts cannot be destroyed.
func (m *StaticManager) Terminate(context.Context) error {
	return errors.New("static testbed cannot terminate instances")
}

// Instances lists every host as running.
func (m *StaticManager) Instances(context.Context) ([]Instance, error) {
	var instances []Instance
	for _, region := range sortedRegions(m.hosts) {
		for i, host := range m.hosts[region] {
			instances = append(instances, Instance{
				ID:       fmt.Sprintf("%s-%d", region, i),
				Region:   region,
				State:    StateRunning,
				PublicIP: host,
			})
		}
	}
	return instances, nil
}
