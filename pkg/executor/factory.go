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
	"github.com/mvidigueira/hotstuff-bench/pkg/net"
	"golang.org/x/crypto/ssh"
)

// Factory creates executor for a host.
type Factory func(host string) (Executor, error)

// NewFactory returns Factory which gives Local executor for local addresses and
// Remote with given client configuration otherwise.
// NOTE: We don't want to ssh on localhost if not needed.
func NewFactory(clientConfig *ssh.ClientConfig, port int) Factory {
	return func(host string) (Executor, error) {
		if net.IsAddrLocal(host) {
			return NewLocal(), nil
		}
		return NewRemote(NewSSHConfig(clientConfig, host, port)), nil
	}
}

// LocalFactory gives Local executor for every host.
func LocalFactory(string) (Executor, error) {
	return NewLocal(), nil
}

// NewGroupFromHosts creates executor of every host.
func NewGroupFromHosts(factory Factory, hosts []string) (*Group, error) {
	executors := make([]Executor, 0, len(hosts))
	for _, host := range hosts {
		executor, err := factory(host)
		if err != nil {
			return nil, err
		}
		executors = append(executors, executor)
	}
	return NewGroup(executors), nil
}
