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

	"github.com/mvidigueira/hotstuff-bench/pkg/allocator"
	"github.com/mvidigueira/hotstuff-bench/pkg/config"
	"github.com/mvidigueira/hotstuff-bench/pkg/visualization"
)

// Instance states reported by Instances.
const (
	StatePending  = "pending"
	StateRunning  = "running"
	StateStopping = "stopping"
	StateStopped  = "stopped"
)

// Instance is one machine of the testbed.
type Instance struct {
	ID       string
	Region   string
	State    string
	PublicIP string
}

// InstanceManager manages the machines of the testbed.
type InstanceManager interface {
	// Hosts returns addresses of running machines per region.
	Hosts(ctx context.Context) (allocator.HostPool, error)
	// Create launches the given number of machines per region.
	Create(ctx context.Context, counts config.RegionCounts) error
	// Start starts at most max stopped machines per region.
	Start(ctx context.Context, max int) error
	// Stop stops every running machine.
	Stop(ctx context.Context) error
	// Terminate destroys every machine.
	Terminate(ctx context.Context) error
	// Instances lists every machine which is not terminated.
	Instances(ctx context.Context) ([]Instance, error)
}

// NewInstanceManager returns static manager when settings list hosts and the
// manager of the configured provider otherwise.
func NewInstanceManager(ctx context.Context, settings *config.Settings) (InstanceManager, error) {
	if len(settings.Hosts) > 0 {
		return NewStaticManager(settings.Hosts), nil
	}
	if settings.Provider == config.ProviderOpenStack {
		manager, err := NewOpenStackManager(settings)
		if err != nil {
			return nil, err
		}
		return manager, nil
	}
	manager, err := NewEC2Manager(ctx, settings)
	if err != nil {
		return nil, err
	}
	return manager, nil
}

// InstancesTable lists instances with the SSH command reaching each of them.
func InstancesTable(instances []Instance, user, keyPath string) *visualization.Table {
	table := visualization.NewTable([]string{"Region", "Instance", "State", "Address", "Connect"}, nil)
	for _, instance := range instances {
		connect := ""
		if instance.PublicIP != "" {
			connect = "ssh -i " + keyPath + " " + user + "@" + instance.PublicIP
		}
		table.AddRow(instance.Region, instance.ID, instance.State, instance.PublicIP, connect)
	}
	return table
}
