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

package allocator

import (
	"fmt"
	"sort"
)

// Role of a host within one experiment configuration.
type Role int

const (
	// Validators run replicas. The first one also runs the rendezvous server.
	Validators Role = iota
	// FastBrokers submit batches directly.
	FastBrokers
	// FullBrokers coalesce client submissions before submitting.
	FullBrokers
	// Clients generate load against full brokers.
	Clients
)

// Roles lists every role in slicing order.
var Roles = []Role{Validators, FastBrokers, FullBrokers, Clients}

func (r Role) String() string {
	switch r {
	case Validators:
		return "validators"
	case FastBrokers:
		return "fast brokers"
	case FullBrokers:
		return "full brokers"
	case Clients:
		return "clients"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// HostPool maps region to ordered, unique host addresses.
type HostPool map[string][]string

// Size returns number of hosts across all regions.
func (p HostPool) Size() int {
	size := 0
	for _, hosts := range p {
		size += len(hosts)
	}
	return size
}

// Flat returns every host, regions in name order.
func (p HostPool) Flat() []string {
	regions := make([]string, 0, len(p))
	for region := range p {
		regions = append(regions, region)
	}
	sort.Strings(regions)

	var hosts []string
	for _, region := range regions {
		hosts = append(hosts, p[region]...)
	}
	return hosts
}

// Demand maps role to number of hosts per region. Client demand is derived
// by Allocate and need not be given.
type Demand map[Role]map[string]int

// CapacityError reports a region which cannot serve the demand.
// Missing regions are fatal for the whole sweep, shortfalls only skip the configuration.
type CapacityError struct {
	Region    string
	Available int
	Required  int
	Missing   bool
}

func (e *CapacityError) Error() string {
	if e.Missing {
		return fmt.Sprintf("region %q is not included in the list of hosts", e.Region)
	}
	return fmt.Sprintf("only %d out of %d instances available in region %q", e.Available, e.Required, e.Region)
}

// Shortfall is the number of missing hosts.
func (e *CapacityError) Shortfall() int {
	return e.Required - e.Available
}
