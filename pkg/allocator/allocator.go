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
	"sort"
)

// Allocation assigns ordered hosts to every role of one configuration.
// Roles are disjoint except full brokers, which equal validators in colocated mode.
type Allocation struct {
	hosts map[Role][]string
}

func newAllocation() *Allocation {
	return &Allocation{hosts: map[Role][]string{}}
}

// Hosts returns hosts of a role.
func (a *Allocation) Hosts(role Role) []string {
	return a.hosts[role]
}

// Count returns number of hosts of a role.
func (a *Allocation) Count(role Role) int {
	return len(a.hosts[role])
}

// Merged returns deduplicated union of every role, in role order.
func (a *Allocation) Merged() []string {
	seen := map[string]bool{}
	var merged []string
	for _, role := range Roles {
		merged = appendUnique(merged, seen, a.hosts[role])
	}
	return merged
}

// Boot returns the allocation without the last faults validators, which are never started.
func (a *Allocation) Boot(faults int) *Allocation {
	booted := newAllocation()
	for role, hosts := range a.hosts {
		booted.hosts[role] = hosts
	}
	validators := a.hosts[Validators]
	if faults > len(validators) {
		faults = len(validators)
	}
	if faults > 0 {
		booted.hosts[Validators] = validators[:len(validators)-faults]
	}
	return booted
}

// Rendezvous returns the host of the rendezvous server.
func (a *Allocation) Rendezvous() (string, bool) {
	validators := a.hosts[Validators]
	if len(validators) == 0 {
		return "", false
	}
	return validators[0], true
}

func appendUnique(list []string, seen map[string]bool, hosts []string) []string {
	for _, host := range hosts {
		if !seen[host] {
			seen[host] = true
			list = append(list, host)
		}
	}
	return list
}

// Allocate carves per-role host slices out of pool. Every region is sliced
// contiguously: validators, fast brokers, full brokers (skipped when colocated), clients.
// Clients mirror full brokers, or validators when colocated.
func Allocate(pool HostPool, demand Demand, colocate bool) (*Allocation, error) {
	counts := map[Role]map[string]int{
		Validators:  demand[Validators],
		FastBrokers: demand[FastBrokers],
		FullBrokers: demand[FullBrokers],
	}
	if colocate {
		counts[FullBrokers] = counts[Validators]
		counts[Clients] = counts[Validators]
	} else {
		counts[Clients] = counts[FullBrokers]
	}

	regionSet := map[string]bool{}
	for _, perRegion := range counts {
		for region := range perRegion {
			regionSet[region] = true
		}
	}
	regions := make([]string, 0, len(regionSet))
	for region := range regionSet {
		regions = append(regions, region)
	}
	sort.Strings(regions)

	for _, region := range regions {
		if len(pool[region]) == 0 {
			return nil, &CapacityError{Region: region, Missing: true}
		}
	}

	for _, region := range regions {
		required := 0
		for _, role := range Roles {
			if colocate && role == FullBrokers {
				continue
			}
			required += counts[role][region]
		}
		if available := len(pool[region]); available < required {
			return nil, &CapacityError{Region: region, Available: available, Required: required}
		}
	}

	allocation := newAllocation()
	for _, region := range regions {
		hosts := pool[region]
		offset := 0
		var validators []string
		for _, role := range Roles {
			if colocate && role == FullBrokers {
				allocation.hosts[role] = append(allocation.hosts[role], validators...)
				continue
			}
			count := counts[role][region]
			slice := hosts[offset : offset+count]
			offset += count
			if role == Validators {
				validators = slice
			}
			allocation.hosts[role] = append(allocation.hosts[role], slice...)
		}
	}
	return allocation, nil
}

// MergeAllocations unions per-role hosts of several configurations, keeping first-seen order.
// The result tells which hosts need the software installed or updated.
func MergeAllocations(allocations []*Allocation) *Allocation {
	merged := newAllocation()
	seen := map[Role]map[string]bool{}
	for _, role := range Roles {
		seen[role] = map[string]bool{}
	}
	for _, allocation := range allocations {
		for _, role := range Roles {
			merged.hosts[role] = appendUnique(merged.hosts[role], seen[role], allocation.hosts[role])
		}
	}
	return merged
}
