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

package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// BenchParameters describes an experiment sweep: one configuration per entry of
// Nodes and Rate.
type BenchParameters struct {
	Nodes       []RegionCounts
	FastBrokers RegionCounts
	FullBrokers RegionCounts
	// Colocate runs full brokers on validator hosts.
	Colocate bool
	Rate     []int
	Duration time.Duration
	Runs     int
	Faults   int
}

type rawBenchParameters struct {
	Nodes       regionCountsList `yaml:"nodes"`
	FastBrokers regionCountsList `yaml:"fast_brokers"`
	FullBrokers regionCountsList `yaml:"full_brokers"`
	Colocate    bool             `yaml:"colocate"`
	Rate        intList          `yaml:"rate"`
	Duration    *int             `yaml:"duration"`
	Runs        *int             `yaml:"runs"`
	Faults      int              `yaml:"faults"`
}

// LoadBenchParameters reads bench parameters from YAML or JSON file.
func LoadBenchParameters(filename string) (*BenchParameters, error) {
	raw := rawBenchParameters{}
	if err := readYAMLFile(filename, &raw); err != nil {
		return nil, errors.Wrap(err, "cannot load bench parameters")
	}
	return raw.build()
}

// NewBenchParameters decodes and validates bench parameters from YAML or JSON text.
func NewBenchParameters(data []byte) (*BenchParameters, error) {
	raw := rawBenchParameters{}
	if err := unmarshalYAML(data, &raw); err != nil {
		return nil, err
	}
	return raw.build()
}

// singleRun unwraps a list which is not allowed to change between runs.
func singleRun(list regionCountsList, role string) (RegionCounts, error) {
	switch len(list) {
	case 0:
		return RegionCounts{}, nil
	case 1:
		if list[0] == nil {
			return RegionCounts{}, nil
		}
		return list[0], list[0].validate(role)
	default:
		return nil, configErrorf("the number of %s cannot change between runs", role)
	}
}

func (raw rawBenchParameters) build() (*BenchParameters, error) {
	if len(raw.Nodes) == 0 {
		return nil, configErrorf("missing number of nodes")
	}
	for _, nodes := range raw.Nodes {
		if len(nodes) == 0 {
			return nil, configErrorf("missing number of nodes")
		}
		if err := nodes.validate("nodes"); err != nil {
			return nil, err
		}
	}

	fast, err := singleRun(raw.FastBrokers, "fast brokers")
	if err != nil {
		return nil, err
	}
	full, err := singleRun(raw.FullBrokers, "full brokers")
	if err != nil {
		return nil, err
	}

	if len(raw.Rate) == 0 {
		return nil, configErrorf("malformed bench parameters: missing key 'rate'")
	}
	for _, rate := range raw.Rate {
		if rate < 0 {
			return nil, configErrorf("invalid input rate: %d", rate)
		}
	}

	if raw.Duration == nil {
		return nil, configErrorf("malformed bench parameters: missing key 'duration'")
	}
	if *raw.Duration <= 0 {
		return nil, configErrorf("invalid duration: %d", *raw.Duration)
	}

	runs := 1
	if raw.Runs != nil {
		runs = *raw.Runs
	}
	if runs < 1 {
		return nil, configErrorf("invalid number of runs: %d", runs)
	}

	if raw.Faults < 0 {
		return nil, configErrorf("invalid number of faults: %d", raw.Faults)
	}
	for _, nodes := range raw.Nodes {
		if raw.Faults >= nodes.Total() {
			return nil, configErrorf("number of faults (%d) must be lower than number of nodes (%d)", raw.Faults, nodes.Total())
		}
	}

	return &BenchParameters{
		Nodes:       []RegionCounts(raw.Nodes),
		FastBrokers: fast,
		FullBrokers: full,
		Colocate:    raw.Colocate,
		Rate:        []int(raw.Rate),
		Duration:    time.Duration(*raw.Duration) * time.Second,
		Runs:        runs,
		Faults:      raw.Faults,
	}, nil
}

// ExperimentConfig is a single point of the sweep. It is never mutated.
type ExperimentConfig struct {
	// Index of the Nodes entry this configuration comes from.
	Index       int
	Validators  RegionCounts
	FastBrokers RegionCounts
	FullBrokers RegionCounts
	Colocate    bool
	Rate        int
	Duration    time.Duration
	Runs        int
	Faults      int
}

// Configurations expands parameters into one configuration per nodes entry and rate,
// nodes-major.
func (b *BenchParameters) Configurations() []ExperimentConfig {
	configs := make([]ExperimentConfig, 0, len(b.Nodes)*len(b.Rate))
	for i, nodes := range b.Nodes {
		full := b.FullBrokers
		if b.Colocate {
			// Every validator host also runs a full broker.
			full = nodes
		}
		for _, rate := range b.Rate {
			configs = append(configs, ExperimentConfig{
				Index:       i,
				Validators:  nodes,
				FastBrokers: b.FastBrokers,
				FullBrokers: full,
				Colocate:    b.Colocate,
				Rate:        rate,
				Duration:    b.Duration,
				Runs:        b.Runs,
				Faults:      b.Faults,
			})
		}
	}
	return configs
}

// Clients returns the derived client demand: clients mirror full brokers, or
// validators when brokers are colocated.
func (c ExperimentConfig) Clients() RegionCounts {
	if c.Colocate {
		return c.Validators
	}
	return c.FullBrokers
}

// Replicas is the number of validators including the ones not booted.
func (c ExperimentConfig) Replicas() int {
	return c.Validators.Total()
}

// Brokers is the number of fast and full brokers.
func (c ExperimentConfig) Brokers() int {
	return c.FastBrokers.Total() + c.FullBrokers.Total()
}

func (c ExperimentConfig) String() string {
	return fmt.Sprintf("%d replicas, %d fast brokers, %d full brokers, %d clients, rate %d, %d faults",
		c.Replicas(), c.FastBrokers.Total(), c.FullBrokers.Total(), c.Clients().Total(), c.Rate, c.Faults)
}
