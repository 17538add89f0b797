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
	"github.com/pkg/errors"
)

// PlotParameters select which persisted results are reduced into series.
type PlotParameters struct {
	Nodes   []int
	Brokers []int
	Faults  []int
	// MaxLatency caps (ms) used by the tps series.
	MaxLatency []int
}

type rawPlotParameters struct {
	Nodes      intList `yaml:"nodes"`
	Brokers    intList `yaml:"brokers"`
	Faults     intList `yaml:"faults"`
	MaxLatency intList `yaml:"max_latency"`
}

// LoadPlotParameters reads plot parameters from YAML or JSON file.
func LoadPlotParameters(filename string) (*PlotParameters, error) {
	raw := rawPlotParameters{}
	if err := readYAMLFile(filename, &raw); err != nil {
		return nil, errors.Wrap(err, "cannot load plot parameters")
	}
	return raw.build()
}

// NewPlotParameters decodes plot parameters from YAML or JSON text.
func NewPlotParameters(data []byte) (*PlotParameters, error) {
	raw := rawPlotParameters{}
	if err := unmarshalYAML(data, &raw); err != nil {
		return nil, err
	}
	return raw.build()
}

func (raw rawPlotParameters) build() (*PlotParameters, error) {
	if len(raw.Nodes) == 0 {
		return nil, configErrorf("missing number of nodes")
	}
	if len(raw.Brokers) == 0 {
		return nil, configErrorf("missing number of brokers")
	}
	faults := []int(raw.Faults)
	if len(faults) == 0 {
		faults = []int{0}
	}
	return &PlotParameters{
		Nodes:      []int(raw.Nodes),
		Brokers:    []int(raw.Brokers),
		Faults:     faults,
		MaxLatency: []int(raw.MaxLatency),
	}, nil
}

// Selects checks whether a setup is covered by the parameters.
func (p *PlotParameters) Selects(nodes, brokers, faults int) bool {
	return contains(p.Nodes, nodes) && contains(p.Brokers, brokers) && contains(p.Faults, faults)
}

func contains(values []int, value int) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
