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

package metrics

import (
	"time"

	"github.com/mvidigueira/hotstuff-bench/pkg/logs"
)

// Tags contains values which are identifying run metrics.
type Tags struct {
	SweepID string
	// Configuration is the index of the experiment configuration in the sweep.
	Configuration int
	Run           int
}

// Metadata of one run: its setup and headline statistics.
type Metadata struct {
	Replicas    int
	FastBrokers int
	FullBrokers int
	Clients     int
	Faults      int
	Rate        int
	Duration    time.Duration `json:",string"`

	TPS          int
	BrokerOPS    int
	ClientOPS    int
	SignupTPS    int
	LatencyMean  int
	LatencyStdev int
	LatencyP50   int
	LatencyP99   int

	// Report is the full text report.
	Report string `json:",omitempty"`
}

// Bench contains Metadata of a run and ID values.
type Bench struct {
	Tags    Tags
	Metrics Metadata
}

// New is a constructor for Bench structure.
func New(tags Tags, metrics Metadata) *Bench {
	return &Bench{
		Tags:    tags,
		Metrics: metrics,
	}
}

// FromResult builds metadata of a parsed run.
func FromResult(result *logs.Result, duration time.Duration) Metadata {
	return Metadata{
		Replicas:     result.Replicas,
		FastBrokers:  result.FastBrokers,
		FullBrokers:  result.FullBrokers,
		Clients:      result.Clients,
		Faults:       result.Faults,
		Rate:         result.Rate,
		Duration:     duration,
		TPS:          result.TPS(),
		BrokerOPS:    result.BrokerOPS,
		ClientOPS:    result.ClientOPS,
		SignupTPS:    result.SignupTPS,
		LatencyMean:  result.LatencyMean,
		LatencyStdev: result.LatencyStdev,
		LatencyP50:   result.Percentiles[3],
		LatencyP99:   result.Percentiles[5],
		Report:       result.String(),
	}
}
