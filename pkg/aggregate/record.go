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

package aggregate

import (
	"fmt"
	"math"

	"github.com/mvidigueira/hotstuff-bench/pkg/logs"
	"gonum.org/v1/gonum/stat"
)

// Setup identifies runs whose results are averaged together.
type Setup struct {
	Replicas int
	// Brokers counts fast and full brokers.
	Brokers int
	Rate    int
	Faults  int
}

// SetupOf returns the setup a result was measured in.
func SetupOf(result *logs.Result) Setup {
	return Setup{
		Replicas: result.Replicas,
		Brokers:  result.Brokers(),
		Rate:     result.Rate,
		Faults:   result.Faults,
	}
}

// Record is the throughput and latency of a setup, with deviations when it
// averages several runs.
type Record struct {
	TPS          int
	Latency      int
	TPSStdev     int
	LatencyStdev int
}

// RecordOf returns the record of a single run.
func RecordOf(result *logs.Result) Record {
	return Record{TPS: result.TPS(), Latency: result.LatencyMean}
}

func (r Record) String() string {
	return fmt.Sprintf(" TPS: %d +/- %d tx/s\n Op Latency: %d +/- %d ms\n",
		r.TPS, r.TPSStdev, r.Latency, r.LatencyStdev)
}

// Aggregate averages records of one setup: rounded mean and sample standard
// deviation of throughput and latency. A single record is returned unchanged.
func Aggregate(records []Record) Record {
	switch len(records) {
	case 0:
		return Record{}
	case 1:
		return records[0]
	}

	tps := make([]float64, len(records))
	latency := make([]float64, len(records))
	for i, record := range records {
		tps[i] = float64(record.TPS)
		latency[i] = float64(record.Latency)
	}
	return Record{
		TPS:          round(stat.Mean(tps, nil)),
		Latency:      round(stat.Mean(latency, nil)),
		TPSStdev:     round(stat.StdDev(tps, nil)),
		LatencyStdev: round(stat.StdDev(latency, nil)),
	}
}

func round(value float64) int {
	return int(math.RoundToEven(value))
}
