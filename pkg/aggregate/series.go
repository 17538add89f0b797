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
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/mvidigueira/hotstuff-bench/pkg/commands"
	"github.com/mvidigueira/hotstuff-bench/pkg/config"
	"github.com/mvidigueira/hotstuff-bench/pkg/visualization"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Series names.
const (
	LatencySeries    = "latency"
	TPSSeries        = "tps"
	RobustnessSeries = "robustness"
)

const separator = "-----------------------------------------"

// Point is one record of a series, at value X of its free variable.
type Point struct {
	X      int
	Record Record
}

// Series is a list of points sharing every setup field but one.
//
// latency: X is throughput, ordered by input rate, over any rate.
// tps: X is the number of replicas, best throughput under MaxLatency.
// robustness: X is the input rate.
type Series struct {
	Name string
	// Replicas is negative in a series over replicas.
	Replicas   int
	Brokers    int
	Faults     int
	MaxLatency int
	Points     []Point
}

type seriesKey struct {
	replicas, brokers, faults, maxLatency int
}

func (k seriesKey) less(other seriesKey) bool {
	switch {
	case k.replicas != other.replicas:
		return k.replicas < other.replicas
	case k.brokers != other.brokers:
		return k.brokers < other.brokers
	case k.faults != other.faults:
		return k.faults < other.faults
	}
	return k.maxLatency < other.maxLatency
}

func collect(name string, organized map[seriesKey][]Point) []*Series {
	keys := make([]seriesKey, 0, len(organized))
	for key := range organized {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	series := make([]*Series, 0, len(keys))
	for _, key := range keys {
		series = append(series, &Series{
			Name:       name,
			Replicas:   key.replicas,
			Brokers:    key.brokers,
			Faults:     key.faults,
			MaxLatency: key.maxLatency,
			Points:     organized[key],
		})
	}
	return series
}

// Latency returns throughput against latency as the input rate grows.
func (a *Aggregator) Latency() []*Series {
	organized := map[seriesKey][]Point{}
	for _, setup := range a.Setups() {
		key := seriesKey{replicas: setup.Replicas, brokers: setup.Brokers, faults: setup.Faults}
		organized[key] = append(organized[key], Point{X: a.records[setup].TPS, Record: a.records[setup]})
	}
	return collect(LatencySeries, organized)
}

// TPS returns the best throughput of every number of replicas with a mean
// latency under each cap.
func (a *Aggregator) TPS(maxLatencies []int) []*Series {
	organized := map[seriesKey][]Point{}
	for _, maxLatency := range maxLatencies {
		best := map[seriesKey]map[int]Record{}
		for _, setup := range a.Setups() {
			record := a.records[setup]
			if record.Latency > maxLatency {
				continue
			}
			key := seriesKey{replicas: -1, brokers: setup.Brokers, faults: setup.Faults, maxLatency: maxLatency}
			if best[key] == nil {
				best[key] = map[int]Record{}
			}
			if current, ok := best[key][setup.Replicas]; !ok || record.TPS > current.TPS {
				best[key][setup.Replicas] = record
			}
		}
		for key, byReplicas := range best {
			for replicas, record := range byReplicas {
				organized[key] = append(organized[key], Point{X: replicas, Record: record})
			}
			sort.Slice(organized[key], func(i, j int) bool {
				return organized[key][i].X < organized[key][j].X
			})
		}
	}
	return collect(TPSSeries, organized)
}

// Robustness returns records against the input rate.
func (a *Aggregator) Robustness() []*Series {
	organized := map[seriesKey][]Point{}
	for _, setup := range a.Setups() {
		key := seriesKey{replicas: setup.Replicas, brokers: setup.Brokers, faults: setup.Faults}
		organized[key] = append(organized[key], Point{X: setup.Rate, Record: a.records[setup]})
	}
	return collect(RobustnessSeries, organized)
}

func (s *Series) String() string {
	replicas, rate := fmt.Sprint(s.Replicas), "any"
	switch s.Name {
	case TPSSeries:
		replicas = "x"
	case RobustnessSeries:
		rate = "x"
	}

	buffer := &bytes.Buffer{}
	fmt.Fprintf(buffer, "\n%s\n RESULTS:\n%s\n", separator, separator)
	fmt.Fprintf(buffer, " Number of replicas: %s\n", replicas)
	fmt.Fprintf(buffer, " Number of brokers: %d\n", s.Brokers)
	fmt.Fprintf(buffer, " Input rate: %s ops/s\n", rate)
	fmt.Fprintf(buffer, " Faults: %d replicas\n", s.Faults)
	if s.MaxLatency > 0 {
		fmt.Fprintf(buffer, " Max latency: %d ms\n", s.MaxLatency)
	}
	buffer.WriteString("\n")
	for i, point := range s.Points {
		if i > 0 {
			buffer.WriteString("\n")
		}
		fmt.Fprintf(buffer, " Variable value: X=%d\n%s", point.X, point.Record)
	}
	buffer.WriteString(separator + "\n")
	return buffer.String()
}

// Filename is the name of the series file.
func (s *Series) Filename() string {
	return filepath.Base(commands.AggFile(s.Name, s.Replicas, s.Brokers, s.Faults, s.MaxLatency))
}

// filter keeps points of setups selected by params.
func (s *Series) filter(params *config.PlotParameters) bool {
	if params == nil {
		return len(s.Points) > 0
	}
	var kept []Point
	for _, point := range s.Points {
		replicas := s.Replicas
		if replicas < 0 {
			replicas = point.X
		}
		if params.Selects(replicas, s.Brokers, s.Faults) {
			kept = append(kept, point)
		}
	}
	s.Points = kept
	return len(kept) > 0
}

// Print writes latency, tps and robustness series files into plotsDir and
// returns their paths. Only setups selected by params are written; a nil params
// selects everything.
func (a *Aggregator) Print(plotsDir string, params *config.PlotParameters) ([]string, error) {
	if err := os.MkdirAll(plotsDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "cannot create %s", plotsDir)
	}

	var maxLatencies []int
	if params != nil {
		maxLatencies = params.MaxLatency
	}
	var all []*Series
	all = append(all, a.Latency()...)
	all = append(all, a.TPS(maxLatencies)...)
	all = append(all, a.Robustness()...)

	var written []string
	for _, series := range all {
		if !series.filter(params) {
			continue
		}
		filename := filepath.Join(plotsDir, series.Filename())
		if err := ioutil.WriteFile(filename, []byte(series.String()), 0644); err != nil {
			return written, errors.Wrapf(err, "cannot write %s", filename)
		}
		written = append(written, filename)
	}
	log.Infof("Wrote %d series files to %s", len(written), plotsDir)
	return written, nil
}

// Table lists the aggregated record of every setup.
func (a *Aggregator) Table() *visualization.Table {
	table := visualization.NewTable(
		[]string{"Replicas", "Brokers", "Faults", "Rate", "TPS", "Latency (ms)"}, nil)
	for _, setup := range a.Setups() {
		record := a.records[setup]
		table.AddRow(
			fmt.Sprint(setup.Replicas),
			fmt.Sprint(setup.Brokers),
			fmt.Sprint(setup.Faults),
			humanize.Comma(int64(setup.Rate)),
			fmt.Sprintf("%s +/- %s", humanize.Comma(int64(record.TPS)), humanize.Comma(int64(record.TPSStdev))),
			fmt.Sprintf("%d +/- %d", record.Latency, record.LatencyStdev),
		)
	}
	return table
}
