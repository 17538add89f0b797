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
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mvidigueira/hotstuff-bench/pkg/config"
	"github.com/mvidigueira/hotstuff-bench/pkg/logs"
	. "github.com/smartystreets/goconvey/convey"
)

func report(replicas, fast, rate, faults, tps, latency int) string {
	result := &logs.Result{
		Replicas:    replicas,
		FastBrokers: fast,
		Rate:        rate,
		Faults:      faults,
		BrokerOPS:   tps,
		LatencyMean: latency,
	}
	return result.String()
}

func TestAggregate(t *testing.T) {
	Convey("When aggregating records", t, func() {
		Convey("A single record is returned unchanged", func() {
			record := Record{TPS: 1234, Latency: 56}
			So(Aggregate([]Record{record}), ShouldResemble, record)
		})

		Convey("Records are averaged with sample deviation", func() {
			aggregated := Aggregate([]Record{{TPS: 100, Latency: 10}, {TPS: 300, Latency: 20}})
			So(aggregated.TPS, ShouldEqual, 200)
			So(aggregated.Latency, ShouldEqual, 15)
			So(aggregated.TPSStdev, ShouldEqual, 141)
			So(aggregated.LatencyStdev, ShouldEqual, 7)
		})

		Convey("Order of records does not matter", func() {
			records := []Record{{TPS: 10, Latency: 3}, {TPS: 25, Latency: 8}, {TPS: 40, Latency: 1}}
			reversed := []Record{records[2], records[1], records[0]}
			So(Aggregate(reversed), ShouldResemble, Aggregate(records))
		})

		Convey("No record gives zeros", func() {
			So(Aggregate(nil), ShouldResemble, Record{})
		})
	})
}

func TestGroupBySetup(t *testing.T) {
	Convey("When grouping persisted reports", t, func() {
		text := report(4, 1, 1000, 0, 900, 20) +
			report(4, 1, 1000, 0, 1100, 30) +
			report(4, 1, 2000, 0, 1800, 45) +
			report(7, 1, 1000, 1, 950, 25)

		grouped, err := GroupBySetup(text)
		So(err, ShouldBeNil)
		So(grouped, ShouldHaveLength, 3)
		So(grouped[Setup{Replicas: 4, Brokers: 1, Rate: 1000}], ShouldHaveLength, 2)
		So(grouped[Setup{Replicas: 7, Brokers: 1, Rate: 1000, Faults: 1}], ShouldResemble,
			[]Record{{TPS: 950, Latency: 25}})

		Convey("Aggregator averages every setup", func() {
			aggregator := New(grouped)
			So(aggregator.Records()[Setup{Replicas: 4, Brokers: 1, Rate: 1000}].TPS, ShouldEqual, 1000)
			So(aggregator.Setups()[0], ShouldResemble, Setup{Replicas: 4, Brokers: 1, Rate: 1000})
			So(aggregator.Table().Len(), ShouldEqual, 3)
		})

		Convey("Clients throughput is preferred", func() {
			result := &logs.Result{Replicas: 4, FullBrokers: 2, Clients: 2, BrokerOPS: 1, ClientOPS: 500}
			grouped, err := GroupBySetup(result.String())
			So(err, ShouldBeNil)
			So(grouped[Setup{Replicas: 4, Brokers: 2}], ShouldResemble, []Record{{TPS: 500}})
		})
	})

	Convey("A malformed report fails", t, func() {
		_, err := GroupBySetup("SUMMARY:\n OPS (fast broker-side): 10 Op/s\n")
		So(err, ShouldNotBeNil)
	})

	Convey("Text without reports gives no setup", t, func() {
		grouped, err := GroupBySetup("nothing here")
		So(err, ShouldBeNil)
		So(grouped, ShouldBeEmpty)
	})
}

func TestSeries(t *testing.T) {
	Convey("When building series", t, func() {
		aggregator := New(map[Setup][]Record{
			{Replicas: 4, Brokers: 1, Rate: 2000}: {{TPS: 1800, Latency: 45}},
			{Replicas: 4, Brokers: 1, Rate: 1000}: {{TPS: 1000, Latency: 20}},
			{Replicas: 7, Brokers: 1, Rate: 1000}: {{TPS: 950, Latency: 25}},
			{Replicas: 7, Brokers: 1, Rate: 3000}: {{TPS: 2500, Latency: 400}},
		})

		Convey("Latency points are ordered by rate", func() {
			series := aggregator.Latency()
			So(series, ShouldHaveLength, 2)
			So(series[0].Replicas, ShouldEqual, 4)
			So(series[0].Points, ShouldResemble, []Point{
				{X: 1000, Record: Record{TPS: 1000, Latency: 20}},
				{X: 1800, Record: Record{TPS: 1800, Latency: 45}},
			})
		})

		Convey("TPS keeps best throughput under latency cap", func() {
			series := aggregator.TPS([]int{50, 500})
			So(series, ShouldHaveLength, 2)
			So(series[0].MaxLatency, ShouldEqual, 50)
			So(series[0].Points, ShouldResemble, []Point{
				{X: 4, Record: Record{TPS: 1800, Latency: 45}},
				{X: 7, Record: Record{TPS: 950, Latency: 25}},
			})
			So(series[1].Points[1].Record.TPS, ShouldEqual, 2500)
			So(series[0].Filename(), ShouldEqual, "agg-tps-x-1-0-50.txt")
		})

		Convey("Robustness points are the input rates", func() {
			series := aggregator.Robustness()
			So(series[1].Points[0].X, ShouldEqual, 1000)
			So(series[1].Points[1].X, ShouldEqual, 3000)
			So(series[1].Filename(), ShouldEqual, "agg-robustness-7-1-0.txt")
		})

		Convey("Series files are written for selected setups", func() {
			dir, err := ioutil.TempDir("", "plots")
			So(err, ShouldBeNil)
			defer os.RemoveAll(dir)

			params := &config.PlotParameters{Nodes: []int{4}, Brokers: []int{1}, Faults: []int{0}, MaxLatency: []int{500}}
			written, err := aggregator.Print(filepath.Join(dir, "plots"), params)
			So(err, ShouldBeNil)
			So(written, ShouldHaveLength, 3)

			data, err := ioutil.ReadFile(filepath.Join(dir, "plots", "agg-latency-4-1-0.txt"))
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, " Input rate: any ops/s\n")
			So(string(data), ShouldContainSubstring, " Variable value: X=1000\n TPS: 1000 +/- 0 tx/s\n")

			data, err = ioutil.ReadFile(filepath.Join(dir, "plots", "agg-tps-x-1-0-500.txt"))
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, " Number of replicas: x\n")
			So(strings.Count(string(data), "Variable value"), ShouldEqual, 1)
		})
	})
}

func TestLoadDirectory(t *testing.T) {
	Convey("Reports are loaded from every result file", t, func() {
		dir, err := ioutil.TempDir("", "results")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)

		So(ioutil.WriteFile(filepath.Join(dir, "bench-4-1-1000-0.txt"),
			[]byte(report(4, 1, 1000, 0, 900, 20)+report(4, 1, 1000, 0, 1100, 30)), 0644), ShouldBeNil)
		So(ioutil.WriteFile(filepath.Join(dir, "bench-7-1-1000-0.txt"),
			[]byte(report(7, 1, 1000, 0, 2000, 10)), 0644), ShouldBeNil)

		aggregator, err := LoadDirectory(dir)
		So(err, ShouldBeNil)
		So(aggregator.Records(), ShouldHaveLength, 2)
		So(aggregator.Records()[Setup{Replicas: 4, Brokers: 1, Rate: 1000}], ShouldResemble,
			Record{TPS: 1000, Latency: 25, TPSStdev: 141, LatencyStdev: 7})
	})
}
