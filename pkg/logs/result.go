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

package logs

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

const separator = "-----------------------------------------"

// Result holds every statistic of one run, already rounded the way it is printed.
// Latencies are in milliseconds, throughputs per second, durations in seconds.
type Result struct {
	BrokerOPS    int
	ClientOPS    int
	LatencyMean  int
	LatencyStdev int
	// Latency percentiles, in order of PercentileRanks.
	Percentiles [numPercentiles]int

	// One decimal percentages.
	BrokerageBatchSize  float64
	ReductionPercentage float64

	PrepareBatch     int
	PrepareValidate  int
	PrepareSingleSig int
	PrepareMultiSig  int
	PrepareWitness   int
	PrepareApply     int
	PrepareCommit    int
	CommitBatch      int
	CommitValidate   int
	CommitApply      int

	SignupTPS     int
	SignupLatency int
	IDRequests    int
	IDClaims      int
	IDAssignments int

	Replicas    int
	FastBrokers int
	FullBrokers int
	Clients     int
	Faults      int
	// Zero when no fast broker ran.
	Rate            int
	SignupDuration  int
	PrepareDuration int

	PrepareBatchSize     int
	SingleSignPercentage int
	// Zero when no full broker ran.
	BrokerageTimeout int
	ReductionTimeout int

	SignupBatches     int
	SignupBatchSize   int
	TotalSignups      int
	PrepareBatches    int
	TotalTransactions int
}

// TPS is the throughput used to compare runs: measured by clients when there are
// any, by fast brokers otherwise.
func (r *Result) TPS() int {
	if r.Clients > 0 {
		return r.ClientOPS
	}
	return r.BrokerOPS
}

// Brokers is the number of fast and full brokers.
func (r *Result) Brokers() int {
	return r.FastBrokers + r.FullBrokers
}

// reportLine is one line of the report. Lines without value are printed verbatim
// and skipped when parsing.
type reportLine struct {
	prefix   string
	suffix   string
	intValue *int
	fltValue *float64
}

func (l reportLine) hasValue() bool {
	return l.intValue != nil || l.fltValue != nil
}

func text(line string) reportLine {
	return reportLine{prefix: line}
}

func integer(prefix string, value *int, suffix string) reportLine {
	return reportLine{prefix: prefix, suffix: suffix, intValue: value}
}

func decimal1(prefix string, value *float64, suffix string) reportLine {
	return reportLine{prefix: prefix, suffix: suffix, fltValue: value}
}

var percentileLabels = [numPercentiles]string{"0th  ", "1st  ", "25th ", "50th ", "75th ", "99th ", "100th"}

func (r *Result) layout() []reportLine {
	lines := []reportLine{
		text(""),
		text(separator),
		text(" SUMMARY:"),
		text(separator),
		text(" + RESULTS:"),
		integer(" OPS (fast broker-side): ", &r.BrokerOPS, " Op/s"),
		integer(" OPS (measured client-side): ", &r.ClientOPS, " Op/s"),
		text(" Op end-to-end latency:"),
		integer("     - Mean   -  ", &r.LatencyMean, " ms"),
		integer("     - Stdev  -  ", &r.LatencyStdev, " ms"),
		text(" - percentiles:"),
	}
	for i := range r.Percentiles {
		lines = append(lines, integer(fmt.Sprintf("     - %s  -  ", percentileLabels[i]), &r.Percentiles[i], " ms"))
	}
	return append(lines,
		text(""),
		decimal1(" Mean brokerage batch size: ", &r.BrokerageBatchSize, " %"),
		decimal1(" Mean reduction percentage: ", &r.ReductionPercentage, " %"),
		text(""),
		integer(" Total prepare batch latency: ", &r.PrepareBatch, " ms"),
		integer(" - batch correctness validate latency: ", &r.PrepareValidate, " ms"),
		integer("   - batch single signature validate latency: ", &r.PrepareSingleSig, " ms"),
		integer("   - batch multi signature validate latency: ", &r.PrepareMultiSig, " ms"),
		integer(" - batch witness validate latency: ", &r.PrepareWitness, " ms"),
		integer(" - batch apply latency: ", &r.PrepareApply, " ms"),
		integer(" Total prepare commit latency: ", &r.PrepareCommit, " ms"),
		integer(" Total commit batch latency: ", &r.CommitBatch, " ms"),
		integer(" - batch correctness validate latency: ", &r.CommitValidate, " ms"),
		integer(" - batch apply latency: ", &r.CommitApply, " ms"),
		text(""),
		integer(" Signup TPS: ", &r.SignupTPS, " Signup/s"),
		integer(" Signup latency: ", &r.SignupLatency, " ms"),
		integer(" Id request processing latency: ", &r.IDRequests, " ms"),
		integer(" Id claim processing latency: ", &r.IDClaims, " ms"),
		integer(" Id assignments processing latency: ", &r.IDAssignments, " ms"),
		text(""),
		text(" + CONFIG:"),
		integer(" Number of replicas: ", &r.Replicas, ""),
		integer(" Number of fast brokers: ", &r.FastBrokers, ""),
		integer(" Number of full brokers: ", &r.FullBrokers, ""),
		integer(" Number of clients: ", &r.Clients, ""),
		integer(" Faults: ", &r.Faults, " replicas"),
		integer(" Input rate cap: ", &r.Rate, ""),
		integer(" Signup execution time: ", &r.SignupDuration, " s"),
		integer(" Prepare execution time: ", &r.PrepareDuration, " s"),
		text(""),
		integer(" Size of a prepare batch: ", &r.PrepareBatchSize, ""),
		integer(" Percentage of single signatures: ", &r.SingleSignPercentage, " %"),
		integer(" Brokerage timeout: ", &r.BrokerageTimeout, " ms"),
		integer(" Reduction timeout: ", &r.ReductionTimeout, " ms"),
		text(""),
		integer(" Number of signup batches: ", &r.SignupBatches, ""),
		integer(" Size of a signup batch: ", &r.SignupBatchSize, ""),
		integer(" Total number of signups: ", &r.TotalSignups, ""),
		integer(" Number of prepare batches: ", &r.PrepareBatches, ""),
		integer(" Total number of TX (fast): ", &r.TotalTransactions, ""),
		text(""),
		text(separator),
	)
}

// String renders the text report. Numbers carry thousands separators.
func (r *Result) String() string {
	buffer := &bytes.Buffer{}
	for _, line := range r.layout() {
		buffer.WriteString(line.prefix)
		switch {
		case line.intValue != nil:
			buffer.WriteString(humanize.Comma(int64(*line.intValue)))
		case line.fltValue != nil:
			buffer.WriteString(humanize.CommafWithDigits(*line.fltValue, 1))
		}
		buffer.WriteString(line.suffix)
		buffer.WriteString("\n")
	}
	return buffer.String()
}

const valuePattern = `(-?[\d,]+(?:\.\d+)?)`

// ParseReport reads back a report printed by Result.String. Labels are matched
// in print order so that repeated labels resolve to the right field. Text before
// the first value line, such as the SUMMARY header, is optional.
func ParseReport(report string) (*Result, error) {
	result := &Result{}
	scanner := bufio.NewScanner(strings.NewReader(report))
	layout := result.layout()
	next := 0

	advance := func() {
		for next < len(layout) && !layout[next].hasValue() {
			next++
		}
	}
	advance()

	patterns := map[int]*regexp.Regexp{}
	for scanner.Scan() && next < len(layout) {
		line := layout[next]
		re, ok := patterns[next]
		if !ok {
			re = regexp.MustCompile("^" + regexp.QuoteMeta(strings.TrimSpace(line.prefix)) + `\s*` + valuePattern)
			patterns[next] = re
		}
		match := re.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if match == nil {
			continue
		}
		raw := strings.Replace(match[1], ",", "", -1)
		if line.intValue != nil {
			value, err := strconv.Atoi(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "cannot parse %q", strings.TrimSpace(line.prefix))
			}
			*line.intValue = value
		} else {
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "cannot parse %q", strings.TrimSpace(line.prefix))
			}
			*line.fltValue = value
		}
		next++
		advance()
	}

	if next < len(layout) {
		return nil, errors.Errorf("malformed report: missing %q", strings.TrimSpace(layout[next].prefix))
	}
	return result, nil
}
