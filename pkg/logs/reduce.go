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
	"github.com/shopspring/decimal"
)

// facts gathers per-role facts of one run, in log file order.
type facts struct {
	replicas    []*replicaFacts
	fastBrokers []*fastBrokerFacts
	fullBrokers []*fullBrokerFacts
	clients     []*clientFacts
	faults      int
	rate        int
}

func (f *facts) nonEmptyFast() []*fastBrokerFacts {
	var list []*fastBrokerFacts
	for _, facts := range f.fastBrokers {
		if !facts.empty {
			list = append(list, facts)
		}
	}
	return list
}

func (f *facts) nonEmptyFull() []*fullBrokerFacts {
	var list []*fullBrokerFacts
	for _, facts := range f.fullBrokers {
		if !facts.empty {
			list = append(list, facts)
		}
	}
	return list
}

func (f *facts) nonEmptyClients() []*clientFacts {
	var list []*clientFacts
	for _, facts := range f.clients {
		if !facts.empty {
			list = append(list, facts)
		}
	}
	return list
}

func (f *facts) brokerConfig() (brokerConfig, bool) {
	for _, facts := range f.replicas {
		if !facts.empty {
			return facts.config, true
		}
	}
	return brokerConfig{}, false
}

// pooled returns every duration of a phase across all replicas.
func (f *facts) pooled(phase Phase) []float64 {
	var values []float64
	for _, facts := range f.replicas {
		values = append(values, ints(facts.phases[phase])...)
	}
	return values
}

// matched returns end minus start for every key with both timestamps.
// Ends without start are incomplete and skipped.
func matched(starts, ends map[int]float64) []float64 {
	var deltas []float64
	for key, end := range ends {
		if start, ok := starts[key]; ok {
			deltas = append(deltas, end-start)
		}
	}
	return deltas
}

func nonZero(values []float64) []float64 {
	var list []float64
	for _, value := range values {
		if value != 0 {
			list = append(list, value)
		}
	}
	return list
}

// span returns throughput of total items over the wall-clock span from earliest
// start to latest end, and the span itself.
func span(total float64, starts, ends []float64) (float64, float64) {
	if len(starts) == 0 || len(ends) == 0 {
		return 0, 0
	}
	duration := maxOf(ends) - minOf(starts)
	if duration <= 0 {
		return 0, duration
	}
	return total / duration, duration
}

func (f *facts) signupThroughput() (float64, float64) {
	fast := f.nonEmptyFast()
	if len(fast) == 0 {
		return 0, 0
	}
	var starts, ends []float64
	for _, facts := range fast {
		starts = append(starts, facts.signupStart)
		ends = append(ends, facts.signupEnd)
	}
	signups := float64(fast[0].signupBatchNumber * fast[0].signupBatchSize * len(f.fastBrokers))
	return span(signups, starts, ends)
}

func (f *facts) signupLatency() float64 {
	var latencies []float64
	for _, facts := range f.nonEmptyFast() {
		latencies = append(latencies, matched(facts.signupBatchesStart, facts.signupBatchesEnd)...)
	}
	return Mean(latencies) * 1000
}

func (f *facts) prepareThroughput() (float64, float64) {
	fast := f.nonEmptyFast()
	if len(fast) == 0 {
		return 0, 0
	}
	var starts, ends []float64
	for _, facts := range fast {
		starts = append(starts, facts.prepareStart)
		ends = append(ends, facts.prepareEnd)
	}
	prepares := float64(fast[0].prepareBatchNumber * fast[0].prepareBatchSize * len(f.fastBrokers))
	return span(prepares, nonZero(starts), nonZero(ends))
}

func (f *facts) clientThroughput() float64 {
	total := 0
	var starts, ends []float64
	for _, facts := range f.nonEmptyClients() {
		total += len(facts.ends) * facts.prepareBatchSize
		for key, end := range facts.ends {
			if start, ok := facts.starts[key]; ok {
				starts = append(starts, start)
				ends = append(ends, end)
			}
		}
	}
	throughput, _ := span(float64(total), starts, ends)
	return throughput
}

// endToEndLatencies returns client batch latencies in milliseconds, or a single zero.
func (f *facts) endToEndLatencies() []float64 {
	var latencies []float64
	for _, facts := range f.nonEmptyClients() {
		for _, delta := range matched(facts.starts, facts.ends) {
			latencies = append(latencies, delta*1000)
		}
	}
	if len(latencies) == 0 {
		return []float64{0}
	}
	return latencies
}

func (f *facts) sponge() (float64, float64) {
	full := f.nonEmptyFull()
	if len(full) == 0 || full[0].prepareBatchSize == 0 {
		return 0, 0
	}
	var brokerageSizes, percentages []float64
	for _, facts := range full {
		brokerageSizes = append(brokerageSizes, ints(facts.brokerages)...)
		for i, brokerage := range facts.brokerages {
			if i < len(facts.reductions) && brokerage > 0 {
				percentages = append(percentages, 100*float64(facts.reductions[i])/float64(brokerage))
			}
		}
	}
	return Mean(brokerageSizes) * 100 / float64(full[0].prepareBatchSize), Mean(percentages)
}

func roundOneDecimal(value float64) float64 {
	rounded, _ := decimal.NewFromFloat(value).RoundBank(1).Float64()
	return rounded
}

func (f *facts) result() (*Result, error) {
	config, ok := f.brokerConfig()
	if !ok {
		return nil, parseErrorf(roleReplica, "no replica log")
	}

	r := &Result{
		Replicas:    len(f.replicas) + f.faults,
		FastBrokers: len(f.fastBrokers),
		FullBrokers: len(f.fullBrokers),
		Clients:     len(f.clients),
		Faults:      f.faults,

		PrepareBatchSize:     config.prepareBatchSize,
		SingleSignPercentage: config.singleSignPercentage,
		SignupBatches:        config.signupBatchNumber,
		SignupBatchSize:      config.signupBatchSize,
		TotalSignups:         config.signupBatchNumber * config.signupBatchSize * len(f.fastBrokers),
		PrepareBatches:       config.prepareBatchNumber,
		TotalTransactions:    config.prepareBatchNumber * config.prepareBatchSize * len(f.fastBrokers),
	}

	r.Rate = f.rate
	if fast := f.nonEmptyFast(); r.Rate == 0 && len(fast) > 0 {
		r.Rate = fast[0].rate
	}
	if full := f.nonEmptyFull(); len(full) > 0 {
		r.BrokerageTimeout = full[0].brokerageTimeout
		r.ReductionTimeout = full[0].reductionTimeout
	}

	signupTPS, signupDuration := f.signupThroughput()
	r.SignupTPS = round(signupTPS)
	r.SignupDuration = round(signupDuration)
	r.SignupLatency = round(f.signupLatency())
	if len(f.fastBrokers) > 0 {
		r.IDRequests = round(Mean(f.pooled(IDRequests)))
		r.IDClaims = round(Mean(f.pooled(IDClaims)))
		r.IDAssignments = round(Mean(f.pooled(IDAssignments)))
	}

	prepareTPS, prepareDuration := f.prepareThroughput()
	r.BrokerOPS = round(prepareTPS)
	r.PrepareDuration = round(prepareDuration)
	r.ClientOPS = round(f.clientThroughput())

	latencies := f.endToEndLatencies()
	r.LatencyMean = round(Mean(latencies))
	r.LatencyStdev = round(StdDev(latencies))
	for i, value := range Percentiles(latencies) {
		r.Percentiles[i] = round(value)
	}

	brokerageSize, reduction := f.sponge()
	r.BrokerageBatchSize = roundOneDecimal(brokerageSize)
	r.ReductionPercentage = roundOneDecimal(reduction)

	for _, phase := range []struct {
		target *int
		phase  Phase
	}{
		{&r.PrepareBatch, PrepareBatch},
		{&r.PrepareValidate, PrepareValidate},
		{&r.PrepareSingleSig, PrepareSingleSig},
		{&r.PrepareMultiSig, PrepareMultiSig},
		{&r.PrepareWitness, PrepareWitness},
		{&r.PrepareApply, PrepareApply},
		{&r.PrepareCommit, PrepareCommit},
		{&r.CommitBatch, CommitBatch},
		{&r.CommitValidate, CommitValidate},
		{&r.CommitApply, CommitApply},
	} {
		*phase.target = round(Mean(f.pooled(phase.phase)))
	}
	return r, nil
}
