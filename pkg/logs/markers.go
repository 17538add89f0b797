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
	"regexp"
	"strconv"
	"time"
)

// Lines start with a bracketed ISO-8601 UTC timestamp, e.g.
// "[2021-06-01T10:00:00.123Z INFO broker] Signing up batch 3".
const timestampPrefix = `\[(\S+Z) .*`

func timed(marker string) *regexp.Regexp {
	return regexp.MustCompile(timestampPrefix + marker)
}

var (
	panicMarker = regexp.MustCompile(`panic`)
	errorMarker = regexp.MustCompile(`Error`)

	// Fast broker.
	rateLimit             = regexp.MustCompile(`Rate limit: (\d+)`)
	signupBatchNumber     = regexp.MustCompile(`Signup batch number: (\d+)`)
	signupBatchSize       = regexp.MustCompile(`Signup batch size: (\d+)`)
	prepareBatchNumber    = regexp.MustCompile(`Prepare batch number: (\d+)`)
	prepareBatchSize      = regexp.MustCompile(`Prepare batch size: (\d+)`)
	singleSignPercentage  = regexp.MustCompile(`Prepare single sign percentage: (\d+)`)
	signupStart           = timed(`Starting signup\.\.\.`)
	signupEnd             = timed(`Signup complete!`)
	signupBatchStart      = timed(`Signing up batch (\d+)`)
	signupBatchEnd        = timed(`Completed signing up batch (\d+)`)
	prepareStart          = timed(`Starting prepare\.\.\.`)
	prepareEnd            = timed(`All transactions completed!`)
	prepareBatchStart     = timed(`Submitting prepare batch (\d+)`)
	prepareBatchEnd       = timed(`Completed prepare batch (\d+)`)
	brokerageTimeout      = regexp.MustCompile(`Brokerage timeout: (\d+)`)
	reductionTimeout      = regexp.MustCompile(`Reduction timeout: (\d+)`)
	reductionPercentage   = regexp.MustCompile(`Reduction percentage: (\d+)`)
	brokerages            = regexp.MustCompile(`Number of brokerages: (\d+)`)
	reductions            = regexp.MustCompile(`Number of reductions: (\d+)`)
	clientBatchStart      = timed(`Client sending batch for height (\d+)`)
	clientBatchEnd        = timed(`Client completed batch for height (\d+)`)
	echoSignupBatchNumber = regexp.MustCompile(`Broker signup batch number (\d+)`)
	echoSignupBatchSize   = regexp.MustCompile(`Broker signup batch size (\d+)`)
	echoPrepareNumber     = regexp.MustCompile(`Broker prepare batch number (\d+)`)
	echoPrepareSize       = regexp.MustCompile(`Broker prepare batch size (\d+)`)
	echoSingleSign        = regexp.MustCompile(`Broker prepare single sign percentage (\d+)`)
)

// Phase identifies a replica pipeline stage reported as "... in N" milliseconds.
type Phase int

const (
	IDRequests Phase = iota
	IDClaims
	IDAssignments
	PrepareBatch
	PrepareCommit
	PrepareValidate
	PrepareSingleSig
	PrepareMultiSig
	PrepareWitness
	PrepareApply
	CommitBatch
	CommitValidate
	CommitApply
	numPhases
)

var phaseMarkers = [numPhases]*regexp.Regexp{
	IDRequests:       regexp.MustCompile(`Processed id requests in (\d+)`),
	IDClaims:         regexp.MustCompile(`Processed id claims in (\d+)`),
	IDAssignments:    regexp.MustCompile(`Processed id assignments in (\d+)`),
	PrepareBatch:     regexp.MustCompile(`Processed prepare batch in (\d+)`),
	PrepareCommit:    regexp.MustCompile(`Processed prepare commit in (\d+)`),
	PrepareValidate:  regexp.MustCompile(`Prepare: validated batch in (\d+)`),
	PrepareSingleSig: regexp.MustCompile(`Prepare: validated individual batch signatures in (\d+)`),
	PrepareMultiSig:  regexp.MustCompile(`Prepare: validated batch multisignature in (\d+)`),
	PrepareWitness:   regexp.MustCompile(`Prepare: validated witness in (\d+)`),
	PrepareApply:     regexp.MustCompile(`Prepare: applied batch in (\d+)`),
	CommitBatch:      regexp.MustCompile(`Processed commit batch in (\d+)`),
	CommitValidate:   regexp.MustCompile(`Commit: validated batch in (\d+)`),
	CommitApply:      regexp.MustCompile(`Commit: applied batch in (\d+)`),
}

// toPosix converts "2021-06-01T10:00:00.123Z" to seconds since epoch.
func toPosix(timestamp string) (float64, error) {
	t, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return 0, err
	}
	return float64(t.UnixNano()) / float64(time.Second), nil
}

// findInt returns the first integer captured by re.
func findInt(re *regexp.Regexp, log string) (int, bool) {
	match := re.FindStringSubmatch(log)
	if match == nil {
		return 0, false
	}
	value, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return value, true
}

// findAllInts returns every integer captured by re.
func findAllInts(re *regexp.Regexp, log string) []int {
	var values []int
	for _, match := range re.FindAllStringSubmatch(log, -1) {
		if value, err := strconv.Atoi(match[1]); err == nil {
			values = append(values, value)
		}
	}
	return values
}

// findTime returns the timestamp of the first line matching re.
func findTime(re *regexp.Regexp, log string) (float64, bool, error) {
	match := re.FindStringSubmatch(log)
	if match == nil {
		return 0, false, nil
	}
	posix, err := toPosix(match[1])
	return posix, true, err
}

// findKeyedTimes returns timestamps keyed by the batch or height captured by re.
// A key seen twice keeps its last timestamp.
func findKeyedTimes(re *regexp.Regexp, log string) (map[int]float64, error) {
	times := map[int]float64{}
	for _, match := range re.FindAllStringSubmatch(log, -1) {
		posix, err := toPosix(match[1])
		if err != nil {
			return nil, err
		}
		key, err := strconv.Atoi(match[2])
		if err != nil {
			return nil, err
		}
		times[key] = posix
	}
	return times, nil
}
