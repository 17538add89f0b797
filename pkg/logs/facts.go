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
	"strings"
)

const (
	roleReplica    = "replica"
	roleFastBroker = "fast broker"
	roleFullBroker = "full broker"
	roleClient     = "client"
	roleRendezvous = "rendezvous"
)

func isEmpty(log string) bool {
	return strings.TrimSpace(log) == ""
}

func requireInt(role string, re *regexp.Regexp, log string, name string) (int, error) {
	value, ok := findInt(re, log)
	if !ok {
		return 0, parseErrorf(role, "missing %q", name)
	}
	return value, nil
}

type fastBrokerFacts struct {
	empty bool

	rate                 int
	signupBatchNumber    int
	signupBatchSize      int
	prepareBatchNumber   int
	prepareBatchSize     int
	singleSignPercentage int

	signupStart, signupEnd float64
	signupBatchesStart     map[int]float64
	signupBatchesEnd       map[int]float64

	// Zero when the prepare phase never started or completed.
	prepareStart, prepareEnd float64
	prepareBatchesStart      map[int]float64
	prepareBatchesEnd        map[int]float64
}

func parseFastBroker(log string) (*fastBrokerFacts, error) {
	if isEmpty(log) {
		return &fastBrokerFacts{empty: true}, nil
	}
	if panicMarker.MatchString(log) {
		return nil, parseErrorf(roleFastBroker, "fast broker panicked")
	}

	facts := &fastBrokerFacts{}
	var err error
	for _, field := range []struct {
		target *int
		re     *regexp.Regexp
		name   string
	}{
		{&facts.rate, rateLimit, "Rate limit"},
		{&facts.signupBatchNumber, signupBatchNumber, "Signup batch number"},
		{&facts.signupBatchSize, signupBatchSize, "Signup batch size"},
		{&facts.prepareBatchNumber, prepareBatchNumber, "Prepare batch number"},
		{&facts.prepareBatchSize, prepareBatchSize, "Prepare batch size"},
		{&facts.singleSignPercentage, singleSignPercentage, "Prepare single sign percentage"},
	} {
		if *field.target, err = requireInt(roleFastBroker, field.re, log, field.name); err != nil {
			return nil, err
		}
	}

	var found bool
	if facts.signupStart, found, err = findTime(signupStart, log); err != nil || !found {
		return nil, parseErrorf(roleFastBroker, "missing or malformed \"Starting signup...\"")
	}
	if facts.signupEnd, found, err = findTime(signupEnd, log); err != nil || !found {
		return nil, parseErrorf(roleFastBroker, "missing or malformed \"Signup complete!\"")
	}
	if facts.prepareStart, _, err = findTime(prepareStart, log); err != nil {
		return nil, parseErrorf(roleFastBroker, "malformed timestamp: %v", err)
	}
	if facts.prepareEnd, _, err = findTime(prepareEnd, log); err != nil {
		return nil, parseErrorf(roleFastBroker, "malformed timestamp: %v", err)
	}

	for _, keyed := range []struct {
		target *map[int]float64
		re     *regexp.Regexp
	}{
		{&facts.signupBatchesStart, signupBatchStart},
		{&facts.signupBatchesEnd, signupBatchEnd},
		{&facts.prepareBatchesStart, prepareBatchStart},
		{&facts.prepareBatchesEnd, prepareBatchEnd},
	} {
		if *keyed.target, err = findKeyedTimes(keyed.re, log); err != nil {
			return nil, parseErrorf(roleFastBroker, "malformed timestamp: %v", err)
		}
	}
	return facts, nil
}

type fullBrokerFacts struct {
	empty bool

	prepareBatchSize    int
	brokerageTimeout    int
	reductionTimeout    int
	reductionPercentage int
	brokerages          []int
	reductions          []int
}

func parseFullBroker(log string) (*fullBrokerFacts, error) {
	if isEmpty(log) {
		return &fullBrokerFacts{empty: true}, nil
	}
	if panicMarker.MatchString(log) || errorMarker.MatchString(log) {
		return nil, parseErrorf(roleFullBroker, "full broker panicked")
	}

	facts := &fullBrokerFacts{}
	var err error
	if facts.prepareBatchSize, err = requireInt(roleFullBroker, prepareBatchSize, log, "Prepare batch size"); err != nil {
		return nil, err
	}
	if facts.brokerageTimeout, err = requireInt(roleFullBroker, brokerageTimeout, log, "Brokerage timeout"); err != nil {
		return nil, err
	}
	if facts.reductionTimeout, err = requireInt(roleFullBroker, reductionTimeout, log, "Reduction timeout"); err != nil {
		return nil, err
	}
	facts.reductionPercentage, _ = findInt(reductionPercentage, log)
	facts.brokerages = findAllInts(brokerages, log)
	facts.reductions = findAllInts(reductions, log)
	return facts, nil
}

type clientFacts struct {
	empty bool

	prepareBatchSize int
	starts           map[int]float64
	ends             map[int]float64
}

func parseClient(log string) (*clientFacts, error) {
	if isEmpty(log) {
		return &clientFacts{empty: true}, nil
	}
	if panicMarker.MatchString(log) || errorMarker.MatchString(log) {
		return nil, parseErrorf(roleClient, "client panicked")
	}

	facts := &clientFacts{}
	var err error
	if facts.prepareBatchSize, err = requireInt(roleClient, prepareBatchSize, log, "Prepare batch size"); err != nil {
		return nil, err
	}
	if facts.starts, err = findKeyedTimes(clientBatchStart, log); err != nil {
		return nil, parseErrorf(roleClient, "malformed timestamp: %v", err)
	}
	if facts.ends, err = findKeyedTimes(clientBatchEnd, log); err != nil {
		return nil, parseErrorf(roleClient, "malformed timestamp: %v", err)
	}
	return facts, nil
}

// brokerConfig is the broker configuration echoed by replicas.
type brokerConfig struct {
	signupBatchNumber    int
	signupBatchSize      int
	prepareBatchNumber   int
	prepareBatchSize     int
	singleSignPercentage int
}

type replicaFacts struct {
	empty bool

	phases [numPhases][]int
	config brokerConfig
}

func parseReplica(log string) (*replicaFacts, error) {
	if isEmpty(log) {
		return &replicaFacts{empty: true}, nil
	}
	if panicMarker.MatchString(log) {
		return nil, parseErrorf(roleReplica, "replica panicked")
	}

	facts := &replicaFacts{}
	for phase, re := range phaseMarkers {
		facts.phases[phase] = findAllInts(re, log)
	}

	var err error
	for _, field := range []struct {
		target *int
		re     *regexp.Regexp
		name   string
	}{
		{&facts.config.signupBatchNumber, echoSignupBatchNumber, "Broker signup batch number"},
		{&facts.config.signupBatchSize, echoSignupBatchSize, "Broker signup batch size"},
		{&facts.config.prepareBatchNumber, echoPrepareNumber, "Broker prepare batch number"},
		{&facts.config.prepareBatchSize, echoPrepareSize, "Broker prepare batch size"},
		{&facts.config.singleSignPercentage, echoSingleSign, "Broker prepare single sign percentage"},
	} {
		if *field.target, err = requireInt(roleReplica, field.re, log, field.name); err != nil {
			return nil, err
		}
	}
	return facts, nil
}

func checkRendezvous(log string) error {
	if panicMarker.MatchString(log) {
		return parseErrorf(roleRendezvous, "rendezvous server panicked")
	}
	return nil
}
