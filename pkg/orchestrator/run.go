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

package orchestrator

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/mvidigueira/hotstuff-bench/pkg/allocator"
	"github.com/mvidigueira/hotstuff-bench/pkg/commands"
	"github.com/mvidigueira/hotstuff-bench/pkg/config"
	"github.com/mvidigueira/hotstuff-bench/pkg/executor"
	"github.com/mvidigueira/hotstuff-bench/pkg/logs"
	"github.com/mvidigueira/hotstuff-bench/pkg/utils/errutil"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// SynchronizationDwell bounds the wait for the rendezvous server before
	// replicas are started.
	SynchronizationDwell = 10 * time.Second
	// Checkpoint is the interval of early completion polls while the benchmark runs.
	Checkpoint = 5 * time.Second
	// Lets processes flush their logs after being killed.
	settleDelay = 2 * time.Second
)

// instance is one started process and where its log lives.
type instance struct {
	executor  executor.Executor
	remoteLog string
	localLog  string
}

func executors(instances []instance) []executor.Executor {
	list := make([]executor.Executor, len(instances))
	for i, instance := range instances {
		list[i] = instance.executor
	}
	return list
}

// testbed is the set of processes of one run.
type testbed struct {
	rendezvous  executor.Executor
	replicas    []instance
	fastBrokers []instance
	fullBrokers []instance
	clients     []instance
}

func (t *testbed) instances() []instance {
	var all []instance
	for _, role := range [][]instance{t.replicas, t.fastBrokers, t.fullBrokers, t.clients} {
		all = append(all, role...)
	}
	return all
}

// completed reports whether every client, or every fast broker when there
// are no clients, logged the completion marker.
func (t *testbed) completed() bool {
	watched := t.clients
	if len(watched) == 0 {
		watched = t.fastBrokers
	}
	if len(watched) == 0 {
		return false
	}
	err := executor.NewGroup(executors(watched)).Each(func(i int, e executor.Executor) error {
		_, err := e.Execute(commands.HasCompleted(watched[i].remoteLog))
		return err
	})
	return err == nil
}

// background starts command detached from the session. Anything printed on
// stderr means the session did not start.
func background(e executor.Executor, command, logFile string) error {
	output, err := e.Execute(commands.BackgroundRun(command, logFile))
	if err != nil {
		return err
	}
	if strings.TrimSpace(output.Stderr) != "" {
		return &executor.CommandError{Host: e.Host(), Command: command, Output: output}
	}
	return nil
}

func distinct(hosts []string) bool {
	seen := map[string]bool{}
	for _, host := range hosts {
		if seen[host] {
			return false
		}
		seen[host] = true
	}
	return true
}

// instancesOf names the log of every instance on hosts. Instances on distinct
// hosts share sharedLog when it is given, otherwise every instance writes
// logFile(i). Locally it is always logFile(i).
func (b *Bench) instancesOf(hosts []string, sharedLog string, logFile func(int) string) ([]instance, error) {
	batched := sharedLog != "" && distinct(hosts)
	instances := make([]instance, len(hosts))
	for i, host := range hosts {
		e, err := b.factory(host)
		if err != nil {
			return nil, err
		}
		instances[i] = instance{executor: e, remoteLog: logFile(i), localLog: logFile(i)}
		if batched {
			instances[i].remoteLog = sharedLog
		}
	}
	return instances, nil
}

// testbedOf lays out the processes of booted. The rendezvous server runs on the
// first validator.
func (b *Bench) testbedOf(booted *allocator.Allocation) (*testbed, error) {
	host, ok := booted.Rendezvous()
	if !ok {
		return nil, errors.New("no validator to boot")
	}
	bed := &testbed{}
	var err error
	if bed.rendezvous, err = b.factory(host); err != nil {
		return nil, err
	}
	if bed.replicas, err = b.instancesOf(booted.Hosts(allocator.Validators),
		commands.SharedReplicaLogFile(), commands.ReplicaLogFile); err != nil {
		return nil, err
	}
	if bed.fastBrokers, err = b.instancesOf(booted.Hosts(allocator.FastBrokers),
		commands.SharedFastBrokerLogFile(), commands.FastBrokerLogFile); err != nil {
		return nil, err
	}
	if bed.fullBrokers, err = b.instancesOf(booted.Hosts(allocator.FullBrokers),
		"", commands.FullBrokerLogFile); err != nil {
		return nil, err
	}
	if bed.clients, err = b.instancesOf(booted.Hosts(allocator.Clients),
		"", commands.ClientLogFile); err != nil {
		return nil, err
	}
	return bed, nil
}

// launch runs command in the background for every instance, all at once.
func launch(instances []instance, command string) error {
	return executor.NewGroup(executors(instances)).Each(func(i int, e executor.Executor) error {
		return background(e, command, instances[i].remoteLog)
	})
}

// waitForRendezvous polls the rendezvous port with growing intervals. After
// SynchronizationDwell the run goes on regardless.
func (b *Bench) waitForRendezvous(ctx context.Context, rendezvous executor.Executor) error {
	probe := &backoff.Backoff{Min: 500 * time.Millisecond, Max: 2 * time.Second, Factor: 2}
	for waited := time.Duration(0); waited < SynchronizationDwell; {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := rendezvous.Execute(commands.IsListening("localhost", commands.RendezvousPort)); err == nil {
			log.Debugf("Rendezvous server listening after %v", waited)
			return nil
		}
		delay := probe.Duration()
		b.opts.Sleep(delay)
		waited += delay
	}
	log.Warnf("Rendezvous server not reachable after %v, starting nodes anyway", SynchronizationDwell)
	return nil
}

// dwell sleeps for duration in checkpoints and returns early once done reports
// true. It fails at the first checkpoint after ctx is cancelled.
func (b *Bench) dwell(ctx context.Context, duration time.Duration, done func() bool) error {
	for waited := time.Duration(0); waited < duration; {
		if err := ctx.Err(); err != nil {
			return err
		}
		step := Checkpoint
		if remaining := duration - waited; remaining < step {
			step = remaining
		}
		b.opts.Sleep(step)
		waited += step
		if waited < duration && done() {
			log.Infof("All transactions completed after %v", waited)
			return nil
		}
	}
	return ctx.Err()
}

// RunOne runs configuration once on allocation and parses the pulled logs.
// The last cfg.Faults validators are never booted. Every host is stopped on
// failure, including cancellation of ctx.
func (b *Bench) RunOne(ctx context.Context, allocation *allocator.Allocation, cfg config.ExperimentConfig) (result *logs.Result, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	booted := allocation.Boot(cfg.Faults)
	host, ok := booted.Rendezvous()
	if !ok {
		return nil, errors.Errorf("no validator left to boot with %d faults", cfg.Faults)
	}
	all, err := b.group(allocation.Merged())
	if err != nil {
		return nil, executionError("connection", err)
	}
	bed, err := b.testbedOf(booted)
	if err != nil {
		return nil, executionError("connection", err)
	}

	log.Info("Booting testbed...")
	if err := b.kill(all, true); err != nil {
		return nil, executionError("teardown of previous run", err)
	}
	defer func() {
		if err != nil {
			errutil.Warn(b.kill(all, false), "Failed to kill testbed")
		}
	}()

	rendezvousCommand := commands.RunRendezvous(
		booted.Count(allocator.Validators),
		booted.Count(allocator.FastBrokers),
		booted.Count(allocator.FullBrokers),
		booted.Count(allocator.Clients))
	if err := background(bed.rendezvous, rendezvousCommand, commands.RendezvousLogFile()); err != nil {
		return nil, executionError("rendezvous boot", err)
	}
	endpoint := net.JoinHostPort(host, strconv.Itoa(commands.RendezvousPort))
	log.Infof("Rendezvous server: %s", endpoint)
	if err := b.waitForRendezvous(ctx, bed.rendezvous); err != nil {
		return nil, err
	}

	parameters := commands.ParametersFile()
	log.Infof("Starting %d replicas...", len(bed.replicas))
	if err := launch(bed.replicas, commands.RunReplica(endpoint, endpoint, parameters, b.opts.Debug)); err != nil {
		return nil, executionError("replica boot", err)
	}

	if len(bed.fastBrokers) > 0 {
		log.Infof("Starting %d fast brokers...", len(bed.fastBrokers))
	}
	if err := launch(bed.fastBrokers, commands.RunBroker(endpoint, parameters, cfg.Rate, false, b.opts.Debug)); err != nil {
		return nil, executionError("fast broker boot", err)
	}

	if len(bed.fullBrokers) > 0 {
		log.Infof("Starting %d full brokers...", len(bed.fullBrokers))
	}
	if err := launch(bed.fullBrokers, commands.RunBroker(endpoint, parameters, cfg.Rate, true, b.opts.Debug)); err != nil {
		return nil, executionError("full broker boot", err)
	}

	if len(bed.clients) > 0 {
		log.Infof("Starting %d clients...", len(bed.clients))
	}
	if err := launch(bed.clients, commands.RunClient(endpoint, parameters, len(bed.clients), b.opts.Debug)); err != nil {
		return nil, executionError("client boot", err)
	}

	log.Infof("Running benchmark (%v)...", cfg.Duration)
	if err := b.dwell(ctx, cfg.Duration, bed.completed); err != nil {
		return nil, err
	}

	errutil.Warn(b.kill(all, false), "Failed to stop testbed")
	b.opts.Sleep(settleDelay)

	return b.collect(bed, cfg)
}
