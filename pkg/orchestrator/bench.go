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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mvidigueira/hotstuff-bench/pkg/allocator"
	"github.com/mvidigueira/hotstuff-bench/pkg/cloud"
	"github.com/mvidigueira/hotstuff-bench/pkg/commands"
	"github.com/mvidigueira/hotstuff-bench/pkg/config"
	"github.com/mvidigueira/hotstuff-bench/pkg/executor"
	"github.com/mvidigueira/hotstuff-bench/pkg/logs"
	"github.com/mvidigueira/hotstuff-bench/pkg/metrics"
	"github.com/mvidigueira/hotstuff-bench/pkg/utils/errutil"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Options of a Bench.
type Options struct {
	// Dir is the local directory receiving logs, results and the parameters file.
	Dir     string
	Debug   bool
	SweepID string
	// Uploader receives metrics of every successful run. Discarded by default.
	Uploader metrics.Uploader
	// Sleep waits between phases. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Bench drives experiment sweeps over the hosts of an instance manager.
type Bench struct {
	settings  *config.Settings
	factory   executor.Factory
	instances cloud.InstanceManager
	opts      Options

	// workDir is where processes run when they run on this machine.
	workDir       string
	updateCommand string
}

// NewBench returns Bench reaching hosts through factory.
func NewBench(settings *config.Settings, factory executor.Factory, instances cloud.InstanceManager, opts Options) *Bench {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.Uploader == nil {
		opts.Uploader = metrics.Discard{}
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	return &Bench{
		settings:  settings,
		factory:   factory,
		instances: instances,
		opts:      opts,
		updateCommand: commands.Join(
			commands.TCPSettings(),
			commands.Update(settings.Repo.Name, settings.Repo.Branch),
		),
	}
}

func (b *Bench) group(hosts []string) (*executor.Group, error) {
	group, err := executor.NewGroupFromHosts(b.factory, hosts)
	if err != nil {
		return nil, errors.Wrap(err, "cannot connect to hosts")
	}
	return group, nil
}

func (b *Bench) allHosts(ctx context.Context) (*executor.Group, error) {
	pool, err := b.instances.Hosts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "cannot list hosts")
	}
	if pool.Size() == 0 {
		return nil, errors.New("there are no running hosts")
	}
	return b.group(pool.Flat())
}

// Install installs the toolchain and clones the repository on every running host.
func (b *Bench) Install(ctx context.Context) error {
	group, err := b.allHosts(ctx)
	if err != nil {
		return err
	}
	log.Infof("Installing %s on %d hosts...", b.settings.Repo.Name, group.Len())
	if _, err := group.Execute(commands.Install(b.settings.Repo.Name, b.settings.Repo.URL)); err != nil {
		return errors.Wrap(err, "failed to install repository")
	}
	log.Infof("Initialized testbed of %d hosts", group.Len())
	return nil
}

// Kill stops every session on hosts, or on every running host when none are
// given, and optionally deletes logs.
func (b *Bench) Kill(ctx context.Context, hosts []string, deleteLogs bool) error {
	var group *executor.Group
	var err error
	if len(hosts) == 0 {
		group, err = b.allHosts(ctx)
	} else {
		group, err = b.group(hosts)
	}
	if err != nil {
		return err
	}
	return errors.Wrap(b.kill(group, deleteLogs), "failed to kill testbed")
}

func (b *Bench) kill(group *executor.Group, deleteLogs bool) error {
	command := commands.KillIgnoringErrors()
	if deleteLogs {
		command = commands.Join(command, commands.CleanLogs())
	}
	_, err := group.Execute(command)
	return err
}

func (b *Bench) update(hosts []string) error {
	log.Infof("Updating %d hosts (branch %q)...", len(hosts), b.settings.Repo.Branch)
	group, err := b.group(hosts)
	if err != nil {
		return err
	}
	if _, err := group.Execute(b.updateCommand); err != nil {
		return errors.Wrap(err, "failed to update hosts")
	}
	return nil
}

func (b *Bench) configure(group *executor.Group, node *config.NodeParameters) error {
	// Cleanup first: locally the printed file may be the uploaded one.
	if _, err := group.Execute(commands.Cleanup()); err != nil {
		return err
	}
	local := filepath.Join(b.opts.Dir, commands.ParametersFile())
	if err := node.Print(local); err != nil {
		return err
	}
	return group.Upload(local, commands.ParametersFile())
}

func demand(cfg config.ExperimentConfig) allocator.Demand {
	return allocator.Demand{
		allocator.Validators:  cfg.Validators,
		allocator.FastBrokers: cfg.FastBrokers,
		allocator.FullBrokers: cfg.FullBrokers,
	}
}

// allocate returns allocation of every configuration, nil for the ones which
// do not fit the pool. A region missing from the pool fails the whole sweep.
func allocate(pool allocator.HostPool, configs []config.ExperimentConfig) ([]*allocator.Allocation, error) {
	allocations := make([]*allocator.Allocation, len(configs))
	for i, cfg := range configs {
		allocation, err := allocator.Allocate(pool, demand(cfg), cfg.Colocate)
		if err != nil {
			if capacityErr, ok := err.(*allocator.CapacityError); ok && capacityErr.Missing {
				return nil, errors.Wrap(err, "cannot allocate hosts")
			}
			errutil.Warn(err, fmt.Sprintf("Skipping configuration (%s)", cfg))
			continue
		}
		allocations[i] = allocation
	}
	return allocations, nil
}

// Run runs every configuration of params the given number of times.
// Failed configurations and runs are reported and skipped. Cancelling ctx
// stops the running testbed and returns the context error.
func (b *Bench) Run(ctx context.Context, params *config.BenchParameters, node *config.NodeParameters) error {
	log.Info("Starting benchmark")
	pool, err := b.instances.Hosts(ctx)
	if err != nil {
		return errors.Wrap(err, "cannot list hosts")
	}

	configs := params.Configurations()
	allocations, err := allocate(pool, configs)
	if err != nil {
		return err
	}
	var selected []*allocator.Allocation
	for _, allocation := range allocations {
		if allocation != nil {
			selected = append(selected, allocation)
		}
	}
	if len(selected) == 0 {
		return errors.New("no configuration fits the testbed")
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.update(allocator.MergeAllocations(selected).Merged()); err != nil {
		return err
	}

	total := 0
	for i, cfg := range configs {
		if allocations[i] != nil {
			total += cfg.Runs
		}
	}
	bar := newProgress(total)
	defer bar.finish()

	for i, cfg := range configs {
		allocation := allocations[i]
		if allocation == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Infof("Running %s", cfg)

		group, err := b.group(allocation.Merged())
		if errutil.Warn(err, "Failed to configure hosts") {
			bar.advance(cfg.Runs)
			continue
		}
		if errutil.Warn(b.configure(group, node), "Failed to configure hosts") {
			bar.advance(cfg.Runs)
			continue
		}

		for run := 0; run < cfg.Runs; run++ {
			log.Infof("Run %d/%d", run+1, cfg.Runs)
			bar.start(cfg, run)
			result, err := b.RunOne(ctx, allocation, cfg)
			bar.advance(1)
			if err == nil {
				log.Info("\n", result)
				errutil.Warn(b.record(i, run, cfg, result), "Failed to record result")
			}
			if ctx.Err() != nil {
				log.Warn("Benchmark interrupted")
				return ctx.Err()
			}
			errutil.Warn(err, "Benchmark failed")
		}
	}
	return nil
}

// record appends result to the result file of its setup and uploads its metrics.
func (b *Bench) record(index, run int, cfg config.ExperimentConfig, result *logs.Result) error {
	filename := filepath.Join(b.opts.Dir, commands.ResultFile(cfg.Replicas(), cfg.Brokers(), cfg.Rate, cfg.Faults))
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return errors.Wrapf(err, "cannot create directory of %s", filename)
	}
	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "cannot open %s", filename)
	}
	if _, err := file.WriteString(result.String()); err != nil {
		file.Close()
		return errors.Wrapf(err, "cannot write %s", filename)
	}
	if err := file.Close(); err != nil {
		return errors.Wrapf(err, "cannot close %s", filename)
	}

	tags := metrics.Tags{SweepID: b.opts.SweepID, Configuration: index, Run: run}
	bench := metrics.New(tags, metrics.FromResult(result, cfg.Duration))
	return errors.Wrap(b.opts.Uploader.SendMetrics(*bench), "cannot upload metrics")
}
