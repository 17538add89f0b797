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
	"os"
	"path/filepath"

	"github.com/mvidigueira/hotstuff-bench/pkg/commands"
	"github.com/mvidigueira/hotstuff-bench/pkg/config"
	"github.com/mvidigueira/hotstuff-bench/pkg/executor"
	"github.com/mvidigueira/hotstuff-bench/pkg/logs"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// LogsDir is the local directory logs are downloaded to.
func (b *Bench) LogsDir() string {
	return filepath.Join(b.opts.Dir, commands.LogsPath())
}

// inPlace reports whether processes write their logs straight into LogsDir,
// which happens locally when the testbed is the output directory. Such logs
// must not be wiped before they are read.
func (b *Bench) inPlace() bool {
	if b.workDir == "" {
		return false
	}
	source, errSource := filepath.Abs(filepath.Join(b.workDir, commands.LogsPath()))
	destination, errDestination := filepath.Abs(b.LogsDir())
	return errSource == nil && errDestination == nil && source == destination
}

func (b *Bench) download(bed *testbed) error {
	dir := b.LogsDir()
	if !b.inPlace() {
		if err := os.RemoveAll(dir); err != nil {
			return errors.Wrapf(err, "cannot delete %s", dir)
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "cannot create %s", dir)
	}

	log.Info("Getting rendezvous log...")
	rendezvousLog := commands.RendezvousLogFile()
	if err := bed.rendezvous.Download(rendezvousLog, filepath.Join(b.opts.Dir, rendezvousLog)); err != nil {
		return err
	}

	instances := bed.instances()
	log.Infof("Downloading %d logs...", len(instances))
	return executor.NewGroup(executors(instances)).Each(func(i int, e executor.Executor) error {
		return e.Download(instances[i].remoteLog, filepath.Join(b.opts.Dir, instances[i].localLog))
	})
}

func (b *Bench) collect(bed *testbed, cfg config.ExperimentConfig) (*logs.Result, error) {
	if err := b.download(bed); err != nil {
		return nil, executionError("log collection", err)
	}
	log.Info("Parsing logs...")
	result, err := logs.Process(b.LogsDir(), logs.Options{Faults: cfg.Faults, Rate: cfg.Rate})
	if err != nil {
		return nil, errors.Wrap(err, "cannot parse logs")
	}
	return result, nil
}

// DownloadLogs pulls the logs of the last run of params without running it
// again and parses them. The last run belongs to the last configuration which
// fits the testbed.
func (b *Bench) DownloadLogs(ctx context.Context, params *config.BenchParameters) (*logs.Result, error) {
	pool, err := b.instances.Hosts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "cannot list hosts")
	}
	configs := params.Configurations()
	allocations, err := allocate(pool, configs)
	if err != nil {
		return nil, err
	}
	for i := len(configs) - 1; i >= 0; i-- {
		if allocations[i] == nil {
			continue
		}
		bed, err := b.testbedOf(allocations[i].Boot(configs[i].Faults))
		if err != nil {
			return nil, executionError("connection", err)
		}
		return b.collect(bed, configs[i])
	}
	return nil, errors.New("no configuration fits the testbed")
}
