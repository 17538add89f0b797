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
	"os"

	"github.com/mvidigueira/hotstuff-bench/pkg/cloud"
	"github.com/mvidigueira/hotstuff-bench/pkg/commands"
	"github.com/mvidigueira/hotstuff-bench/pkg/config"
	"github.com/mvidigueira/hotstuff-bench/pkg/executor"
	"github.com/pkg/errors"
)

const localhost = "127.0.0.1"

// localPool gives every region of params enough copies of localhost to serve
// its largest configuration.
func localPool(params *config.BenchParameters) map[string][]string {
	needed := map[string]int{}
	for _, cfg := range params.Configurations() {
		perRegion := map[string]int{}
		for _, counts := range []config.RegionCounts{cfg.Validators, cfg.FastBrokers, cfg.Clients()} {
			for region, count := range counts {
				perRegion[region] += count
			}
		}
		if !cfg.Colocate {
			for region, count := range cfg.FullBrokers {
				perRegion[region] += count
			}
		}
		for region, count := range perRegion {
			if count > needed[region] {
				needed[region] = count
			}
		}
	}

	pool := map[string][]string{}
	for region, count := range needed {
		for i := 0; i < count; i++ {
			pool[region] = append(pool[region], localhost)
		}
	}
	return pool
}

// NewLocalBench returns Bench running every instance of params on this machine.
// The repository is cloned, built and run in dir.
func NewLocalBench(settings *config.Settings, dir string, params *config.BenchParameters, opts Options) (*Bench, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "cannot create %s", dir)
	}
	factory := func(string) (executor.Executor, error) {
		return executor.NewLocalIn(dir), nil
	}
	bench := NewBench(settings, factory, cloud.NewStaticManager(localPool(params)), opts)
	bench.workDir = dir
	bench.updateCommand = commands.Join(
		commands.Clone(settings.Repo.Name, settings.Repo.URL),
		commands.Update(settings.Repo.Name, settings.Repo.Branch),
	)
	return bench, nil
}
