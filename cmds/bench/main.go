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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mvidigueira/hotstuff-bench/pkg/aggregate"
	"github.com/mvidigueira/hotstuff-bench/pkg/cloud"
	"github.com/mvidigueira/hotstuff-bench/pkg/commands"
	"github.com/mvidigueira/hotstuff-bench/pkg/conf"
	"github.com/mvidigueira/hotstuff-bench/pkg/config"
	"github.com/mvidigueira/hotstuff-bench/pkg/executor"
	"github.com/mvidigueira/hotstuff-bench/pkg/experiment/logger"
	"github.com/mvidigueira/hotstuff-bench/pkg/metrics"
	"github.com/mvidigueira/hotstuff-bench/pkg/metrics/uploaders"
	"github.com/mvidigueira/hotstuff-bench/pkg/orchestrator"
	"github.com/mvidigueira/hotstuff-bench/pkg/utils/errutil"
	"github.com/mvidigueira/hotstuff-bench/pkg/visualization"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const appName = "bench"

var (
	settingsFlag = conf.NewStringFlag("settings", "Testbed settings file", "settings.yaml")
	benchFlag    = conf.NewStringFlag("bench_parameters", "Experiment sweep parameters file", "bench.yaml")
	nodeFlag     = conf.NewStringFlag("node_parameters", "Runtime parameters uploaded to every host", "node.json")
	plotFlag     = conf.NewStringFlag("plot_parameters", "Plot parameters file. Every setup is plotted when empty", "")
	dirFlag      = conf.NewStringFlag("dir", "Local directory of logs, results and plots", ".")
	debugFlag    = conf.NewBoolFlag("debug", "Run binaries of the system under test with debug verbosity", false)

	cassandraAddressFlag  = conf.NewSliceFlag("cassandra_address", "Cassandra hosts receiving metrics of every run. Metrics are discarded when empty")
	cassandraPortFlag     = conf.NewIntFlag("cassandra_port", "Cassandra port", 9042)
	cassandraKeySpaceFlag = conf.NewStringFlag("cassandra_keyspace", "Cassandra keyspace of metrics", "hotstuff_bench")
	cassandraUserFlag     = conf.NewStringFlag("cassandra_username", "Cassandra user", "")
	cassandraPasswordFlag = conf.NewStringFlag("cassandra_password", "Cassandra password", "")
	cassandraTimeoutFlag  = conf.NewDurationFlag("cassandra_timeout", "Cassandra query timeout", 0)

	createCommand = conf.Command("create", "Create cloud instances in every configured region")
	createNodes   = createCommand.Flag("nodes", "Number of instances per region").Default("2").Int()

	destroyCommand = conf.Command("destroy", "Terminate every instance of the testbed")

	startCommand = conf.Command("start", "Start stopped instances")
	startMax     = startCommand.Flag("max", "Maximum number of instances started per region").Default("2").Int()

	stopCommand    = conf.Command("stop", "Stop every running instance")
	infoCommand    = conf.Command("info", "List instances and how to connect to them")
	installCommand = conf.Command("install", "Install the toolchain and clone the repository on every host")

	remoteCommand = conf.Command("remote", "Run the benchmark sweep on the testbed")
	localCommand  = conf.Command("local", "Run the benchmark sweep on this machine")
	localDir      = localCommand.Flag("testbed", "Directory the repository is built and run in").Default("testbed").String()

	killCommand    = conf.Command("kill", "Stop every session on every host")
	killHosts      = conf.StringList(killCommand.Flag("host", "Hosts to stop, comma separated or repeated. Every host when not given"))
	killDeleteLogs = killCommand.Flag("delete-logs", "Delete logs of the hosts too").Bool()

	logsCommand = conf.Command("logs", "Download and parse logs of the last run")

	plotCommand = conf.Command("plot", "Aggregate results into series files")

	configCommand = conf.Command("config", "Print flags with their current values as an environment script")
)

func loadSettings() *config.Settings {
	settings, err := config.LoadSettings(settingsFlag.Value())
	errutil.CheckWithContext(err, "Invalid settings")
	return settings
}

func instanceManager(ctx context.Context, settings *config.Settings) cloud.InstanceManager {
	manager, err := cloud.NewInstanceManager(ctx, settings)
	errutil.CheckWithContext(err, "Cannot reach cloud provider")
	return manager
}

func newRemoteBench(ctx context.Context, settings *config.Settings, opts orchestrator.Options) *orchestrator.Bench {
	clientConfig, err := executor.NewClientConfig(settings.SSH.User, settings.Key.Path)
	errutil.CheckWithContext(err, "Cannot load SSH key")
	factory := executor.NewFactory(clientConfig, settings.SSH.Port)
	return orchestrator.NewBench(settings, factory, instanceManager(ctx, settings), opts)
}

func newUploader() (metrics.Uploader, func()) {
	if len(cassandraAddressFlag.Value()) == 0 {
		return metrics.Discard{}, func() {}
	}
	uploader, err := uploaders.NewCassandra(uploaders.Config{
		Username: cassandraUserFlag.Value(),
		Password: cassandraPasswordFlag.Value(),
		Host:     cassandraAddressFlag.Value(),
		Port:     cassandraPortFlag.Value(),
		KeySpace: cassandraKeySpaceFlag.Value(),
		Timeout:  cassandraTimeoutFlag.Value(),
	})
	errutil.CheckWithContext(err, "Cannot connect to Cassandra")
	closer, ok := uploader.(interface{ Close() })
	if !ok {
		return uploader, func() {}
	}
	return uploader, closer.Close
}

func loadParameters() (*config.BenchParameters, *config.NodeParameters) {
	params, err := config.LoadBenchParameters(benchFlag.Value())
	errutil.CheckWithContext(err, "Invalid bench parameters")
	node, err := config.LoadNodeParameters(nodeFlag.Value())
	errutil.CheckWithContext(err, "Invalid node parameters")
	return params, node
}

// sweep runs every configuration of the bench parameters on the bench made by newBench.
func sweep(ctx context.Context, params *config.BenchParameters, node *config.NodeParameters,
	newBench func(orchestrator.Options) (*orchestrator.Bench, error)) error {
	sweepID, logFile, err := logger.Initialize(conf.AppName(), filepath.Join(dirFlag.Value(), "sweeps"))
	if err != nil {
		return err
	}
	defer logFile.Close()
	fmt.Println(visualization.NewSweepMetadata(sweepID))

	uploader, closeUploader := newUploader()
	defer closeUploader()

	bench, err := newBench(orchestrator.Options{
		Dir:      dirFlag.Value(),
		Debug:    debugFlag.Value(),
		SweepID:  sweepID,
		Uploader: uploader,
	})
	if err != nil {
		return err
	}
	return bench.Run(ctx, params, node)
}

func info(ctx context.Context, settings *config.Settings) error {
	instances, err := instanceManager(ctx, settings).Instances(ctx)
	if err != nil {
		return err
	}
	if len(instances) == 0 {
		log.Warn("There are no instances")
		return nil
	}
	visualization.DrawTable(cloud.InstancesTable(instances, settings.SSH.User, settings.Key.Path))
	return nil
}

func downloadLogs(ctx context.Context, settings *config.Settings) error {
	params, err := config.LoadBenchParameters(benchFlag.Value())
	if err != nil {
		return err
	}
	bench := newRemoteBench(ctx, settings, orchestrator.Options{Dir: dirFlag.Value()})
	result, err := bench.DownloadLogs(ctx, params)
	if err != nil {
		return err
	}
	fmt.Print(result)
	return nil
}

func plot() error {
	var params *config.PlotParameters
	if plotFlag.Value() != "" {
		var err error
		if params, err = config.LoadPlotParameters(plotFlag.Value()); err != nil {
			return err
		}
	}
	aggregator, err := aggregate.LoadDirectory(filepath.Join(dirFlag.Value(), commands.ResultsPath()))
	if err != nil {
		return err
	}
	written, err := aggregator.Print(filepath.Join(dirFlag.Value(), commands.PlotsPath()), params)
	if err != nil {
		return err
	}
	visualization.DrawTable(aggregator.Table())
	visualization.PrintList(visualization.NewList(written, "Series"))
	return nil
}

func main() {
	conf.SetAppName(appName)
	conf.SetHelp(`Benchmark harness of the HotStuff broker system. It manages cloud instances,
runs sweeps of experiment configurations on them and reduces the pulled logs into results and series.`)

	command, err := conf.ParseFlags()
	errutil.Check(err)
	log.SetLevel(conf.LogLevel())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch command {
	case createCommand.FullCommand():
		settings := loadSettings()
		counts := config.RegionCounts{}
		for _, region := range settings.Regions() {
			counts[region] = *createNodes
		}
		err = instanceManager(ctx, settings).Create(ctx, counts)
	case destroyCommand.FullCommand():
		settings := loadSettings()
		err = instanceManager(ctx, settings).Terminate(ctx)
	case startCommand.FullCommand():
		settings := loadSettings()
		err = instanceManager(ctx, settings).Start(ctx, *startMax)
	case stopCommand.FullCommand():
		settings := loadSettings()
		err = instanceManager(ctx, settings).Stop(ctx)
	case infoCommand.FullCommand():
		err = info(ctx, loadSettings())
	case installCommand.FullCommand():
		err = newRemoteBench(ctx, loadSettings(), orchestrator.Options{}).Install(ctx)
	case remoteCommand.FullCommand():
		settings := loadSettings()
		params, node := loadParameters()
		err = sweep(ctx, params, node, func(opts orchestrator.Options) (*orchestrator.Bench, error) {
			return newRemoteBench(ctx, settings, opts), nil
		})
	case localCommand.FullCommand():
		settings := loadSettings()
		params, node := loadParameters()
		err = sweep(ctx, params, node, func(opts orchestrator.Options) (*orchestrator.Bench, error) {
			return orchestrator.NewLocalBench(settings, *localDir, params, opts)
		})
	case killCommand.FullCommand():
		err = newRemoteBench(ctx, loadSettings(), orchestrator.Options{}).Kill(ctx, *killHosts, *killDeleteLogs)
	case logsCommand.FullCommand():
		err = downloadLogs(ctx, loadSettings())
	case plotCommand.FullCommand():
		err = plot()
	case configCommand.FullCommand():
		fmt.Println(conf.DumpConfig())
	default:
		err = errors.Errorf("unknown command %q", command)
	}
	errutil.CheckWithContext(err, fmt.Sprintf("%s failed", command))
}
