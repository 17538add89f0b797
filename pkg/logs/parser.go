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
	"io/ioutil"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Log is the text of one role instance log.
type Log struct {
	Name string
	Text string
}

// Artifacts are the logs pulled after one run.
type Artifacts struct {
	Rendezvous  string
	Replicas    []Log
	FastBrokers []Log
	FullBrokers []Log
	Clients     []Log
}

// Options of the parser.
type Options struct {
	// Faults is the number of replicas which were not booted.
	Faults int
	// Rate is the configured input rate. When zero, the rate limit logged by
	// fast brokers is reported.
	Rate int
	// Workers limits parallel parsing. Defaults to number of CPUs.
	Workers int
}

func readLogs(dir, pattern string) ([]Log, error) {
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list %s in %s", pattern, dir)
	}
	sort.Strings(files)

	logs := make([]Log, 0, len(files))
	for _, file := range files {
		data, err := ioutil.ReadFile(file)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot read %s", file)
		}
		logs = append(logs, Log{Name: filepath.Base(file), Text: string(data)})
	}
	return logs, nil
}

// ReadArtifacts reads every role log from dir.
func ReadArtifacts(dir string) (*Artifacts, error) {
	artifacts := &Artifacts{}
	var err error
	if artifacts.Replicas, err = readLogs(dir, "replica-*.log"); err != nil {
		return nil, err
	}
	if artifacts.FastBrokers, err = readLogs(dir, "fast-broker-*.log"); err != nil {
		return nil, err
	}
	if artifacts.FullBrokers, err = readLogs(dir, "full-broker-*.log"); err != nil {
		return nil, err
	}
	if artifacts.Clients, err = readLogs(dir, "client-*.log"); err != nil {
		return nil, err
	}
	if data, err := ioutil.ReadFile(filepath.Join(dir, "rendezvous.log")); err == nil {
		artifacts.Rendezvous = string(data)
	}
	return artifacts, nil
}

// Process reads the logs of dir and reduces them into a Result.
func Process(dir string, opts Options) (*Result, error) {
	artifacts, err := ReadArtifacts(dir)
	if err != nil {
		return nil, err
	}
	return Parse(artifacts, opts)
}

func inFile(err error, name string) error {
	if parseErr, ok := err.(*ParseError); ok {
		parseErr.File = name
	}
	return err
}

// Parse extracts facts from every log in a worker pool and reduces them into a Result.
// Logs are independent so workers share nothing; facts are stored by log index.
func Parse(artifacts *Artifacts, opts Options) (*Result, error) {
	if len(artifacts.Replicas) == 0 {
		return nil, parseErrorf(roleReplica, "no replica log")
	}
	if err := checkRendezvous(artifacts.Rendezvous); err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	f := &facts{
		replicas:    make([]*replicaFacts, len(artifacts.Replicas)),
		fastBrokers: make([]*fastBrokerFacts, len(artifacts.FastBrokers)),
		fullBrokers: make([]*fullBrokerFacts, len(artifacts.FullBrokers)),
		clients:     make([]*clientFacts, len(artifacts.Clients)),
		faults:      opts.Faults,
		rate:        opts.Rate,
	}

	group := &errgroup.Group{}
	group.SetLimit(workers)

	for i, replica := range artifacts.Replicas {
		i, replica := i, replica
		group.Go(func() (err error) {
			f.replicas[i], err = parseReplica(replica.Text)
			return inFile(err, replica.Name)
		})
	}
	for i, broker := range artifacts.FastBrokers {
		i, broker := i, broker
		group.Go(func() (err error) {
			f.fastBrokers[i], err = parseFastBroker(broker.Text)
			return inFile(err, broker.Name)
		})
	}
	for i, broker := range artifacts.FullBrokers {
		i, broker := i, broker
		group.Go(func() (err error) {
			f.fullBrokers[i], err = parseFullBroker(broker.Text)
			return inFile(err, broker.Name)
		})
	}
	for i, client := range artifacts.Clients {
		i, client := i, client
		group.Go(func() (err error) {
			f.clients[i], err = parseClient(client.Text)
			return inFile(err, client.Name)
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	log.Debugf("Parsed logs of %d replicas, %d fast brokers, %d full brokers and %d clients",
		len(f.replicas), len(f.fastBrokers), len(f.fullBrokers), len(f.clients))
	return f.result()
}
