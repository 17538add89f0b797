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

package commands

import (
	"fmt"
	"path"
)

const (
	logsDir        = "logs"
	resultsDir     = "results"
	plotsDir       = "plots"
	parametersFile = ".parameters.json"
	binaryDir      = "target/release"
)

// LogsPath is the directory holding role logs, locally and on every host.
func LogsPath() string {
	return logsDir
}

// ResultsPath is the directory holding text reports.
func ResultsPath() string {
	return resultsDir
}

// PlotsPath is the directory holding aggregated series.
func PlotsPath() string {
	return plotsDir
}

// ParametersFile is the node parameters file read by every binary.
func ParametersFile() string {
	return parametersFile
}

// BinaryPath is the build output directory of the repository.
func BinaryPath(repo string) string {
	return path.Join(repo, binaryDir)
}

// RendezvousLogFile is the log of the rendezvous server.
func RendezvousLogFile() string {
	return path.Join(logsDir, "rendezvous.log")
}

// ReplicaLogFile is the local log name of the i-th replica.
func ReplicaLogFile(i int) string {
	return path.Join(logsDir, fmt.Sprintf("replica-%d.log", i))
}

// FastBrokerLogFile is the local log name of the i-th fast broker.
func FastBrokerLogFile(i int) string {
	return path.Join(logsDir, fmt.Sprintf("fast-broker-%d.log", i))
}

// FullBrokerLogFile is the log name of the i-th full broker.
func FullBrokerLogFile(i int) string {
	return path.Join(logsDir, fmt.Sprintf("full-broker-%d.log", i))
}

// ClientLogFile is the log name of the i-th client.
func ClientLogFile(i int) string {
	return path.Join(logsDir, fmt.Sprintf("client-%d.log", i))
}

// SharedReplicaLogFile is the remote log name used by replicas booted in one batch.
func SharedReplicaLogFile() string {
	return path.Join(logsDir, "replica.log")
}

// SharedFastBrokerLogFile is the remote log name used by fast brokers booted in one batch.
func SharedFastBrokerLogFile() string {
	return path.Join(logsDir, "fast-broker.log")
}

// ResultFile is the text report of one setup, appended across runs.
func ResultFile(replicas, brokers, rate, faults int) string {
	return path.Join(resultsDir, fmt.Sprintf("bench-%d-%d-%d-%d.txt", replicas, brokers, rate, faults))
}

// AggFile is the series file of one setup. maxLatency is appended when positive.
// Negative replicas mark a series over the number of replicas.
func AggFile(name string, replicas, brokers, faults, maxLatency int) string {
	nodes := fmt.Sprint(replicas)
	if replicas < 0 {
		nodes = "x"
	}
	filename := fmt.Sprintf("agg-%s-%s-%d-%d", name, nodes, brokers, faults)
	if maxLatency > 0 {
		filename = fmt.Sprintf("%s-%d", filename, maxLatency)
	}
	return path.Join(plotsDir, filename+".txt")
}
