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
	"strings"
)

// RendezvousPort is the port the rendezvous server listens on.
const RendezvousPort = 9000

// CompletionMarker is printed by clients and fast brokers once every transaction completed.
const CompletionMarker = "All transactions completed!"

// cargoEnv puts the Rust toolchain on PATH. It is POSIX sh, since dash has no source.
const cargoEnv = `. "$HOME/.cargo/env"`

var binaries = []string{"rendezvous", "replica", "broker", "client"}

// Join chains commands so that the first failure stops the chain.
func Join(commands ...string) string {
	return strings.Join(commands, " && ")
}

// Cleanup removes databases and parameter files of previous runs.
func Cleanup() string {
	return fmt.Sprintf("rm -r .db-* ; rm .*.json ; mkdir -p %s", resultsDir)
}

// CleanLogs recreates an empty logs directory.
func CleanLogs() string {
	return fmt.Sprintf("rm -r %s ; mkdir -p %s", logsDir, logsDir)
}

// Compile builds every binary with benchmark instrumentation.
func Compile() string {
	return "cargo build --quiet --release --features benchmark"
}

// Kill stops every tmux session on the host.
func Kill() string {
	return "tmux kill-server"
}

// KillIgnoringErrors is Kill succeeding when nothing is running.
func KillIgnoringErrors() string {
	return fmt.Sprintf("(%s || true)", Kill())
}

// AliasBinaries links freshly built binaries into the working directory.
func AliasBinaries(origin string) string {
	var remove, link []string
	for _, binary := range binaries {
		remove = append(remove, "rm "+binary)
		link = append(link, fmt.Sprintf("ln -s %s .", path.Join(origin, binary)))
	}
	return strings.Join(remove, " ; ") + " ; " + strings.Join(link, " ; ")
}

func verbosity(debug bool) string {
	if debug {
		return "-vvv"
	}
	return "-vv"
}

// RunRendezvous starts the rendezvous server tracking the given number of instances.
func RunRendezvous(replicas, fastBrokers, fullBrokers, clients int) string {
	return fmt.Sprint("./rendezvous -vv run",
		" --size ", replicas,
		" --fast-brokers ", fastBrokers,
		" --full-brokers ", fullBrokers,
		" --full-clients ", clients)
}

// RunReplica starts a replica.
func RunReplica(rendezvous, discovery, parameters string, debug bool) string {
	return fmt.Sprint("./replica ", verbosity(debug), " run",
		" --rendezvous ", rendezvous,
		" --discovery ", discovery,
		" --parameters ", parameters)
}

// RunBroker starts a fast or full broker.
func RunBroker(rendezvous, parameters string, rate int, full, debug bool) string {
	return fmt.Sprint("./broker ", verbosity(debug), " run",
		" --rendezvous ", rendezvous,
		" --full=", full,
		" --rate ", rate,
		" --parameters ", parameters)
}

// RunClient starts a client.
func RunClient(rendezvous, parameters string, numClients int, debug bool) string {
	return fmt.Sprint("./client ", verbosity(debug), " run",
		" --rendezvous ", rendezvous,
		" --parameters ", parameters,
		" --num-clients ", numClients)
}

// BackgroundRun detaches command in a tmux session named after the log file and
// tees its combined output to logFile.
func BackgroundRun(command, logFile string) string {
	name := strings.TrimSuffix(path.Base(logFile), path.Ext(logFile))
	return fmt.Sprintf("tmux new -d -s %q %q", name, fmt.Sprintf("%s 2>&1 | tee %s", command, logFile))
}

// HasCompleted exits with zero status when logFile contains the completion marker.
func HasCompleted(logFile string) string {
	return fmt.Sprintf("grep -q %q %s", CompletionMarker, logFile)
}

// IsListening exits with zero status when something listens on host:port.
func IsListening(host string, port int) string {
	return fmt.Sprintf("nc -z %s %d", host, port)
}

// Install bootstraps the toolchain and clones the repository.
func Install(repoName, repoURL string) string {
	return Join(
		"sudo apt-get update",
		"sudo apt-get -y upgrade",
		"sudo apt-get -y autoremove",
		"sudo apt-get -y install build-essential",
		"sudo apt-get -y install cmake",
		"sudo apt-get -y install tmux netcat",
		`curl --proto "=https" --tlsv1.2 -sSf https://sh.rustup.rs | sh -s -- -y`,
		cargoEnv,
		"rustup default stable",
		Clone(repoName, repoURL),
	)
}

// Clone clones the repository, or pulls it when already cloned.
func Clone(repoName, repoURL string) string {
	return fmt.Sprintf("(git clone %s || (cd %s ; git pull))", repoURL, repoName)
}

// Update checks out branch, rebuilds and aliases the binaries.
func Update(repoName, branch string) string {
	inRepo := func(command string) string {
		return fmt.Sprintf("(cd %s && %s)", repoName, command)
	}
	return Join(
		inRepo("git fetch -f"),
		inRepo("git checkout -f "+branch),
		inRepo("git pull -f"),
		cargoEnv,
		inRepo("cargo update"),
		inRepo(Compile()),
		AliasBinaries("./"+BinaryPath(repoName)),
	)
}

// TCPSettings tunes kernel network buffers and congestion control.
func TCPSettings() string {
	return Join(
		// Buffers up to 128MB.
		"sudo sysctl -w 'net.core.rmem_max=134217728'",
		"sudo sysctl -w 'net.core.wmem_max=134217728'",
		// Autotuning limit of 64MB.
		"sudo sysctl -w 'net.ipv4.tcp_rmem=4096 87380 67108864'",
		"sudo sysctl -w 'net.ipv4.tcp_wmem=4096 65536 67108864'",
		"sudo sysctl -w 'net.ipv4.tcp_congestion_control=htcp'",
		"sudo sysctl -w 'net.ipv4.tcp_mtu_probing=1'",
		"sudo sysctl -w 'net.core.default_qdisc=fq'",
	)
}
