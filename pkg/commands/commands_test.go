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
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/shlex"
	"github.com/mvidigueira/hotstuff-bench/pkg/executor"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCommands(t *testing.T) {
	Convey("When building role commands", t, func() {
		Convey("Replica command points at rendezvous and parameters", func() {
			words, err := shlex.Split(RunReplica("10.0.0.1:9000", "10.0.0.1:9000", ParametersFile(), false))
			So(err, ShouldBeNil)
			So(words, ShouldResemble, []string{
				"./replica", "-vv", "run",
				"--rendezvous", "10.0.0.1:9000",
				"--discovery", "10.0.0.1:9000",
				"--parameters", ".parameters.json",
			})
		})

		Convey("Broker command carries role and rate", func() {
			words, err := shlex.Split(RunBroker("r:9000", "p.json", 5000, true, true))
			So(err, ShouldBeNil)
			So(words, ShouldResemble, []string{
				"./broker", "-vvv", "run", "--rendezvous", "r:9000", "--full=true", "--rate", "5000", "--parameters", "p.json",
			})
		})

		Convey("Rendezvous command tracks every role count", func() {
			So(RunRendezvous(4, 2, 1, 1), ShouldEqual,
				"./rendezvous -vv run --size 4 --fast-brokers 2 --full-brokers 1 --full-clients 1")
		})

		Convey("Client command carries number of clients", func() {
			So(RunClient("r:9000", "p.json", 3, false), ShouldEndWith, "--num-clients 3")
		})

		Convey("Background run detaches into tmux session named after the log", func() {
			words, err := shlex.Split(BackgroundRun("./client -vv run", ClientLogFile(2)))
			So(err, ShouldBeNil)
			So(words, ShouldResemble, []string{
				"tmux", "new", "-d", "-s", "client-2", "./client -vv run 2>&1 | tee logs/client-2.log",
			})
		})

		Convey("Update chains every step and aliases binaries", func() {
			update := Update("mempool", "main")
			So(update, ShouldContainSubstring, "(cd mempool && git checkout -f main)")
			So(update, ShouldContainSubstring, "(cd mempool && cargo build --quiet --release --features benchmark)")
			So(update, ShouldEndWith, "ln -s mempool/target/release/client .")
			So(strings.Count(update, " && "), ShouldEqual, 11)
			So(update, ShouldNotContainSubstring, "source ")
		})

		Convey("Toolchain environment loads in a POSIX shell", func() {
			home, err := ioutil.TempDir("", "home")
			So(err, ShouldBeNil)
			defer os.RemoveAll(home)
			So(os.MkdirAll(filepath.Join(home, ".cargo"), 0755), ShouldBeNil)
			So(ioutil.WriteFile(filepath.Join(home, ".cargo", "env"), []byte("TOOLCHAIN=stable\n"), 0644), ShouldBeNil)

			output, err := executor.NewLocal().Execute(Join("HOME="+home, cargoEnv, `echo "$TOOLCHAIN"`))
			So(err, ShouldBeNil)
			So(strings.TrimSpace(output.Stdout), ShouldEqual, "stable")
		})

		Convey("Install clones or pulls the repository", func() {
			So(Install("mempool", "https://example.org/m.git"), ShouldEndWith,
				"(git clone https://example.org/m.git || (cd mempool ; git pull))")
		})

		Convey("Completion check greps for the marker", func() {
			words, err := shlex.Split(HasCompleted(FastBrokerLogFile(0)))
			So(err, ShouldBeNil)
			So(words, ShouldResemble, []string{"grep", "-q", CompletionMarker, "logs/fast-broker-0.log"})
		})
	})
}

func TestPaths(t *testing.T) {
	Convey("When naming files", t, func() {
		So(ResultFile(10, 2, 50000, 1), ShouldEqual, "results/bench-10-2-50000-1.txt")
		So(AggFile("latency", 10, 2, 0, 0), ShouldEqual, "plots/agg-latency-10-2-0.txt")
		So(AggFile("tps", -1, 2, 1, 500), ShouldEqual, "plots/agg-tps-x-2-1-500.txt")
		So(AggFile("tps", 10, 2, 0, 3000), ShouldEqual, "plots/agg-tps-10-2-0-3000.txt")
		So(ReplicaLogFile(3), ShouldEqual, "logs/replica-3.log")
		So(BinaryPath("mempool"), ShouldEqual, "mempool/target/release")
	})
}
