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

package executor

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	. "github.com/smartystreets/goconvey/convey"
)

// TestLocal tests the execution of process on local machine.
func TestLocal(t *testing.T) {
	log.SetLevel(log.ErrorLevel)

	Convey("While using Local Shell", t, func() {
		l := NewLocal()

		Convey("When command succeeds its output is returned", func() {
			output, err := l.Execute("echo hello && echo oops >&2")
			So(err, ShouldBeNil)
			So(output.Stdout, ShouldEqual, "hello\n")
			So(output.Stderr, ShouldEqual, "oops\n")
			So(output.ExitCode, ShouldEqual, 0)
		})

		Convey("When command fails the exit code is reported", func() {
			output, err := l.Execute("echo broken >&2; exit 3")
			So(err, ShouldNotBeNil)
			So(IsCommandError(err), ShouldBeTrue)
			So(output.ExitCode, ShouldEqual, 3)
			So(err.Error(), ShouldContainSubstring, "broken")
		})

		Convey("When command is killed the signal is reported", func() {
			output, err := l.Execute("kill -9 $$")
			So(IsCommandError(err), ShouldBeTrue)
			So(output.ExitCode, ShouldEqual, -9)
		})

		Convey("Files are copied both ways", func() {
			dir, err := ioutil.TempDir("", "local")
			So(err, ShouldBeNil)
			defer os.RemoveAll(dir)

			source := filepath.Join(dir, "source.json")
			So(ioutil.WriteFile(source, []byte("{}"), 0644), ShouldBeNil)

			uploaded := filepath.Join(dir, "remote", "params.json")
			So(l.Upload(source, uploaded), ShouldBeNil)
			downloaded := filepath.Join(dir, "logs", "params.json")
			So(l.Download(uploaded, downloaded), ShouldBeNil)

			data, err := ioutil.ReadFile(downloaded)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "{}")

			Convey("Copying file onto itself keeps it", func() {
				So(l.Upload(source, source), ShouldBeNil)
				data, err := ioutil.ReadFile(source)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "{}")
			})
		})

		Convey("Missing source file fails", func() {
			So(l.Upload("/nonexistent/file", "/tmp/whatever"), ShouldNotBeNil)
		})
	})

	Convey("While using Local Shell in a directory", t, func() {
		dir, err := ioutil.TempDir("", "testbed")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)
		l := NewLocalIn(dir)

		Convey("Commands run in the directory", func() {
			_, err := l.Execute("mkdir -p logs && echo up > logs/replica.log")
			So(err, ShouldBeNil)

			local := filepath.Join(dir, "collected", "replica-0.log")
			So(l.Download("logs/replica.log", local), ShouldBeNil)
			data, err := ioutil.ReadFile(local)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "up\n")
		})

		Convey("Relative upload destination lands in the directory", func() {
			source := filepath.Join(dir, "source.json")
			So(ioutil.WriteFile(source, []byte("{}"), 0644), ShouldBeNil)
			So(l.Upload(source, ".parameters.json"), ShouldBeNil)
			_, err := os.Stat(filepath.Join(dir, ".parameters.json"))
			So(err, ShouldBeNil)
		})
	})
}

func TestSSHConfig(t *testing.T) {
	Convey("Missing key gives an error", t, func() {
		_, err := NewClientConfig("ubuntu", "/nonexistent/id_rsa")
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "/nonexistent/id_rsa")
	})

	Convey("Default port is used when none is given", t, func() {
		config := NewSSHConfig(nil, "10.0.0.1", 0)
		So(config.Port, ShouldEqual, DefaultSSHPort)
		So(NewRemote(config).Host(), ShouldEqual, "10.0.0.1")
	})
}
