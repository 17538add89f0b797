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

package config

import (
	"io/ioutil"
	"os"
	"path"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

const benchJSON = `{
	"nodes": [{"us-east-1": 2, "eu-north-1": 2}, {"us-east-1": 4}],
	"fast_brokers": {"us-east-1": 1},
	"full_brokers": [],
	"rate": [1000, 2000],
	"faults": 1,
	"duration": 60
}`

const nodeJSON = `{
	"broker": {
		"signup_batch_number": 10,
		"signup_batch_size": 5000,
		"prepare_batch_size": 1024,
		"prepare_batch_number": 20,
		"prepare_single_sign_percentage": 50,
		"brokerage_timeout": 1000,
		"reduction_timeout": 500
	},
	"replica": {"tag": "x"}
}`

func TestBenchParameters(t *testing.T) {
	Convey("When decoding bench parameters", t, func() {
		Convey("A valid JSON document is expanded into configurations", func() {
			params, err := NewBenchParameters([]byte(benchJSON))
			So(err, ShouldBeNil)
			So(params.Runs, ShouldEqual, 1)
			So(params.Duration, ShouldEqual, 60*time.Second)
			So(params.FastBrokers, ShouldResemble, RegionCounts{"us-east-1": 1})
			So(params.FullBrokers, ShouldBeEmpty)

			configs := params.Configurations()
			So(configs, ShouldHaveLength, 4)
			So(configs[0].Rate, ShouldEqual, 1000)
			So(configs[1].Rate, ShouldEqual, 2000)
			So(configs[1].Index, ShouldEqual, 0)
			So(configs[2].Index, ShouldEqual, 1)
			So(configs[2].Replicas(), ShouldEqual, 4)
			So(configs[0].Brokers(), ShouldEqual, 1)
			So(configs[0].Clients().Total(), ShouldEqual, 0)
		})

		Convey("YAML with scalar nodes and rate is accepted", func() {
			params, err := NewBenchParameters([]byte("nodes: {local: 4}\nrate: 5\nduration: 10\nruns: 3\n"))
			So(err, ShouldBeNil)
			So(params.Nodes, ShouldHaveLength, 1)
			So(params.Rate, ShouldResemble, []int{5})
			So(params.Runs, ShouldEqual, 3)
		})

		Convey("Colocated full brokers mirror validators and so do clients", func() {
			params, err := NewBenchParameters([]byte("nodes: {a: 3, b: 1}\ncolocate: true\nrate: 5\nduration: 10\n"))
			So(err, ShouldBeNil)
			config := params.Configurations()[0]
			So(config.FullBrokers, ShouldResemble, RegionCounts{"a": 3, "b": 1})
			So(config.Clients(), ShouldResemble, config.Validators)
		})

		Convey("Missing or invalid fields are reported as ConfigError", func() {
			for _, document := range []string{
				"rate: 5\nduration: 10\n",
				"nodes: {a: 0}\nrate: 5\nduration: 10\n",
				"nodes: {a: 2}\nduration: 10\n",
				"nodes: {a: 2}\nrate: 5\n",
				"nodes: {a: 2}\nrate: 5\nduration: 10\nruns: 0\n",
				"nodes: {a: 2}\nrate: 5\nduration: 10\nfaults: 2\n",
				"nodes: {a: 2}\nfast_brokers: [{a: 1}, {a: 2}]\nrate: 5\nduration: 10\n",
				"nodes: {a: 2}\nrate: [five]\nduration: 10\n",
			} {
				_, err := NewBenchParameters([]byte(document))
				So(err, ShouldNotBeNil)
				So(IsConfigError(err), ShouldBeTrue)
			}
		})
	})
}

func TestNodeParameters(t *testing.T) {
	Convey("When decoding node parameters", t, func() {
		Convey("Every broker key is read as integer", func() {
			params, err := NewNodeParameters([]byte(nodeJSON))
			So(err, ShouldBeNil)
			So(params.Broker["signup_batch_size"], ShouldEqual, 5000)
			So(params.Broker["reduction_timeout"], ShouldEqual, 500)

			Convey("And it is printed with sorted keys", func() {
				dir, err := ioutil.TempDir("", "params")
				So(err, ShouldBeNil)
				defer os.RemoveAll(dir)

				filename := path.Join(dir, ".parameters.json")
				So(params.Print(filename), ShouldBeNil)

				reloaded, err := LoadNodeParameters(filename)
				So(err, ShouldBeNil)
				So(reloaded.Broker, ShouldResemble, params.Broker)

				data, err := ioutil.ReadFile(filename)
				So(err, ShouldBeNil)
				So(string(data), ShouldContainSubstring, "\"replica\": {\n        \"tag\": \"x\"\n    }")
			})
		})

		Convey("Missing key is a ConfigError", func() {
			_, err := NewNodeParameters([]byte(`{"broker": {"signup_batch_number": 10}}`))
			So(IsConfigError(err), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "signup_batch_size")
		})

		Convey("Non integer value is a ConfigError", func() {
			_, err := NewNodeParameters([]byte(`{"broker": {"signup_batch_number": "ten"}}`))
			So(IsConfigError(err), ShouldBeTrue)
		})

		Convey("Missing broker section is a ConfigError", func() {
			_, err := NewNodeParameters([]byte(`{}`))
			So(IsConfigError(err), ShouldBeTrue)
		})
	})
}

func TestPlotParameters(t *testing.T) {
	Convey("When decoding plot parameters", t, func() {
		params, err := NewPlotParameters([]byte(`{"nodes": [4, 10], "brokers": 1, "max_latency": [2000]}`))
		So(err, ShouldBeNil)
		So(params.Faults, ShouldResemble, []int{0})
		So(params.Selects(10, 1, 0), ShouldBeTrue)
		So(params.Selects(10, 2, 0), ShouldBeFalse)

		_, err = NewPlotParameters([]byte(`{"brokers": 1}`))
		So(IsConfigError(err), ShouldBeTrue)
	})
}

func TestSettings(t *testing.T) {
	Convey("When loading settings", t, func() {
		dir, err := ioutil.TempDir("", "settings")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)
		filename := path.Join(dir, "settings.json")

		Convey("Defaults are applied for SSH", func() {
			So(ioutil.WriteFile(filename, []byte(`{
				"key": {"name": "aws", "path": "/keys/aws.pem"},
				"repo": {"name": "mempool", "url": "https://example.org/mempool.git", "branch": "main"},
				"instances": {"type": "m5.large", "regions": "us-east-1"}
			}`), 0644), ShouldBeNil)

			settings, err := LoadSettings(filename)
			So(err, ShouldBeNil)
			So(settings.SSH.User, ShouldEqual, "ubuntu")
			So(settings.SSH.Port, ShouldEqual, 22)
			So(settings.Testbed, ShouldEqual, "hotstuff-bench")
			So(settings.Regions(), ShouldResemble, []string{"us-east-1"})
			So(settings.Provider, ShouldEqual, ProviderAWS)
		})

		Convey("OpenStack provider needs an image", func() {
			document := `
key: {name: lab, path: /keys/lab}
repo: {name: mempool, url: "git@example.org:mempool.git", branch: main}
provider: openstack
instances: {type: m1.large, regions: [RegionOne]}
`
			So(ioutil.WriteFile(filename, []byte(document), 0644), ShouldBeNil)
			_, err := LoadSettings(filename)
			So(IsConfigError(err), ShouldBeTrue)

			So(ioutil.WriteFile(filename, []byte(document+"openstack: {image: ubuntu-20.04, network: bench}\n"), 0644), ShouldBeNil)
			settings, err := LoadSettings(filename)
			So(err, ShouldBeNil)
			So(settings.OpenStack.Network, ShouldEqual, "bench")
		})

		Convey("Unknown provider is a ConfigError", func() {
			So(ioutil.WriteFile(filename, []byte(`
key: {name: lab, path: /keys/lab}
repo: {name: mempool, url: "git@example.org:mempool.git", branch: main}
provider: azure
hosts: {lab: [10.0.0.1]}
`), 0644), ShouldBeNil)
			_, err := LoadSettings(filename)
			So(IsConfigError(err), ShouldBeTrue)
		})

		Convey("Static hosts make instances optional", func() {
			So(ioutil.WriteFile(filename, []byte(`
key: {name: lab, path: /keys/lab}
repo: {name: mempool, url: "git@example.org:mempool.git", branch: main}
hosts:
  lab: [10.0.0.1, 10.0.0.2]
`), 0644), ShouldBeNil)

			settings, err := LoadSettings(filename)
			So(err, ShouldBeNil)
			So(settings.Hosts["lab"], ShouldHaveLength, 2)
		})

		Convey("Missing repository is a ConfigError", func() {
			So(ioutil.WriteFile(filename, []byte(`{"key": {"name": "a", "path": "/b"}}`), 0644), ShouldBeNil)
			_, err := LoadSettings(filename)
			So(IsConfigError(err), ShouldBeTrue)
		})

		Convey("Missing file is a ConfigError", func() {
			_, err := LoadSettings(path.Join(dir, "missing.json"))
			So(IsConfigError(err), ShouldBeTrue)
		})
	})
}
