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

package cloud

import (
	"context"
	"testing"

	"github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/keypairs"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/servers"
	"github.com/mvidigueira/hotstuff-bench/pkg/allocator"
	"github.com/mvidigueira/hotstuff-bench/pkg/config"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeCompute struct {
	servers []servers.Server
	names   []string
	created []servers.CreateOptsBuilder
	started []string
	stopped []string
	deleted []string
	fail    bool
}

func (f *fakeCompute) ListServers(name string) ([]servers.Server, error) {
	f.names = append(f.names, name)
	if f.fail {
		return nil, errors.New("service unavailable")
	}
	return f.servers, nil
}

func (f *fakeCompute) CreateServer(opts servers.CreateOptsBuilder) (*servers.Server, error) {
	f.created = append(f.created, opts)
	return &servers.Server{ID: "new"}, nil
}

func (f *fakeCompute) StartServer(id string) error {
	f.started = append(f.started, id)
	return nil
}

func (f *fakeCompute) StopServer(id string) error {
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeCompute) DeleteServer(id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func server(id, status string, addresses map[string]interface{}) servers.Server {
	return servers.Server{ID: id, Status: status, Addresses: addresses}
}

func address(addr, kind string) map[string]interface{} {
	return map[string]interface{}{"addr": addr, "OS-EXT-IPS:type": kind}
}

func TestOpenStackManager(t *testing.T) {
	ctx := context.Background()

	Convey("With OpenStack manager over one region", t, func() {
		compute := &fakeCompute{servers: []servers.Server{
			server("s-1", statusActive, map[string]interface{}{
				"bench": []interface{}{address("192.168.0.1", "fixed"), address("172.24.4.1", "floating")},
			}),
			server("s-2", statusActive, map[string]interface{}{
				"bench": []interface{}{address("192.168.0.2", "fixed")},
			}),
			server("s-3", statusShutoff, nil),
			server("s-4", statusShutoff, nil),
		}}
		settings := testSettings()
		settings.Provider = config.ProviderOpenStack
		settings.OpenStack.Image = "image-id"
		settings.OpenStack.Network = "network-id"
		manager := NewOpenStackManagerWithClients(settings, map[string]ComputeAPI{"RegionOne": compute})

		Convey("Hosts prefer floating addresses of active servers", func() {
			hosts, err := manager.Hosts(ctx)
			So(err, ShouldBeNil)
			So(hosts, ShouldResemble, allocator.HostPool{"RegionOne": {"172.24.4.1", "192.168.0.2"}})
			So(compute.names[0], ShouldEqual, "^bench$")
		})

		Convey("Start starts at most max stopped servers", func() {
			So(manager.Start(ctx, 1), ShouldBeNil)
			So(compute.started, ShouldResemble, []string{"s-3"})
		})

		Convey("Stop and terminate reach the testbed servers", func() {
			So(manager.Stop(ctx), ShouldBeNil)
			So(compute.stopped, ShouldResemble, []string{"s-1", "s-2"})

			So(manager.Terminate(ctx), ShouldBeNil)
			So(compute.deleted, ShouldHaveLength, 4)
		})

		Convey("Create boots one server per instance with the key pair", func() {
			So(manager.Create(ctx, config.RegionCounts{"RegionOne": 2}), ShouldBeNil)
			So(compute.created, ShouldHaveLength, 2)

			withKey, ok := compute.created[0].(keypairs.CreateOptsExt)
			So(ok, ShouldBeTrue)
			So(withKey.KeyName, ShouldEqual, "aws")
			opts := withKey.CreateOptsBuilder.(servers.CreateOpts)
			So(opts.Name, ShouldEqual, "bench")
			So(opts.ImageRef, ShouldEqual, "image-id")
			So(opts.FlavorRef, ShouldEqual, "m5.large")
			So(opts.Networks.([]servers.Network)[0].UUID, ShouldEqual, "network-id")
		})

		Convey("Create fails in unknown region", func() {
			So(manager.Create(ctx, config.RegionCounts{"RegionTwo": 1}), ShouldNotBeNil)
		})

		Convey("Instances map server statuses", func() {
			instances, err := manager.Instances(ctx)
			So(err, ShouldBeNil)
			So(instances, ShouldHaveLength, 4)
			So(instances[0].State, ShouldEqual, StateRunning)
			So(instances[2].State, ShouldEqual, StateStopped)
			So(instances[2].PublicIP, ShouldBeEmpty)
			So(serverState("ERROR"), ShouldEqual, "error")
		})

		Convey("Listing failure is reported", func() {
			compute.fail = true
			_, err := manager.Hosts(ctx)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "RegionOne")
		})
	})

	Convey("Access address wins over the others", t, func() {
		s := server("s-1", statusActive, map[string]interface{}{
			"bench": []interface{}{address("172.24.4.1", "floating")},
		})
		s.AccessIPv4 = "203.0.113.7"
		So(publicAddress(s), ShouldEqual, "203.0.113.7")
	})
}
