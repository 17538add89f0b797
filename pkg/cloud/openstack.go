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
	"regexp"
	"sort"
	"strings"

	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/keypairs"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/startstop"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/servers"
	"github.com/mvidigueira/hotstuff-bench/pkg/allocator"
	"github.com/mvidigueira/hotstuff-bench/pkg/config"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Nova server statuses.
const (
	statusActive  = "ACTIVE"
	statusBuild   = "BUILD"
	statusShutoff = "SHUTOFF"
)

// ComputeAPI is the subset of the OpenStack compute service used by
// OpenStackManager.
type ComputeAPI interface {
	ListServers(name string) ([]servers.Server, error)
	CreateServer(opts servers.CreateOptsBuilder) (*servers.Server, error)
	StartServer(id string) error
	StopServer(id string) error
	DeleteServer(id string) error
}

type computeClient struct {
	client *gophercloud.ServiceClient
}

func (c computeClient) ListServers(name string) ([]servers.Server, error) {
	pages, err := servers.List(c.client, servers.ListOpts{Name: name}).AllPages()
	if err != nil {
		return nil, err
	}
	return servers.ExtractServers(pages)
}

func (c computeClient) CreateServer(opts servers.CreateOptsBuilder) (*servers.Server, error) {
	return servers.Create(c.client, opts).Extract()
}

func (c computeClient) StartServer(id string) error {
	return startstop.Start(c.client, id).ExtractErr()
}

func (c computeClient) StopServer(id string) error {
	return startstop.Stop(c.client, id).ExtractErr()
}

func (c computeClient) DeleteServer(id string) error {
	return servers.Delete(c.client, id).ExtractErr()
}

// OpenStackManager manages testbed servers named after the testbed in every
// configured region.
type OpenStackManager struct {
	settings *config.Settings
	clients  map[string]ComputeAPI
}

// NewOpenStackManager authenticates with the OS_* environment variables and
// creates one compute client per region of settings.
func NewOpenStackManager(settings *config.Settings) (*OpenStackManager, error) {
	auth, err := openstack.AuthOptionsFromEnv()
	if err != nil {
		return nil, errors.Wrap(err, "cannot read OpenStack credentials")
	}
	auth.AllowReauth = true
	provider, err := openstack.AuthenticatedClient(auth)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot authenticate at %s", auth.IdentityEndpoint)
	}

	clients := map[string]ComputeAPI{}
	for _, region := range settings.Regions() {
		client, err := openstack.NewComputeV2(provider, gophercloud.EndpointOpts{Region: region})
		if err != nil {
			return nil, errors.Wrapf(err, "cannot get compute client for %s", region)
		}
		clients[region] = computeClient{client: client}
	}
	return NewOpenStackManagerWithClients(settings, clients), nil
}

// NewOpenStackManagerWithClients returns manager using given client per region.
func NewOpenStackManagerWithClients(settings *config.Settings, clients map[string]ComputeAPI) *OpenStackManager {
	return &OpenStackManager{settings: settings, clients: clients}
}

func (m *OpenStackManager) regions() []string {
	regions := make([]string, 0, len(m.clients))
	for region := range m.clients {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}

func (m *OpenStackManager) client(region string) (ComputeAPI, error) {
	client, ok := m.clients[region]
	if !ok {
		return nil, errors.Errorf("region %q is not configured in settings", region)
	}
	return client, nil
}

// listServers lists testbed servers of region whose status is one of statuses.
// Every server is listed when statuses are empty.
func (m *OpenStackManager) listServers(region string, statuses ...string) ([]servers.Server, error) {
	client, err := m.client(region)
	if err != nil {
		return nil, err
	}
	// Nova matches the name as a regular expression.
	list, err := client.ListServers("^" + regexp.QuoteMeta(m.settings.Testbed) + "$")
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list servers in %s", region)
	}
	if len(statuses) == 0 {
		return list, nil
	}

	wanted := map[string]bool{}
	for _, status := range statuses {
		wanted[status] = true
	}
	var matching []servers.Server
	for _, server := range list {
		if wanted[server.Status] {
			matching = append(matching, server)
		}
	}
	return matching, nil
}

// publicAddress prefers the access address, then a floating one, then any
// fixed one.
func publicAddress(server servers.Server) string {
	if server.AccessIPv4 != "" {
		return server.AccessIPv4
	}
	networks := make([]string, 0, len(server.Addresses))
	for network := range server.Addresses {
		networks = append(networks, network)
	}
	sort.Strings(networks)

	fixed := ""
	for _, network := range networks {
		addresses, _ := server.Addresses[network].([]interface{})
		for _, address := range addresses {
			fields, _ := address.(map[string]interface{})
			addr, _ := fields["addr"].(string)
			if addr == "" {
				continue
			}
			if kind, _ := fields["OS-EXT-IPS:type"].(string); kind == "floating" {
				return addr
			}
			if fixed == "" {
				fixed = addr
			}
		}
	}
	return fixed
}

func serverState(status string) string {
	switch status {
	case statusActive:
		return StateRunning
	case statusBuild:
		return StatePending
	case statusShutoff:
		return StateStopped
	}
	return strings.ToLower(status)
}

// Hosts returns public addresses of active servers.
func (m *OpenStackManager) Hosts(context.Context) (allocator.HostPool, error) {
	pool := allocator.HostPool{}
	for _, region := range m.regions() {
		active, err := m.listServers(region, statusActive)
		if err != nil {
			return nil, err
		}
		for _, server := range active {
			if address := publicAddress(server); address != "" {
				pool[region] = append(pool[region], address)
			}
		}
	}
	return pool, nil
}

// Create boots servers in every region of counts.
func (m *OpenStackManager) Create(ctx context.Context, counts config.RegionCounts) error {
	for _, region := range counts.Regions() {
		count := counts[region]
		if count <= 0 {
			continue
		}
		client, err := m.client(region)
		if err != nil {
			return err
		}

		opts := servers.CreateOpts{
			Name:           m.settings.Testbed,
			ImageRef:       m.settings.OpenStack.Image,
			FlavorRef:      m.settings.Instances.Type,
			SecurityGroups: m.settings.OpenStack.SecurityGroups,
			Metadata:       map[string]string{"testbed": m.settings.Testbed},
		}
		if m.settings.OpenStack.Network != "" {
			opts.Networks = []servers.Network{{UUID: m.settings.OpenStack.Network}}
		}
		withKey := keypairs.CreateOptsExt{CreateOptsBuilder: opts, KeyName: m.settings.Key.Name}

		for i := 0; i < count; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			server, err := client.CreateServer(withKey)
			if err != nil {
				return errors.Wrapf(err, "cannot create server %d of %d in %s", i+1, count, region)
			}
			log.Debugf("Scheduled server %s creation in %s", server.ID, region)
		}
		log.Infof("Created %d instances in %s", count, region)
	}
	return nil
}

// Start starts at most max stopped servers per region.
func (m *OpenStackManager) Start(ctx context.Context, max int) error {
	for _, region := range m.regions() {
		stopped, err := m.listServers(region, statusShutoff)
		if err != nil {
			return err
		}
		if len(stopped) > max {
			stopped = stopped[:max]
		}
		client, _ := m.client(region)
		for _, server := range stopped {
			if err := client.StartServer(server.ID); err != nil {
				return errors.Wrapf(err, "cannot start server %s in %s", server.ID, region)
			}
		}
		if len(stopped) > 0 {
			log.Infof("Starting %d instances in %s", len(stopped), region)
		}
	}
	return nil
}

// Stop stops every active server.
func (m *OpenStackManager) Stop(ctx context.Context) error {
	for _, region := range m.regions() {
		active, err := m.listServers(region, statusActive)
		if err != nil {
			return err
		}
		client, _ := m.client(region)
		for _, server := range active {
			if err := client.StopServer(server.ID); err != nil {
				return errors.Wrapf(err, "cannot stop server %s in %s", server.ID, region)
			}
		}
		if len(active) > 0 {
			log.Infof("Stopping %d instances in %s", len(active), region)
		}
	}
	return nil
}

// Terminate deletes every server of the testbed.
func (m *OpenStackManager) Terminate(ctx context.Context) error {
	for _, region := range m.regions() {
		all, err := m.listServers(region)
		if err != nil {
			return err
		}
		client, _ := m.client(region)
		for _, server := range all {
			if err := client.DeleteServer(server.ID); err != nil {
				return errors.Wrapf(err, "cannot delete server %s in %s", server.ID, region)
			}
		}
		if len(all) > 0 {
			log.Infof("Terminating %d instances in %s", len(all), region)
		}
	}
	return nil
}

// Instances lists every server of the testbed.
func (m *OpenStackManager) Instances(context.Context) ([]Instance, error) {
	var instances []Instance
	for _, region := range m.regions() {
		all, err := m.listServers(region)
		if err != nil {
			return nil, err
		}
		for _, server := range all {
			instances = append(instances, Instance{
				ID:       server.ID,
				Region:   region,
				State:    serverState(server.Status),
				PublicIP: publicAddress(server),
			})
		}
	}
	return instances, nil
}
