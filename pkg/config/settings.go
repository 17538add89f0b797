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
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

const (
	defaultSSHUser = "ubuntu"
	defaultSSHPort = 22
	defaultTestbed = "hotstuff-bench"
)

// Cloud providers of the testbed.
const (
	ProviderAWS       = "aws"
	ProviderOpenStack = "openstack"
)

// Settings describes the testbed: SSH key, repository of the system under test,
// cloud instances and optionally a static list of hosts per region.
type Settings struct {
	// Testbed names every cloud instance and the security group.
	Testbed string `yaml:"testbed"`
	// Provider is either aws (default) or openstack.
	Provider string `yaml:"provider"`
	Key     struct {
		Name string `yaml:"name"`
		Path string `yaml:"path"`
	} `yaml:"key"`
	Repo struct {
		Name   string `yaml:"name"`
		URL    string `yaml:"url"`
		Branch string `yaml:"branch"`
	} `yaml:"repo"`
	Instances struct {
		Type    string     `yaml:"type"`
		Regions stringList `yaml:"regions"`
	} `yaml:"instances"`
	// OpenStack instances boot Image with flavor Instances.Type. Credentials
	// come from the OS_* environment variables.
	OpenStack struct {
		Image          string   `yaml:"image"`
		Network        string   `yaml:"network"`
		SecurityGroups []string `yaml:"security_groups"`
	} `yaml:"openstack"`
	SSH struct {
		User string `yaml:"user"`
		Port int    `yaml:"port"`
	} `yaml:"ssh"`
	// Hosts, when set, is used instead of querying the cloud provider.
	Hosts map[string][]string `yaml:"hosts"`
}

// LoadSettings reads and validates settings file.
func LoadSettings(filename string) (*Settings, error) {
	settings := &Settings{}
	if err := readYAMLFile(filename, settings); err != nil {
		return nil, errors.Wrap(err, "cannot load settings")
	}
	if err := settings.validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Settings) validate() error {
	switch {
	case s.Key.Name == "" || s.Key.Path == "":
		return configErrorf("malformed settings: missing key name or path")
	case s.Repo.Name == "" || s.Repo.URL == "" || s.Repo.Branch == "":
		return configErrorf("malformed settings: missing repo name, url or branch")
	case len(s.Hosts) == 0 && (s.Instances.Type == "" || len(s.Instances.Regions) == 0):
		return configErrorf("malformed settings: missing instances type or regions")
	}

	switch s.Provider {
	case "":
		s.Provider = ProviderAWS
	case ProviderAWS:
	case ProviderOpenStack:
		if len(s.Hosts) == 0 && s.OpenStack.Image == "" {
			return configErrorf("malformed settings: missing openstack image")
		}
	default:
		return configErrorf("unknown cloud provider %q", s.Provider)
	}

	keyPath, err := homedir.Expand(s.Key.Path)
	if err != nil {
		return configErrorf("cannot expand key path %q: %v", s.Key.Path, err)
	}
	s.Key.Path = keyPath

	if s.Testbed == "" {
		s.Testbed = defaultTestbed
	}
	if s.SSH.User == "" {
		s.SSH.User = defaultSSHUser
	}
	if s.SSH.Port == 0 {
		s.SSH.Port = defaultSSHPort
	}
	return nil
}

// Regions returns the configured cloud regions.
func (s *Settings) Regions() []string {
	return []string(s.Instances.Regions)
}
