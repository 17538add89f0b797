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
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

const (
	// DefaultSSHPort represent default port of SSH server (22).
	DefaultSSHPort = 22
	// DefaultSSHKeyPath is the private key used when none is configured.
	DefaultSSHKeyPath = "~/.ssh/id_rsa"

	dialTimeout = 10 * time.Second
)

// SSHConfig with clientConfig, host and port to connect.
type SSHConfig struct {
	ClientConfig *ssh.ClientConfig
	Host         string
	Port         int
}

// getAuthMethod which uses given key.
func getAuthMethod(keyPath string) (ssh.AuthMethod, error) {
	expanded, err := homedir.Expand(keyPath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot expand %s", keyPath)
	}
	buffer, err := ioutil.ReadFile(expanded)
	if err != nil {
		return nil, errors.Wrapf(err, "SSH key not found in %s", expanded)
	}

	key, err := ssh.ParsePrivateKey(buffer)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse SSH key %s", expanded)
	}

	return ssh.PublicKeys(key), nil
}

// NewClientConfig creates client configuration authenticating user with the
// private key at keyPath ("~" is expanded). Benchmark hosts are ephemeral so
// their host keys are not verified.
func NewClientConfig(user, keyPath string) (*ssh.ClientConfig, error) {
	authMethod, err := getAuthMethod(keyPath)
	if err != nil {
		return nil, err
	}

	return &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{
			authMethod,
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}, nil
}

// NewSSHConfig creates a new ssh config for host.
func NewSSHConfig(clientConfig *ssh.ClientConfig, host string, port int) *SSHConfig {
	if port == 0 {
		port = DefaultSSHPort
	}
	return &SSHConfig{
		ClientConfig: clientConfig,
		Host:         host,
		Port:         port,
	}
}
