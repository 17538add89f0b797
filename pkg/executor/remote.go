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
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

// Remote is responsible for running commands on remote machine via ssh.
// Each call opens its own connection.
type Remote struct {
	sshConfig *SSHConfig
}

// NewRemote returns a Remote instance.
func NewRemote(sshConfig *SSHConfig) Remote {
	return Remote{
		sshConfig,
	}
}

// Name returns user-friendly name of executor.
func (remote Remote) Name() string {
	return "Remote"
}

// Host returns address of the remote host.
func (remote Remote) Host() string {
	return remote.sshConfig.Host
}

func (remote Remote) dial() (*ssh.Client, error) {
	address := net.JoinHostPort(remote.sshConfig.Host, strconv.Itoa(remote.sshConfig.Port))
	client, err := ssh.Dial("tcp", address, remote.sshConfig.ClientConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot connect to %s", address)
	}
	return client, nil
}

// run executes command in a new session. stdin may be nil; stdout, when not
// nil, receives output instead of Output.Stdout.
func (remote Remote) run(command string, stdin io.Reader, stdout io.Writer) (Output, error) {
	client, err := remote.dial()
	if err != nil {
		return Output{}, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return Output{}, errors.Wrapf(err, "cannot open session on %s", remote.Host())
	}
	defer session.Close()

	stdoutBuffer, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	session.Stdout = stdoutBuffer
	if stdout != nil {
		session.Stdout = stdout
	}
	session.Stderr = stderr
	session.Stdin = stdin

	log.Debugf("Running %q on %s", command, remote.Host())
	err = session.Run(command)
	output := Output{Stdout: stdoutBuffer.String(), Stderr: stderr.String()}
	if err != nil {
		exitErr, ok := err.(*ssh.ExitError)
		if !ok {
			return output, errors.Wrapf(err, "cannot run %q on %s", command, remote.Host())
		}
		output.ExitCode = exitErr.ExitStatus()
		return output, &CommandError{Host: remote.Host(), Command: command, Output: output}
	}
	return output, nil
}

// Execute runs the command given as input.
func (remote Remote) Execute(command string) (Output, error) {
	return remote.run(command, nil, nil)
}

// Upload streams local file into remote path, creating parent directories.
func (remote Remote) Upload(localPath, remotePath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return errors.Wrapf(err, "cannot open %s", localPath)
	}
	defer file.Close()

	command := fmt.Sprintf("mkdir -p %q && cat > %q", path.Dir(remotePath), remotePath)
	_, err = remote.run(command, file, nil)
	return errors.Wrapf(err, "cannot upload %s to %s", localPath, remote.Host())
}

// Download streams remote path into local file, creating parent directories.
func (remote Remote) Download(remotePath, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return errors.Wrapf(err, "cannot create directory of %s", localPath)
	}
	file, err := os.Create(localPath)
	if err != nil {
		return errors.Wrapf(err, "cannot create %s", localPath)
	}

	_, err = remote.run(fmt.Sprintf("cat %q", remotePath), nil, file)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	return errors.Wrapf(err, "cannot download %s from %s", remotePath, remote.Host())
}
