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
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Local is responsible for running commands on local machine via exec.Command.
// It runs command as current user.
type Local struct {
	dir string
}

// NewLocal returns a Local instance.
func NewLocal() Local {
	return Local{}
}

// NewLocalIn returns a Local instance running commands in dir. Relative
// host-side paths of Upload and Download are resolved against dir.
func NewLocalIn(dir string) Local {
	return Local{dir: dir}
}

func (l Local) path(p string) string {
	if l.dir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(l.dir, p)
}

// Name returns user-friendly name of executor.
func (l Local) Name() string {
	return "Local"
}

// Host returns address of local machine.
func (l Local) Host() string {
	return "127.0.0.1"
}

// Execute runs the command given as input in its own process group.
func (l Local) Execute(command string) (Output, error) {
	log.Debug("Starting ", command)

	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = l.dir
	// It is important to set additional Process Group ID for parent process and his children
	// to have ability to kill all the children processes.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return Output{}, errors.Wrapf(err, "cannot start %q", command)
	}
	log.Debug("Started with pid ", cmd.Process.Pid)

	// Process state is inspected below whatever Wait returns.
	cmd.Wait()

	var exitCode int
	status := cmd.ProcessState.Sys().(syscall.WaitStatus)
	if status.Exited() {
		exitCode = status.ExitStatus()
	} else {
		// Show what signal caused the termination.
		exitCode = -int(status.Signal())
	}

	output := Output{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}
	log.Debug("Ended ", command, " with status code: ", exitCode)
	if exitCode != 0 {
		return output, &CommandError{Host: l.Host(), Command: command, Output: output}
	}
	return output, nil
}

// Upload copies local file to remote path, creating parent directories.
func (l Local) Upload(local, remote string) error {
	return copyFile(local, l.path(remote))
}

// Download copies remote path to local file, creating parent directories.
func (l Local) Download(remote, local string) error {
	return copyFile(l.path(remote), local)
}

func copyFile(source, destination string) error {
	if sameFile(source, destination) {
		return nil
	}
	in, err := os.Open(source)
	if err != nil {
		return errors.Wrapf(err, "cannot open %s", source)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return errors.Wrapf(err, "cannot create directory of %s", destination)
	}
	out, err := os.Create(destination)
	if err != nil {
		return errors.Wrapf(err, "cannot create %s", destination)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "cannot copy %s to %s", source, destination)
	}
	return out.Close()
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
