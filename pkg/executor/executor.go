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
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Executor runs commands on one host and moves files to and from it.
type Executor interface {
	// Execute runs command to completion. A non-zero exit status gives a
	// *CommandError carrying the output.
	Execute(command string) (Output, error)
	// Upload copies local file to remote path on the host.
	Upload(local, remote string) error
	// Download copies remote path on the host to local file.
	Download(remote, local string) error
	// Host returns address of the host.
	Host() string
	// Name returns user-friendly name of executor.
	Name() string
}

// Output of a finished command.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandError reports a command which exited with non-zero status.
type CommandError struct {
	Host    string
	Command string
	Output  Output
}

func (e *CommandError) Error() string {
	stderr := strings.TrimSpace(e.Output.Stderr)
	if stderr == "" {
		return fmt.Sprintf("command %q on %s exited with %d", e.Command, e.Host, e.Output.ExitCode)
	}
	return fmt.Sprintf("command %q on %s exited with %d: %s", e.Command, e.Host, e.Output.ExitCode, stderr)
}

// IsCommandError checks whether the cause of err is a CommandError.
func IsCommandError(err error) bool {
	_, ok := errors.Cause(err).(*CommandError)
	return ok
}
