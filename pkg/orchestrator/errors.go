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

package orchestrator

import (
	"fmt"

	"github.com/pkg/errors"
)

// ExecutionError reports a run phase which failed on some host: a command
// exited with non-zero status or the host could not be reached.
type ExecutionError struct {
	Phase string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Phase, e.Err)
}

// Unwrap returns the underlying failure.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsExecutionError checks whether err is or wraps an ExecutionError.
func IsExecutionError(err error) bool {
	var executionErr *ExecutionError
	return errors.As(err, &executionErr)
}

func executionError(phase string, err error) error {
	if err == nil {
		return nil
	}
	return &ExecutionError{Phase: phase, Err: err}
}
