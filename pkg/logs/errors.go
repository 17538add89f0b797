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

package logs

import (
	"fmt"

	"github.com/pkg/errors"
)

// ParseError reports a pulled log with a panic or error marker, or without a
// required marker. The run's Result is invalid.
type ParseError struct {
	Role   string
	File   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("failed to parse %s logs: %s", e.Role, e.Reason)
	}
	return fmt.Sprintf("failed to parse %s log %s: %s", e.Role, e.File, e.Reason)
}

// IsParseError checks whether the cause of err is a ParseError.
func IsParseError(err error) bool {
	_, ok := errors.Cause(err).(*ParseError)
	return ok
}

func parseErrorf(role string, format string, args ...interface{}) *ParseError {
	return &ParseError{Role: role, Reason: fmt.Sprintf(format, args...)}
}
