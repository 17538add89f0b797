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

package metrics

// Uploader is a interface for run metrics uploading into external media (like database).
type Uploader interface {
	SendMetrics(Bench) error
}

// Discard is Uploader which drops every metric.
type Discard struct{}

// SendMetrics implements Uploader interface.
func (Discard) SendMetrics(Bench) error {
	return nil
}
