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

package visualization

// SweepMetadata describes one benchmark sweep. This currently only contains
// the sweep id shared by its log file and uploaded results.
type SweepMetadata struct {
	sweepID string
}

// NewSweepMetadata returns metadata of sweep with a specific id.
func NewSweepMetadata(ID string) *SweepMetadata {
	return &SweepMetadata{
		ID,
	}
}

// String returns a printable string with all sweep metadata.
func (metadata *SweepMetadata) String() string {
	return "Sweep id: " + metadata.sweepID
}
