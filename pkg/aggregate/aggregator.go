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

package aggregate

import (
	"io/ioutil"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mvidigueira/hotstuff-bench/pkg/logs"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const reportMarker = "SUMMARY"

// GroupBySetup parses every report of text and groups their records by setup.
// Reports are delimited by their SUMMARY header.
func GroupBySetup(text string) (map[Setup][]Record, error) {
	grouped := map[Setup][]Record{}
	chunks := strings.Split(text, reportMarker)
	for i, chunk := range chunks[1:] {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		result, err := logs.ParseReport(chunk)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot parse report %d", i)
		}
		setup := SetupOf(result)
		grouped[setup] = append(grouped[setup], RecordOf(result))
	}
	return grouped, nil
}

// Aggregator holds one aggregated record per setup.
type Aggregator struct {
	records map[Setup]Record
}

// New aggregates grouped records.
func New(grouped map[Setup][]Record) *Aggregator {
	records := make(map[Setup]Record, len(grouped))
	for setup, group := range grouped {
		records[setup] = Aggregate(group)
	}
	return &Aggregator{records: records}
}

// LoadDirectory reads every report file (*.txt) of dir.
func LoadDirectory(dir string) (*Aggregator, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list results in %s", dir)
	}
	sort.Strings(files)

	builder := strings.Builder{}
	for _, file := range files {
		data, err := ioutil.ReadFile(file)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot read %s", file)
		}
		builder.Write(data)
	}

	grouped, err := GroupBySetup(builder.String())
	if err != nil {
		return nil, err
	}
	log.Debugf("Loaded %d setups from %d result files in %s", len(grouped), len(files), dir)
	return New(grouped), nil
}

// Records returns aggregated record of every setup.
func (a *Aggregator) Records() map[Setup]Record {
	return a.records
}

// Setups returns every setup ordered by replicas, brokers, faults and rate.
func (a *Aggregator) Setups() []Setup {
	setups := make([]Setup, 0, len(a.records))
	for setup := range a.records {
		setups = append(setups, setup)
	}
	sort.Slice(setups, func(i, j int) bool {
		return setups[i].less(setups[j])
	})
	return setups
}

func (s Setup) less(other Setup) bool {
	switch {
	case s.Replicas != other.Replicas:
		return s.Replicas < other.Replicas
	case s.Brokers != other.Brokers:
		return s.Brokers < other.Brokers
	case s.Faults != other.Faults:
		return s.Faults < other.Faults
	}
	return s.Rate < other.Rate
}
