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
	"fmt"
	"io/ioutil"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// ConfigError reports malformed or missing experiment, runtime or settings parameters.
// It is raised before any remote action takes place.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Message)
}

func configErrorf(format string, args ...interface{}) error {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// IsConfigError checks whether the cause of err is a ConfigError.
func IsConfigError(err error) bool {
	_, ok := errors.Cause(err).(*ConfigError)
	return ok
}

// readYAMLFile decodes YAML (or JSON, which yaml accepts as well) from filename into data.
func readYAMLFile(filename string, data interface{}) error {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return configErrorf("file %q does not exist", filename)
	}

	bytes, err := ioutil.ReadFile(filename)
	if err != nil {
		return errors.Wrapf(err, "problem opening file %s", filename)
	}

	return errors.Wrapf(unmarshalYAML(bytes, data), "problem reading %s", filename)
}

func unmarshalYAML(bytes []byte, data interface{}) error {
	if err := yaml.Unmarshal(bytes, data); err != nil {
		return configErrorf("cannot decode parameters: %v", err)
	}
	return nil
}

// RegionCounts maps a region name to a number of instances.
type RegionCounts map[string]int

// Total returns sum of counts across all regions.
func (r RegionCounts) Total() int {
	total := 0
	for _, count := range r {
		total += count
	}
	return total
}

// Regions returns sorted region names.
func (r RegionCounts) Regions() []string {
	regions := make([]string, 0, len(r))
	for region := range r {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}

func (r RegionCounts) validate(role string) error {
	for region, count := range r {
		if count < 1 {
			return configErrorf("invalid number of %s in region %q: %d", role, region, count)
		}
	}
	return nil
}

// regionCountsList accepts both a single region mapping and a list of them.
type regionCountsList []RegionCounts

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *regionCountsList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	single := RegionCounts{}
	if err := unmarshal(&single); err == nil {
		*l = regionCountsList{single}
		return nil
	}
	var slice []RegionCounts
	if err := unmarshal(&slice); err != nil {
		return err
	}
	*l = regionCountsList(slice)
	return nil
}

// intList accepts both a single integer and a list of them.
type intList []int

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *intList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single int
	if err := unmarshal(&single); err == nil {
		*l = intList{single}
		return nil
	}
	var slice []int
	if err := unmarshal(&slice); err != nil {
		return err
	}
	*l = intList(slice)
	return nil
}

// stringList accepts both a single string and a list of them.
type stringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *stringList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*l = stringList{single}
		return nil
	}
	var slice []string
	if err := unmarshal(&slice); err != nil {
		return err
	}
	*l = stringList(slice)
	return nil
}
