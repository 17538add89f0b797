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
	"bytes"
	"encoding/json"
	"io/ioutil"

	"github.com/pkg/errors"
)

// brokerKeys are required integer entries of the "broker" section.
var brokerKeys = []string{
	"signup_batch_number",
	"signup_batch_size",
	"prepare_batch_size",
	"prepare_batch_number",
	"prepare_single_sign_percentage",
	"brokerage_timeout",
	"reduction_timeout",
}

// NodeParameters are the runtime parameters uploaded verbatim to every host and read
// by the binaries of the system under test.
type NodeParameters struct {
	json   map[string]interface{}
	Broker map[string]int
}

// LoadNodeParameters reads node parameters from JSON file.
func LoadNodeParameters(filename string) (*NodeParameters, error) {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read node parameters from %s", filename)
	}
	return NewNodeParameters(data)
}

// NewNodeParameters validates node parameters: the "broker" section must hold every
// required key as an integer.
func NewNodeParameters(data []byte) (*NodeParameters, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	raw := map[string]interface{}{}
	if err := decoder.Decode(&raw); err != nil {
		return nil, configErrorf("malformed parameters: %v", err)
	}

	section, ok := raw["broker"].(map[string]interface{})
	if !ok {
		return nil, configErrorf("malformed parameters: missing key 'broker'")
	}

	broker := map[string]int{}
	for _, key := range brokerKeys {
		value, ok := section[key]
		if !ok {
			return nil, configErrorf("malformed parameters: missing key '%s'", key)
		}
		number, ok := value.(json.Number)
		if !ok {
			return nil, configErrorf("invalid parameters type: '%s' is not an integer", key)
		}
		integer, err := number.Int64()
		if err != nil {
			return nil, configErrorf("invalid parameters type: '%s' is not an integer", key)
		}
		broker[key] = int(integer)
	}

	return &NodeParameters{json: raw, Broker: broker}, nil
}

// JSON renders parameters with sorted keys and four spaces indentation.
func (n *NodeParameters) JSON() ([]byte, error) {
	return json.MarshalIndent(n.json, "", "    ")
}

// Print writes parameters to filename.
func (n *NodeParameters) Print(filename string) error {
	data, err := n.JSON()
	if err != nil {
		return errors.Wrap(err, "cannot encode node parameters")
	}
	return errors.Wrapf(ioutil.WriteFile(filename, data, 0644), "cannot write node parameters to %s", filename)
}
