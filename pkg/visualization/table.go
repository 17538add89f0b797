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

import (
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
)

// Table is a model for data.
type Table struct {
	headers []string
	data    [][]string
}

// NewTable creates new model of data representation.
func NewTable(headers []string, data [][]string) *Table {
	return &Table{
		headers,
		data,
	}
}

// AddRow appends a row. Missing cells are left empty.
func (t *Table) AddRow(row ...string) {
	for len(row) < len(t.headers) {
		row = append(row, "")
	}
	t.data = append(t.data, row)
}

// Len returns number of data rows.
func (t *Table) Len() int {
	return len(t.data)
}

// Render writes the table to w.
func (t *Table) Render(w io.Writer) {
	output := tablewriter.NewWriter(w)
	output.SetHeader(t.headers)
	output.SetAutoFormatHeaders(false)
	output.SetAlignment(tablewriter.ALIGN_RIGHT)
	output.AppendBulk(t.data)
	output.Render()
}

// DrawTable draws a struct with headers and data rows.
func DrawTable(table *Table) {
	table.Render(os.Stdout)
}
