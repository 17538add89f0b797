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
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PercentileRanks are the reported end-to-end latency percentiles.
var PercentileRanks = [numPercentiles]float64{0, 1, 25, 50, 75, 99, 100}

const numPercentiles = 7

// Mean returns arithmetic mean or 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// StdDev returns sample standard deviation or 0 for less than two values.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// Percentile returns the p-th percentile (0-100) of values with linear
// interpolation between closest ranks: position p/100*(n-1) in sorted values.
// Returns 0 for no values.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	switch {
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[len(sorted)-1]
	}
	position := p / 100 * float64(len(sorted)-1)
	lower := math.Floor(position)
	i := int(lower)
	if i+1 >= len(sorted) {
		return sorted[i]
	}
	return sorted[i] + (position-lower)*(sorted[i+1]-sorted[i])
}

// Percentiles returns every rank of PercentileRanks.
func Percentiles(values []float64) [numPercentiles]float64 {
	var result [numPercentiles]float64
	if len(values) == 0 {
		return result
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	for i, rank := range PercentileRanks {
		result[i] = percentileSorted(sorted, rank)
	}
	result[0] = floats.Min(sorted)
	result[numPercentiles-1] = floats.Max(sorted)
	return result
}

func ints(values []int) []float64 {
	converted := make([]float64, len(values))
	for i, value := range values {
		converted[i] = float64(value)
	}
	return converted
}

func minOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Min(values)
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Max(values)
}

// round rounds half to even.
func round(value float64) int {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return int(math.RoundToEven(value))
}
