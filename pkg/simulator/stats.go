/*
Copyright 2025 The f1-nexus Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package simulator

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func sortedCopy(values []float64) []float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return sorted
}

// shiftedMean averages deviations from the minimum so identical samples return that
// value exactly.
func shiftedMean(values []float64) float64 {
	lo := floats.Min(values)
	dev := make([]float64, len(values))
	copy(dev, values)
	floats.AddConst(-lo, dev)
	return lo + stat.Mean(dev, nil)
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// Percentile returns the p-th percentile (0-100) of sorted values, interpolating linearly
// between adjacent order statistics at rank (n-1)*p/100.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}
	rank := float64(n-1) * p / 100
	lo := int(math.Floor(rank))
	hi := min(lo+1, n-1)
	frac := rank - float64(lo)
	v := sorted[lo] + frac*(sorted[hi]-sorted[lo])
	return math.Min(sorted[hi], math.Max(sorted[lo], v))
}
