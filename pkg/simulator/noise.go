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
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// NoiseModel draws multiplicative perturbation factors with mean one and the given
// coefficient of variation.
type NoiseModel interface {
	// Factor returns a positive multiplier. A zero cv returns exactly 1 without drawing.
	Factor(src rand.Source, cv float64) float64
}

// NoiseKind is an enumeration of the noise distributions the simulator can use
type NoiseKind int

// enumeration of NoiseKind
const (
	GaussianNoise NoiseKind = iota
	LogNormalNoise
)

func (k NoiseKind) String() string {
	switch k {
	case GaussianNoise:
		return "gaussian"
	case LogNormalNoise:
		return "lognormal"
	}
	return fmt.Sprintf("NoiseKind(%d)", int(k))
}

// ParseNoiseKind maps a name to a NoiseKind.
func ParseNoiseKind(name string) (NoiseKind, error) {
	switch name {
	case "", "gaussian":
		return GaussianNoise, nil
	case "lognormal":
		return LogNormalNoise, nil
	}
	return 0, fmt.Errorf("unsupported noise kind: %q", name)
}

// NewNoiseModel is a factory that creates a NoiseModel for the given kind
func NewNoiseModel(kind NoiseKind) (NoiseModel, error) {
	switch kind {
	case GaussianNoise:
		return gaussian{}, nil
	case LogNormalNoise:
		return logNormal{}, nil
	default:
		return nil, fmt.Errorf("unsupported noise kind: %v", kind)
	}
}

// minGaussianFactor keeps a heavy-tailed draw from producing a non-physical lap.
const minGaussianFactor = 0.5

type gaussian struct{}

func (gaussian) Factor(src rand.Source, cv float64) float64 {
	if cv <= 0 {
		return 1
	}
	d := distuv.Normal{Mu: 1, Sigma: cv, Src: src}
	return math.Max(minGaussianFactor, d.Rand())
}

type logNormal struct{}

func (logNormal) Factor(src rand.Source, cv float64) float64 {
	if cv <= 0 {
		return 1
	}
	sigma := math.Sqrt(math.Log1p(cv * cv))
	d := distuv.LogNormal{Mu: -sigma * sigma / 2, Sigma: sigma, Src: src}
	return d.Rand()
}
