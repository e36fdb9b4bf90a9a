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
	"runtime"

	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/f1-nexus/race-strategy/pkg/core"
	"github.com/f1-nexus/race-strategy/pkg/degradation"
)

// DefaultCatastrophicWear is the accumulated wear at which a tire fails.
const DefaultCatastrophicWear = degradation.FailureWear

// SimulationConfig controls one Monte Carlo run.
type SimulationConfig struct {
	NumIterations int
	Circuit       core.Circuit
	Weather       core.WeatherForecast
	// DegradationVariance and LapTimeVariance are coefficients of variation (>= 0).
	DegradationVariance float64
	LapTimeVariance     float64
	// Seed makes the run reproducible; nil draws a fresh seed per call.
	Seed *uint64
	// Workers bounds the trial pool; zero uses one worker per CPU.
	Workers int

	// DegradationFactors defaults to neutral factors at the circuit severity.
	DegradationFactors core.DegradationFactors
	// FuelModel defaults to the reference model at the circuit consumption factor.
	FuelModel        core.FuelConsumptionModel
	Degradation      degradation.Config
	CatastrophicWear float64
	RetainSamples    bool
	Noise            NoiseKind
}

// withDefaults fills unset optional fields.
func (c SimulationConfig) withDefaults() SimulationConfig {
	if c.DegradationFactors == (core.DegradationFactors{}) {
		c.DegradationFactors = core.DefaultDegradationFactors(c.Circuit.Severity())
	}
	if c.FuelModel == (core.FuelConsumptionModel{}) {
		c.FuelModel = core.DefaultFuelModel(c.Circuit.Characteristics.FuelConsumption)
	}
	if c.CatastrophicWear == 0 {
		c.CatastrophicWear = DefaultCatastrophicWear
	}
	if c.Workers == 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Weather.TrackTemp == 0 {
		// without a forecast the tires run at the reference temperature
		c.Weather.TrackTemp = degradation.DefaultConfig().ReferenceTrackTemp
	}
	return c
}

// validate checks the configuration and the strategy against it.
func (c *SimulationConfig) validate(strategy *core.RaceStrategy) error {
	var errs field.ErrorList
	if c.NumIterations <= 0 {
		errs = append(errs, field.Invalid(field.NewPath("numIterations"), c.NumIterations, "must be > 0"))
	}
	if c.Circuit.TypicalRaceLaps <= 0 {
		errs = append(errs, field.Invalid(field.NewPath("circuit", "typicalRaceLaps"), c.Circuit.TypicalRaceLaps, "must be > 0"))
	}
	if c.DegradationVariance < 0 || math.IsNaN(c.DegradationVariance) {
		errs = append(errs, field.Invalid(field.NewPath("degradationVariance"), c.DegradationVariance, "must be >= 0"))
	}
	if c.LapTimeVariance < 0 || math.IsNaN(c.LapTimeVariance) {
		errs = append(errs, field.Invalid(field.NewPath("lapTimeVariance"), c.LapTimeVariance, "must be >= 0"))
	}
	if c.Workers < 0 {
		errs = append(errs, field.Invalid(field.NewPath("workers"), c.Workers, "must be >= 0"))
	}
	if c.CatastrophicWear < 0 || c.CatastrophicWear > 1 {
		errs = append(errs, field.Invalid(field.NewPath("catastrophicWear"), c.CatastrophicWear, "must be between 0 and 1"))
	}
	if err := c.Weather.Validate(); err != nil {
		errs = append(errs, field.Invalid(field.NewPath("weather"), c.Weather.Condition, err.Error()))
	}
	if strategy == nil {
		errs = append(errs, field.Required(field.NewPath("strategy"), "a strategy is required"))
	} else if c.Circuit.TypicalRaceLaps > 0 {
		for _, e := range strategy.Validate(c.Circuit.TypicalRaceLaps) {
			e.Field = field.NewPath("strategy").String() + "." + e.Field
			errs = append(errs, e)
		}
	}
	if err := core.NewInvalidConfigError(errs); err != nil {
		return err
	}

	if base := c.Circuit.BaseLapTime(); base <= 0 || math.IsNaN(base) || math.IsInf(base, 0) {
		return &core.NumericError{Field: "circuit.baseLapTime", Value: base, Cause: "circuit needs a lap record or a distance and average speed"}
	}
	if err := degradation.ValidateFuelModel(c.FuelModel); err != nil {
		return err
	}
	if sev := c.DegradationFactors.TotalMultiplier(); sev <= 0 || math.IsNaN(sev) || math.IsInf(sev, 0) {
		return &core.NumericError{Field: "degradationFactors", Value: sev, Cause: "must be finite and > 0"}
	}
	return nil
}

func (c *SimulationConfig) String() string {
	return fmt.Sprintf("SimulationConfig{circuit=%s iterations=%d laps=%d}", c.Circuit.ID, c.NumIterations, c.Circuit.TypicalRaceLaps)
}
