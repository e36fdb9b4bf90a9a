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

package degradation

import (
	"math"

	"github.com/f1-nexus/race-strategy/pkg/core"
)

// FuelState is the fuel situation after a number of laps.
type FuelState struct {
	Consumed  float64
	Remaining float64
	// Penalty is the lap-time cost in seconds of the fuel still on board.
	Penalty   float64
	Exhausted bool
}

// ValidateFuelModel reports degenerate coefficients as a NumericError.
func ValidateFuelModel(fm core.FuelConsumptionModel) error {
	checks := []struct {
		field    string
		value    float64
		positive bool
	}{
		{"fuelModel.baseRate", fm.BaseRate, true},
		{"fuelModel.trackMultiplier", fm.TrackMultiplier, true},
		{"fuelModel.loadFactor", fm.LoadFactor, false},
		{"fuelModel.penaltyPerKg", fm.PenaltyPerKg, false},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return &core.NumericError{Field: c.field, Value: c.value, Cause: "must be finite"}
		}
		if c.positive && c.value <= 0 {
			return &core.NumericError{Field: c.field, Value: c.value, Cause: "must be > 0"}
		}
		if !c.positive && c.value < 0 {
			return &core.NumericError{Field: c.field, Value: c.value, Cause: "must be >= 0"}
		}
	}
	return nil
}

// Fuel returns the fuel state after elapsedLaps starting from startingFuel kg.
func Fuel(fm core.FuelConsumptionModel, startingFuel float64, elapsedLaps int) (FuelState, error) {
	if err := ValidateFuelModel(fm); err != nil {
		return FuelState{}, err
	}
	remaining := startingFuel
	for i := 0; i < elapsedLaps; i++ {
		remaining -= fm.ConsumptionPerLap(math.Max(0, remaining))
	}
	return fuelState(fm, startingFuel, remaining), nil
}

// FuelProfile returns the fuel state at the start of each lap 1..laps. Index 0 is lap 1.
func FuelProfile(fm core.FuelConsumptionModel, startingFuel float64, laps int) ([]FuelState, error) {
	if err := ValidateFuelModel(fm); err != nil {
		return nil, err
	}
	profile := make([]FuelState, laps)
	remaining := startingFuel
	for i := range profile {
		profile[i] = fuelState(fm, startingFuel, remaining)
		remaining -= fm.ConsumptionPerLap(math.Max(0, remaining))
	}
	return profile, nil
}

func fuelState(fm core.FuelConsumptionModel, startingFuel, remaining float64) FuelState {
	exhausted := remaining < 0
	if exhausted {
		remaining = 0
	}
	return FuelState{
		Consumed:  startingFuel - remaining,
		Remaining: remaining,
		Penalty:   fm.PenaltyPerKg * remaining,
		Exhausted: exhausted,
	}
}
