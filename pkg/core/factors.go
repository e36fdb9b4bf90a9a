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

package core

// DegradationFactors are multiplicative coefficients applied to the nominal wear rate.
// A value of 1.0 is neutral for every factor.
type DegradationFactors struct {
	TrackSeverity      float64
	TemperatureFactor  float64
	DrivingStyleFactor float64
	FuelLoadFactor     float64
	DownforceFactor    float64
}

// DefaultDegradationFactors returns neutral factors for a circuit of the given severity.
func DefaultDegradationFactors(severity float64) DegradationFactors {
	return DegradationFactors{
		TrackSeverity:      severity,
		TemperatureFactor:  1.0,
		DrivingStyleFactor: 1.0,
		FuelLoadFactor:     1.0,
		DownforceFactor:    1.0,
	}
}

// TotalMultiplier is the product of all factors. Unset factors count as neutral.
func (f DegradationFactors) TotalMultiplier() float64 {
	total := 1.0
	for _, v := range []float64{f.TrackSeverity, f.TemperatureFactor, f.DrivingStyleFactor, f.FuelLoadFactor, f.DownforceFactor} {
		if v > 0 {
			total *= v
		}
	}
	return total
}

// MaxFuel is the regulatory fuel limit in kilograms.
const MaxFuel = 110.0

// MinFuelBuffer is the fuel in kilograms that must remain at the finish.
const MinFuelBuffer = 1.0

// FuelConsumptionModel describes fuel burn and the lap-time cost of carried fuel.
type FuelConsumptionModel struct {
	// BaseRate in kg per lap
	BaseRate float64
	// TrackMultiplier scales BaseRate for the circuit
	TrackMultiplier float64
	// LoadFactor is the extra burn per kg carried
	LoadFactor float64
	// PenaltyPerKg is the lap-time cost in seconds per kg of fuel on board
	PenaltyPerKg float64
}

// DefaultFuelModel returns the reference fuel model scaled to a circuit's consumption factor.
func DefaultFuelModel(trackMultiplier float64) FuelConsumptionModel {
	if trackMultiplier <= 0 {
		trackMultiplier = 1.0
	}
	return FuelConsumptionModel{
		BaseRate:        1.6,
		TrackMultiplier: trackMultiplier,
		LoadFactor:      0.0005,
		PenaltyPerKg:    0.03,
	}
}

// ConsumptionPerLap returns the fuel burnt over one lap starting with currentFuel kg.
func (m FuelConsumptionModel) ConsumptionPerLap(currentFuel float64) float64 {
	return m.BaseRate * m.TrackMultiplier * (1 + currentFuel*m.LoadFactor)
}

// FuelNeededForLaps returns the fuel required to complete laps, iterating lap by lap so
// the load-dependent burn is accounted for. It does not include the finishing buffer.
func (m FuelConsumptionModel) FuelNeededForLaps(laps int) float64 {
	// work backwards from the finish: the fuel x carried into a lap must cover
	// x = after + burn(x)
	base := m.BaseRate * m.TrackMultiplier
	denom := 1 - base*m.LoadFactor
	if denom <= 0 {
		denom = 1
	}
	fuel := 0.0
	for i := 0; i < laps; i++ {
		fuel = (fuel + base) / denom
	}
	return fuel
}

// LapsRemaining returns how many full laps can be driven with currentFuel while keeping
// MinFuelBuffer in the tank.
func (m FuelConsumptionModel) LapsRemaining(currentFuel float64) int {
	laps := 0
	fuel := currentFuel
	for {
		burn := m.ConsumptionPerLap(fuel)
		if burn <= 0 || fuel-burn < MinFuelBuffer {
			return laps
		}
		fuel -= burn
		laps++
	}
}

// FuelSavingNeeded returns the kg per lap that must be saved to finish laps with
// currentFuel, or zero when the load is sufficient.
func (m FuelConsumptionModel) FuelSavingNeeded(currentFuel float64, laps int) float64 {
	if laps <= 0 {
		return 0
	}
	shortfall := m.FuelNeededForLaps(laps) + MinFuelBuffer - currentFuel
	if shortfall <= 0 {
		return 0
	}
	return shortfall / float64(laps)
}

// Regulations are the sporting constraints applied to a strategy.
type Regulations struct {
	MinPitStops      int
	MinCompoundTypes int
	MaxFuel          float64
}

// DefaultRegulations returns the dry-race regulations.
func DefaultRegulations() Regulations {
	return Regulations{
		MinPitStops:      1,
		MinCompoundTypes: 2,
		MaxFuel:          MaxFuel,
	}
}
