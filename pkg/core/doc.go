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

// Package core provides the immutable domain values shared by the strategy optimizer and the
// race simulator.
//
// This package contains the reference data and the records that flow between components:
//
//   - Circuit: track geometry, characteristics and the built-in circuit catalog
//   - TireCompound: the C0..C5, Intermediate and Wet compounds and their characteristics
//   - DegradationFactors / FuelConsumptionModel: wear and fuel coefficients
//   - WeatherForecast: overall, per-sector and lap-indexed weather
//   - PitStop / RaceStrategy: the optimizer output consumed read-only by the simulator
//   - Regulations: sporting constraints enforced by the optimizer
//
// It also defines the error taxonomy returned by the optimizer and the simulator
// (InfeasibleError, InvalidConfigError, NumericError and ErrCancelled).
//
// Example usage:
//
//	circuit, ok := core.LookupCircuit("monaco")
//	if !ok {
//	    return fmt.Errorf("unknown circuit")
//	}
//	life := core.C3.Characteristics().TypicalLife
//
// Values in this package are never mutated after construction. Methods that "change" a
// strategy return a new record.
package core
