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

// Package config provides the flat, self-describing records exchanged with callers at a
// process boundary, and their conversion to and from the strongly typed core values.
//
// Records use stable snake_case field names and can be decoded from either JSON or YAML.
// Nothing outside this package marshals core types.
//
// Record Types:
//
//   - OptimizationSpec: input to the strategy optimizer
//   - SimulationSpec: input to the race simulator
//   - StrategySpec: a race strategy, produced by the optimizer or supplied by a caller
//   - SimulationResultSpec / RaceTraceSpec: simulator outputs
//   - Request / Response: the envelope used by the command line entry point
//
// Circuits are either given inline or referenced by catalog id:
//
//	circuit_id: monaco
//	available_compounds: [C1, C2, C3]
//	pit_lane_time_loss: 22
//
// Example usage:
//
//	spec, err := config.Decode[config.OptimizationSpec](data)
//	if err != nil {
//	    return err
//	}
//	cfg, err := spec.ToOptimizationConfig()
package config
