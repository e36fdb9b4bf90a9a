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

// Package solver implements the race strategy optimizer.
//
// The optimizer runs a dynamic program over states (lap, compound, stops so far). At every
// lap each state either stays out on its current set or, at the end of the previous lap,
// pits onto a different available compound paying the pit loss. Lap cost comes from the
// degradation package:
//
//	lapTime(lap, compound, age) = baseLapTime / grip(compound, wear(age)) + fuelPenalty(lap)
//
// Key Components:
//
//   - Optimizer: validates an OptimizationConfig and runs the search
//   - PitWindowFor: earliest, optimal and latest stop laps for a stint
//   - CompareStrategies: time and risk comparison of two plans
//
// State pruning:
//
// States at the same (lap, compound) are merged by key (tire age, stop count) and, with
// pruning enabled, a state is discarded when another one at the same (lap, compound) is no
// slower, has no more wear, no more stops and the same regulation standing. Disabling
// pruning keeps one state per key, which returns the same plan at the cost of memory and
// time proportional to laps x stops per compound.
//
// Example usage:
//
//	opt, err := solver.NewOptimizer(cfg)
//	if err != nil {
//	    return err
//	}
//	strategy, err := opt.Optimize(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, stop := range strategy.PitStops {
//	    log.Info("pit stop", "lap", stop.Lap, "compound", stop.Compound, "reason", stop.Reason)
//	}
//
// The optimizer is deterministic: identical configs produce identical strategies apart
// from the creation timestamp.
package solver
