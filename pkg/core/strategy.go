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

import (
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// PitStopReason tags why a pit stop was scheduled.
type PitStopReason string

const (
	ReasonMandatory       PitStopReason = "mandatory"
	ReasonUndercut        PitStopReason = "undercut"
	ReasonOvercut         PitStopReason = "overcut"
	ReasonTireDegradation PitStopReason = "tire_degradation"
	ReasonOpportunistic   PitStopReason = "opportunistic"
	ReasonWeatherChange   PitStopReason = "weather_change"
	ReasonDamage          PitStopReason = "damage"
)

// PitStop is a scheduled tire change at the end of Lap.
type PitStop struct {
	Lap      int
	Compound TireCompound
	// PitLoss in seconds, including lane time and the stationary time
	PitLoss    float64
	Reason     PitStopReason
	Confidence float64
}

// FuelStrategy is the fuel plan accompanying a strategy.
type FuelStrategy struct {
	StartingFuel      float64
	FuelSavingPerLap  float64
	FuelSavingLaps    []int
	MinimumFuelBuffer float64
}

// ErsMode is an energy deployment mode.
type ErsMode string

const (
	ErsNone     ErsMode = "none"
	ErsLow      ErsMode = "low"
	ErsMedium   ErsMode = "medium"
	ErsHigh     ErsMode = "high"
	ErsHotlap   ErsMode = "hotlap"
	ErsOvertake ErsMode = "overtake"
)

// ErsDeploymentPlan is carried through unchanged; the optimizer does not compute it.
type ErsDeploymentPlan struct {
	DefaultMode  ErsMode
	LapOverrides map[int]ErsMode
	OvertakeLaps []int
}

// StrategyMetadata describes how a strategy was produced.
type StrategyMetadata struct {
	GeneratedAt      time.Time
	OptimizerVersion string
	NumSimulations   int
}

// Stint is a run of consecutive laps on one set of tires, FirstLap..LastLap inclusive.
type Stint struct {
	Compound TireCompound
	FirstLap int
	LastLap  int
	// ExpectedLapTimes in seconds, one per lap of the stint
	ExpectedLapTimes []float64
}

// Laps returns the stint length.
func (s Stint) Laps() int {
	return s.LastLap - s.FirstLap + 1
}

// RaceStrategy is a complete race plan. It is never mutated after creation.
type RaceStrategy struct {
	ID               string
	StartingCompound TireCompound
	// PitStops in strictly increasing lap order
	PitStops     []PitStop
	FuelStrategy FuelStrategy
	ErsPlan      *ErsDeploymentPlan
	// TotalLaps is the race distance the plan covers
	TotalLaps int
	// ExpectedLapTimes holds one slice per stint
	ExpectedLapTimes  [][]float64
	PredictedRaceTime float64
	Confidence        float64
	Metadata          StrategyMetadata
}

// NumPitStops returns the number of scheduled stops.
func (s *RaceStrategy) NumPitStops() int {
	return len(s.PitStops)
}

// TotalPitLoss returns the summed pit loss of all stops.
func (s *RaceStrategy) TotalPitLoss() float64 {
	total := 0.0
	for _, p := range s.PitStops {
		total += p.PitLoss
	}
	return total
}

// PitStopOnLap returns the stop scheduled at the end of lap.
func (s *RaceStrategy) PitStopOnLap(lap int) (PitStop, bool) {
	for _, p := range s.PitStops {
		if p.Lap == lap {
			return p, true
		}
	}
	return PitStop{}, false
}

// CompoundForLap returns the compound fitted while lap is driven.
func (s *RaceStrategy) CompoundForLap(lap int) TireCompound {
	compound := s.StartingCompound
	for _, p := range s.PitStops {
		if p.Lap >= lap {
			break
		}
		compound = p.Compound
	}
	return compound
}

// Stints splits the race into stints covering laps 1..totalLaps.
func (s *RaceStrategy) Stints(totalLaps int) []Stint {
	stints := make([]Stint, 0, len(s.PitStops)+1)
	first := 1
	compound := s.StartingCompound
	for _, p := range s.PitStops {
		stints = append(stints, Stint{Compound: compound, FirstLap: first, LastLap: p.Lap})
		first = p.Lap + 1
		compound = p.Compound
	}
	stints = append(stints, Stint{Compound: compound, FirstLap: first, LastLap: totalLaps})
	for i := range stints {
		if i < len(s.ExpectedLapTimes) {
			stints[i].ExpectedLapTimes = s.ExpectedLapTimes[i]
		}
	}
	return stints
}

// StintForLap returns the index of the stint containing lap.
func (s *RaceStrategy) StintForLap(lap int) int {
	idx := 0
	for _, p := range s.PitStops {
		if p.Lap >= lap {
			break
		}
		idx++
	}
	return idx
}

// DistinctCompounds returns the number of different compounds used.
func (s *RaceStrategy) DistinctCompounds() int {
	seen := map[TireCompound]struct{}{s.StartingCompound: {}}
	for _, p := range s.PitStops {
		seen[p.Compound] = struct{}{}
	}
	return len(seen)
}

// Validate checks that every stop lies in [1, totalLaps] and that laps strictly increase.
func (s *RaceStrategy) Validate(totalLaps int) field.ErrorList {
	var errs field.ErrorList
	path := field.NewPath("pitStops")
	if !s.StartingCompound.IsValid() {
		errs = append(errs, field.Invalid(field.NewPath("startingCompound"), s.StartingCompound.String(), "unknown compound"))
	}
	prev := 0
	for i, p := range s.PitStops {
		lapPath := path.Index(i).Child("lap")
		if p.Lap < 1 || p.Lap > totalLaps {
			errs = append(errs, field.Invalid(lapPath, p.Lap, fmt.Sprintf("must be between 1 and %d", totalLaps)))
		} else if p.Lap <= prev {
			errs = append(errs, field.Invalid(lapPath, p.Lap, "pit stop laps must be strictly increasing"))
		}
		if !p.Compound.IsValid() {
			errs = append(errs, field.Invalid(path.Index(i).Child("compound"), p.Compound.String(), "unknown compound"))
		}
		if p.PitLoss < 0 {
			errs = append(errs, field.Invalid(path.Index(i).Child("pitLoss"), p.PitLoss, "must be >= 0"))
		}
		prev = max(prev, p.Lap)
	}
	return errs
}

// WithPitStops returns a copy of the strategy with a new stop list. Predicted time,
// expected lap times and confidence are cleared because they no longer apply.
func (s *RaceStrategy) WithPitStops(stops []PitStop) *RaceStrategy {
	next := *s
	next.PitStops = append([]PitStop(nil), stops...)
	next.ExpectedLapTimes = nil
	next.PredictedRaceTime = 0
	next.Confidence = 0
	return &next
}
