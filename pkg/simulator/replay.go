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
	"context"
	"fmt"

	"github.com/f1-nexus/race-strategy/pkg/core"
)

// lowFuelWarning is the fuel level in kg below which a replay warns.
const lowFuelWarning = 5.0

// LapRecord is one lap of a deterministic replay.
type LapRecord struct {
	Lap       int
	Compound  core.TireCompound
	TireAge   int
	Wear      float64
	Fuel      float64
	LapTime   float64
	Condition core.WeatherCondition
}

// PitEvent is a stop taken during a replay.
type PitEvent struct {
	Lap          int
	FromCompound core.TireCompound
	ToCompound   core.TireCompound
	Loss         float64
	WearAtStop   float64
	Reason       core.PitStopReason
}

// RaceTrace is the noise-free lap-by-lap replay of a strategy.
type RaceTrace struct {
	Laps      []LapRecord
	PitStops  []PitEvent
	Warnings  []string
	TotalTime float64
	Finished  bool
	DNFLap    int
	DNFCause  DNFCause
}

type traceObserver struct {
	trace        *RaceTrace
	warnedFuel   bool
	warnedAge    map[int]bool
	lastWeatherW core.WeatherCondition
	stint        int
}

func (o *traceObserver) lap(lap int, compound core.TireCompound, age int, wear, fuel, lapTime float64, cond lapConditions) {
	o.trace.Laps = append(o.trace.Laps, LapRecord{
		Lap: lap, Compound: compound, TireAge: age, Wear: wear, Fuel: fuel, LapTime: lapTime, Condition: cond.condition,
	})
	if fuel < lowFuelWarning && !o.warnedFuel {
		o.warnedFuel = true
		o.trace.Warnings = append(o.trace.Warnings, fmt.Sprintf("Lap %d: low fuel (%.1f kg remaining)", lap, fuel))
	}
	if age > compound.Characteristics().TypicalLife && !o.warnedAge[o.stint] {
		o.warnedAge[o.stint] = true
		o.trace.Warnings = append(o.trace.Warnings, fmt.Sprintf("Lap %d: %s tires past their typical life (%d laps)", lap, compound, age))
	}
	if core.WeatherPenalty(compound, cond.condition) > 0 && o.lastWeatherW != cond.condition {
		o.lastWeatherW = cond.condition
		o.trace.Warnings = append(o.trace.Warnings, fmt.Sprintf("Lap %d: %s tires in %s conditions", lap, compound, cond.condition))
	}
}

func (o *traceObserver) pit(stop core.PitStop, lap int, loss, wear float64) {
	from := stop.Compound
	if n := len(o.trace.Laps); n > 0 {
		from = o.trace.Laps[n-1].Compound
	}
	o.trace.PitStops = append(o.trace.PitStops, PitEvent{
		Lap: lap, FromCompound: from, ToCompound: stop.Compound, Loss: loss, WearAtStop: wear, Reason: stop.Reason,
	})
	o.stint++
	o.lastWeatherW = ""
}

func (o *traceObserver) dnf(lap int, cause DNFCause) {
	o.trace.DNFLap = lap
	o.trace.DNFCause = cause
	switch cause {
	case TireFailure:
		o.trace.Warnings = append(o.trace.Warnings, fmt.Sprintf("Lap %d: tire failure", lap))
	case FuelExhausted:
		o.trace.Warnings = append(o.trace.Warnings, fmt.Sprintf("Lap %d: ran out of fuel", lap))
	}
}

// Replay runs the strategy once without noise and records every lap. NumIterations,
// the variances and the seed are ignored.
func Replay(ctx context.Context, strategy *core.RaceStrategy, cfg SimulationConfig) (*RaceTrace, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.Cancelled(err)
	}
	cfg = cfg.withDefaults()
	cfg.NumIterations = 1
	if err := cfg.validate(strategy); err != nil {
		return nil, err
	}
	r, err := newRace(cfg, strategy)
	if err != nil {
		return nil, err
	}
	trace := &RaceTrace{}
	obs := &traceObserver{trace: trace, warnedAge: map[int]bool{}}
	t := r.run(noNoise, nil, obs)
	trace.Finished = t.cause == Finished
	trace.TotalTime = t.time
	if !trace.Finished {
		trace.DNFCause = t.cause
	}
	return trace, nil
}
