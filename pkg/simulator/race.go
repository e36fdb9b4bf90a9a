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

	"github.com/f1-nexus/race-strategy/pkg/core"
	"github.com/f1-nexus/race-strategy/pkg/degradation"
)

// DNFCause explains why a trial did not finish.
type DNFCause int

const (
	Finished DNFCause = iota
	TireFailure
	FuelExhausted
)

// lapConditions are the per-lap inputs that do not depend on the trial.
type lapConditions struct {
	condition  core.WeatherCondition
	trackTemp  float64
	volatility float64
}

// race replays one strategy. It is read-only once built and shared by all workers.
type race struct {
	cfg      SimulationConfig
	strategy *core.RaceStrategy
	model    *degradation.Model
	laps     int
	base     float64
	severity float64
	lapsCond []lapConditions
	stops    map[int]core.PitStop
}

func newRace(cfg SimulationConfig, strategy *core.RaceStrategy) (*race, error) {
	model, err := degradation.NewModel(cfg.Degradation)
	if err != nil {
		return nil, err
	}
	laps := cfg.Circuit.TypicalRaceLaps
	r := &race{
		cfg:      cfg,
		strategy: strategy,
		model:    model,
		laps:     laps,
		base:     cfg.Circuit.BaseLapTime(),
		severity: cfg.DegradationFactors.TotalMultiplier(),
		lapsCond: make([]lapConditions, laps),
		stops:    make(map[int]core.PitStop, len(strategy.PitStops)),
	}
	for lap := 1; lap <= laps; lap++ {
		r.lapsCond[lap-1] = lapConditions{
			condition:  cfg.Weather.ConditionAtLap(lap),
			trackTemp:  cfg.Weather.TrackTempAtLap(lap),
			volatility: cfg.Weather.VolatilityAtLap(lap),
		}
	}
	for _, p := range strategy.PitStops {
		r.stops[p.Lap] = p
	}
	// surface a degenerate model or forecast once so run can ignore WearRate errors
	for _, c := range append([]core.TireCompound{strategy.StartingCompound}, stopCompounds(strategy)...) {
		if _, err := model.WearRate(c, cfg.Weather.TrackTemp, r.severity); err != nil {
			return nil, err
		}
		for i := range r.lapsCond {
			if _, err := model.WearRate(c, r.lapsCond[i].trackTemp, r.severity); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

func stopCompounds(s *core.RaceStrategy) []core.TireCompound {
	out := make([]core.TireCompound, 0, len(s.PitStops))
	for _, p := range s.PitStops {
		out = append(out, p.Compound)
	}
	return out
}

// drawFunc returns a multiplicative noise factor for a coefficient of variation.
type drawFunc func(cv float64) float64

func noNoise(float64) float64 { return 1 }

// trial is the outcome of one replay.
type trial struct {
	time  float64
	cause DNFCause
}

// lapObserver receives every completed lap; used by Replay.
type lapObserver interface {
	lap(lap int, compound core.TireCompound, age int, wear, fuel, lapTime float64, cond lapConditions)
	pit(stop core.PitStop, lap int, loss float64, wear float64)
	dnf(lap int, cause DNFCause)
}

// run replays the race once. lapTimes, when non-nil, receives each lap time.
func (r *race) run(draw drawFunc, lapTimes []float64, obs lapObserver) trial {
	compound := r.strategy.StartingCompound
	life := compound.Characteristics().TypicalLife
	age := 0
	wear := 0.0
	fuel := r.strategy.FuelStrategy.StartingFuel
	if fuel <= 0 {
		fuel = min(core.MaxFuel, r.cfg.FuelModel.FuelNeededForLaps(r.laps)+core.MinFuelBuffer)
	}
	total := 0.0

	for lap := 1; lap <= r.laps; lap++ {
		cond := r.lapsCond[lap-1]
		age++

		// deterministic increment, clamped to full wear past twice the typical life
		rate, _ := r.model.WearRate(compound, cond.trackTemp, r.severity)
		inc := rate
		if age > 2*life {
			inc = 1
		}
		noiseScale := (1 + wear) * (1 + cond.volatility)
		inc = math.Max(0, inc*draw(r.cfg.DegradationVariance*noiseScale))
		wear = math.Min(1, wear+inc)
		if wear >= r.cfg.CatastrophicWear {
			if obs != nil {
				obs.dnf(lap, TireFailure)
			}
			return trial{cause: TireFailure}
		}

		penalty := r.cfg.FuelModel.PenaltyPerKg * fuel
		fuel -= r.cfg.FuelModel.ConsumptionPerLap(fuel)
		if fuel < 0 {
			if obs != nil {
				obs.dnf(lap, FuelExhausted)
			}
			return trial{cause: FuelExhausted}
		}

		lapTime := degradation.LapTime(r.base, r.model.Grip(compound, wear), penalty) + core.WeatherPenalty(compound, cond.condition)
		lapTime *= draw(r.cfg.LapTimeVariance * noiseScale)
		total += lapTime
		if lapTimes != nil {
			lapTimes[lap-1] = lapTime
		}
		if obs != nil {
			obs.lap(lap, compound, age, wear, fuel, lapTime, cond)
		}

		if stop, ok := r.stops[lap]; ok && lap < r.laps {
			loss := stop.PitLoss * draw(r.cfg.LapTimeVariance)
			total += loss
			if obs != nil {
				obs.pit(stop, lap, loss, wear)
			}
			compound = stop.Compound
			life = compound.Characteristics().TypicalLife
			age = 0
			wear = 0
		}
	}
	return trial{time: total, cause: Finished}
}
