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

package solver

import (
	"context"
	"errors"
	"math"

	"github.com/f1-nexus/race-strategy/pkg/core"
)

// PitWindow bounds the laps on which a stint should end.
type PitWindow struct {
	Earliest     int
	OptimalStart int
	OptimalEnd   int
	Latest       int
}

// Contains reports whether lap falls inside the window.
func (w PitWindow) Contains(lap int) bool {
	return lap >= w.Earliest && lap <= w.Latest
}

// PitWindowFor returns the window for a stint on compound starting at stintStartLap. The
// typical life is scaled down by severity; earliest is at 70 % of it, the optimal range
// 80-90 % and latest 95 %. Laps are clamped to the race.
func PitWindowFor(compound core.TireCompound, stintStartLap int, severity float64, totalLaps int) PitWindow {
	if severity <= 0 {
		severity = 1
	}
	life := float64(compound.Characteristics().TypicalLife) / severity
	at := func(frac float64) int {
		lap := stintStartLap + int(math.Round(life*frac))
		return max(stintStartLap, min(lap, max(1, totalLaps-1)))
	}
	return PitWindow{
		Earliest:     at(0.70),
		OptimalStart: at(0.80),
		OptimalEnd:   at(0.90),
		Latest:       at(0.95),
	}
}

// Comparison summarizes how two strategies differ.
type Comparison struct {
	// TimeDelta is b minus a in seconds; positive means a is faster.
	TimeDelta float64
	StopDelta int
	RiskA     float64
	RiskB     float64
	// PreferA is true when a is the better choice.
	PreferA bool
}

// closeCall is the time gap under which the lower-risk plan is preferred.
const closeCall = 1.0

// CompareStrategies compares two strategies over totalLaps.
func CompareStrategies(a, b *core.RaceStrategy, totalLaps int, severity float64) Comparison {
	c := Comparison{
		TimeDelta: b.PredictedRaceTime - a.PredictedRaceTime,
		StopDelta: b.NumPitStops() - a.NumPitStops(),
		RiskA:     Risk(a, totalLaps, severity),
		RiskB:     Risk(b, totalLaps, severity),
	}
	if math.Abs(c.TimeDelta) < closeCall {
		c.PreferA = c.RiskA <= c.RiskB
	} else {
		c.PreferA = c.TimeDelta > 0
	}
	return c
}

// Risk scores execution risk in [0,1]. Every stop adds a little, and every stint run past
// 80 % of its severity-adjusted typical life adds in proportion to the overrun.
func Risk(s *core.RaceStrategy, totalLaps int, severity float64) float64 {
	if severity <= 0 {
		severity = 1
	}
	risk := 0.05 * float64(s.NumPitStops())
	for _, st := range s.Stints(totalLaps) {
		life := float64(st.Compound.Characteristics().TypicalLife) / severity
		if life <= 0 {
			continue
		}
		if over := float64(st.Laps())/life - 0.8; over > 0 {
			risk += 0.5 * over
		}
	}
	return math.Min(1, risk)
}

// Compound scoring weights.
const (
	gripWeight        = 0.40
	degradationWeight = 0.35
	thermalWeight     = 0.25

	// tireTempRise is how far a working tire runs above the track surface, in degrees Celsius.
	tireTempRise = 60.0
	// minPaceFactor is the pace of the slowest compound, a full wet.
	minPaceFactor = 0.93
)

// SelectCompound scores every usable compound for a stint of targetLaps starting with
// fuelLoad kg on board and returns the best. It returns false when no compound is usable.
func SelectCompound(circuit core.Circuit, compounds []core.TireCompound, trackTemp, fuelLoad float64, targetLaps int, factors core.DegradationFactors) (core.TireCompound, bool) {
	var (
		best      core.TireCompound
		bestScore = -1.0
	)
	for _, c := range compounds {
		if !c.IsValid() {
			continue
		}
		score := gripWeight*gripScore(c, circuit.Characteristics.TireSeverity) +
			degradationWeight*lifeScore(c, targetLaps, fuelLoad, factors) +
			thermalWeight*thermalScore(c, trackTemp)
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best, bestScore >= 0
}

// gripScore matches the compound's relative grip to the circuit's demand, which rises
// with tire severity.
func gripScore(c core.TireCompound, severity float64) float64 {
	level := (c.Characteristics().PaceFactor - minPaceFactor) / (1 - minPaceFactor)
	demand := math.Min(severity, 2) * 0.5
	switch diff := math.Abs(level - demand); {
	case diff < 0.05:
		return 1
	case diff < 0.15:
		return 0.8 - (diff-0.05)*2
	case diff < 0.25:
		return 0.6 - (diff-0.15)*2
	default:
		return 0.3
	}
}

// lifeScore rates whether a set lasts the stint. Heavier cars wear tires faster.
func lifeScore(c core.TireCompound, targetLaps int, fuelLoad float64, factors core.DegradationFactors) float64 {
	fuelImpact := 1 + fuelLoad/core.MaxFuel*0.15
	life := float64(c.Characteristics().TypicalLife) / (factors.TotalMultiplier() * fuelImpact)
	target := float64(targetLaps)
	switch {
	case life >= target*1.2:
		return 1
	case life >= target:
		return 0.8
	case life >= target*0.85:
		return 0.5
	default:
		return 0.2
	}
}

// thermalScore rates how close the tire runs to the middle of its operating window.
func thermalScore(c core.TireCompound, trackTemp float64) float64 {
	const ideal, acceptable = 5.0, 15.0
	chars := c.Characteristics()
	mid := (chars.OptimalTempMin + chars.OptimalTempMax) / 2
	switch diff := math.Abs(trackTemp + tireTempRise - mid); {
	case diff <= ideal:
		return 1
	case diff <= acceptable:
		return 1 - (diff-ideal)/(acceptable-ideal)*0.4
	case diff <= 2*acceptable:
		return 0.6 - (diff-acceptable)/acceptable*0.4
	default:
		return 0.1
	}
}

// Analysis annotates an optimized strategy.
type Analysis struct {
	// SuggestedCompound is the scored pick for the first stint.
	SuggestedCompound core.TireCompound
	// PitWindows holds one window for every stint that ends in a stop.
	PitWindows []PitWindow
	Risk       float64
	// Alternative is the best plan starting on SuggestedCompound. It is nil when the
	// strategy already starts there or no such plan is feasible.
	Alternative *Alternative
}

// Alternative is a rival plan and how the analyzed strategy compares with it.
type Alternative struct {
	Strategy   *core.RaceStrategy
	Comparison Comparison
}

// Analyze scores the strategy optimized for cfg. It runs one more optimization when the
// suggested starting compound differs from the strategy's.
func Analyze(ctx context.Context, cfg OptimizationConfig, s *core.RaceStrategy) (*Analysis, error) {
	severity := cfg.DegradationFactors.TotalMultiplier()
	stints := s.Stints(cfg.TotalLaps)
	a := &Analysis{Risk: Risk(s, cfg.TotalLaps, severity)}
	for _, st := range stints[:len(stints)-1] {
		a.PitWindows = append(a.PitWindows, PitWindowFor(st.Compound, st.FirstLap-1, severity, cfg.TotalLaps))
	}

	suggested, ok := SelectCompound(cfg.Circuit, cfg.usableCompounds(), cfg.TrackTemperature,
		s.FuelStrategy.StartingFuel, stints[0].Laps(), cfg.DegradationFactors)
	if !ok {
		return a, nil
	}
	a.SuggestedCompound = suggested
	if suggested == s.StartingCompound || cfg.StartingCompound != nil {
		return a, nil
	}

	cfg.StartingCompound = &suggested
	rival, err := Optimize(ctx, cfg)
	var infeasible *core.InfeasibleError
	switch {
	case errors.As(err, &infeasible):
		return a, nil
	case err != nil:
		return nil, err
	}
	a.Alternative = &Alternative{Strategy: rival, Comparison: CompareStrategies(s, rival, cfg.TotalLaps, severity)}
	return a, nil
}
