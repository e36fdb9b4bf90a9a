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

package config

import (
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/utils/ptr"

	"github.com/f1-nexus/race-strategy/pkg/core"
	"github.com/f1-nexus/race-strategy/pkg/degradation"
	"github.com/f1-nexus/race-strategy/pkg/simulator"
	"github.com/f1-nexus/race-strategy/pkg/solver"
)

// ToCircuit converts the flat record to a core.Circuit.
func (c *CircuitSpec) ToCircuit() core.Circuit {
	return core.Circuit{
		ID:              c.ID,
		Name:            c.Name,
		Country:         c.Country,
		LapDistance:     c.LapDistance,
		TypicalRaceLaps: c.TypicalRaceLaps,
		LapRecord:       c.LapRecord,
		Characteristics: core.TrackCharacteristics{
			AverageSpeed:         c.AverageSpeed,
			TopSpeed:             c.TopSpeed,
			Corners:              c.Corners,
			ElevationChange:      c.ElevationChange,
			OvertakingDifficulty: c.OvertakingDifficulty,
			TireSeverity:         c.TireSeverity,
			FuelConsumption:      c.FuelConsumption,
			DownforceLevel:       c.DownforceLevel,
			WeatherVariability:   c.WeatherVariability,
		},
	}
}

// CircuitSpecFromCore flattens a circuit.
func CircuitSpecFromCore(c core.Circuit) CircuitSpec {
	ch := c.Characteristics
	return CircuitSpec{
		ID: c.ID, Name: c.Name, Country: c.Country,
		LapDistance: c.LapDistance, TypicalRaceLaps: c.TypicalRaceLaps, LapRecord: c.LapRecord,
		AverageSpeed: ch.AverageSpeed, TopSpeed: ch.TopSpeed, Corners: ch.Corners,
		ElevationChange: ch.ElevationChange, OvertakingDifficulty: ch.OvertakingDifficulty,
		TireSeverity: ch.TireSeverity, FuelConsumption: ch.FuelConsumption,
		DownforceLevel: ch.DownforceLevel, WeatherVariability: ch.WeatherVariability,
	}
}

// resolveCircuit prefers an inline circuit over a catalog reference.
func resolveCircuit(id string, inline *CircuitSpec) (core.Circuit, *field.Error) {
	if inline != nil {
		return inline.ToCircuit(), nil
	}
	if id == "" {
		return core.Circuit{}, field.Required(field.NewPath("circuit_id"), "either circuit_id or circuit is required")
	}
	c, ok := core.LookupCircuit(id)
	if !ok {
		return core.Circuit{}, field.NotSupported(field.NewPath("circuit_id"), id, core.CircuitIDs())
	}
	return c, nil
}

func (d *DegradationFactorsSpec) toCore(circuit core.Circuit) core.DegradationFactors {
	if d == nil {
		return core.DefaultDegradationFactors(circuit.Severity())
	}
	return core.DegradationFactors{
		TrackSeverity:      d.TrackSeverity,
		TemperatureFactor:  d.TemperatureFactor,
		DrivingStyleFactor: d.DrivingStyleFactor,
		FuelLoadFactor:     d.FuelLoadFactor,
		DownforceFactor:    d.DownforceFactor,
	}
}

func (f *FuelModelSpec) toCore(circuit core.Circuit) core.FuelConsumptionModel {
	if f == nil {
		return core.DefaultFuelModel(circuit.Characteristics.FuelConsumption)
	}
	return core.FuelConsumptionModel{
		BaseRate:        f.BaseRate,
		TrackMultiplier: f.TrackMultiplier,
		LoadFactor:      f.LoadFactor,
		PenaltyPerKg:    f.PenaltyPerKg,
	}
}

func (e *ErsPlanSpec) toCore() *core.ErsDeploymentPlan {
	if e == nil {
		return nil
	}
	return &core.ErsDeploymentPlan{DefaultMode: e.DefaultMode, LapOverrides: e.LapOverrides, OvertakeLaps: e.OvertakeLaps}
}

func ersPlanSpec(p *core.ErsDeploymentPlan) *ErsPlanSpec {
	if p == nil {
		return nil
	}
	return &ErsPlanSpec{DefaultMode: p.DefaultMode, LapOverrides: p.LapOverrides, OvertakeLaps: p.OvertakeLaps}
}

// ToOptimizationConfig resolves the circuit and fills defaults. A missing total_laps
// takes the circuit's typical race distance.
func (s *OptimizationSpec) ToOptimizationConfig() (solver.OptimizationConfig, error) {
	circuit, ferr := resolveCircuit(s.CircuitID, s.Circuit)
	if ferr != nil {
		return solver.OptimizationConfig{}, &core.InvalidConfigError{Errs: field.ErrorList{ferr}}
	}
	laps := s.TotalLaps
	if laps == 0 {
		laps = circuit.TypicalRaceLaps
	}
	competitors := make([]solver.Competitor, 0, len(s.CompetitorsAhead))
	for _, c := range s.CompetitorsAhead {
		competitors = append(competitors, solver.Competitor{Driver: c.Driver, Position: c.Position, ExpectedPitLap: c.ExpectedPitLap})
	}
	return solver.OptimizationConfig{
		TotalLaps:          laps,
		Circuit:            circuit,
		AvailableCompounds: s.AvailableCompounds,
		PitLaneTimeLoss:    s.PitLaneTimeLoss,
		TireChangeTime:     s.TireChangeTime,
		StartingPosition:   s.StartingPosition,
		CompetitorsAhead:   competitors,
		DegradationFactors: s.DegradationFactors.toCore(circuit),
		FuelModel:          s.FuelModel.toCore(circuit),
		StartingFuel:       s.StartingFuel,
		TrackTemperature:   s.TrackTemperature,
		MinPitStops:        s.MinPitStops,
		MaxPitStops:        s.MaxPitStops,
		WaiveMandatoryStop: s.WaiveMandatoryStop,
		WetRace:            s.WetRace,
		StartingCompound:   s.StartingCompound,
		DisablePruning:     s.DisablePruning,
		ErsPlan:            s.ErsPlan.toCore(),
	}, nil
}

func (w *WeatherSpec) toCore(circuit core.Circuit) core.WeatherForecast {
	if w == nil {
		f := core.DryForecast(degradation.DefaultConfig().ReferenceTrackTemp)
		f.Variability = circuit.Characteristics.WeatherVariability
		return f
	}
	f := core.WeatherForecast{
		Condition:         w.Condition,
		AirTemp:           w.AirTemp,
		TrackTemp:         w.TrackTemp,
		Humidity:          w.Humidity,
		RainProbability:   w.RainProbability,
		RainfallIntensity: w.RainfallIntensity,
		Variability:       w.Variability,
	}
	if f.Variability == 0 {
		f.Variability = circuit.Characteristics.WeatherVariability
	}
	for _, s := range w.Sectors {
		f.Sectors = append(f.Sectors, core.SectorWeather(s))
	}
	for _, c := range w.Changes {
		f.Changes = append(f.Changes, core.WeatherChange(c))
	}
	return f
}

// ToSimulationConfig resolves the circuit and the noise model name.
func (s *SimulationSpec) ToSimulationConfig() (simulator.SimulationConfig, error) {
	var errs field.ErrorList
	circuit, ferr := resolveCircuit(s.CircuitID, s.Circuit)
	if ferr != nil {
		errs = append(errs, ferr)
	}
	noise, err := simulator.ParseNoiseKind(s.Noise)
	if err != nil {
		errs = append(errs, field.NotSupported(field.NewPath("noise"), s.Noise, []string{"gaussian", "lognormal"}))
	}
	if err := core.NewInvalidConfigError(errs); err != nil {
		return simulator.SimulationConfig{}, err
	}
	return simulator.SimulationConfig{
		NumIterations:       ptr.Deref(s.NumIterations, 0),
		Circuit:             circuit,
		Weather:             s.Weather.toCore(circuit),
		DegradationVariance: ptr.Deref(s.DegradationVariance, 0),
		LapTimeVariance:     ptr.Deref(s.LapTimeVariance, 0),
		Seed:                s.Seed,
		Workers:             s.Workers,
		DegradationFactors:  s.DegradationFactors.toCore(circuit),
		FuelModel:           s.FuelModel.toCore(circuit),
		CatastrophicWear:    s.CatastrophicWear,
		RetainSamples:       s.RetainSamples,
		Noise:               noise,
	}, nil
}

// StrategySpecFromCore flattens a strategy.
func StrategySpecFromCore(s *core.RaceStrategy) StrategySpec {
	spec := StrategySpec{
		ID:               s.ID,
		StartingCompound: s.StartingCompound,
		PitStops:         make([]PitStopSpec, 0, len(s.PitStops)),
		FuelStrategy: FuelStrategySpec{
			StartingFuel:      s.FuelStrategy.StartingFuel,
			FuelSavingPerLap:  s.FuelStrategy.FuelSavingPerLap,
			FuelSavingLaps:    s.FuelStrategy.FuelSavingLaps,
			MinimumFuelBuffer: s.FuelStrategy.MinimumFuelBuffer,
		},
		ErsPlan:           ersPlanSpec(s.ErsPlan),
		TotalLaps:         s.TotalLaps,
		ExpectedLapTimes:  s.ExpectedLapTimes,
		PredictedRaceTime: s.PredictedRaceTime,
		Confidence:        s.Confidence,
		OptimizerVersion:  s.Metadata.OptimizerVersion,
		NumSimulations:    s.Metadata.NumSimulations,
	}
	if !s.Metadata.GeneratedAt.IsZero() {
		spec.GeneratedAt = s.Metadata.GeneratedAt.UTC().Format(time.RFC3339Nano)
	}
	for _, p := range s.PitStops {
		spec.PitStops = append(spec.PitStops, PitStopSpec(p))
	}
	return spec
}

// ToStrategy converts the record back to a core strategy.
func (s *StrategySpec) ToStrategy() (*core.RaceStrategy, error) {
	strategy := &core.RaceStrategy{
		ID:               s.ID,
		StartingCompound: s.StartingCompound,
		FuelStrategy: core.FuelStrategy{
			StartingFuel:      s.FuelStrategy.StartingFuel,
			FuelSavingPerLap:  s.FuelStrategy.FuelSavingPerLap,
			FuelSavingLaps:    s.FuelStrategy.FuelSavingLaps,
			MinimumFuelBuffer: s.FuelStrategy.MinimumFuelBuffer,
		},
		ErsPlan:           s.ErsPlan.toCore(),
		TotalLaps:         s.TotalLaps,
		ExpectedLapTimes:  s.ExpectedLapTimes,
		PredictedRaceTime: s.PredictedRaceTime,
		Confidence:        s.Confidence,
		Metadata: core.StrategyMetadata{
			OptimizerVersion: s.OptimizerVersion,
			NumSimulations:   s.NumSimulations,
		},
	}
	if s.GeneratedAt != "" {
		ts, err := time.Parse(time.RFC3339Nano, s.GeneratedAt)
		if err != nil {
			return nil, &core.InvalidConfigError{Errs: field.ErrorList{
				field.Invalid(field.NewPath("generated_at"), s.GeneratedAt, fmt.Sprintf("must be RFC 3339: %v", err)),
			}}
		}
		strategy.Metadata.GeneratedAt = ts
	}
	for _, p := range s.PitStops {
		strategy.PitStops = append(strategy.PitStops, core.PitStop(p))
	}
	return strategy, nil
}

// SimulationResultSpecFromCore flattens a simulation result.
func SimulationResultSpecFromCore(r *simulator.SimulationResult) SimulationResultSpec {
	return SimulationResultSpec{
		NumIterations:       r.NumIterations,
		CompletedIterations: r.CompletedIterations,
		Seed:                r.Seed,
		Mean:                r.Mean,
		Median:              r.Median,
		Min:                 r.Min,
		Max:                 r.Max,
		StdDev:              r.StdDev,
		Percentile10:        r.Percentile10,
		Percentile25:        r.Percentile25,
		Percentile50:        r.Percentile50,
		Percentile75:        r.Percentile75,
		Percentile90:        r.Percentile90,
		DNFProbability:      r.DNFProbability,
		DNFTireFailures:     r.DNFTireFailures,
		DNFFuelExhaustion:   r.DNFFuelExhaustion,
		MeanLapTimes:        r.MeanLapTimes,
		Samples:             r.Samples,
	}
}

// RaceTraceSpecFromCore flattens a replay trace.
func RaceTraceSpecFromCore(t *simulator.RaceTrace) RaceTraceSpec {
	spec := RaceTraceSpec{
		Laps:      make([]LapSpec, 0, len(t.Laps)),
		Warnings:  t.Warnings,
		TotalTime: t.TotalTime,
		Finished:  t.Finished,
		DNFLap:    t.DNFLap,
	}
	for _, l := range t.Laps {
		spec.Laps = append(spec.Laps, LapSpec(l))
	}
	for _, p := range t.PitStops {
		spec.PitStops = append(spec.PitStops, PitEventSpec(p))
	}
	return spec
}

// AnalysisSpecFromCore flattens a strategy analysis.
func AnalysisSpecFromCore(a *solver.Analysis) AnalysisSpec {
	spec := AnalysisSpec{SuggestedCompound: a.SuggestedCompound, Risk: a.Risk}
	for _, w := range a.PitWindows {
		spec.PitWindows = append(spec.PitWindows, PitWindowSpec(w))
	}
	if alt := a.Alternative; alt != nil {
		spec.Alternative = &AlternativeSpec{
			StartingCompound:  alt.Strategy.StartingCompound,
			PredictedRaceTime: alt.Strategy.PredictedRaceTime,
			TimeDelta:         alt.Comparison.TimeDelta,
			StopDelta:         alt.Comparison.StopDelta,
			Risk:              alt.Comparison.RiskB,
			PreferOptimized:   alt.Comparison.PreferA,
		}
		for _, p := range alt.Strategy.PitStops {
			spec.Alternative.PitStops = append(spec.Alternative.PitStops, PitStopSpec(p))
		}
	}
	return spec
}
