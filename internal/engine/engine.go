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

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/f1-nexus/race-strategy/internal/config"
	"github.com/f1-nexus/race-strategy/internal/engines/common"
	"github.com/f1-nexus/race-strategy/internal/logging"
	"github.com/f1-nexus/race-strategy/internal/metrics"
	pkgconfig "github.com/f1-nexus/race-strategy/pkg/config"
	"github.com/f1-nexus/race-strategy/pkg/core"
	"github.com/f1-nexus/race-strategy/pkg/degradation"
	"github.com/f1-nexus/race-strategy/pkg/simulator"
	"github.com/f1-nexus/race-strategy/pkg/solver"
)

var fingerprintNamespace = uuid.MustParse("4b0d7c52-3f7e-4d1c-9a55-2f1f0f6e9c11")

// Engine runs strategy requests. It is safe for concurrent use.
type Engine struct {
	settings config.Settings
	tuning   *common.TuningStore
	cache    *common.StrategyCache
	metrics  *metrics.Metrics
}

// Evaluation is an optimized strategy together with its simulated outcome.
type Evaluation struct {
	Strategy *core.RaceStrategy
	Result   *simulator.SimulationResult
	Analysis *solver.Analysis
	// Cached is true when the strategy came from the cache.
	Cached bool
}

// New creates an engine. settings supplies defaults for fields a request leaves unset.
func New(settings config.Settings, tuning config.CircuitTuningData, m *metrics.Metrics) *Engine {
	e := &Engine{
		settings: settings,
		tuning:   &common.TuningStore{},
		cache:    common.NewStrategyCache(settings.CacheSize),
		metrics:  m,
	}
	e.tuning.Update(tuning)
	return e
}

// UpdateTuning replaces the per-circuit tuning for subsequent requests.
func (e *Engine) UpdateTuning(data config.CircuitTuningData) {
	e.tuning.Update(data)
}

// Strategy returns a previously optimized strategy by ID.
func (e *Engine) Strategy(id string) (*core.RaceStrategy, bool) {
	return e.cache.ByID(id)
}

// Optimize runs the optimizer for a request, serving repeated requests from the cache.
func (e *Engine) Optimize(ctx context.Context, spec pkgconfig.OptimizationSpec) (*core.RaceStrategy, error) {
	s, _, _, err := e.optimize(ctx, spec)
	return s, err
}

// optimize returns the strategy, the tuned configuration it was optimized for and
// whether it came from the cache.
func (e *Engine) optimize(ctx context.Context, spec pkgconfig.OptimizationSpec) (*core.RaceStrategy, solver.OptimizationConfig, bool, error) {
	tuning := e.tuning.ForCircuit(circuitIDOf(spec.CircuitID, spec.Circuit))
	if spec.PitLaneTimeLoss == 0 {
		spec.PitLaneTimeLoss = tuning.PitLaneTimeLoss
	}
	if spec.TireChangeTime == 0 {
		spec.TireChangeTime = tuning.TireChangeTime
	}
	if spec.MaxPitStops == 0 {
		spec.MaxPitStops = tuning.MaxPitStops
	}

	logger := ctrl.LoggerFrom(ctx).WithValues("circuit", circuitIDOf(spec.CircuitID, spec.Circuit))

	cfg, err := spec.ToOptimizationConfig()
	if err != nil {
		return nil, cfg, false, err
	}
	cfg.Degradation = tuneDegradation(cfg.Degradation, tuning)

	// unencodable requests are left to the optimizer's validation and never cached
	key, keyErr := fingerprint(spec, tuning)
	if keyErr == nil {
		if cached, ok := e.cache.Get(key); ok {
			e.metrics.ObserveCacheLookup(true)
			logger.V(logging.DEBUG).Info("Serving strategy from cache", "strategyID", cached.ID)
			return cached, cfg, true, nil
		}
		e.metrics.ObserveCacheLookup(false)
	}

	start := time.Now()
	strategy, err := solver.Optimize(ctx, cfg)
	e.metrics.ObserveOptimization(time.Since(start), strategy, err)
	if err != nil {
		logger.Info("Optimization failed", "outcome", metrics.Outcome(err), "error", err)
		return nil, cfg, false, err
	}
	if keyErr == nil {
		e.cache.Set(key, strategy)
	}
	return strategy, cfg, false, nil
}

// Simulate runs the Monte Carlo simulator for a strategy.
func (e *Engine) Simulate(ctx context.Context, strategy *core.RaceStrategy, spec pkgconfig.SimulationSpec) (*simulator.SimulationResult, error) {
	cfg, err := e.simulationConfig(spec)
	if err != nil {
		return nil, err
	}
	return e.simulate(ctx, strategy, cfg)
}

func (e *Engine) simulate(ctx context.Context, strategy *core.RaceStrategy, cfg simulator.SimulationConfig) (*simulator.SimulationResult, error) {
	start := time.Now()
	result, err := simulator.Simulate(ctx, strategy, cfg)
	var completed int
	var dnf float64
	if result != nil {
		completed, dnf = result.CompletedIterations, result.DNFProbability
	}
	e.metrics.ObserveSimulation(time.Since(start), cfg.Circuit.ID, completed, dnf, err)
	if err != nil {
		ctrl.LoggerFrom(ctx).Info("Simulation failed",
			"circuit", cfg.Circuit.ID, "outcome", metrics.Outcome(err), "error", err)
		return nil, err
	}
	return result, nil
}

// Evaluate optimizes a strategy, analyzes it and simulates it. The returned strategy
// records the number of completed simulations.
func (e *Engine) Evaluate(ctx context.Context, opt pkgconfig.OptimizationSpec, sim pkgconfig.SimulationSpec) (*Evaluation, error) {
	strategy, optCfg, cached, err := e.optimize(ctx, opt)
	if err != nil {
		return nil, err
	}
	analysis, err := solver.Analyze(ctx, optCfg, strategy)
	if err != nil {
		return nil, err
	}
	inherited := sim.CircuitID == "" && sim.Circuit == nil
	if inherited {
		sim.CircuitID, sim.Circuit = opt.CircuitID, opt.Circuit
	}
	cfg, err := e.simulationConfig(sim)
	if err != nil {
		return nil, err
	}
	if inherited && strategy.TotalLaps > 0 {
		// the optimized race distance may differ from the circuit's usual one
		cfg.Circuit.TypicalRaceLaps = strategy.TotalLaps
	}
	result, err := e.simulate(ctx, strategy, cfg)
	if err != nil {
		return nil, err
	}

	evaluated := *strategy
	evaluated.Metadata.NumSimulations = result.CompletedIterations
	ctrl.LoggerFrom(ctx).V(logging.DEBUG).Info("Evaluated race strategy",
		"strategyID", evaluated.ID,
		"predicted", evaluated.PredictedRaceTime,
		"simulatedMean", result.Mean,
		"dnfProbability", result.DNFProbability,
		"suggestedCompound", analysis.SuggestedCompound)
	return &Evaluation{Strategy: &evaluated, Result: result, Analysis: analysis, Cached: cached}, nil
}

// Replay runs the noise-free lap by lap trace of a strategy.
func (e *Engine) Replay(ctx context.Context, strategy *core.RaceStrategy, spec pkgconfig.SimulationSpec) (*simulator.RaceTrace, error) {
	cfg, err := e.simulationConfig(spec)
	if err != nil {
		return nil, err
	}
	return simulator.Replay(ctx, strategy, cfg)
}

func (e *Engine) simulationConfig(spec pkgconfig.SimulationSpec) (simulator.SimulationConfig, error) {
	tuning := e.tuning.ForCircuit(circuitIDOf(spec.CircuitID, spec.Circuit))
	if spec.DegradationVariance == nil {
		spec.DegradationVariance = &tuning.DegradationVariance
	}
	if spec.LapTimeVariance == nil {
		spec.LapTimeVariance = &tuning.LapTimeVariance
	}
	if spec.NumIterations == nil {
		spec.NumIterations = &e.settings.Iterations
	}
	if spec.Workers == 0 {
		spec.Workers = e.settings.Workers
	}
	if spec.Seed == nil {
		spec.Seed = e.settings.Seed
	}
	if spec.Noise == "" {
		spec.Noise = e.settings.Noise
	}

	cfg, err := spec.ToSimulationConfig()
	if err != nil {
		return cfg, err
	}
	cfg.Degradation = tuneDegradation(cfg.Degradation, tuning)
	return cfg, nil
}

func tuneDegradation(cfg degradation.Config, tuning config.CircuitTuning) degradation.Config {
	if cfg.PitSoonWear == 0 {
		cfg.PitSoonWear = tuning.PitSoonWear
	}
	if cfg.WearGripLoss == 0 {
		cfg.WearGripLoss = tuning.WearGripLoss
	}
	return cfg
}

func circuitIDOf(id string, inline *pkgconfig.CircuitSpec) string {
	if inline != nil {
		return inline.ID
	}
	return id
}

// fingerprint identifies an optimization request after tuning is applied. encoding/json
// sorts map keys, so equal requests encode equally.
func fingerprint(spec pkgconfig.OptimizationSpec, tuning config.CircuitTuning) (string, error) {
	data, err := json.Marshal(struct {
		Spec   pkgconfig.OptimizationSpec `json:"spec"`
		Tuning config.CircuitTuning       `json:"tuning"`
	}{spec, tuning})
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint optimization request: %w", err)
	}
	return uuid.NewSHA1(fingerprintNamespace, data).String(), nil
}
