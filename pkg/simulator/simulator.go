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

// Package simulator replays a race strategy many times with injected variance and
// summarizes the distribution of finish times.
//
// Trials are independent. Each trial owns a PCG stream seeded from the run seed and the
// trial index, so a seeded run returns bit-identical results for any worker count. Trials
// are grouped in fixed-size blocks; workers write per-trial outcomes to disjoint slots and
// per-block partial sums, which are merged once, in block order, after the pool joins.
package simulator

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/utils/ptr"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/f1-nexus/race-strategy/internal/logging"
	"github.com/f1-nexus/race-strategy/pkg/core"
)

// blockSize is the number of trials reduced together.
const blockSize = 256

// SimulationResult summarizes a Monte Carlo run. Finish-time statistics cover completed
// trials only and are zero when every trial failed.
type SimulationResult struct {
	NumIterations       int
	CompletedIterations int
	// Seed is the seed actually used, for replaying an unseeded run.
	Seed uint64

	Mean         float64
	Median       float64
	Min          float64
	Max          float64
	StdDev       float64
	Percentile10 float64
	Percentile25 float64
	Percentile50 float64
	Percentile75 float64
	Percentile90 float64

	DNFProbability    float64
	DNFTireFailures   int
	DNFFuelExhaustion int

	// MeanLapTimes is the mean time of each lap over completed trials.
	MeanLapTimes []float64
	// Samples holds completed finish times in trial order when retained.
	Samples []float64
}

type blockResult struct {
	lapSums   []float64
	completed int
	tire      int
	fuel      int
}

// Simulator runs trials for one configuration.
type Simulator struct {
	cfg   SimulationConfig
	noise NoiseModel
}

// NewSimulator validates the configuration independent of any strategy.
func NewSimulator(cfg SimulationConfig) (*Simulator, error) {
	cfg = cfg.withDefaults()
	noise, err := NewNoiseModel(cfg.Noise)
	if err != nil {
		return nil, core.NewInvalidConfigError(field.ErrorList{
			field.NotSupported(field.NewPath("noise"), cfg.Noise.String(), []string{GaussianNoise.String(), LogNormalNoise.String()}),
		})
	}
	return &Simulator{cfg: cfg, noise: noise}, nil
}

// Simulate is a convenience wrapper around NewSimulator and Simulator.Simulate.
func Simulate(ctx context.Context, strategy *core.RaceStrategy, cfg SimulationConfig) (*SimulationResult, error) {
	sim, err := NewSimulator(cfg)
	if err != nil {
		return nil, err
	}
	return sim.Simulate(ctx, strategy)
}

// Simulate replays strategy NumIterations times. It returns an InvalidConfigError for zero
// iterations or pit laps outside the race, and an error wrapping core.ErrCancelled when ctx
// ends first.
func (s *Simulator) Simulate(ctx context.Context, strategy *core.RaceStrategy) (*SimulationResult, error) {
	logger := ctrl.LoggerFrom(ctx)
	started := time.Now()

	cfg := s.cfg
	if err := cfg.validate(strategy); err != nil {
		return nil, err
	}
	r, err := newRace(cfg, strategy)
	if err != nil {
		return nil, err
	}

	seed := ptr.Deref(cfg.Seed, rand.Uint64())
	n := cfg.NumIterations
	numBlocks := (n + blockSize - 1) / blockSize
	finish := make([]float64, n)
	causes := make([]DNFCause, n)
	blocks := make([]blockResult, numBlocks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(cfg.Workers, numBlocks))
	for b := 0; b < numBlocks; b++ {
		g.Go(func() error {
			return s.runBlock(gctx, r, seed, b, finish, causes, &blocks[b])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, core.Cancelled(err)
	}

	result := &SimulationResult{NumIterations: n, Seed: seed, MeanLapTimes: make([]float64, r.laps)}
	for _, b := range blocks {
		result.CompletedIterations += b.completed
		result.DNFTireFailures += b.tire
		result.DNFFuelExhaustion += b.fuel
		for i, v := range b.lapSums {
			result.MeanLapTimes[i] += v
		}
	}
	if result.CompletedIterations > 0 {
		for i := range result.MeanLapTimes {
			result.MeanLapTimes[i] /= float64(result.CompletedIterations)
		}
	}
	result.DNFProbability = float64(n-result.CompletedIterations) / float64(n)

	completed := make([]float64, 0, result.CompletedIterations)
	for i, t := range finish {
		if causes[i] == Finished {
			completed = append(completed, t)
		}
	}
	summarize(result, completed)
	if cfg.RetainSamples {
		result.Samples = completed
	}

	logger.V(logging.DEBUG).Info("Simulated race strategy",
		"strategy", strategy.ID,
		"circuit", cfg.Circuit.ID,
		"iterations", n,
		"workers", cfg.Workers,
		"mean", result.Mean,
		"dnfProbability", result.DNFProbability,
		"duration", time.Since(started))
	return result, nil
}

// runBlock runs the trials of block b. It only writes to its own slots and its own result.
func (s *Simulator) runBlock(ctx context.Context, r *race, seed uint64, b int, finish []float64, causes []DNFCause, out *blockResult) error {
	out.lapSums = make([]float64, r.laps)
	lapTimes := make([]float64, r.laps)
	first := b * blockSize
	last := min(first+blockSize, len(finish))
	for i := first; i < last; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		src := rand.NewPCG(seed, uint64(i))
		draw := func(cv float64) float64 { return s.noise.Factor(src, cv) }
		t := r.run(draw, lapTimes, nil)
		finish[i] = t.time
		causes[i] = t.cause
		switch t.cause {
		case Finished:
			out.completed++
			for lap, lt := range lapTimes {
				out.lapSums[lap] += lt
			}
		case TireFailure:
			out.tire++
		case FuelExhausted:
			out.fuel++
		}
	}
	return nil
}

// summarize fills the finish-time statistics from completed trial times.
func summarize(result *SimulationResult, completed []float64) {
	if len(completed) == 0 {
		return
	}
	sorted := sortedCopy(completed)
	result.Min = sorted[0]
	result.Max = sorted[len(sorted)-1]
	result.Mean = shiftedMean(sorted)
	result.StdDev = stdDev(sorted)
	result.Percentile10 = Percentile(sorted, 10)
	result.Percentile25 = Percentile(sorted, 25)
	result.Percentile50 = Percentile(sorted, 50)
	result.Percentile75 = Percentile(sorted, 75)
	result.Percentile90 = Percentile(sorted, 90)
	result.Median = result.Percentile50
	// rounding cannot push the mean outside the sample range
	result.Mean = math.Min(result.Max, math.Max(result.Min, result.Mean))
}
