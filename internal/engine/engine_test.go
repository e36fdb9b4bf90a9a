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
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/utils/ptr"

	"github.com/f1-nexus/race-strategy/internal/config"
	"github.com/f1-nexus/race-strategy/internal/metrics"
	pkgconfig "github.com/f1-nexus/race-strategy/pkg/config"
	"github.com/f1-nexus/race-strategy/pkg/core"
)

func testRing() *pkgconfig.CircuitSpec {
	return &pkgconfig.CircuitSpec{
		ID: "test-ring", LapDistance: 4000, TypicalRaceLaps: 30, LapRecord: 80,
		TireSeverity: 1.0, FuelConsumption: 1.0,
	}
}

func optimizationSpec() pkgconfig.OptimizationSpec {
	return pkgconfig.OptimizationSpec{
		Circuit:            testRing(),
		AvailableCompounds: []core.TireCompound{core.C2, core.C3},
		StartingPosition:   12,
	}
}

func testTuning() config.CircuitTuningData {
	return config.CircuitTuningData{
		config.GlobalDefaultsKey: {PitLaneTimeLoss: 25, TireChangeTime: 3},
		"test-ring":              {CircuitID: "test-ring", PitLaneTimeLoss: 20, TireChangeTime: 2.5},
	}
}

var _ = Describe("Engine", func() {
	var (
		ctx    context.Context
		engine *Engine
	)

	BeforeEach(func() {
		ctx = context.Background()
		m, err := metrics.New(prometheus.NewRegistry())
		Expect(err).NotTo(HaveOccurred())
		settings := config.Settings{Iterations: 200, Seed: ptr.To[uint64](7), Noise: "gaussian", CacheSize: 8, Output: "json"}
		engine = New(settings, testTuning(), m)
	})

	It("fills pit costs from the circuit tuning", func() {
		strategy, err := engine.Optimize(ctx, optimizationSpec())
		Expect(err).NotTo(HaveOccurred())
		Expect(strategy.PitStops).NotTo(BeEmpty())
		for _, stop := range strategy.PitStops {
			Expect(stop.PitLoss).To(BeNumerically("~", 20+2.5+0.5, 1e-9))
		}
	})

	It("keeps explicit request values over the tuning", func() {
		spec := optimizationSpec()
		spec.PitLaneTimeLoss = 30
		strategy, err := engine.Optimize(ctx, spec)
		Expect(err).NotTo(HaveOccurred())
		Expect(strategy.PitStops[0].PitLoss).To(BeNumerically("~", 30+2.5+0.5, 1e-9))
	})

	It("serves repeated requests from the cache until the tuning changes", func() {
		first, err := engine.Optimize(ctx, optimizationSpec())
		Expect(err).NotTo(HaveOccurred())
		second, err := engine.Optimize(ctx, optimizationSpec())
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(BeIdenticalTo(first))

		cached, ok := engine.Strategy(first.ID)
		Expect(ok).To(BeTrue())
		Expect(cached).To(BeIdenticalTo(first))

		engine.UpdateTuning(config.CircuitTuningData{
			"test-ring": {CircuitID: "test-ring", PitLaneTimeLoss: 18, TireChangeTime: 2},
		})
		third, err := engine.Optimize(ctx, optimizationSpec())
		Expect(err).NotTo(HaveOccurred())
		Expect(third).NotTo(BeIdenticalTo(first))
		Expect(third.PitStops[0].PitLoss).To(BeNumerically("~", 18+2+0.5, 1e-9))
	})

	It("simulates with the process defaults", func() {
		strategy, err := engine.Optimize(ctx, optimizationSpec())
		Expect(err).NotTo(HaveOccurred())

		result, err := engine.Simulate(ctx, strategy, pkgconfig.SimulationSpec{Circuit: testRing()})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.NumIterations).To(Equal(200))
		Expect(result.Seed).To(Equal(uint64(7)))
		// no variance anywhere, every trial is the same race
		Expect(result.Min).To(Equal(result.Max))

		noisy, err := engine.Simulate(ctx, strategy, pkgconfig.SimulationSpec{
			Circuit:         testRing(),
			LapTimeVariance: ptr.To(0.02),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(noisy.Max).To(BeNumerically(">", noisy.Min))
	})

	It("evaluates a request end to end", func() {
		evaluation, err := engine.Evaluate(ctx, optimizationSpec(), pkgconfig.SimulationSpec{NumIterations: ptr.To(50)})
		Expect(err).NotTo(HaveOccurred())
		Expect(evaluation.Cached).To(BeFalse())
		Expect(evaluation.Strategy.Metadata.NumSimulations).To(Equal(50))
		Expect(evaluation.Result.CompletedIterations).To(Equal(50))
		Expect(evaluation.Analysis).NotTo(BeNil())
		Expect(evaluation.Analysis.PitWindows).To(HaveLen(evaluation.Strategy.NumPitStops()))
		Expect(evaluation.Analysis.SuggestedCompound).To(BeElementOf(core.C2, core.C3))

		again, err := engine.Evaluate(ctx, optimizationSpec(), pkgconfig.SimulationSpec{NumIterations: ptr.To(50)})
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Cached).To(BeTrue())
		Expect(again.Result.Mean).To(Equal(evaluation.Result.Mean))

		cached, _ := engine.Strategy(evaluation.Strategy.ID)
		Expect(cached.Metadata.NumSimulations).To(BeZero(), "cached strategies are not mutated")
	})

	It("evaluates over a shortened race distance", func() {
		spec := optimizationSpec()
		spec.TotalLaps = 20
		evaluation, err := engine.Evaluate(ctx, spec, pkgconfig.SimulationSpec{NumIterations: ptr.To(10)})
		Expect(err).NotTo(HaveOccurred())
		Expect(evaluation.Strategy.TotalLaps).To(Equal(20))
		Expect(evaluation.Result.MeanLapTimes).To(HaveLen(20))
	})

	It("rejects an explicit zero iteration count", func() {
		strategy, err := engine.Optimize(ctx, optimizationSpec())
		Expect(err).NotTo(HaveOccurred())

		_, err = engine.Simulate(ctx, strategy, pkgconfig.SimulationSpec{Circuit: testRing(), NumIterations: ptr.To(0)})
		var invalid *core.InvalidConfigError
		Expect(errors.As(err, &invalid)).To(BeTrue(), "got %v", err)
		Expect(invalid.Errs[0].Field).To(Equal("numIterations"))

		_, err = engine.Evaluate(ctx, optimizationSpec(), pkgconfig.SimulationSpec{NumIterations: ptr.To(0)})
		Expect(errors.As(err, &invalid)).To(BeTrue(), "got %v", err)
	})

	It("replays a strategy lap by lap", func() {
		strategy, err := engine.Optimize(ctx, optimizationSpec())
		Expect(err).NotTo(HaveOccurred())
		trace, err := engine.Replay(ctx, strategy, pkgconfig.SimulationSpec{Circuit: testRing()})
		Expect(err).NotTo(HaveOccurred())
		Expect(trace.Finished).To(BeTrue())
		Expect(trace.Laps).To(HaveLen(30))
		Expect(trace.PitStops).To(HaveLen(len(strategy.PitStops)))
	})

	It("rejects unknown circuits", func() {
		_, err := engine.Optimize(ctx, pkgconfig.OptimizationSpec{CircuitID: "nowhere"})
		var invalid *core.InvalidConfigError
		Expect(errors.As(err, &invalid)).To(BeTrue())

		_, err = engine.Simulate(ctx, &core.RaceStrategy{StartingCompound: core.C3, TotalLaps: 30},
			pkgconfig.SimulationSpec{CircuitID: "nowhere"})
		Expect(errors.As(err, &invalid)).To(BeTrue())
	})

	It("reports cancellation", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := engine.Optimize(cancelled, optimizationSpec())
		Expect(errors.Is(err, core.ErrCancelled)).To(BeTrue())
	})
})
