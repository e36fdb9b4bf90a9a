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
	"errors"
	"math"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/utils/ptr"

	"github.com/f1-nexus/race-strategy/pkg/core"
	"github.com/f1-nexus/race-strategy/pkg/solver"
)

func testCircuit() core.Circuit {
	return core.Circuit{
		ID: "test-ring", Name: "Test Ring", LapDistance: 5000, TypicalRaceLaps: 50, LapRecord: 85,
		Characteristics: core.TrackCharacteristics{TireSeverity: 1.0, FuelConsumption: 1.0, WeatherVariability: 0.5},
	}
}

func noStopStrategy() *core.RaceStrategy {
	return &core.RaceStrategy{ID: "no-stop", StartingCompound: core.C1, TotalLaps: 50}
}

func oneStopStrategy() *core.RaceStrategy {
	return &core.RaceStrategy{
		ID:               "one-stop",
		StartingCompound: core.C3,
		PitStops:         []core.PitStop{{Lap: 22, Compound: core.C2, PitLoss: 23.5, Reason: core.ReasonMandatory}},
		TotalLaps:        50,
	}
}

func noisyConfig() SimulationConfig {
	return SimulationConfig{
		NumIterations:       1000,
		Circuit:             testCircuit(),
		Weather:             core.WeatherForecast{Condition: core.Dry, TrackTemp: 38, RainProbability: 0.2, Variability: 0.5},
		DegradationVariance: 0.1,
		LapTimeVariance:     0.01,
		Seed:                ptr.To[uint64](42),
	}
}

func expectOrdered(r *SimulationResult) {
	Expect(r.Min).To(BeNumerically("<=", r.Percentile10))
	Expect(r.Percentile10).To(BeNumerically("<=", r.Percentile25))
	Expect(r.Percentile25).To(BeNumerically("<=", r.Percentile50))
	Expect(r.Percentile50).To(BeNumerically("<=", r.Percentile75))
	Expect(r.Percentile75).To(BeNumerically("<=", r.Percentile90))
	Expect(r.Percentile90).To(BeNumerically("<=", r.Max))
	Expect(r.Mean).To(BeNumerically(">=", r.Min))
	Expect(r.Mean).To(BeNumerically("<=", r.Max))
	Expect(r.DNFProbability).To(BeNumerically(">=", 0))
	Expect(r.DNFProbability).To(BeNumerically("<=", 1))
}

var _ = Describe("Simulator", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Context("without injected noise", func() {
		It("should replay a no-stop strategy deterministically", func() {
			cfg := noisyConfig()
			cfg.DegradationVariance = 0
			cfg.LapTimeVariance = 0
			cfg.NumIterations = 300

			r, err := Simulate(ctx, noStopStrategy(), cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.CompletedIterations).To(Equal(300))
			Expect(r.Mean).To(Equal(r.Min))
			Expect(r.Max).To(Equal(r.Min))
			Expect(r.Median).To(Equal(r.Min))
			Expect(r.DNFProbability).To(BeZero())
		})

		It("should match the deterministic replay", func() {
			cfg := noisyConfig()
			cfg.DegradationVariance = 0
			cfg.LapTimeVariance = 0
			cfg.NumIterations = 10

			r, err := Simulate(ctx, oneStopStrategy(), cfg)
			Expect(err).NotTo(HaveOccurred())
			trace, err := Replay(ctx, oneStopStrategy(), cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(trace.Finished).To(BeTrue())
			Expect(trace.Laps).To(HaveLen(50))
			Expect(trace.PitStops).To(HaveLen(1))
			Expect(trace.PitStops[0].FromCompound).To(Equal(core.C3))
			Expect(trace.PitStops[0].ToCompound).To(Equal(core.C2))
			Expect(r.Mean).To(Equal(trace.TotalTime))
		})
	})

	Context("with a seed", func() {
		It("should return identical results across runs and worker counts", func() {
			var results []*SimulationResult
			for _, workers := range []int{1, 3, 8} {
				cfg := noisyConfig()
				cfg.Workers = workers
				cfg.RetainSamples = true
				r, err := Simulate(ctx, oneStopStrategy(), cfg)
				Expect(err).NotTo(HaveOccurred())
				results = append(results, r)
			}
			again, err := Simulate(ctx, oneStopStrategy(), noisyConfig())
			Expect(err).NotTo(HaveOccurred())

			Expect(results[1]).To(Equal(results[0]))
			Expect(results[2]).To(Equal(results[0]))
			Expect(again.Mean).To(Equal(results[0].Mean))
			Expect(again.Percentile90).To(Equal(results[0].Percentile90))
			Expect(results[0].Samples).To(HaveLen(results[0].CompletedIterations))
			Expect(results[0].Seed).To(Equal(uint64(42)))
		})

		DescribeTable("should produce ordered statistics",
			func(mutate func(*SimulationConfig), strategy *core.RaceStrategy) {
				cfg := noisyConfig()
				mutate(&cfg)
				r, err := Simulate(ctx, strategy, cfg)
				Expect(err).NotTo(HaveOccurred())
				expectOrdered(r)
				Expect(r.Max).To(BeNumerically(">", r.Min))
			},
			Entry("gaussian noise", func(*SimulationConfig) {}, oneStopStrategy()),
			Entry("lognormal noise", func(c *SimulationConfig) { c.Noise = LogNormalNoise }, oneStopStrategy()),
			Entry("changeable weather", func(c *SimulationConfig) {
				c.Weather.Changes = []core.WeatherChange{{Lap: 30, Condition: core.LightRain, TrackTemp: 22}}
			}, oneStopStrategy()),
			Entry("a few iterations", func(c *SimulationConfig) { c.NumIterations = 3 }, noStopStrategy()),
		)
	})

	It("should draw a fresh seed when none is given", func() {
		cfg := noisyConfig()
		cfg.Seed = nil
		cfg.NumIterations = 20
		first, err := Simulate(ctx, oneStopStrategy(), cfg)
		Expect(err).NotTo(HaveOccurred())
		second, err := Simulate(ctx, oneStopStrategy(), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Seed).NotTo(Equal(second.Seed))
	})

	Context("when tires are run past failure", func() {
		It("should mark every trial as a DNF", func() {
			s := &core.RaceStrategy{ID: "softs", StartingCompound: core.C5, TotalLaps: 50}
			cfg := noisyConfig()
			cfg.NumIterations = 50
			r, err := Simulate(ctx, s, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.DNFProbability).To(Equal(1.0))
			Expect(r.CompletedIterations).To(BeZero())
			Expect(r.DNFTireFailures).To(Equal(50))
			expectOrdered(r)

			trace, err := Replay(ctx, s, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(trace.Finished).To(BeFalse())
			Expect(trace.DNFCause).To(Equal(TireFailure))
		})
	})

	Context("with an invalid configuration", func() {
		DescribeTable("should fail with an InvalidConfigError",
			func(mutate func(*SimulationConfig), strategy *core.RaceStrategy, wantField string) {
				cfg := noisyConfig()
				mutate(&cfg)
				r, err := Simulate(ctx, strategy, cfg)
				Expect(r).To(BeNil())
				var invalid *core.InvalidConfigError
				Expect(errors.As(err, &invalid)).To(BeTrue(), "got %v", err)
				Expect(invalid.Errs[0].Field).To(Equal(wantField))
			},
			Entry("zero iterations", func(c *SimulationConfig) { c.NumIterations = 0 }, oneStopStrategy(), "numIterations"),
			Entry("negative variance", func(c *SimulationConfig) { c.LapTimeVariance = -0.1 }, oneStopStrategy(), "lapTimeVariance"),
			Entry("pit lap zero", func(*SimulationConfig) {}, oneStopStrategy().WithPitStops([]core.PitStop{{Lap: 0, Compound: core.C2}}), "strategy.pitStops[0].lap"),
			Entry("pit lap past the finish", func(*SimulationConfig) {}, oneStopStrategy().WithPitStops([]core.PitStop{{Lap: 51, Compound: core.C2}}), "strategy.pitStops[0].lap"),
			Entry("missing strategy", func(*SimulationConfig) {}, nil, "strategy"),
			Entry("unknown noise", func(c *SimulationConfig) { c.Noise = NoiseKind(9) }, oneStopStrategy(), "noise"),
		)

		It("should report a degenerate fuel model as a numeric error", func() {
			cfg := noisyConfig()
			cfg.FuelModel = core.FuelConsumptionModel{BaseRate: -1, TrackMultiplier: 1}
			_, err := Simulate(ctx, oneStopStrategy(), cfg)
			var numeric *core.NumericError
			Expect(errors.As(err, &numeric)).To(BeTrue())
		})

		It("should report a non-finite forecast temperature as a numeric error", func() {
			cfg := noisyConfig()
			cfg.Weather.Changes = []core.WeatherChange{{Lap: 30, Condition: core.Cloudy, TrackTemp: math.NaN()}}
			_, err := Simulate(ctx, oneStopStrategy(), cfg)
			var numeric *core.NumericError
			Expect(errors.As(err, &numeric)).To(BeTrue(), "got %v", err)
			Expect(numeric.Field).To(Equal("trackTemp"))

			_, err = Replay(ctx, oneStopStrategy(), cfg)
			Expect(errors.As(err, &numeric)).To(BeTrue(), "got %v", err)
		})
	})

	It("should stop when the context is cancelled", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Simulate(cctx, oneStopStrategy(), noisyConfig())
		Expect(errors.Is(err, core.ErrCancelled)).To(BeTrue())
	})

	It("should warn about slicks in the rain", func() {
		cfg := noisyConfig()
		cfg.Weather.Changes = []core.WeatherChange{{Lap: 40, Condition: core.HeavyRain, TrackTemp: 20}}
		trace, err := Replay(ctx, oneStopStrategy(), cfg)
		Expect(err).NotTo(HaveOccurred())
		found := false
		for _, w := range trace.Warnings {
			if strings.Contains(w, "heavy_rain") {
				found = true
			}
		}
		Expect(found).To(BeTrue(), "warnings: %v", trace.Warnings)
	})

	It("should simulate the optimizer's strategy", func() {
		circuit, _ := core.LookupCircuit("silverstone")
		strategy, err := solver.Optimize(ctx, solver.OptimizationConfig{
			TotalLaps:          circuit.TypicalRaceLaps,
			Circuit:            circuit,
			AvailableCompounds: []core.TireCompound{core.C1, core.C2, core.C3},
			PitLaneTimeLoss:    20,
			TireChangeTime:     2.5,
			DegradationFactors: core.DefaultDegradationFactors(circuit.Severity()),
			FuelModel:          core.DefaultFuelModel(circuit.Characteristics.FuelConsumption),
			TrackTemperature:   35,
		})
		Expect(err).NotTo(HaveOccurred())

		r, err := Simulate(ctx, strategy, SimulationConfig{
			NumIterations:       500,
			Circuit:             circuit,
			Weather:             core.DryForecast(35),
			DegradationVariance: 0.05,
			LapTimeVariance:     0.005,
			Seed:                ptr.To[uint64](7),
			Workers:             4,
		})
		Expect(err).NotTo(HaveOccurred())
		expectOrdered(r)
		Expect(r.DNFProbability).To(BeNumerically("<", 0.5))
		Expect(r.Mean).To(BeNumerically("~", strategy.PredictedRaceTime, 0.05*strategy.PredictedRaceTime))
	})
})
