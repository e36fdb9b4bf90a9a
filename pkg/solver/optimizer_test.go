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

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/utils/ptr"

	"github.com/f1-nexus/race-strategy/pkg/core"
)

func monacoConfig() OptimizationConfig {
	circuit, _ := core.LookupCircuit("monaco")
	return OptimizationConfig{
		TotalLaps:          78,
		Circuit:            circuit,
		AvailableCompounds: []core.TireCompound{core.C1, core.C2, core.C3},
		PitLaneTimeLoss:    22,
		TireChangeTime:     2.5,
		StartingPosition:   5,
		DegradationFactors: core.DefaultDegradationFactors(circuit.Characteristics.TireSeverity),
		FuelModel:          core.DefaultFuelModel(circuit.Characteristics.FuelConsumption),
		StartingFuel:       110,
		TrackTemperature:   40,
	}
}

// shortCircuit is a small synthetic track that makes several stops attractive when
// stopping is cheap.
func shortCircuit() OptimizationConfig {
	return OptimizationConfig{
		TotalLaps: 24,
		Circuit: core.Circuit{
			ID: "test-ring", LapDistance: 4000, TypicalRaceLaps: 24, LapRecord: 80,
			Characteristics: core.TrackCharacteristics{TireSeverity: 1.2, FuelConsumption: 1.0},
		},
		AvailableCompounds: []core.TireCompound{core.C4, core.C5},
		DegradationFactors: core.DefaultDegradationFactors(1.2),
		FuelModel:          core.DefaultFuelModel(1.0),
		StartingFuel:       50,
		TrackTemperature:   45,
		WaiveMandatoryStop: true,
		MaxPitStops:        6,
	}
}

// catalogConfig is a one-stop race at a catalog circuit over its usual distance.
func catalogConfig(id string) OptimizationConfig {
	circuit, _ := core.LookupCircuit(id)
	return OptimizationConfig{
		TotalLaps:          circuit.TypicalRaceLaps,
		Circuit:            circuit,
		AvailableCompounds: []core.TireCompound{core.C1, core.C2, core.C3},
		PitLaneTimeLoss:    22,
		MaxPitStops:        1,
		DegradationFactors: core.DefaultDegradationFactors(circuit.Characteristics.TireSeverity),
		FuelModel:          core.DefaultFuelModel(circuit.Characteristics.FuelConsumption),
		TrackTemperature:   35,
	}
}

func expectCoversRace(s *core.RaceStrategy, laps int) {
	prev := 0
	for _, stop := range s.PitStops {
		Expect(stop.Lap).To(BeNumerically(">", prev))
		Expect(stop.Lap).To(BeNumerically("<=", laps))
		prev = stop.Lap
	}
	covered := 0
	next := 1
	for _, st := range s.Stints(laps) {
		Expect(st.FirstLap).To(Equal(next))
		Expect(st.ExpectedLapTimes).To(HaveLen(st.Laps()))
		covered += st.Laps()
		next = st.LastLap + 1
	}
	Expect(covered).To(Equal(laps))
}

var _ = Describe("Optimizer", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Context("on a 78 lap street circuit with C1, C2 and C3", func() {
		It("should stop at least once and be slower than the best-case pace", func() {
			cfg := monacoConfig()
			s, err := Optimize(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(s.NumPitStops()).To(BeNumerically(">=", 1))
			Expect(s.DistinctCompounds()).To(BeNumerically(">=", 2))
			Expect(s.PredictedRaceTime).To(BeNumerically(">", 78*BestCaseLapTime(cfg)))
			Expect(s.PitStops[0].Reason).To(Equal(core.ReasonMandatory))
			expectCoversRace(s, 78)
		})

		It("should predict the sum of its lap times and pit losses", func() {
			s, err := Optimize(ctx, monacoConfig())
			Expect(err).NotTo(HaveOccurred())

			total := s.TotalPitLoss()
			for _, stint := range s.ExpectedLapTimes {
				for _, lt := range stint {
					total += lt
				}
			}
			Expect(s.PredictedRaceTime).To(BeNumerically("~", total, 1e-6))
		})

		It("should be idempotent apart from the creation time", func() {
			first, err := Optimize(ctx, monacoConfig())
			Expect(err).NotTo(HaveOccurred())
			second, err := Optimize(ctx, monacoConfig())
			Expect(err).NotTo(HaveOccurred())

			diff := cmp.Diff(first, second, cmpopts.IgnoreFields(core.StrategyMetadata{}, "GeneratedAt"))
			Expect(diff).To(BeEmpty())
			_, err = uuid.Parse(first.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Metadata.OptimizerVersion).To(Equal(OptimizerVersion))
		})

		It("should report confidence in range", func() {
			s, err := Optimize(ctx, monacoConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Confidence).To(BeNumerically(">=", 0.5))
			Expect(s.Confidence).To(BeNumerically("<=", 1.0))
			for _, stop := range s.PitStops {
				Expect(stop.Confidence).To(Equal(s.Confidence))
			}
		})

		It("should return the same plan with and without pruning", func() {
			pruned, err := Optimize(ctx, monacoConfig())
			Expect(err).NotTo(HaveOccurred())

			cfg := monacoConfig()
			cfg.DisablePruning = true
			full, err := Optimize(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(full.PitStops).To(Equal(pruned.PitStops))
			Expect(full.StartingCompound).To(Equal(pruned.StartingCompound))
			Expect(full.PredictedRaceTime).To(Equal(pruned.PredictedRaceTime))
		})

		It("should honour a fixed starting compound", func() {
			cfg := monacoConfig()
			cfg.StartingCompound = ptr.To(core.C1)
			s, err := Optimize(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.StartingCompound).To(Equal(core.C1))
			expectCoversRace(s, 78)
		})

		It("should tag a stop just before a rival's as an undercut", func() {
			s, err := Optimize(ctx, monacoConfig())
			Expect(err).NotTo(HaveOccurred())

			cfg := monacoConfig()
			cfg.CompetitorsAhead = []Competitor{{Driver: "HAM", Position: 4, ExpectedPitLap: s.PitStops[0].Lap + 2}}
			tagged, err := Optimize(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(tagged.PitStops[0].Lap).To(Equal(s.PitStops[0].Lap))
			Expect(tagged.PitStops[0].Reason).To(Equal(core.ReasonUndercut))
		})
	})

	Context("when a plan and its reverse tie", func() {
		DescribeTable("should take the earlier first stop",
			func(id string) {
				cfg := catalogConfig(id)
				s, err := Optimize(ctx, cfg)
				Expect(err).NotTo(HaveOccurred())
				Expect(s.PitStops).To(HaveLen(1))
				pit := s.PitStops[0].Lap
				Expect(pit).To(BeNumerically("<=", cfg.TotalLaps-pit))

				// the same stints in reverse order
				cfg.StartingCompound = ptr.To(s.PitStops[0].Compound)
				reversed, err := Optimize(ctx, cfg)
				Expect(err).NotTo(HaveOccurred())
				Expect(reversed.PredictedRaceTime).To(BeNumerically("~", s.PredictedRaceTime, 1e-6))
				Expect(reversed.PitStops[0].Lap).To(BeNumerically(">=", pit))
			},
			Entry("monaco", "monaco"),
			Entry("monza", "monza"),
			Entry("suzuka", "suzuka"),
			Entry("silverstone", "silverstone"),
			Entry("spa", "spa"),
		)

		It("should not rate the reversed plan as a rival", func() {
			s, err := Optimize(ctx, catalogConfig("monaco"))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Confidence).To(BeNumerically(">", 0.5+1e-6))
		})
	})

	Context("when rating confidence", func() {
		It("should be sure of a plan no rival comes close to", func() {
			cfg := shortCircuit()
			cfg.PitLaneTimeLoss = 160
			cfg.StartingCompound = ptr.To(core.C4)
			s, err := Optimize(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.NumPitStops()).To(Equal(0))
			Expect(s.Confidence).To(Equal(0.99))
		})

		It("should drop where another stop count nearly ties", func() {
			// the best stop count changes somewhere in the sweep; just below that loss
			// the plan with fewer stops is behind by at most 0.1 s per stop saved
			lowest := 1.0
			for i := 0; i <= 1600; i++ {
				cfg := shortCircuit()
				cfg.PitLaneTimeLoss = float64(i) / 10
				s, err := Optimize(ctx, cfg)
				Expect(err).NotTo(HaveOccurred())
				lowest = min(lowest, s.Confidence)
			}
			Expect(lowest).To(BeNumerically("<", 0.6))
		})
	})

	Context("when the pit lane gets slower", func() {
		It("should never choose more stops", func() {
			prevStops := -1
			for _, loss := range []float64{0, 2, 5, 10, 20, 40, 80, 160} {
				cfg := shortCircuit()
				cfg.PitLaneTimeLoss = loss
				s, err := Optimize(ctx, cfg)
				Expect(err).NotTo(HaveOccurred())
				expectCoversRace(s, cfg.TotalLaps)
				if prevStops >= 0 {
					Expect(s.NumPitStops()).To(BeNumerically("<=", prevStops), "pit lane loss %v", loss)
				}
				prevStops = s.NumPitStops()
			}
			Expect(prevStops).To(Equal(0))
		})
	})

	Context("in a wet race", func() {
		It("should waive the compound change", func() {
			cfg := shortCircuit()
			cfg.WaiveMandatoryStop = false
			cfg.WetRace = true
			cfg.PitLaneTimeLoss = 200
			cfg.AvailableCompounds = []core.TireCompound{core.C3, core.Intermediate, core.Wet}
			s, err := Optimize(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.NumPitStops()).To(Equal(0))
			Expect(s.StartingCompound.IsWet()).To(BeTrue())
		})
	})

	Context("with infeasible inputs", func() {
		DescribeTable("should fail with an InfeasibleError",
			func(mutate func(*OptimizationConfig)) {
				cfg := monacoConfig()
				mutate(&cfg)
				_, err := Optimize(ctx, cfg)
				var infeasible *core.InfeasibleError
				Expect(errors.As(err, &infeasible)).To(BeTrue(), "got %v", err)
			},
			Entry("empty compound set", func(c *OptimizationConfig) { c.AvailableCompounds = nil }),
			Entry("only wet compounds in the dry", func(c *OptimizationConfig) {
				c.AvailableCompounds = []core.TireCompound{core.Intermediate, core.Wet}
			}),
			Entry("a single compound with a mandatory change", func(c *OptimizationConfig) {
				c.AvailableCompounds = []core.TireCompound{core.C2}
			}),
			Entry("more mandatory stops than allowed", func(c *OptimizationConfig) {
				c.MinPitStops = 3
				c.MaxPitStops = 2
			}),
			Entry("a race too short for the mandatory stops", func(c *OptimizationConfig) {
				c.TotalLaps = 2
				c.MinPitStops = 2
			}),
			Entry("an unusable starting compound", func(c *OptimizationConfig) { c.StartingCompound = ptr.To(core.C5) }),
		)

		It("should run a single compound race when the stop is waived", func() {
			cfg := monacoConfig()
			cfg.TotalLaps = 50
			cfg.AvailableCompounds = []core.TireCompound{core.C1}
			cfg.WaiveMandatoryStop = true
			s, err := Optimize(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.NumPitStops()).To(Equal(0))
		})
	})

	Context("with malformed inputs", func() {
		It("should reject a race without laps", func() {
			cfg := monacoConfig()
			cfg.TotalLaps = 0
			_, err := Optimize(ctx, cfg)
			var invalid *core.InvalidConfigError
			Expect(errors.As(err, &invalid)).To(BeTrue())
			Expect(invalid.Errs[0].Field).To(Equal("totalLaps"))
		})

		It("should reject a degenerate fuel model", func() {
			cfg := monacoConfig()
			cfg.FuelModel.BaseRate = 0
			_, err := Optimize(ctx, cfg)
			var numeric *core.NumericError
			Expect(errors.As(err, &numeric)).To(BeTrue())
			Expect(numeric.Field).To(Equal("fuelModel.baseRate"))
		})

		It("should stop when the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := Optimize(cctx, monacoConfig())
			Expect(errors.Is(err, core.ErrCancelled)).To(BeTrue())
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		})
	})
})
