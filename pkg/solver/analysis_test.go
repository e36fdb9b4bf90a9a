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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"github.com/f1-nexus/race-strategy/pkg/core"
)

func TestPitWindowFor(t *testing.T) {
	tests := []struct {
		name      string
		compound  core.TireCompound
		start     int
		severity  float64
		totalLaps int
		want      PitWindow
	}{
		{
			name: "Test case 1: Medium compound from the start", compound: core.C3, start: 0, severity: 1, totalLaps: 60,
			want: PitWindow{Earliest: 18, OptimalStart: 20, OptimalEnd: 23, Latest: 24},
		},
		{
			name: "Test case 2: Harsh circuit shortens the window", compound: core.C3, start: 0, severity: 1.25, totalLaps: 60,
			want: PitWindow{Earliest: 14, OptimalStart: 16, OptimalEnd: 18, Latest: 19},
		},
		{
			name: "Test case 3: Clamped to the race", compound: core.C0, start: 30, severity: 1, totalLaps: 50,
			want: PitWindow{Earliest: 49, OptimalStart: 49, OptimalEnd: 49, Latest: 49},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PitWindowFor(tt.compound, tt.start, tt.severity, tt.totalLaps)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Contains(got.OptimalStart))
		})
	}
}

func TestCompareStrategies(t *testing.T) {
	oneStop := &core.RaceStrategy{
		StartingCompound:  core.C2,
		PitStops:          []core.PitStop{{Lap: 30, Compound: core.C1}},
		PredictedRaceTime: 5400,
	}
	twoStop := &core.RaceStrategy{
		StartingCompound:  core.C3,
		PitStops:          []core.PitStop{{Lap: 20, Compound: core.C2}, {Lap: 42, Compound: core.C3}},
		PredictedRaceTime: 5390,
	}
	closeTwoStop := &core.RaceStrategy{
		StartingCompound:  twoStop.StartingCompound,
		PitStops:          twoStop.PitStops,
		PredictedRaceTime: 5399.5,
	}

	tests := []struct {
		name        string
		a, b        *core.RaceStrategy
		wantPreferA bool
	}{
		{name: "Test case 1: Faster plan wins", a: oneStop, b: twoStop, wantPreferA: false},
		{name: "Test case 2: Order does not matter", a: twoStop, b: oneStop, wantPreferA: true},
		{name: "Test case 3: Close call goes to the lower risk plan", a: oneStop, b: closeTwoStop, wantPreferA: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompareStrategies(tt.a, tt.b, 60, 1.0)
			assert.Equal(t, tt.wantPreferA, got.PreferA)
			assert.InDelta(t, tt.b.PredictedRaceTime-tt.a.PredictedRaceTime, got.TimeDelta, 1e-9)
		})
	}
}

func TestRisk(t *testing.T) {
	s := &core.RaceStrategy{StartingCompound: core.C5}
	// a 60 lap race on one set of softs is far past its life
	assert.Equal(t, 1.0, Risk(s, 60, 1.0))

	fresh := &core.RaceStrategy{StartingCompound: core.C0}
	assert.Zero(t, Risk(fresh, 20, 1.0))
}

func TestBetterOrdersByTimeStopsThenFirstStop(t *testing.T) {
	tests := []struct {
		name string
		a, b label
		want int
	}{
		{name: "Test case 1: Faster wins", a: label{time: 10, stops: 2}, b: label{time: 11, stops: 1}, want: -1},
		{name: "Test case 2: Fewer stops on equal time", a: label{time: 10, stops: 2}, b: label{time: 10, stops: 1}, want: 1},
		{name: "Test case 3: Earlier first stop on equal time and stops", a: label{time: 10, stops: 1, firstPit: 12}, b: label{time: 10, stops: 1, firstPit: 20}, want: -1},
		{name: "Test case 4: Identical", a: label{time: 10}, b: label{time: 10}, want: 0},
		{name: "Test case 5: Summation noise is a tie", a: label{time: 5895.242843493 + 9e-13, stops: 1, firstPit: 37}, b: label{time: 5895.242843493, stops: 1, firstPit: 41}, want: -1},
		{name: "Test case 6: A microsecond apart still orders by time", a: label{time: 10.00001, stops: 1, firstPit: 12}, b: label{time: 10, stops: 1, firstPit: 20}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, better(&tt.a, &tt.b))
		})
	}
}

func TestSelectCompound(t *testing.T) {
	neutral := core.Circuit{ID: "neutral", Characteristics: core.TrackCharacteristics{TireSeverity: 1.0}}
	harsh := core.Circuit{ID: "harsh", Characteristics: core.TrackCharacteristics{TireSeverity: 2.0}}

	tests := []struct {
		name       string
		circuit    core.Circuit
		compounds  []core.TireCompound
		trackTemp  float64
		fuelLoad   float64
		targetLaps int
		factors    core.DegradationFactors
		want       core.TireCompound
		wantOK     bool
	}{
		{
			name: "Test case 1: Intermediate on a cool damp track", circuit: neutral,
			compounds: []core.TireCompound{core.Wet, core.Intermediate}, trackTemp: 15, fuelLoad: 100, targetLaps: 20,
			factors: core.DefaultDegradationFactors(1.0), want: core.Intermediate, wantOK: true,
		},
		{
			name: "Test case 2: Hard compound for a long first stint", circuit: neutral,
			compounds: []core.TireCompound{core.C5, core.C3, core.C1}, trackTemp: 45, fuelLoad: 100, targetLaps: 30,
			factors: core.DefaultDegradationFactors(1.0), want: core.C1, wantOK: true,
		},
		{
			name: "Test case 3: Softest compound for a short sprint on a demanding track", circuit: harsh,
			compounds: []core.TireCompound{core.C1, core.C5}, trackTemp: 45, fuelLoad: 20, targetLaps: 8,
			factors: core.DefaultDegradationFactors(2.0), want: core.C5, wantOK: true,
		},
		{
			name: "Test case 4: Nothing usable", circuit: neutral,
			compounds: []core.TireCompound{core.TireCompound(42)}, trackTemp: 30, targetLaps: 10,
			factors: core.DefaultDegradationFactors(1.0), wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectCompound(tt.circuit, tt.compounds, tt.trackTemp, tt.fuelLoad, tt.targetLaps, tt.factors)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestThermalScore(t *testing.T) {
	// C3 works best with the tire at 102 degrees, 42 degrees over the track
	tests := []struct {
		name      string
		trackTemp float64
		want      float64
	}{
		{name: "Test case 1: Inside the window", trackTemp: 42, want: 1},
		{name: "Test case 2: Edge of the acceptable range", trackTemp: 57, want: 0.6},
		{name: "Test case 3: Far too hot", trackTemp: 72, want: 0.2},
		{name: "Test case 4: Cold track", trackTemp: 0, want: 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, thermalScore(core.C3, tt.trackTemp), 1e-9)
		})
	}
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()

	t.Run("Test case 1: Windows and risk for the optimized plan", func(t *testing.T) {
		cfg := catalogConfig("silverstone")
		s, err := Optimize(ctx, cfg)
		require.NoError(t, err)

		a, err := Analyze(ctx, cfg, s)
		require.NoError(t, err)
		require.Len(t, a.PitWindows, s.NumPitStops())
		assert.InDelta(t, Risk(s, cfg.TotalLaps, cfg.DegradationFactors.TotalMultiplier()), a.Risk, 1e-12)
		assert.Contains(t, cfg.AvailableCompounds, a.SuggestedCompound)
		if a.SuggestedCompound == s.StartingCompound {
			assert.Nil(t, a.Alternative)
		}
	})

	t.Run("Test case 2: Rival plan on the suggested compound", func(t *testing.T) {
		cfg := catalogConfig("silverstone")
		forced := cfg
		forced.StartingCompound = ptr.To(core.C3)
		s, err := Optimize(ctx, forced)
		require.NoError(t, err)

		// C1 has the best grip match and life at Silverstone for any first stint
		a, err := Analyze(ctx, cfg, s)
		require.NoError(t, err)
		assert.Equal(t, core.C1, a.SuggestedCompound)
		require.NotNil(t, a.Alternative)
		alt := a.Alternative
		assert.Equal(t, core.C1, alt.Strategy.StartingCompound)
		assert.InDelta(t, alt.Strategy.PredictedRaceTime-s.PredictedRaceTime, alt.Comparison.TimeDelta, 1e-9)
	})

	t.Run("Test case 3: A fixed start needs no rival", func(t *testing.T) {
		cfg := catalogConfig("silverstone")
		cfg.StartingCompound = ptr.To(core.C3)
		s, err := Optimize(ctx, cfg)
		require.NoError(t, err)

		a, err := Analyze(ctx, cfg, s)
		require.NoError(t, err)
		assert.Nil(t, a.Alternative)
	})
}
