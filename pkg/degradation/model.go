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

// Package degradation converts tire age, compound, track temperature and severity into wear
// and grip, and elapsed laps into fuel burn and the lap-time cost of carried fuel.
//
// Every function is a pure function of its inputs. Lap time is modeled as
//
//	lapTime = baseLapTime / grip + penaltyPerKg * fuelOnBoard
//
// where grip is in (0,1] and never increases with wear.
package degradation

import (
	"fmt"
	"math"

	"github.com/f1-nexus/race-strategy/pkg/core"
)

// FailureWear is the wear fraction at which a tire is considered to fail.
const FailureWear = 1.0

// Config holds the tunable coefficients of the model.
type Config struct {
	// PitSoonWear is the wear fraction at which a stop becomes due (0-1).
	PitSoonWear float64
	// MinRemainingLaps flags a stop as due when fewer laps than this remain before PitSoonWear.
	MinRemainingLaps int
	// WearGripLoss is the grip lost at full wear. Grip = pace * (1 - WearGripLoss * wear^2).
	WearGripLoss float64
	// TemperatureSensitivity is the extra wear rate per degree Celsius above ReferenceTrackTemp.
	TemperatureSensitivity float64
	ReferenceTrackTemp     float64
}

// DefaultConfig returns the reference coefficients.
func DefaultConfig() Config {
	return Config{
		PitSoonWear:            0.7,
		MinRemainingLaps:       5,
		WearGripLoss:           0.06,
		TemperatureSensitivity: 0.01,
		ReferenceTrackTemp:     30,
	}
}

// Validate checks for invalid configuration values.
func (c Config) Validate() error {
	if c.PitSoonWear <= 0 || c.PitSoonWear > 1 {
		return fmt.Errorf("pitSoonWear must be between 0 (exclusive) and 1, got %.2f", c.PitSoonWear)
	}
	if c.MinRemainingLaps < 0 {
		return fmt.Errorf("minRemainingLaps must be >= 0, got %d", c.MinRemainingLaps)
	}
	if c.WearGripLoss < 0 || c.WearGripLoss >= 1 {
		return fmt.Errorf("wearGripLoss must be in [0, 1), got %.3f", c.WearGripLoss)
	}
	if c.TemperatureSensitivity < 0 {
		return fmt.Errorf("temperatureSensitivity must be >= 0, got %.3f", c.TemperatureSensitivity)
	}
	return nil
}

// Model evaluates the degradation and fuel curves for a fixed Config.
type Model struct {
	cfg Config
}

// NewModel returns a model, applying defaults to zero-valued thresholds.
func NewModel(cfg Config) (*Model, error) {
	defaults := DefaultConfig()
	if cfg.PitSoonWear == 0 {
		cfg.PitSoonWear = defaults.PitSoonWear
	}
	if cfg.MinRemainingLaps == 0 {
		cfg.MinRemainingLaps = defaults.MinRemainingLaps
	}
	if cfg.WearGripLoss == 0 {
		cfg.WearGripLoss = defaults.WearGripLoss
	}
	if cfg.ReferenceTrackTemp == 0 {
		cfg.ReferenceTrackTemp = defaults.ReferenceTrackTemp
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Model{cfg: cfg}, nil
}

// Config returns the effective configuration.
func (m *Model) Config() Config {
	return m.cfg
}

// TireState is the condition of a set of tires after a number of laps.
type TireState struct {
	// Wear fraction in [0,1]
	Wear float64
	// Grip multiplier in (0,1]; lap time is divided by it
	Grip float64
	// RemainingLaps before wear reaches the pit-soon threshold
	RemainingLaps int
	PitSoon       bool
}

// WearRate returns the wear added per lap. It is non-decreasing in track temperature
// and severity.
func (m *Model) WearRate(compound core.TireCompound, trackTemp, severity float64) (float64, error) {
	life := compound.Characteristics().TypicalLife
	if life <= 0 {
		return 0, &core.NumericError{Field: "compound", Value: float64(compound), Cause: "unknown compound"}
	}
	if severity <= 0 || math.IsNaN(severity) || math.IsInf(severity, 0) {
		return 0, &core.NumericError{Field: "severity", Value: severity, Cause: "must be finite and > 0"}
	}
	if math.IsNaN(trackTemp) || math.IsInf(trackTemp, 0) {
		return 0, &core.NumericError{Field: "trackTemp", Value: trackTemp, Cause: "must be finite"}
	}
	tempMult := 1 + m.cfg.TemperatureSensitivity*math.Max(0, trackTemp-m.cfg.ReferenceTrackTemp)
	return severity * tempMult / (2 * float64(life)), nil
}

// Wear returns the wear fraction after ageLaps. Ages beyond twice the typical life clamp
// to 1.0.
func (m *Model) Wear(compound core.TireCompound, ageLaps int, trackTemp, severity float64) (float64, error) {
	rate, err := m.WearRate(compound, trackTemp, severity)
	if err != nil {
		return 0, err
	}
	return wearAt(rate, ageLaps, compound.Characteristics().TypicalLife), nil
}

func wearAt(rate float64, ageLaps, life int) float64 {
	if ageLaps <= 0 {
		return 0
	}
	if ageLaps > 2*life {
		return 1.0
	}
	return math.Min(1.0, rate*float64(ageLaps))
}

// Grip returns the grip multiplier of compound at the given wear.
func (m *Model) Grip(compound core.TireCompound, wear float64) float64 {
	wear = math.Min(1, math.Max(0, wear))
	return compound.Characteristics().PaceFactor * (1 - m.cfg.WearGripLoss*wear*wear)
}

// Tire evaluates a set of tires of compound after ageLaps.
func (m *Model) Tire(compound core.TireCompound, ageLaps int, trackTemp, severity float64) (TireState, error) {
	rate, err := m.WearRate(compound, trackTemp, severity)
	if err != nil {
		return TireState{}, err
	}
	life := compound.Characteristics().TypicalLife
	wear := wearAt(rate, ageLaps, life)

	// first age at which wear reaches the threshold, never beyond the clamp point
	thresholdAge := min(int(math.Ceil(m.cfg.PitSoonWear/rate)), 2*life+1)
	remaining := max(0, thresholdAge-ageLaps)

	return TireState{
		Wear:          wear,
		Grip:          m.Grip(compound, wear),
		RemainingLaps: remaining,
		PitSoon:       wear >= m.cfg.PitSoonWear || remaining < m.cfg.MinRemainingLaps,
	}, nil
}

// LapTime combines the base lap time with grip and the fuel penalty.
func LapTime(base, grip, fuelPenalty float64) float64 {
	return base/grip + fuelPenalty
}
