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
	"os"
	"sort"

	"gopkg.in/yaml.v3"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/f1-nexus/race-strategy/internal/logging"
)

// GlobalDefaultsKey holds the tuning applied to every circuit without its own entry.
const GlobalDefaultsKey = "default"

// CircuitTuning is the operator supplied tuning for one circuit. Zero values mean
// "not set" and fall through to the global defaults, then to the request.
type CircuitTuning struct {
	// CircuitID is the catalog identifier (only used in override entries)
	CircuitID string `yaml:"circuit_id,omitempty" json:"circuit_id,omitempty"`

	// Pit lane loss and stationary time in seconds
	PitLaneTimeLoss float64 `yaml:"pitLaneTimeLoss,omitempty" json:"pitLaneTimeLoss,omitempty"`
	TireChangeTime  float64 `yaml:"tireChangeTime,omitempty" json:"tireChangeTime,omitempty"`

	// MaxPitStops caps the optimizer search
	MaxPitStops int `yaml:"maxPitStops,omitempty" json:"maxPitStops,omitempty"`

	// Simulation noise, as coefficients of variation
	DegradationVariance float64 `yaml:"degradationVariance,omitempty" json:"degradationVariance,omitempty"`
	LapTimeVariance     float64 `yaml:"lapTimeVariance,omitempty" json:"lapTimeVariance,omitempty"`

	// PitSoonWear: advise a stop once wear reaches this fraction (0.0-1.0)
	PitSoonWear float64 `yaml:"pitSoonWear,omitempty" json:"pitSoonWear,omitempty"`

	// WearGripLoss: grip lost at full wear (0.0-1.0)
	WearGripLoss float64 `yaml:"wearGripLoss,omitempty" json:"wearGripLoss,omitempty"`
}

// CircuitTuningData maps circuit ID to its tuning.
type CircuitTuningData map[string]CircuitTuning

// Validate checks for invalid tuning values.
func (c *CircuitTuning) Validate() error {
	if c.PitLaneTimeLoss < 0 {
		return fmt.Errorf("pitLaneTimeLoss must be >= 0, got %.1f", c.PitLaneTimeLoss)
	}
	if c.TireChangeTime < 0 {
		return fmt.Errorf("tireChangeTime must be >= 0, got %.1f", c.TireChangeTime)
	}
	if c.MaxPitStops < 0 {
		return fmt.Errorf("maxPitStops must be >= 0, got %d", c.MaxPitStops)
	}
	if c.DegradationVariance < 0 || c.LapTimeVariance < 0 {
		return fmt.Errorf("variances must be >= 0, got degradation %.3f and lap time %.3f",
			c.DegradationVariance, c.LapTimeVariance)
	}
	if c.PitSoonWear < 0 || c.PitSoonWear > 1 {
		return fmt.Errorf("pitSoonWear must be between 0 and 1, got %.2f", c.PitSoonWear)
	}
	if c.WearGripLoss < 0 || c.WearGripLoss >= 1 {
		return fmt.Errorf("wearGripLoss must be in [0, 1), got %.2f", c.WearGripLoss)
	}
	return nil
}

// ParseCircuitTuningData parses tuning entries keyed by an arbitrary name, each a YAML
// document. The "default" entry applies to all circuits; other entries need circuit_id.
// Malformed and invalid entries are logged and skipped.
func ParseCircuitTuningData(data map[string]string) CircuitTuningData {
	entries := make(map[string]CircuitTuning, len(data))
	for key, raw := range data {
		var tuning CircuitTuning
		if err := yaml.Unmarshal([]byte(raw), &tuning); err != nil {
			ctrl.Log.Info("Failed to parse circuit tuning entry, skipping",
				"key", key,
				"error", err)
			continue
		}
		entries[key] = tuning
	}
	return collect(entries)
}

// LoadCircuitTuningFile reads a YAML file mapping entry names to tuning records.
func LoadCircuitTuningFile(path string) (CircuitTuningData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read circuit tuning file: %w", err)
	}
	var entries map[string]CircuitTuning
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse circuit tuning file %s: %w", path, err)
	}
	return collect(entries), nil
}

func collect(entries map[string]CircuitTuning) CircuitTuningData {
	out := make(CircuitTuningData)

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	winners := make(map[string]string)
	for _, key := range keys {
		tuning := entries[key]
		if err := tuning.Validate(); err != nil {
			ctrl.Log.Info("Invalid circuit tuning entry, skipping",
				"key", key,
				"error", err)
			continue
		}

		if key == GlobalDefaultsKey {
			out[GlobalDefaultsKey] = tuning
			continue
		}

		if tuning.CircuitID == "" {
			ctrl.Log.Info("Skipping circuit tuning entry without circuit_id field",
				"key", key)
			continue
		}

		if winner, exists := winners[tuning.CircuitID]; exists {
			ctrl.Log.Info("Duplicate circuit_id in circuit tuning - first key wins",
				"circuit_id", tuning.CircuitID,
				"winningKey", winner,
				"duplicateKey", key)
			continue
		}
		winners[tuning.CircuitID] = key
		out[tuning.CircuitID] = tuning
	}

	ctrl.Log.V(logging.DEBUG).Info("Parsed circuit tuning",
		"circuitCount", len(out))

	return out
}

// ForCircuit returns the effective tuning for a circuit: its own values over the defaults.
func (data CircuitTuningData) ForCircuit(circuitID string) CircuitTuning {
	defaults := data[GlobalDefaultsKey]
	tuning, ok := data[circuitID]
	if !ok {
		return defaults
	}

	result := defaults
	result.CircuitID = tuning.CircuitID
	if tuning.PitLaneTimeLoss != 0 {
		result.PitLaneTimeLoss = tuning.PitLaneTimeLoss
	}
	if tuning.TireChangeTime != 0 {
		result.TireChangeTime = tuning.TireChangeTime
	}
	if tuning.MaxPitStops != 0 {
		result.MaxPitStops = tuning.MaxPitStops
	}
	if tuning.DegradationVariance != 0 {
		result.DegradationVariance = tuning.DegradationVariance
	}
	if tuning.LapTimeVariance != 0 {
		result.LapTimeVariance = tuning.LapTimeVariance
	}
	if tuning.PitSoonWear != 0 {
		result.PitSoonWear = tuning.PitSoonWear
	}
	if tuning.WearGripLoss != 0 {
		result.WearGripLoss = tuning.WearGripLoss
	}
	return result
}
