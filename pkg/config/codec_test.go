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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f1-nexus/race-strategy/pkg/core"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "Test case 1: YAML",
			data: `
optimization:
  circuit_id: monza
  available_compounds: [C2, C3]
  pit_lane_time_loss: 19.5
  tire_change_time: 2.2
  starting_compound: C3
`,
		},
		{
			name: "Test case 2: JSON",
			data: `{"optimization": {"circuit_id": "monza", "available_compounds": ["C2", "C3"],
"pit_lane_time_loss": 19.5, "tire_change_time": 2.2, "starting_compound": "C3"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Decode[Request]([]byte(tt.data))
			require.NoError(t, err)
			require.NotNil(t, req.Optimization)
			assert.Equal(t, "monza", req.Optimization.CircuitID)
			assert.Equal(t, []core.TireCompound{core.C2, core.C3}, req.Optimization.AvailableCompounds)
			assert.Equal(t, 19.5, req.Optimization.PitLaneTimeLoss)
			require.NotNil(t, req.Optimization.StartingCompound)
			assert.Equal(t, core.C3, *req.Optimization.StartingCompound)
			assert.Nil(t, req.Simulation)
		})
	}
}

func TestDecodeRejectsUnknownCompound(t *testing.T) {
	_, err := Decode[OptimizationSpec]([]byte(`available_compounds: [C9]`))
	assert.Error(t, err)
}

func TestEncodeUsesSnakeCase(t *testing.T) {
	resp := Response{Strategy: &StrategySpec{ID: "x", StartingCompound: core.Wet, PitStops: []PitStopSpec{}}}

	data, err := EncodeJSON(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"starting_compound": "wet"`)
	assert.Contains(t, string(data), `"predicted_race_time": 0`)

	data, err = EncodeYAML(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), "starting_compound: wet")

	back, err := Decode[Response](data)
	require.NoError(t, err)
	assert.Equal(t, core.Wet, back.Strategy.StartingCompound)
}
