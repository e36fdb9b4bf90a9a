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

package core

import "sort"

// TrackCharacteristics describes how a circuit loads the car.
type TrackCharacteristics struct {
	// AverageSpeed and TopSpeed in km/h
	AverageSpeed float64
	TopSpeed     float64
	Corners      int
	// ElevationChange in meters
	ElevationChange float64
	// OvertakingDifficulty from 0 (easy) to 1 (near impossible)
	OvertakingDifficulty float64
	// TireSeverity scales tire wear; 1.0 is an average circuit.
	TireSeverity float64
	// FuelConsumption scales fuel burn; 1.0 is an average circuit.
	FuelConsumption float64
	// DownforceLevel from 0 (low) to 1 (high)
	DownforceLevel float64
	// WeatherVariability from 0 (stable) to 1 (changeable)
	WeatherVariability float64
}

// Circuit is immutable reference data for a race track.
type Circuit struct {
	ID      string
	Name    string
	Country string
	// LapDistance in meters
	LapDistance     float64
	TypicalRaceLaps int
	// LapRecord in seconds, zero when unknown
	LapRecord       float64
	Characteristics TrackCharacteristics
}

// racePaceFactor converts a qualifying-grade lap record into a race lap.
const racePaceFactor = 1.03

// BaseLapTime returns the reference race lap time in seconds on fresh softs with no fuel.
// It is derived from the lap record when known, otherwise from distance and average speed.
func (c Circuit) BaseLapTime() float64 {
	if c.LapRecord > 0 {
		return c.LapRecord * racePaceFactor
	}
	if c.Characteristics.AverageSpeed > 0 {
		return c.LapDistance / (c.Characteristics.AverageSpeed / 3.6)
	}
	return 0
}

// Severity returns the tire severity, treating an unset value as an average circuit.
func (c Circuit) Severity() float64 {
	if c.Characteristics.TireSeverity <= 0 {
		return 1.0
	}
	return c.Characteristics.TireSeverity
}

var circuitCatalog = map[string]Circuit{
	"monaco": {
		ID: "monaco", Name: "Circuit de Monaco", Country: "Monaco",
		LapDistance: 3337, TypicalRaceLaps: 78, LapRecord: 70.246,
		Characteristics: TrackCharacteristics{
			AverageSpeed: 160, TopSpeed: 290, Corners: 19, ElevationChange: 42,
			OvertakingDifficulty: 0.95, TireSeverity: 0.8, FuelConsumption: 0.85,
			DownforceLevel: 1.0, WeatherVariability: 0.3,
		},
	},
	"spa": {
		ID: "spa", Name: "Circuit de Spa-Francorchamps", Country: "Belgium",
		LapDistance: 7004, TypicalRaceLaps: 44, LapRecord: 103.458,
		Characteristics: TrackCharacteristics{
			AverageSpeed: 230, TopSpeed: 340, Corners: 19, ElevationChange: 102,
			OvertakingDifficulty: 0.3, TireSeverity: 1.2, FuelConsumption: 1.3,
			DownforceLevel: 0.4, WeatherVariability: 0.9,
		},
	},
	"silverstone": {
		ID: "silverstone", Name: "Silverstone Circuit", Country: "United Kingdom",
		LapDistance: 5891, TypicalRaceLaps: 52, LapRecord: 86.089,
		Characteristics: TrackCharacteristics{
			AverageSpeed: 240, TopSpeed: 320, Corners: 18, ElevationChange: 11,
			OvertakingDifficulty: 0.4, TireSeverity: 1.1, FuelConsumption: 1.1,
			DownforceLevel: 0.6, WeatherVariability: 0.7,
		},
	},
	"monza": {
		ID: "monza", Name: "Autodromo Nazionale Monza", Country: "Italy",
		LapDistance: 5793, TypicalRaceLaps: 53, LapRecord: 81.046,
		Characteristics: TrackCharacteristics{
			AverageSpeed: 260, TopSpeed: 360, Corners: 11, ElevationChange: 8,
			OvertakingDifficulty: 0.25, TireSeverity: 0.9, FuelConsumption: 1.15,
			DownforceLevel: 0.2, WeatherVariability: 0.4,
		},
	},
	"suzuka": {
		ID: "suzuka", Name: "Suzuka International Racing Course", Country: "Japan",
		LapDistance: 5807, TypicalRaceLaps: 53, LapRecord: 87.435,
		Characteristics: TrackCharacteristics{
			AverageSpeed: 230, TopSpeed: 320, Corners: 18, ElevationChange: 40,
			OvertakingDifficulty: 0.6, TireSeverity: 1.3, FuelConsumption: 1.2,
			DownforceLevel: 0.8, WeatherVariability: 0.6,
		},
	},
}

// LookupCircuit returns a circuit from the built-in catalog.
func LookupCircuit(id string) (Circuit, bool) {
	c, ok := circuitCatalog[id]
	return c, ok
}

// CircuitIDs returns the catalog identifiers in sorted order.
func CircuitIDs() []string {
	ids := make([]string, 0, len(circuitCatalog))
	for id := range circuitCatalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
