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
	"github.com/f1-nexus/race-strategy/pkg/core"
)

// CircuitSpec is a circuit with its characteristics flattened.
type CircuitSpec struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name,omitempty"`
	Country              string  `json:"country,omitempty"`
	LapDistance          float64 `json:"lap_distance"`
	TypicalRaceLaps      int     `json:"typical_race_laps"`
	LapRecord            float64 `json:"lap_record,omitempty"`
	AverageSpeed         float64 `json:"average_speed,omitempty"`
	TopSpeed             float64 `json:"top_speed,omitempty"`
	Corners              int     `json:"corners,omitempty"`
	ElevationChange      float64 `json:"elevation_change,omitempty"`
	OvertakingDifficulty float64 `json:"overtaking_difficulty,omitempty"`
	TireSeverity         float64 `json:"tire_severity,omitempty"`
	FuelConsumption      float64 `json:"fuel_consumption,omitempty"`
	DownforceLevel       float64 `json:"downforce_level,omitempty"`
	WeatherVariability   float64 `json:"weather_variability,omitempty"`
}

// DegradationFactorsSpec mirrors core.DegradationFactors.
type DegradationFactorsSpec struct {
	TrackSeverity      float64 `json:"track_severity"`
	TemperatureFactor  float64 `json:"temperature_factor"`
	DrivingStyleFactor float64 `json:"driving_style_factor"`
	FuelLoadFactor     float64 `json:"fuel_load_factor"`
	DownforceFactor    float64 `json:"downforce_factor"`
}

// FuelModelSpec mirrors core.FuelConsumptionModel.
type FuelModelSpec struct {
	BaseRate        float64 `json:"base_rate"`
	TrackMultiplier float64 `json:"track_multiplier"`
	LoadFactor      float64 `json:"load_factor"`
	PenaltyPerKg    float64 `json:"penalty_per_kg"`
}

// CompetitorSpec is a car ahead.
type CompetitorSpec struct {
	Driver         string `json:"driver"`
	Position       int    `json:"position"`
	ExpectedPitLap int    `json:"expected_pit_lap,omitempty"`
}

// SectorWeatherSpec is the condition in one sector.
type SectorWeatherSpec struct {
	Sector        int                   `json:"sector"`
	Condition     core.WeatherCondition `json:"condition"`
	RainIntensity float64               `json:"rain_intensity,omitempty"`
	TrackTemp     float64               `json:"track_temp,omitempty"`
	GripLevel     float64               `json:"grip_level,omitempty"`
}

// WeatherChangeSpec is a forecast change from a lap onwards.
type WeatherChangeSpec struct {
	Lap       int                   `json:"lap"`
	Condition core.WeatherCondition `json:"condition"`
	TrackTemp float64               `json:"track_temp,omitempty"`
}

// WeatherSpec is a weather forecast.
type WeatherSpec struct {
	Condition         core.WeatherCondition `json:"condition"`
	AirTemp           float64               `json:"air_temp,omitempty"`
	TrackTemp         float64               `json:"track_temp,omitempty"`
	Humidity          float64               `json:"humidity,omitempty"`
	RainProbability   float64               `json:"rain_probability,omitempty"`
	RainfallIntensity float64               `json:"rainfall_intensity,omitempty"`
	Variability       float64               `json:"variability,omitempty"`
	Sectors           []SectorWeatherSpec   `json:"sectors,omitempty"`
	Changes           []WeatherChangeSpec   `json:"changes,omitempty"`
}

// OptimizationSpec is the boundary form of an optimization request.
type OptimizationSpec struct {
	CircuitID          string                  `json:"circuit_id,omitempty"`
	Circuit            *CircuitSpec            `json:"circuit,omitempty"`
	TotalLaps          int                     `json:"total_laps,omitempty"`
	AvailableCompounds []core.TireCompound     `json:"available_compounds"`
	PitLaneTimeLoss    float64                 `json:"pit_lane_time_loss"`
	TireChangeTime     float64                 `json:"tire_change_time"`
	StartingPosition   int                     `json:"starting_position,omitempty"`
	CompetitorsAhead   []CompetitorSpec        `json:"competitors_ahead,omitempty"`
	DegradationFactors *DegradationFactorsSpec `json:"degradation_factors,omitempty"`
	FuelModel          *FuelModelSpec          `json:"fuel_model,omitempty"`
	StartingFuel       float64                 `json:"starting_fuel,omitempty"`
	TrackTemperature   float64                 `json:"track_temperature,omitempty"`
	MinPitStops        int                     `json:"min_pit_stops,omitempty"`
	MaxPitStops        int                     `json:"max_pit_stops,omitempty"`
	WaiveMandatoryStop bool                    `json:"waive_mandatory_stop,omitempty"`
	WetRace            bool                    `json:"wet_race,omitempty"`
	StartingCompound   *core.TireCompound      `json:"starting_compound,omitempty"`
	DisablePruning     bool                    `json:"disable_pruning,omitempty"`
	ErsPlan            *ErsPlanSpec            `json:"ers_plan,omitempty"`
}

// SimulationSpec is the boundary form of a simulation request. Unset iterations and
// variances are left for the caller to default; ToSimulationConfig treats them as zero.
type SimulationSpec struct {
	CircuitID           string                  `json:"circuit_id,omitempty"`
	Circuit             *CircuitSpec            `json:"circuit,omitempty"`
	NumIterations       *int                    `json:"num_iterations,omitempty"`
	Weather             *WeatherSpec            `json:"weather,omitempty"`
	DegradationVariance *float64                `json:"degradation_variance,omitempty"`
	LapTimeVariance     *float64                `json:"lap_time_variance,omitempty"`
	Seed                *uint64                 `json:"seed,omitempty"`
	Workers             int                     `json:"workers,omitempty"`
	Noise               string                  `json:"noise,omitempty"`
	RetainSamples       bool                    `json:"retain_samples,omitempty"`
	CatastrophicWear    float64                 `json:"catastrophic_wear,omitempty"`
	DegradationFactors  *DegradationFactorsSpec `json:"degradation_factors,omitempty"`
	FuelModel           *FuelModelSpec          `json:"fuel_model,omitempty"`
}

// PitStopSpec is one scheduled stop.
type PitStopSpec struct {
	Lap        int                `json:"lap"`
	Compound   core.TireCompound  `json:"compound"`
	PitLoss    float64            `json:"pit_loss"`
	Reason     core.PitStopReason `json:"reason,omitempty"`
	Confidence float64            `json:"confidence,omitempty"`
}

// FuelStrategySpec is the fuel plan of a strategy.
type FuelStrategySpec struct {
	StartingFuel      float64 `json:"starting_fuel"`
	FuelSavingPerLap  float64 `json:"fuel_saving_per_lap,omitempty"`
	FuelSavingLaps    []int   `json:"fuel_saving_laps,omitempty"`
	MinimumFuelBuffer float64 `json:"minimum_fuel_buffer,omitempty"`
}

// ErsPlanSpec is an energy deployment plan carried through unchanged.
type ErsPlanSpec struct {
	DefaultMode  core.ErsMode         `json:"default_mode"`
	LapOverrides map[int]core.ErsMode `json:"lap_overrides,omitempty"`
	OvertakeLaps []int                `json:"overtake_laps,omitempty"`
}

// StrategySpec is the boundary form of a race strategy.
type StrategySpec struct {
	ID                string            `json:"id"`
	StartingCompound  core.TireCompound `json:"starting_compound"`
	PitStops          []PitStopSpec     `json:"pit_stops"`
	FuelStrategy      FuelStrategySpec  `json:"fuel_strategy"`
	ErsPlan           *ErsPlanSpec      `json:"ers_plan,omitempty"`
	TotalLaps         int               `json:"total_laps,omitempty"`
	ExpectedLapTimes  [][]float64       `json:"expected_lap_times,omitempty"`
	PredictedRaceTime float64           `json:"predicted_race_time"`
	Confidence        float64           `json:"confidence"`
	GeneratedAt       string            `json:"generated_at,omitempty"`
	OptimizerVersion  string            `json:"optimizer_version,omitempty"`
	NumSimulations    int               `json:"num_simulations,omitempty"`
}

// SimulationResultSpec is the boundary form of a simulation result.
type SimulationResultSpec struct {
	NumIterations       int       `json:"num_iterations"`
	CompletedIterations int       `json:"completed_iterations"`
	Seed                uint64    `json:"seed"`
	Mean                float64   `json:"mean"`
	Median              float64   `json:"median"`
	Min                 float64   `json:"min"`
	Max                 float64   `json:"max"`
	StdDev              float64   `json:"std_dev"`
	Percentile10        float64   `json:"percentile_10"`
	Percentile25        float64   `json:"percentile_25"`
	Percentile50        float64   `json:"percentile_50"`
	Percentile75        float64   `json:"percentile_75"`
	Percentile90        float64   `json:"percentile_90"`
	DNFProbability      float64   `json:"dnf_probability"`
	DNFTireFailures     int       `json:"dnf_tire_failures"`
	DNFFuelExhaustion   int       `json:"dnf_fuel_exhaustion"`
	MeanLapTimes        []float64 `json:"mean_lap_times,omitempty"`
	Samples             []float64 `json:"samples,omitempty"`
}

// PitEventSpec is a stop taken during a replay.
type PitEventSpec struct {
	Lap          int                `json:"lap"`
	FromCompound core.TireCompound  `json:"from_compound"`
	ToCompound   core.TireCompound  `json:"to_compound"`
	Loss         float64            `json:"loss"`
	WearAtStop   float64            `json:"wear_at_stop"`
	Reason       core.PitStopReason `json:"reason,omitempty"`
}

// LapSpec is one replayed lap.
type LapSpec struct {
	Lap       int                   `json:"lap"`
	Compound  core.TireCompound     `json:"compound"`
	TireAge   int                   `json:"tire_age"`
	Wear      float64               `json:"wear"`
	Fuel      float64               `json:"fuel"`
	LapTime   float64               `json:"lap_time"`
	Condition core.WeatherCondition `json:"condition"`
}

// RaceTraceSpec is the boundary form of a deterministic replay.
type RaceTraceSpec struct {
	Laps      []LapSpec      `json:"laps"`
	PitStops  []PitEventSpec `json:"pit_stops,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
	TotalTime float64        `json:"total_time"`
	Finished  bool           `json:"finished"`
	DNFLap    int            `json:"dnf_lap,omitempty"`
}

// PitWindowSpec bounds the laps on which a stint should end.
type PitWindowSpec struct {
	Earliest     int `json:"earliest"`
	OptimalStart int `json:"optimal_start"`
	OptimalEnd   int `json:"optimal_end"`
	Latest       int `json:"latest"`
}

// AlternativeSpec is the best plan on the suggested starting compound. The deltas are
// the alternative minus the optimized strategy.
type AlternativeSpec struct {
	StartingCompound  core.TireCompound `json:"starting_compound"`
	PitStops          []PitStopSpec     `json:"pit_stops"`
	PredictedRaceTime float64           `json:"predicted_race_time"`
	TimeDelta         float64           `json:"time_delta"`
	StopDelta         int               `json:"stop_delta"`
	Risk              float64           `json:"risk"`
	PreferOptimized   bool              `json:"prefer_optimized"`
}

// AnalysisSpec is the boundary form of a strategy analysis.
type AnalysisSpec struct {
	SuggestedCompound core.TireCompound `json:"suggested_compound"`
	PitWindows        []PitWindowSpec   `json:"pit_windows,omitempty"`
	Risk              float64           `json:"risk"`
	Alternative       *AlternativeSpec  `json:"alternative,omitempty"`
}

// Request is the envelope accepted by the command line entry point. Which fields are
// required depends on the operation.
type Request struct {
	Optimization *OptimizationSpec `json:"optimization,omitempty"`
	Simulation   *SimulationSpec   `json:"simulation,omitempty"`
	Strategy     *StrategySpec     `json:"strategy,omitempty"`
}

// Response is the envelope written by the command line entry point.
type Response struct {
	Strategy *StrategySpec         `json:"strategy,omitempty"`
	Result   *SimulationResultSpec `json:"result,omitempty"`
	Trace    *RaceTraceSpec        `json:"trace,omitempty"`
	Analysis *AnalysisSpec         `json:"analysis,omitempty"`
}
