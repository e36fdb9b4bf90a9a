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

import (
	"fmt"
	"sort"
)

// WeatherCondition is the state of the track surface and sky.
type WeatherCondition string

const (
	Dry          WeatherCondition = "dry"
	Cloudy       WeatherCondition = "cloudy"
	PartlyCloudy WeatherCondition = "partly_cloudy"
	LightRain    WeatherCondition = "light_rain"
	HeavyRain    WeatherCondition = "heavy_rain"
)

// IsValid reports whether the condition is one of the known values.
func (w WeatherCondition) IsValid() bool {
	switch w {
	case Dry, Cloudy, PartlyCloudy, LightRain, HeavyRain:
		return true
	}
	return false
}

// IsWet reports whether the track is wet.
func (w WeatherCondition) IsWet() bool {
	return w == LightRain || w == HeavyRain
}

// SectorWeather is the observed condition in one sector of the circuit.
type SectorWeather struct {
	Sector        int
	Condition     WeatherCondition
	RainIntensity float64
	TrackTemp     float64
	// GripLevel from 0 to 1
	GripLevel float64
}

// WeatherChange is a forecast change taking effect from Lap onwards.
type WeatherChange struct {
	Lap       int
	Condition WeatherCondition
	TrackTemp float64
}

// WeatherForecast is supplied fully formed by an external weather source.
type WeatherForecast struct {
	Condition       WeatherCondition
	AirTemp         float64
	TrackTemp       float64
	Humidity        float64
	RainProbability float64
	// RainfallIntensity in mm/h
	RainfallIntensity float64
	Sectors           []SectorWeather
	// Changes are applied in lap order.
	Changes []WeatherChange
	// Variability scales stochastic noise, typically the circuit weather variability.
	Variability float64
}

// DryForecast returns a stable dry forecast at the given track temperature.
func DryForecast(trackTemp float64) WeatherForecast {
	return WeatherForecast{
		Condition: Dry,
		AirTemp:   trackTemp - 10,
		TrackTemp: trackTemp,
		Humidity:  0.5,
	}
}

// Validate checks the forecast for values out of range.
func (f WeatherForecast) Validate() error {
	if f.Condition != "" && !f.Condition.IsValid() {
		return fmt.Errorf("unknown weather condition %q", f.Condition)
	}
	if f.RainProbability < 0 || f.RainProbability > 1 {
		return fmt.Errorf("rain probability must be between 0 and 1, got %.2f", f.RainProbability)
	}
	if f.Variability < 0 {
		return fmt.Errorf("variability must be >= 0, got %.2f", f.Variability)
	}
	for _, c := range f.Changes {
		if !c.Condition.IsValid() {
			return fmt.Errorf("unknown weather condition %q at lap %d", c.Condition, c.Lap)
		}
	}
	return nil
}

func (f WeatherForecast) sortedChanges() []WeatherChange {
	if sort.SliceIsSorted(f.Changes, func(i, j int) bool { return f.Changes[i].Lap < f.Changes[j].Lap }) {
		return f.Changes
	}
	changes := append([]WeatherChange(nil), f.Changes...)
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].Lap < changes[j].Lap })
	return changes
}

// ConditionAtLap returns the condition in force on lap.
func (f WeatherForecast) ConditionAtLap(lap int) WeatherCondition {
	condition := f.Condition
	if condition == "" {
		condition = Dry
	}
	for _, c := range f.sortedChanges() {
		if c.Lap > lap {
			break
		}
		condition = c.Condition
	}
	return condition
}

// TrackTempAtLap returns the track temperature on lap.
func (f WeatherForecast) TrackTempAtLap(lap int) float64 {
	temp := f.TrackTemp
	for _, c := range f.sortedChanges() {
		if c.Lap > lap {
			break
		}
		if c.TrackTemp != 0 {
			temp = c.TrackTemp
		}
	}
	return temp
}

// VolatilityAtLap returns a non-negative noise scale for lap. It grows with rain
// probability, with the spread of sector grip, near a forecast change and on a wet track.
func (f WeatherForecast) VolatilityAtLap(lap int) float64 {
	v := f.Variability*0.5 + f.RainProbability*0.5
	if spread := f.gripSpread(); spread > 0 {
		v += spread
	}
	for _, c := range f.Changes {
		if d := c.Lap - lap; d >= -2 && d <= 2 {
			v += 0.5
			break
		}
	}
	if f.ConditionAtLap(lap).IsWet() {
		v += 0.5
	}
	return v
}

func (f WeatherForecast) gripSpread() float64 {
	if len(f.Sectors) < 2 {
		return 0
	}
	lo, hi := f.Sectors[0].GripLevel, f.Sectors[0].GripLevel
	for _, s := range f.Sectors[1:] {
		lo = min(lo, s.GripLevel)
		hi = max(hi, s.GripLevel)
	}
	return hi - lo
}

// HasRain reports whether any sector or the overall forecast is wet.
func (f WeatherForecast) HasRain() bool {
	if f.Condition.IsWet() {
		return true
	}
	for _, s := range f.Sectors {
		if s.Condition.IsWet() {
			return true
		}
	}
	return false
}

// MaxRainIntensity returns the highest rainfall intensity across sectors and the overall forecast.
func (f WeatherForecast) MaxRainIntensity() float64 {
	m := f.RainfallIntensity
	for _, s := range f.Sectors {
		m = max(m, s.RainIntensity)
	}
	return m
}

// AverageGrip returns the mean sector grip level, or 1.0 without sector data.
func (f WeatherForecast) AverageGrip() float64 {
	if len(f.Sectors) == 0 {
		return 1.0
	}
	sum := 0.0
	for _, s := range f.Sectors {
		sum += s.GripLevel
	}
	return sum / float64(len(f.Sectors))
}

// RecommendedCompound returns Wet above 5 mm/h of rain, Intermediate above 0.5 mm/h
// or when rain is likely, and reports false when slicks are appropriate.
func (f WeatherForecast) RecommendedCompound() (TireCompound, bool) {
	intensity := f.MaxRainIntensity()
	switch {
	case intensity > 5.0:
		return Wet, true
	case intensity > 0.5:
		return Intermediate, true
	case f.HasRain() && f.RainProbability > 0.7:
		return Intermediate, true
	}
	return 0, false
}

// WeatherPenalty returns the lap-time cost in seconds of running compound in condition.
func WeatherPenalty(compound TireCompound, condition WeatherCondition) float64 {
	switch {
	case compound.IsDry():
		switch condition {
		case LightRain:
			return 5.0
		case HeavyRain:
			return 15.0
		}
		return 0
	case compound == Intermediate:
		switch condition {
		case LightRain:
			return 0
		case HeavyRain:
			return 3.0
		case Dry:
			return 2.5
		}
		return 1.0
	case compound == Wet:
		switch condition {
		case HeavyRain:
			return 0
		case Dry:
			return 5.0
		case Cloudy:
			return 4.0
		}
		return 1.0
	}
	return 0
}
