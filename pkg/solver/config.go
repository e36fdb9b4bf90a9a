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
	"fmt"
	"math"
	"slices"

	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/utils/ptr"

	"github.com/f1-nexus/race-strategy/pkg/core"
	"github.com/f1-nexus/race-strategy/pkg/degradation"
)

const (
	// DefaultMaxPitStops bounds the search when MaxPitStops is unset.
	DefaultMaxPitStops = 3

	// DefaultConfidenceScale is the best-to-second-best spread in seconds at which
	// confidence reaches about 0.82.
	DefaultConfidenceScale = 5.0
)

// Competitor is a car ahead whose pit timing shapes undercut and overcut decisions.
type Competitor struct {
	Driver         string
	Position       int
	ExpectedPitLap int
}

// OptimizationConfig holds the static race parameters for one optimization.
type OptimizationConfig struct {
	TotalLaps          int
	Circuit            core.Circuit
	AvailableCompounds []core.TireCompound
	// PitLaneTimeLoss and TireChangeTime in seconds
	PitLaneTimeLoss  float64
	TireChangeTime   float64
	StartingPosition int
	// CompetitorsAhead ordered by position, optional
	CompetitorsAhead   []Competitor
	DegradationFactors core.DegradationFactors
	FuelModel          core.FuelConsumptionModel
	// StartingFuel in kg; zero loads what the distance needs
	StartingFuel     float64
	TrackTemperature float64

	// MinPitStops defaults to one in a dry race unless WaiveMandatoryStop is set.
	MinPitStops int
	// MaxPitStops defaults to DefaultMaxPitStops.
	MaxPitStops        int
	WaiveMandatoryStop bool
	// WetRace restricts the search to Intermediate and Wet and waives the compound change.
	WetRace bool
	// StartingCompound fixes the first stint's compound when set.
	StartingCompound *core.TireCompound
	// DisablePruning keeps every state key instead of discarding dominated states.
	DisablePruning  bool
	ConfidenceScale float64
	Degradation     degradation.Config
	// ErsPlan is copied to the strategy unchanged.
	ErsPlan *core.ErsDeploymentPlan
}

// requiredStops returns the number of stops a finishing plan needs.
func (c *OptimizationConfig) requiredStops() int {
	if c.WaiveMandatoryStop {
		return 0
	}
	if c.MinPitStops > 0 {
		return c.MinPitStops
	}
	if c.WetRace {
		return 0
	}
	return core.DefaultRegulations().MinPitStops
}

func (c *OptimizationConfig) maxStops() int {
	if c.MaxPitStops > 0 {
		return c.MaxPitStops
	}
	return max(DefaultMaxPitStops, c.requiredStops())
}

// usableCompounds filters the available set down to compounds legal for the conditions,
// in a stable order.
func (c *OptimizationConfig) usableCompounds() []core.TireCompound {
	var out []core.TireCompound
	for _, compound := range c.AvailableCompounds {
		if !compound.IsValid() || slices.Contains(out, compound) {
			continue
		}
		if compound.IsWet() == c.WetRace {
			out = append(out, compound)
		}
	}
	slices.Sort(out)
	return out
}

// positionPenalty is the extra cost of a stop for a car fighting at the front.
func positionPenalty(position int) float64 {
	switch {
	case position >= 1 && position <= 3:
		return 1.5
	case position >= 4 && position <= 10:
		return 1.0
	default:
		return 0.5
	}
}

// PitLoss returns the time lost to one stop.
func (c *OptimizationConfig) PitLoss() float64 {
	return c.PitLaneTimeLoss + c.TireChangeTime + positionPenalty(c.StartingPosition)
}

// validate returns the usable compounds or a typed error.
func (c *OptimizationConfig) validate() ([]core.TireCompound, error) {
	if len(c.AvailableCompounds) == 0 {
		return nil, &core.InfeasibleError{
			Reason: "no compounds available",
			Errs:   field.ErrorList{field.Required(field.NewPath("availableCompounds"), "at least one compound is required")},
		}
	}

	var errs field.ErrorList
	if c.TotalLaps <= 0 {
		errs = append(errs, field.Invalid(field.NewPath("totalLaps"), c.TotalLaps, "must be > 0"))
	}
	if c.PitLaneTimeLoss < 0 {
		errs = append(errs, field.Invalid(field.NewPath("pitLaneTimeLoss"), c.PitLaneTimeLoss, "must be >= 0"))
	}
	if c.TireChangeTime < 0 {
		errs = append(errs, field.Invalid(field.NewPath("tireChangeTime"), c.TireChangeTime, "must be >= 0"))
	}
	if c.StartingFuel < 0 || c.StartingFuel > core.MaxFuel {
		errs = append(errs, field.Invalid(field.NewPath("startingFuel"), c.StartingFuel, fmt.Sprintf("must be between 0 and %.0f", core.MaxFuel)))
	}
	if c.MinPitStops < 0 {
		errs = append(errs, field.Invalid(field.NewPath("minPitStops"), c.MinPitStops, "must be >= 0"))
	}
	if c.MaxPitStops < 0 {
		errs = append(errs, field.Invalid(field.NewPath("maxPitStops"), c.MaxPitStops, "must be >= 0"))
	}
	for i, compound := range c.AvailableCompounds {
		if !compound.IsValid() {
			errs = append(errs, field.Invalid(field.NewPath("availableCompounds").Index(i), int(compound), "unknown compound"))
		}
	}
	if err := core.NewInvalidConfigError(errs); err != nil {
		return nil, err
	}

	if base := c.Circuit.BaseLapTime(); base <= 0 || math.IsNaN(base) || math.IsInf(base, 0) {
		return nil, &core.NumericError{Field: "circuit.baseLapTime", Value: base, Cause: "circuit needs a lap record or a distance and average speed"}
	}
	if sev := c.DegradationFactors.TotalMultiplier(); math.IsNaN(sev) || math.IsInf(sev, 0) {
		return nil, &core.NumericError{Field: "degradationFactors", Value: sev, Cause: "must be finite"}
	}
	if err := degradation.ValidateFuelModel(c.FuelModel); err != nil {
		return nil, err
	}

	usable := c.usableCompounds()
	mode := "dry"
	if c.WetRace {
		mode = "wet"
	}
	if len(usable) == 0 {
		return nil, &core.InfeasibleError{
			Reason: fmt.Sprintf("no compound in the available set is legal for a %s race", mode),
			Errs:   field.ErrorList{field.Invalid(field.NewPath("availableCompounds"), compoundNames(c.AvailableCompounds), "no usable compound")},
		}
	}
	if c.StartingCompound != nil && !slices.Contains(usable, *c.StartingCompound) {
		return nil, &core.InfeasibleError{
			Reason: "starting compound is not usable",
			Errs:   field.ErrorList{field.NotSupported(field.NewPath("startingCompound"), ptr.Deref(c.StartingCompound, 0).String(), compoundNames(usable))},
		}
	}
	required := c.requiredStops()
	if required > c.maxStops() {
		return nil, &core.InfeasibleError{
			Reason: "mandatory pit stops exceed the maximum",
			Errs:   field.ErrorList{field.Invalid(field.NewPath("maxPitStops"), c.maxStops(), fmt.Sprintf("must be >= %d", required))},
		}
	}
	if required > 0 && len(usable) < 2 {
		return nil, &core.InfeasibleError{
			Reason: "a compound change is mandatory but only one compound is usable",
			Errs:   field.ErrorList{field.Invalid(field.NewPath("availableCompounds"), compoundNames(usable), "need at least two usable compounds")},
		}
	}
	return usable, nil
}

func compoundNames(compounds []core.TireCompound) []string {
	names := make([]string, 0, len(compounds))
	for _, c := range compounds {
		names = append(names, c.String())
	}
	return names
}
