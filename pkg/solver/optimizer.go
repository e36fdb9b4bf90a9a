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
	"bytes"
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/util/validation/field"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/f1-nexus/race-strategy/internal/logging"
	"github.com/f1-nexus/race-strategy/pkg/core"
	"github.com/f1-nexus/race-strategy/pkg/degradation"
)

// OptimizerVersion tags strategies produced by this package.
const OptimizerVersion = "dp-1.0"

// strategyNamespace seeds the name-based strategy IDs.
var strategyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/f1-nexus/race-strategy"))

// Optimizer searches for the fastest legal strategy for one configuration.
type Optimizer struct {
	cfg    OptimizationConfig
	usable []core.TireCompound
	model  *degradation.Model
	now    func() time.Time
}

// NewOptimizer validates the configuration. It returns an InfeasibleError, an
// InvalidConfigError or a NumericError when no search can succeed.
func NewOptimizer(cfg OptimizationConfig) (*Optimizer, error) {
	usable, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	model, err := degradation.NewModel(cfg.Degradation)
	if err != nil {
		return nil, core.NewInvalidConfigError(field.ErrorList{field.Invalid(field.NewPath("degradation"), cfg.Degradation, err.Error())})
	}
	if cfg.StartingFuel == 0 {
		cfg.StartingFuel = min(core.MaxFuel, cfg.FuelModel.FuelNeededForLaps(cfg.TotalLaps)+core.MinFuelBuffer)
	}
	if cfg.ConfidenceScale <= 0 {
		cfg.ConfidenceScale = DefaultConfidenceScale
	}
	return &Optimizer{cfg: cfg, usable: usable, model: model, now: time.Now}, nil
}

// Optimize is a convenience wrapper around NewOptimizer and Optimizer.Optimize.
func Optimize(ctx context.Context, cfg OptimizationConfig) (*core.RaceStrategy, error) {
	opt, err := NewOptimizer(cfg)
	if err != nil {
		return nil, err
	}
	return opt.Optimize(ctx)
}

// label is one DP state at the end of a lap.
type label struct {
	time     float64
	age      int
	stops    int
	firstPit int
	// parent state at the previous lap
	parentCompound int
	parentIdx      int
	pitted         bool
}

// timeTolerance is the gap in seconds under which two race times count as equal.
// Summing the same laps in a different order differs by far less.
const timeTolerance = 1e-6

// compareTimes orders race times, treating times within timeTolerance as equal.
func compareTimes(a, b float64) int {
	if math.Abs(a-b) <= timeTolerance {
		return 0
	}
	return cmp.Compare(a, b)
}

// better orders labels by time, then fewer stops, then the earliest first stop.
func better(a, b *label) int {
	if c := compareTimes(a.time, b.time); c != 0 {
		return c
	}
	if c := cmp.Compare(a.stops, b.stops); c != 0 {
		return c
	}
	return cmp.Compare(firstPitKey(a), firstPitKey(b))
}

func firstPitKey(l *label) int {
	if l.firstPit == 0 {
		return math.MaxInt
	}
	return l.firstPit
}

// costTable caches lap costs that do not depend on the path taken.
type costTable struct {
	// tire[c][age] is the lap time on compound index c at the given age, without fuel
	tire [][]float64
	// fuel[lap-1] is the fuel penalty on lap
	fuel []float64
	// pitSoon[c][age] reports whether a stop is due after age laps
	pitSoon [][]bool
	// failed[c][age] reports whether the set has worn through by age laps
	failed [][]bool
}

func (o *Optimizer) buildCosts() (*costTable, error) {
	laps := o.cfg.TotalLaps
	base := o.cfg.Circuit.BaseLapTime()
	severity := o.cfg.DegradationFactors.TotalMultiplier()

	t := &costTable{
		tire:    make([][]float64, len(o.usable)),
		pitSoon: make([][]bool, len(o.usable)),
		failed:  make([][]bool, len(o.usable)),
		fuel:    make([]float64, laps),
	}
	for ci, compound := range o.usable {
		t.tire[ci] = make([]float64, laps+1)
		t.pitSoon[ci] = make([]bool, laps+1)
		t.failed[ci] = make([]bool, laps+1)
		for age := 1; age <= laps; age++ {
			state, err := o.model.Tire(compound, age, o.cfg.TrackTemperature, severity)
			if err != nil {
				return nil, err
			}
			lt := degradation.LapTime(base, state.Grip, 0)
			if math.IsNaN(lt) || math.IsInf(lt, 0) || lt <= 0 {
				return nil, &core.NumericError{Field: "lapTime", Value: lt, Cause: fmt.Sprintf("non-finite lap time on %s at age %d", compound, age)}
			}
			t.tire[ci][age] = lt
			t.pitSoon[ci][age] = state.PitSoon
			t.failed[ci][age] = state.Wear >= degradation.FailureWear
		}
	}
	profile, err := degradation.FuelProfile(o.cfg.FuelModel, o.cfg.StartingFuel, laps)
	if err != nil {
		return nil, err
	}
	for i, fs := range profile {
		t.fuel[i] = fs.Penalty
	}
	return t, nil
}

// Optimize runs the search. The context is checked once per lap.
func (o *Optimizer) Optimize(ctx context.Context) (*core.RaceStrategy, error) {
	logger := ctrl.LoggerFrom(ctx)
	started := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, core.Cancelled(err)
	}

	costs, err := o.buildCosts()
	if err != nil {
		return nil, err
	}

	laps := o.cfg.TotalLaps
	required := o.cfg.requiredStops()
	maxStops := o.cfg.maxStops()
	pitLoss := o.cfg.PitLoss()

	// layers[lap-1][compoundIdx] holds the surviving labels after lap
	layers := make([][][]label, laps)
	first := make([][]label, len(o.usable))
	for ci, compound := range o.usable {
		if o.cfg.StartingCompound != nil && *o.cfg.StartingCompound != compound {
			continue
		}
		first[ci] = []label{{time: costs.tire[ci][1] + costs.fuel[0], age: 1, parentCompound: -1, parentIdx: -1}}
	}
	layers[0] = first

	states := 0
	for lap := 2; lap <= laps; lap++ {
		if err := ctx.Err(); err != nil {
			return nil, core.Cancelled(err)
		}
		prev := layers[lap-2]
		cur := make([][]label, len(o.usable))
		fuel := costs.fuel[lap-1]
		for pc := range prev {
			for pi := range prev[pc] {
				p := &prev[pc][pi]
				// stay out unless the set would wear through
				if !costs.failed[pc][p.age+1] {
					cur[pc] = append(cur[pc], label{
						time:           p.time + costs.tire[pc][p.age+1] + fuel,
						age:            p.age + 1,
						stops:          p.stops,
						firstPit:       p.firstPit,
						parentCompound: pc,
						parentIdx:      pi,
					})
				}
				if p.stops >= maxStops {
					continue
				}
				// pit at the end of the previous lap
				firstPit := p.firstPit
				if firstPit == 0 {
					firstPit = lap - 1
				}
				for nc := range o.usable {
					if nc == pc {
						continue
					}
					cur[nc] = append(cur[nc], label{
						time:           p.time + pitLoss + costs.tire[nc][1] + fuel,
						age:            1,
						stops:          p.stops + 1,
						firstPit:       firstPit,
						parentCompound: pc,
						parentIdx:      pi,
						pitted:         true,
					})
				}
			}
		}
		for ci := range cur {
			cur[ci] = o.reduce(cur[ci], required)
			states += len(cur[ci])
		}
		layers[lap-1] = cur
	}

	best, second := o.selectTerminal(layers, required)
	if best == nil {
		return nil, &core.InfeasibleError{
			Reason: fmt.Sprintf("no plan completes %d laps with at least %d pit stops", laps, required),
			Errs:   field.ErrorList{field.Invalid(field.NewPath("totalLaps"), laps, fmt.Sprintf("too short for %d mandatory stops", required))},
		}
	}

	strategy := o.reconstruct(layers, best, costs, pitLoss, required)
	strategy.Confidence = confidence(best, second, o.cfg.ConfidenceScale)
	for i := range strategy.PitStops {
		strategy.PitStops[i].Confidence = strategy.Confidence
	}
	strategy.ID = strategyID(&o.cfg, strategy).String()

	logger.V(logging.DEBUG).Info("Optimized race strategy",
		"circuit", o.cfg.Circuit.ID,
		"laps", laps,
		"stops", strategy.NumPitStops(),
		"predictedRaceTime", strategy.PredictedRaceTime,
		"confidence", strategy.Confidence,
		"states", states,
		"duration", time.Since(started))
	return strategy, nil
}

// reduce merges labels sharing (age, stops) and, unless disabled, drops dominated labels.
func (o *Optimizer) reduce(labels []label, required int) []label {
	if len(labels) <= 1 {
		return labels
	}
	slices.SortStableFunc(labels, func(a, b label) int { return better(&a, &b) })

	type key struct{ age, stops int }
	seen := make(map[key]struct{}, len(labels))
	kept := labels[:0]
	for i := range labels {
		l := labels[i]
		k := key{l.age, l.stops}
		if _, dup := seen[k]; dup {
			continue
		}
		if !o.cfg.DisablePruning && dominated(&l, kept, required) {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, l)
	}
	return kept
}

// dominated reports whether a kept label, which sorts no worse than l, has no more wear,
// no more stops and the same regulation standing. Any continuation of l is then at
// least as good from the kept label.
func dominated(l *label, kept []label, required int) bool {
	for i := range kept {
		k := &kept[i]
		if k.age <= l.age && k.stops <= l.stops && min(k.stops, required) == min(l.stops, required) {
			return true
		}
	}
	return false
}

// selectTerminal returns the best final label meeting the stop minimum, and the best
// one whose plan differs in substance: another stop count or another set of compounds.
// A plan driven with its stints in another order is the same plan.
func (o *Optimizer) selectTerminal(layers [][][]label, required int) (best, second *label) {
	final := layers[len(layers)-1]
	var finishers []*label
	for ci := range final {
		for i := range final[ci] {
			l := &final[ci][i]
			if l.stops < required {
				continue
			}
			finishers = append(finishers, l)
			if best == nil || better(l, best) < 0 {
				best = l
			}
		}
	}
	if best == nil {
		return nil, nil
	}
	bestPlan := o.compoundsUsed(layers, best)
	for _, l := range finishers {
		if l == best || (second != nil && better(l, second) >= 0) {
			continue
		}
		if l.stops == best.stops && slices.Equal(o.compoundsUsed(layers, l), bestPlan) {
			continue
		}
		second = l
	}
	return best, second
}

// compoundsUsed returns the sorted compound indices of every stint on the path to the
// terminal label.
func (o *Optimizer) compoundsUsed(layers [][][]label, terminal *label) []int {
	laps := len(layers)
	ci := o.compoundOf(layers[laps-1], terminal)
	used := []int{ci}
	l := terminal
	for lap := laps; lap > 1; lap-- {
		pc, pi := l.parentCompound, l.parentIdx
		if l.pitted {
			used = append(used, pc)
		}
		l = &layers[lap-2][pc][pi]
	}
	slices.Sort(used)
	return used
}

// confidence maps the gap to the runner-up plan into [0.5, 0.99].
func confidence(best, second *label, scale float64) float64 {
	if second == nil {
		return 0.99
	}
	spread := max(0, second.time-best.time)
	return math.Min(0.99, 0.5+0.5*(1-math.Exp(-spread/scale)))
}

type lapStep struct {
	compound int
	age      int
	pitted   bool
}

func (o *Optimizer) reconstruct(layers [][][]label, terminal *label, costs *costTable, pitLoss float64, required int) *core.RaceStrategy {
	laps := o.cfg.TotalLaps
	steps := make([]lapStep, laps)

	// the terminal label's compound index is found by walking parents
	l := terminal
	ci := o.compoundOf(layers[laps-1], terminal)
	for lap := laps; lap >= 1; lap-- {
		steps[lap-1] = lapStep{compound: ci, age: l.age, pitted: l.pitted}
		if lap == 1 {
			break
		}
		pc, pi := l.parentCompound, l.parentIdx
		l = &layers[lap-2][pc][pi]
		ci = pc
	}

	strategy := &core.RaceStrategy{
		StartingCompound:  o.usable[steps[0].compound],
		TotalLaps:         laps,
		PredictedRaceTime: terminal.time,
		FuelStrategy:      o.fuelStrategy(),
		ErsPlan:           o.cfg.ErsPlan,
		Metadata: core.StrategyMetadata{
			GeneratedAt:      o.now(),
			OptimizerVersion: OptimizerVersion,
		},
	}

	var stint []float64
	for lap := 1; lap <= laps; lap++ {
		step := steps[lap-1]
		if step.pitted {
			strategy.ExpectedLapTimes = append(strategy.ExpectedLapTimes, stint)
			stint = nil
			prevStep := steps[lap-2]
			stopNum := len(strategy.PitStops) + 1
			strategy.PitStops = append(strategy.PitStops, core.PitStop{
				Lap:      lap - 1,
				Compound: o.usable[step.compound],
				PitLoss:  pitLoss,
				Reason:   o.pitReason(lap-1, stopNum, required, costs.pitSoon[prevStep.compound][prevStep.age]),
			})
		}
		stint = append(stint, costs.tire[step.compound][step.age]+costs.fuel[lap-1])
	}
	strategy.ExpectedLapTimes = append(strategy.ExpectedLapTimes, stint)
	return strategy
}

func (o *Optimizer) compoundOf(final [][]label, target *label) int {
	for ci := range final {
		for i := range final[ci] {
			if &final[ci][i] == target {
				return ci
			}
		}
	}
	return 0
}

// pitReason tags stop number stopNum taken at the end of lap.
func (o *Optimizer) pitReason(lap, stopNum, required int, pitSoon bool) core.PitStopReason {
	for _, c := range o.cfg.CompetitorsAhead {
		if c.ExpectedPitLap <= 0 {
			continue
		}
		switch d := c.ExpectedPitLap - lap; {
		case d >= 1 && d <= 3:
			return core.ReasonUndercut
		case d >= -3 && d <= -1:
			return core.ReasonOvercut
		}
	}
	switch {
	case stopNum == required:
		return core.ReasonMandatory
	case pitSoon:
		return core.ReasonTireDegradation
	}
	return core.ReasonOpportunistic
}

// maxFuelSavingPerLap is the most fuel a driver can save in one lap by lifting and coasting.
const maxFuelSavingPerLap = 0.2

func (o *Optimizer) fuelStrategy() core.FuelStrategy {
	fs := core.FuelStrategy{
		StartingFuel:      o.cfg.StartingFuel,
		MinimumFuelBuffer: core.MinFuelBuffer,
	}
	laps := o.cfg.TotalLaps
	shortfall := o.cfg.FuelModel.FuelSavingNeeded(o.cfg.StartingFuel, laps) * float64(laps)
	if shortfall <= 0 {
		return fs
	}
	savingLaps := min(laps, int(math.Ceil(shortfall/maxFuelSavingPerLap)))
	fs.FuelSavingPerLap = shortfall / float64(savingLaps)
	for lap := laps - savingLaps + 1; lap <= laps; lap++ {
		fs.FuelSavingLaps = append(fs.FuelSavingLaps, lap)
	}
	return fs
}

// strategyID derives a stable identifier from the race and the chosen plan.
func strategyID(cfg *OptimizationConfig, s *core.RaceStrategy) uuid.UUID {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s|%d|%s|%.6f", cfg.Circuit.ID, cfg.TotalLaps, s.StartingCompound, s.PredictedRaceTime)
	for _, p := range s.PitStops {
		fmt.Fprintf(&buf, "|%d:%s", p.Lap, p.Compound)
	}
	return uuid.NewSHA1(strategyNamespace, buf.Bytes())
}

// BestCaseLapTime is the fastest lap any usable compound can produce: fresh tires and an
// empty tank.
func BestCaseLapTime(cfg OptimizationConfig) float64 {
	best := math.Inf(1)
	for _, c := range cfg.usableCompounds() {
		best = math.Min(best, cfg.Circuit.BaseLapTime()/c.Characteristics().PaceFactor)
	}
	return best
}
