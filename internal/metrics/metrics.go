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

// Package metrics exposes Prometheus collectors for optimizer and simulator runs.
package metrics

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/f1-nexus/race-strategy/pkg/core"
)

const namespace = "f1strat"

// Outcome labels.
const (
	OutcomeSuccess    = "success"
	OutcomeInfeasible = "infeasible"
	OutcomeInvalid    = "invalid"
	OutcomeNumeric    = "numeric"
	OutcomeCancelled  = "cancelled"
	OutcomeError      = "error"
)

// Metrics holds the collectors. The zero value is not usable; use New.
type Metrics struct {
	optimizeDuration *prometheus.HistogramVec
	pitStops         prometheus.Histogram
	simulateDuration *prometheus.HistogramVec
	trials           prometheus.Counter
	dnfProbability   *prometheus.GaugeVec
	cacheLookups     *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		optimizeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "optimize_duration_seconds",
			Help:      "Wall time of strategy optimizations by outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"outcome"}),
		pitStops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "strategy_pit_stops",
			Help:      "Number of pit stops in optimized strategies.",
			Buckets:   prometheus.LinearBuckets(0, 1, 6),
		}),
		simulateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "simulate_duration_seconds",
			Help:      "Wall time of Monte Carlo simulations by outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"outcome"}),
		trials: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulation_trials_total",
			Help:      "Monte Carlo trials completed.",
		}),
		dnfProbability: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "simulation_dnf_probability",
			Help:      "DNF probability of the last simulation per circuit.",
		}, []string{"circuit"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_cache_lookups_total",
			Help:      "Strategy cache lookups by result.",
		}, []string{"result"}),
	}
	for _, c := range []prometheus.Collector{
		m.optimizeDuration, m.pitStops, m.simulateDuration, m.trials, m.dnfProbability, m.cacheLookups,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}

// Outcome classifies an operation error into a label value.
func Outcome(err error) string {
	var (
		infeasible *core.InfeasibleError
		invalid    *core.InvalidConfigError
		numeric    *core.NumericError
	)
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, core.ErrCancelled):
		return OutcomeCancelled
	case errors.As(err, &infeasible):
		return OutcomeInfeasible
	case errors.As(err, &invalid):
		return OutcomeInvalid
	case errors.As(err, &numeric):
		return OutcomeNumeric
	}
	return OutcomeError
}

// ObserveOptimization records one Optimize call. strategy may be nil on error.
func (m *Metrics) ObserveOptimization(elapsed time.Duration, strategy *core.RaceStrategy, err error) {
	m.optimizeDuration.WithLabelValues(Outcome(err)).Observe(elapsed.Seconds())
	if err == nil && strategy != nil {
		m.pitStops.Observe(float64(strategy.NumPitStops()))
	}
}

// ObserveSimulation records one Simulate call.
func (m *Metrics) ObserveSimulation(elapsed time.Duration, circuitID string, completed int, dnfProbability float64, err error) {
	m.simulateDuration.WithLabelValues(Outcome(err)).Observe(elapsed.Seconds())
	if err != nil {
		return
	}
	m.trials.Add(float64(completed))
	m.dnfProbability.WithLabelValues(circuitID).Set(dnfProbability)
}

// ObserveCacheLookup counts a strategy cache hit or miss.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Write encodes every metric gathered from g in the text exposition format.
func Write(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
