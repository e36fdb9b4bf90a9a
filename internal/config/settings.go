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
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. F1STRAT_WORKERS.
const EnvPrefix = "F1STRAT"

// Settings are process wide knobs. Precedence is flag, then environment, then the
// optional settings file, then the flag default.
type Settings struct {
	Workers    int
	Iterations int
	// Seed is nil unless set explicitly.
	Seed       *uint64
	Noise      string
	CacheSize  int
	TuningFile string
	Output     string
	// MetricsFile receives the metrics in text format on exit; "-" is stderr.
	MetricsFile  string
	LogVerbosity int
	Development  bool
}

// BindFlags registers the settings flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "optional settings file (yaml, json or toml)")
	fs.Int("workers", 0, "simulation worker pool size; 0 uses one per CPU")
	fs.Int("iterations", 1000, "Monte Carlo trials when the request does not set them")
	fs.Uint64("seed", 0, "random seed for reproducible simulations")
	fs.String("noise", "gaussian", "lap time noise model: gaussian or lognormal")
	fs.Int("cache-size", 128, "number of optimized strategies kept for evaluation")
	fs.String("tuning-file", "", "YAML file with per-circuit tuning")
	fs.StringP("output", "o", "json", "response format: json or yaml")
	fs.String("metrics-file", "", "write metrics in text format to this file on exit (- for stderr)")
	fs.IntP("verbosity", "v", 0, "log verbosity (0 info, 1 debug, 2 trace)")
	fs.Bool("development", false, "human readable console logs")
}

// LoadSettings resolves settings from the parsed flag set and the environment.
func LoadSettings(fs *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read settings file %s: %w", file, err)
		}
	}

	s := &Settings{
		Workers:      v.GetInt("workers"),
		Iterations:   v.GetInt("iterations"),
		Noise:        v.GetString("noise"),
		CacheSize:    v.GetInt("cache-size"),
		TuningFile:   v.GetString("tuning-file"),
		Output:       v.GetString("output"),
		MetricsFile:  v.GetString("metrics-file"),
		LogVerbosity: v.GetInt("verbosity"),
		Development:  v.GetBool("development"),
	}
	if v.IsSet("seed") {
		seed := v.GetUint64("seed")
		s.Seed = &seed
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks for invalid settings.
func (s *Settings) Validate() error {
	if s.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", s.Workers)
	}
	if s.Iterations <= 0 {
		return fmt.Errorf("iterations must be > 0, got %d", s.Iterations)
	}
	if s.CacheSize < 0 {
		return fmt.Errorf("cache-size must be >= 0, got %d", s.CacheSize)
	}
	switch s.Output {
	case "json", "yaml":
	default:
		return fmt.Errorf("output must be json or yaml, got %q", s.Output)
	}
	return nil
}
