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

// Command strategy optimizes, simulates and replays race strategies. It reads a JSON or
// YAML request and writes the response to stdout.
//
//	strategy optimize -f request.yaml
//	strategy evaluate -f request.yaml --iterations 5000 --seed 42
//	strategy simulate -f request.json -o yaml
//	strategy replay -f request.json
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"k8s.io/utils/ptr"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/f1-nexus/race-strategy/internal/config"
	"github.com/f1-nexus/race-strategy/internal/engine"
	"github.com/f1-nexus/race-strategy/internal/logging"
	"github.com/f1-nexus/race-strategy/internal/metrics"
	pkgconfig "github.com/f1-nexus/race-strategy/pkg/config"
	"github.com/f1-nexus/race-strategy/pkg/core"
)

// Exit codes
const (
	exitFailure    = 1
	exitUsage      = 2
	exitInfeasible = 3
)

type usageError struct{ error }

func main() {
	ctx := ctrl.SetupSignalHandler()
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var (
		usage      usageError
		invalid    *core.InvalidConfigError
		infeasible *core.InfeasibleError
	)
	switch {
	case errors.As(err, &usage), errors.As(err, &invalid):
		return exitUsage
	case errors.As(err, &infeasible):
		return exitInfeasible
	}
	return exitFailure
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("strategy", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.BindFlags(fs)
	fs.StringP("request", "f", "-", "request file (JSON or YAML); - reads stdin")
	if err := fs.Parse(args); err != nil {
		return usageError{err}
	}
	if fs.NArg() != 1 {
		return usageError{errors.New("expected exactly one mode: optimize, simulate, evaluate or replay")}
	}
	mode := fs.Arg(0)

	settings, err := config.LoadSettings(fs)
	if err != nil {
		return usageError{err}
	}
	logger, err := logging.Setup(logging.Options{Verbosity: settings.LogVerbosity, Development: settings.Development})
	if err != nil {
		return usageError{err}
	}
	ctx = ctrl.LoggerInto(ctx, logger)

	var tuning config.CircuitTuningData
	if settings.TuningFile != "" {
		if tuning, err = config.LoadCircuitTuningFile(settings.TuningFile); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}
	eng := engine.New(*settings, tuning, m)

	requestPath, _ := fs.GetString("request")
	req, err := readRequest(requestPath, stdin)
	if err != nil {
		return usageError{err}
	}

	resp, err := serve(ctx, eng, mode, req)
	if err != nil {
		return err
	}
	logger.V(logging.DEBUG).Info("Request served", "mode", mode)

	var out []byte
	if settings.Output == "yaml" {
		out, err = pkgconfig.EncodeYAML(resp)
	} else {
		out, err = pkgconfig.EncodeJSON(resp)
	}
	if err != nil {
		return err
	}
	if _, err := stdout.Write(append(out, '\n')); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return writeMetrics(settings.MetricsFile, reg, stderr)
}

func readRequest(path string, stdin io.Reader) (*pkgconfig.Request, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}
	req, err := pkgconfig.Decode[pkgconfig.Request](data)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func serve(ctx context.Context, eng *engine.Engine, mode string, req *pkgconfig.Request) (*pkgconfig.Response, error) {
	resp := &pkgconfig.Response{}
	switch mode {
	case "optimize":
		if req.Optimization == nil {
			return nil, usageError{errors.New("optimize needs an optimization section")}
		}
		strategy, err := eng.Optimize(ctx, *req.Optimization)
		if err != nil {
			return nil, err
		}
		resp.Strategy = ptr.To(pkgconfig.StrategySpecFromCore(strategy))

	case "evaluate":
		if req.Optimization == nil {
			return nil, usageError{errors.New("evaluate needs an optimization section")}
		}
		var sim pkgconfig.SimulationSpec
		if req.Simulation != nil {
			sim = *req.Simulation
		}
		evaluation, err := eng.Evaluate(ctx, *req.Optimization, sim)
		if err != nil {
			return nil, err
		}
		resp.Strategy = ptr.To(pkgconfig.StrategySpecFromCore(evaluation.Strategy))
		resp.Result = ptr.To(pkgconfig.SimulationResultSpecFromCore(evaluation.Result))
		resp.Analysis = ptr.To(pkgconfig.AnalysisSpecFromCore(evaluation.Analysis))

	case "simulate", "replay":
		if req.Strategy == nil || req.Simulation == nil {
			return nil, usageError{fmt.Errorf("%s needs strategy and simulation sections", mode)}
		}
		strategy, err := req.Strategy.ToStrategy()
		if err != nil {
			return nil, err
		}
		if mode == "simulate" {
			result, err := eng.Simulate(ctx, strategy, *req.Simulation)
			if err != nil {
				return nil, err
			}
			resp.Result = ptr.To(pkgconfig.SimulationResultSpecFromCore(result))
		} else {
			trace, err := eng.Replay(ctx, strategy, *req.Simulation)
			if err != nil {
				return nil, err
			}
			resp.Trace = ptr.To(pkgconfig.RaceTraceSpecFromCore(trace))
		}

	default:
		return nil, usageError{fmt.Errorf("unknown mode %q", mode)}
	}
	return resp, nil
}

func writeMetrics(path string, reg prometheus.Gatherer, stderr io.Writer) error {
	switch path {
	case "":
		return nil
	case "-":
		return metrics.Write(stderr, reg)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	if err := metrics.Write(f, reg); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
