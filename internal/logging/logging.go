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

// Package logging builds the process logger and defines the verbosity levels used with
// logr's V().
package logging

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	. "github.com/onsi/ginkgo/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	ctrl "sigs.k8s.io/controller-runtime"
	crzap "sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// Verbosity levels
const (
	INFO  = 0
	DEBUG = 1
	TRACE = 2
)

// Options controls the process logger.
type Options struct {
	// Verbosity is the highest V() level emitted.
	Verbosity int
	// Development switches to console encoding with stack traces on warnings.
	Development bool
}

// NewLogger builds a zap-backed logr.Logger.
func NewLogger(opts Options) (logr.Logger, error) {
	if opts.Verbosity < 0 || opts.Verbosity > TRACE {
		return logr.Discard(), fmt.Errorf("verbosity must be between %d and %d, got %d", INFO, TRACE, opts.Verbosity)
	}
	cfg := zap.NewProductionConfig()
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	// logr V(n) maps to zap level -n
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-opts.Verbosity))
	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("failed to build zap logger: %w", err)
	}
	return zapr.NewLogger(zl), nil
}

// Setup builds the process logger and installs it as the controller-runtime logger so
// ctrl.Log and ctrl.LoggerFrom resolve to it.
func Setup(opts Options) (logr.Logger, error) {
	logger, err := NewLogger(opts)
	if err != nil {
		return logger, err
	}
	ctrl.SetLogger(logger)
	return logger, nil
}

// NewTestLogger installs a development logger writing to the ginkgo writer.
func NewTestLogger() logr.Logger {
	logger := crzap.New(crzap.WriteTo(GinkgoWriter), crzap.UseDevMode(true), crzap.Level(zapcore.Level(-TRACE)))
	ctrl.SetLogger(logger)
	return logger
}
