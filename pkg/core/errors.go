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
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// ErrCancelled is wrapped by errors returned when the caller's context ends an operation.
var ErrCancelled = errors.New("cancelled")

// Cancelled wraps the context error so both errors.Is(err, ErrCancelled) and
// errors.Is(err, context.Canceled) hold.
func Cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

// InfeasibleError is returned when no strategy satisfies the constraints.
type InfeasibleError struct {
	Reason string
	Errs   field.ErrorList
}

func (e *InfeasibleError) Error() string {
	if len(e.Errs) == 0 {
		return fmt.Sprintf("infeasible: %s", e.Reason)
	}
	return fmt.Sprintf("infeasible: %s: %v", e.Reason, e.Errs.ToAggregate())
}

// InvalidConfigError is returned for malformed inputs. Errs names each offending field.
type InvalidConfigError struct {
	Errs field.ErrorList
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", e.Errs.ToAggregate())
}

// NewInvalidConfigError returns nil when errs is empty.
func NewInvalidConfigError(errs field.ErrorList) error {
	if len(errs) == 0 {
		return nil
	}
	return &InvalidConfigError{Errs: errs}
}

// NumericError is returned when inputs produce a non-finite or non-positive quantity.
type NumericError struct {
	Field string
	Value float64
	Cause string
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("numeric error: %s=%v: %s", e.Field, e.Value, e.Cause)
}
