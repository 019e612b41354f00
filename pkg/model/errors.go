package model

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks against the typed errors below
var (
	ErrAlignment         = errors.New("alignment error")
	ErrMetricComputation = errors.New("metric computation error")
	ErrShaping           = errors.New("shaping error")
)

// AlignmentError is returned when a requested column is absent or its length
// does not match the table
type AlignmentError struct {
	Column string
	Reason string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("alignment failed for column %q: %s", e.Column, e.Reason)
}

// Is matches ErrAlignment
func (e *AlignmentError) Is(target error) bool {
	return target == ErrAlignment
}

// MetricComputationError wraps a numeric failure inside a saliency metric
type MetricComputationError struct {
	Metric  string
	Feature string
	Err     error
}

func (e *MetricComputationError) Error() string {
	return fmt.Sprintf("metric %s failed on feature %q: %v", e.Metric, e.Feature, e.Err)
}

func (e *MetricComputationError) Unwrap() error {
	return e.Err
}

// Is matches ErrMetricComputation
func (e *MetricComputationError) Is(target error) bool {
	return target == ErrMetricComputation
}

// ShapingError signals a broken metric contract (no shaped series produced).
// It is never retried.
type ShapingError struct {
	Feature string
	Reason  string
}

func (e *ShapingError) Error() string {
	return fmt.Sprintf("shaping failed for feature %q: %s", e.Feature, e.Reason)
}

// Is matches ErrShaping
func (e *ShapingError) Is(target error) bool {
	return target == ErrShaping
}
