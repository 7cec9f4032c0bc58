// Package interp builds input signals from sampled columns. The heavy
// lifting is gonum's interp package; this wrapper validates the samples
// and returns a dynamo.Signal valid over [times[0], times[len-1]].
// Behaviour outside that range is whatever the underlying predictor
// does and must not be relied on.
package interp

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/interp"

	"github.com/san-kum/glucosim/internal/dynamo"
)

var (
	// ErrTooFewPoints indicates fewer than two samples.
	ErrTooFewPoints = errors.New("interp: need at least two samples")

	// ErrLengthMismatch indicates times and values differ in length.
	ErrLengthMismatch = errors.New("interp: times and values differ in length")

	// ErrNotIncreasing indicates times are not strictly increasing.
	ErrNotIncreasing = errors.New("interp: times not strictly increasing")
)

// Linear returns a piecewise-linear signal through the samples.
func Linear(times, values []float64) (dynamo.Signal, error) {
	if err := validate(times, values); err != nil {
		return nil, err
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(times, values); err != nil {
		return nil, fmt.Errorf("interp: %w", err)
	}
	return pl.Predict, nil
}

// ShapePreserving returns a monotonicity-preserving cubic signal
// (Fritsch-Butland), useful for insulin curves where linear kinks
// distort the derivative.
func ShapePreserving(times, values []float64) (dynamo.Signal, error) {
	if err := validate(times, values); err != nil {
		return nil, err
	}
	var fb interp.FritschButland
	if err := fb.Fit(times, values); err != nil {
		return nil, fmt.Errorf("interp: %w", err)
	}
	return fb.Predict, nil
}

// Constant returns a signal fixed at v, used when no sampled input is
// available (e.g. simulating at basal insulin).
func Constant(v float64) dynamo.Signal {
	return func(t float64) float64 { return v }
}

func validate(times, values []float64) error {
	if len(times) != len(values) {
		return ErrLengthMismatch
	}
	if len(times) < 2 {
		return ErrTooFewPoints
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return fmt.Errorf("%w: index %d", ErrNotIncreasing, i)
		}
	}
	return nil
}
