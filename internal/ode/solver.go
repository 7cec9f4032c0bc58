// Package ode integrates initial value problems with an embedded
// Dormand-Prince 4(5) Runge-Kutta pair and adaptive step control. The
// caller supplies the right hand side in positional form; bridging from
// named model state happens one layer up, in internal/continuous.
package ode

import (
	"context"
	"errors"

	"gonum.org/v1/gonum/mat"
)

// Func evaluates the right hand side dy/dt = f(t, y) into dy.
type Func func(t float64, y mat.Vector, dy *mat.VecDense)

// Stats describes the work one integration took.
type Stats struct {
	Steps       int
	Rejected    int
	Evaluations int
	LastStep    float64
}

// Solution holds state rows at each output time. On a failed
// integration the rows up to the failure point are still present.
type Solution struct {
	Times  []float64
	States []*mat.VecDense
	Stats  Stats
}

// Solver integrates y' = f(t, y) from t0 to tEnd. When at is non-nil
// the solution is reported exactly at those times (strictly increasing,
// inside [t0, tEnd]); otherwise every accepted step is reported.
type Solver interface {
	Solve(ctx context.Context, f Func, y0 mat.Vector, t0, tEnd float64, at []float64) (*Solution, error)
}

var (
	// ErrStepUnderflow indicates step control shrank the step below the
	// minimum without meeting the tolerance.
	ErrStepUnderflow = errors.New("ode: step size underflow")

	// ErrMaxSteps indicates the step budget ran out before tEnd.
	ErrMaxSteps = errors.New("ode: maximum number of steps exceeded")

	// ErrEvalTimes indicates output times outside the span or not
	// strictly increasing.
	ErrEvalTimes = errors.New("ode: invalid evaluation times")

	// ErrSpan indicates tEnd < t0.
	ErrSpan = errors.New("ode: tEnd before t0")
)
