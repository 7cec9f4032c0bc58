package fit

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/san-kum/glucosim/internal/dynamo"
)

// Method selects the gonum/optimize algorithm driving the search.
// Nelder-Mead is the default: derivative-free, deterministic, and
// robust to the mildly noisy objective a tolerance-bounded integrator
// produces. The gradient methods use finite differences internally.
type Method string

const (
	MethodNelderMead Method = "nelder-mead"
	MethodBFGS       Method = "bfgs"
	MethodLBFGS      Method = "lbfgs"
)

// ErrUnknownMethod indicates an unrecognized method name.
var ErrUnknownMethod = errors.New("fit: unknown method")

// ErrBadBounds indicates bounds whose length does not match the guess.
var ErrBadBounds = errors.New("fit: bounds length does not match parameter count")

// Options tune the search. Zero values select defaults. Lower/Upper
// are optional box bounds; when unset the search is unconstrained and
// parameters may wander into physically meaningless ranges.
type Options struct {
	Method         Method
	Tolerance      float64
	MaxEvaluations int
	Lower          []float64
	Upper          []float64
}

// Result is the best parameter vector found, its residuals, and how
// the search terminated. The parameters are best-effort regardless of
// termination state; check Diagnostics.Success before trusting them as
// converged.
type Result struct {
	Params      []float64
	Residuals   []float64
	Diagnostics dynamo.Diagnostics
}

const boundPenaltyWeight = 1e9

// Minimize searches for the parameter vector minimizing the sum of
// squared residuals, starting from guess. The returned error covers
// setup problems only; optimizer non-convergence is reported through
// Diagnostics. No automatic restarts: retrying from a different guess
// is the caller's call.
func Minimize(obj *Objective, guess []float64, opts Options) (Result, error) {
	if opts.Lower != nil && len(opts.Lower) != len(guess) {
		return Result{}, ErrBadBounds
	}
	if opts.Upper != nil && len(opts.Upper) != len(guess) {
		return Result{}, ErrBadBounds
	}

	method, err := newMethod(opts.Method)
	if err != nil {
		return Result{}, err
	}

	tol := opts.Tolerance
	if tol <= 0 {
		tol = 1e-10
	}
	maxEvals := opts.MaxEvaluations
	if maxEvals <= 0 {
		maxEvals = 10000
	}

	objFunc := func(p []float64) float64 {
		r, _ := obj.Residuals(p)
		return 0.5*floats.Dot(r, r) + boundsPenalty(p, opts.Lower, opts.Upper)
	}
	problem := optimize.Problem{
		Func: objFunc,
		// The gradient methods estimate the local Jacobian by finite
		// differences; Nelder-Mead never asks for it.
		Grad: func(grad, p []float64) {
			fd.Gradient(grad, objFunc, p, nil)
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: maxEvals,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-15,
			Relative:   tol,
			Iterations: 50,
		},
	}

	res, optErr := optimize.Minimize(problem, append([]float64(nil), guess...), settings, method)

	out := Result{Params: append([]float64(nil), guess...)}
	var status optimize.Status
	if res != nil {
		out.Params = res.X
		status = res.Status
		out.Diagnostics.Evaluations = res.Stats.FuncEvaluations
		out.Diagnostics.Iterations = res.Stats.MajorIterations
	}

	out.Residuals, _ = obj.Residuals(out.Params)
	out.Diagnostics.ResidualNorm = norm(out.Residuals)
	out.Diagnostics.Success = optErr == nil && converged(status)
	out.Diagnostics.Message = terminationMessage(status, optErr)

	return out, nil
}

func newMethod(m Method) (optimize.Method, error) {
	switch m {
	case "", MethodNelderMead:
		return &optimize.NelderMead{}, nil
	case MethodBFGS:
		return &optimize.BFGS{}, nil
	case MethodLBFGS:
		return &optimize.LBFGS{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
	}
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.FunctionConvergence, optimize.GradientThreshold,
		optimize.FunctionThreshold, optimize.MethodConverge:
		return true
	default:
		return false
	}
}

func terminationMessage(s optimize.Status, err error) string {
	switch {
	case err != nil:
		return err.Error()
	case converged(s):
		return fmt.Sprintf("converged (%v)", s)
	case s == optimize.FunctionEvaluationLimit || s == optimize.IterationLimit:
		return fmt.Sprintf("evaluation budget exhausted (%v)", s)
	case s == optimize.StepConvergence:
		return "step size underflow"
	default:
		return fmt.Sprintf("did not converge (%v)", s)
	}
}

// boundsPenalty keeps the landscape smooth outside an optional box so
// gradient methods still see a usable slope back in.
func boundsPenalty(p, lower, upper []float64) float64 {
	pen := 0.0
	for i, v := range p {
		if lower != nil && v < lower[i] {
			d := lower[i] - v
			pen += boundPenaltyWeight * d * d
		}
		if upper != nil && v > upper[i] {
			d := v - upper[i]
			pen += boundPenaltyWeight * d * d
		}
	}
	return pen
}
