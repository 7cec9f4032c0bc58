// Package continuous runs a slope rule through the adaptive ODE solver.
// It owns all bridging between the named model state and the positional
// vector form the solver works in, so nothing else in the module
// reasons about positional vectors.
package continuous

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/glucosim/internal/dynamo"
	"github.com/san-kum/glucosim/internal/ode"
)

type Simulator struct {
	fields []string
	rule   dynamo.SlopeRule
	solver ode.Solver
}

func New(sys dynamo.System, rule dynamo.SlopeRule, solver ode.Solver) *Simulator {
	return &Simulator{fields: sys.StateNames(), rule: rule, solver: solver}
}

// Run integrates cfg over [T0, TEnd]. When at is non-nil the trajectory
// has exactly one row per requested time, in request order; otherwise
// the solver's own adaptive grid is reported.
//
// The returned error covers configuration problems only. Solver
// non-convergence is soft: Diagnostics carries the solver's verdict and
// the partial trajectory is still returned, so a fitting loop can judge
// degraded evaluations itself. A panic inside the rule is not
// recovered.
func (s *Simulator) Run(ctx context.Context, cfg dynamo.Config, at []float64) (*dynamo.Trajectory, dynamo.Diagnostics, error) {
	if err := cfg.Validate(); err != nil {
		return nil, dynamo.Diagnostics{}, err
	}
	n := len(s.fields)
	if len(cfg.Init) != n {
		return nil, dynamo.Diagnostics{}, fmt.Errorf("%w: state has %d fields, model expects %d",
			dynamo.ErrDimensionMismatch, len(cfg.Init), n)
	}

	// Adapt the named-state slope rule to the solver's positional
	// calling convention. Single-threaded, so one scratch state is fine.
	x := make(dynamo.State, n)
	f := func(t float64, y mat.Vector, dy *mat.VecDense) {
		for i := 0; i < n; i++ {
			x[i] = y.AtVec(i)
		}
		d := s.rule(x, t, cfg)
		for i := 0; i < n; i++ {
			dy.SetVec(i, d[i])
		}
	}

	y0 := mat.NewVecDense(n, nil)
	for i, v := range cfg.Init {
		y0.SetVec(i, v)
	}

	sol, solveErr := s.solver.Solve(ctx, f, y0, cfg.T0, cfg.TEnd, at)
	// Rejected spans and eval grids are caller mistakes, not solver
	// non-convergence, and stay hard errors.
	if errors.Is(solveErr, ode.ErrSpan) || errors.Is(solveErr, ode.ErrEvalTimes) {
		return nil, dynamo.Diagnostics{}, solveErr
	}

	traj := dynamo.NewTrajectory(s.fields)
	if sol != nil {
		for i, tv := range sol.Times {
			row := make(dynamo.State, n)
			for j := 0; j < n; j++ {
				row[j] = sol.States[i].AtVec(j)
			}
			traj.Append(tv, row)
		}
	}

	diag := dynamo.Diagnostics{Success: solveErr == nil}
	if solveErr != nil {
		diag.Message = solveErr.Error()
	} else {
		diag.Message = "integration converged within tolerance"
	}
	if sol != nil {
		diag.Evaluations = sol.Stats.Evaluations
		diag.Iterations = sol.Stats.Steps
	}

	return traj, diag, nil
}
