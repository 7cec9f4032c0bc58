// Package fit estimates model rate constants from observed time series
// by nonlinear least squares. The Objective turns a candidate parameter
// vector into a residual vector by re-running the continuous simulator;
// the Fitter delegates the actual minimization to gonum/optimize.
package fit

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/glucosim/internal/continuous"
	"github.com/san-kum/glucosim/internal/dynamo"
)

var (
	// ErrNoObservations indicates an empty observation set.
	ErrNoObservations = errors.New("fit: no observations")

	// ErrObservationLength indicates times and values differ in length.
	ErrObservationLength = errors.New("fit: observation times and values differ in length")

	// ErrObservationOrder indicates observation times not strictly increasing.
	ErrObservationOrder = errors.New("fit: observation times not strictly increasing")
)

// Observations is the measured target series the fit matches against.
type Observations struct {
	Times  []float64
	Values []float64
}

func NewObservations(times, values []float64) (Observations, error) {
	if len(times) != len(values) {
		return Observations{}, ErrObservationLength
	}
	if len(times) == 0 {
		return Observations{}, ErrNoObservations
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return Observations{}, fmt.Errorf("%w: index %d", ErrObservationOrder, i)
		}
	}
	return Observations{Times: times, Values: values}, nil
}

// Progress is called once per objective evaluation with the candidate
// vector and its residual norm. Diagnostic only; the fit does not
// depend on it.
type Progress func(params []float64, residualNorm float64)

// Rebuild constructs a fresh simulation config from a candidate
// parameter vector. It must not mutate base.
type Rebuild func(base dynamo.Config, params []float64) dynamo.Config

// Objective maps a candidate parameter vector to the pointwise
// residuals simulated - observed at every observation time.
type Objective struct {
	base     dynamo.Config
	sim      *continuous.Simulator
	rebuild  Rebuild
	column   string
	obs      Observations
	initVal  float64
	Progress Progress
}

// NewObjective validates the base config up front so candidate
// evaluations during the search cannot hit configuration errors.
func NewObjective(base dynamo.Config, sim *continuous.Simulator, rebuild Rebuild, column string, obs Observations) (*Objective, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	if len(obs.Times) == 0 {
		return nil, ErrNoObservations
	}
	o := &Objective{base: base, sim: sim, rebuild: rebuild, column: column, obs: obs}

	// Resolve the observed column against the model fields once, and
	// remember the initial value as the fallback for fully degraded
	// trajectories.
	traj, _, err := sim.Run(context.Background(), base, []float64{base.T0})
	if err != nil {
		return nil, err
	}
	col, err := traj.Column(column)
	if err != nil {
		return nil, err
	}
	o.initVal = col[0]
	return o, nil
}

// Residuals evaluates one candidate. The residual index matches the
// observation index one to one: evaluation times are requested at
// exactly the observed times, so no interpolation is involved. When the
// solver fails to converge the residuals come from the partial
// trajectory (last value held) and the diagnostics say so; concealing
// degraded evaluations would blind the optimizer's caller.
func (o *Objective) Residuals(params []float64) ([]float64, dynamo.Diagnostics) {
	cfg := o.rebuild(o.base, params)

	traj, diag, err := o.sim.Run(context.Background(), cfg, o.obs.Times)
	if err != nil {
		// Unreachable after NewObjective validation; surface loudly.
		panic(err)
	}

	var sim []float64
	if traj != nil {
		sim, _ = traj.Column(o.column)
	}

	res := make([]float64, len(o.obs.Times))
	last := o.initVal
	for i := range res {
		if i < len(sim) {
			last = sim[i]
		}
		res[i] = last - o.obs.Values[i]
	}

	if o.Progress != nil {
		o.Progress(params, norm(res))
	}
	return res, diag
}

func norm(r []float64) float64 {
	sum := 0.0
	for _, v := range r {
		sum += v * v
	}
	return math.Sqrt(sum)
}
