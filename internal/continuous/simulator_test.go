package continuous

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/glucosim/internal/dynamo"
	"github.com/san-kum/glucosim/internal/ode"
)

type pair struct{}

func (pair) StateNames() []string { return []string{"G", "X"} }

func zeroSlope(x dynamo.State, t float64, cfg dynamo.Config) dynamo.State {
	return dynamo.State{0, 0}
}

func decaySlope(x dynamo.State, t float64, cfg dynamo.Config) dynamo.State {
	return dynamo.State{-x[0], -x[1]}
}

func baseConfig() dynamo.Config {
	return dynamo.Config{
		Init: dynamo.State{290, 0},
		T0:   0,
		TEnd: 180,
		Dt:   2,
	}
}

func TestRunZeroSlopeNoDrift(t *testing.T) {
	sim := New(pair{}, zeroSlope, ode.NewDormandPrince(1e-8))

	at := []float64{0, 30, 60, 90, 120, 150, 180}
	traj, diag, err := sim.Run(context.Background(), baseConfig(), at)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !diag.Success {
		t.Fatalf("expected success, got %q", diag.Message)
	}

	for i, s := range traj.States {
		if s[0] != 290 || s[1] != 0 {
			t.Errorf("row %d drifted to %v, want initial state", i, s)
		}
	}
}

func TestRunExplicitEvalTimes(t *testing.T) {
	sim := New(pair{}, decaySlope, ode.NewDormandPrince(1e-8))

	cfg := baseConfig()
	cfg.TEnd = 10
	at := []float64{0, 1.5, 3, 7, 10}

	traj, diag, err := sim.Run(context.Background(), cfg, at)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !diag.Success {
		t.Fatalf("expected success, got %q", diag.Message)
	}

	if traj.Len() != len(at) {
		t.Fatalf("got %d rows, want %d", traj.Len(), len(at))
	}
	for i, tv := range at {
		if math.Abs(traj.Times[i]-tv) > 1e-9 {
			t.Errorf("row %d at t=%v, want %v", i, traj.Times[i], tv)
		}
	}
}

func TestRunDefaultGridCoversSpan(t *testing.T) {
	sim := New(pair{}, decaySlope, ode.NewDormandPrince(1e-6))

	cfg := baseConfig()
	cfg.TEnd = 5

	traj, diag, err := sim.Run(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !diag.Success {
		t.Fatalf("expected success, got %q", diag.Message)
	}

	if traj.Times[0] != 0 {
		t.Errorf("first row at %v, want t0", traj.Times[0])
	}
	last, _ := traj.Final()
	if math.Abs(last-5) > 1e-9 {
		t.Errorf("last row at %v, want tEnd", last)
	}
	for i := 1; i < traj.Len(); i++ {
		if traj.Times[i] <= traj.Times[i-1] {
			t.Fatalf("times not strictly increasing at row %d", i)
		}
	}
}

func TestRunSolverFailureIsSoft(t *testing.T) {
	solver := ode.NewDormandPrince(1e-12)
	solver.MaxSteps = 2
	sim := New(pair{}, decaySlope, solver)

	traj, diag, err := sim.Run(context.Background(), baseConfig(), nil)
	if err != nil {
		t.Fatalf("config error not expected: %v", err)
	}
	if diag.Success {
		t.Error("expected non-converged diagnostics")
	}
	if diag.Message == "" {
		t.Error("expected solver message to be echoed")
	}
	if traj == nil || traj.Len() == 0 {
		t.Error("expected best-effort partial trajectory")
	}
}

func TestRunConfigErrors(t *testing.T) {
	sim := New(pair{}, decaySlope, ode.NewDormandPrince(1e-6))

	cfg := baseConfig()
	cfg.Dt = -1
	_, _, err := sim.Run(context.Background(), cfg, nil)
	if !errors.Is(err, dynamo.ErrInvalidStep) {
		t.Errorf("got %v, want ErrInvalidStep", err)
	}

	cfg = baseConfig()
	cfg.Init = dynamo.State{1}
	_, _, err = sim.Run(context.Background(), cfg, nil)
	if !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("got %v, want ErrDimensionMismatch", err)
	}
}

func TestRunBadEvalTimesIsHardError(t *testing.T) {
	sim := New(pair{}, decaySlope, ode.NewDormandPrince(1e-6))

	_, _, err := sim.Run(context.Background(), baseConfig(), []float64{-5, 0, 10})
	if !errors.Is(err, ode.ErrEvalTimes) {
		t.Errorf("got %v, want ErrEvalTimes", err)
	}
}

func TestRunDiagnosticsCounters(t *testing.T) {
	sim := New(pair{}, decaySlope, ode.NewDormandPrince(1e-8))

	cfg := baseConfig()
	cfg.TEnd = 20
	_, diag, err := sim.Run(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if diag.Iterations == 0 || diag.Evaluations < diag.Iterations {
		t.Errorf("implausible counters: steps=%d evals=%d", diag.Iterations, diag.Evaluations)
	}
}
