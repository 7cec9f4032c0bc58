package fit

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/glucosim/internal/continuous"
	"github.com/san-kum/glucosim/internal/dynamo"
	"github.com/san-kum/glucosim/internal/interp"
	"github.com/san-kum/glucosim/internal/model"
	"github.com/san-kum/glucosim/internal/ode"
)

var trueRates = []float64{0.03, 0.02, 1e-5}

// insulinBump is a peaked insulin curve; with a flat curve k3 would be
// unidentifiable.
func insulinBump(t *testing.T) dynamo.Signal {
	t.Helper()
	sig, err := interp.Linear(
		[]float64{0, 10, 20, 40, 80, 180},
		[]float64{11, 130, 85, 51, 20, 11},
	)
	if err != nil {
		t.Fatalf("insulin signal: %v", err)
	}
	return sig
}

func fitConfig(t *testing.T) dynamo.Config {
	return dynamo.Config{
		Params: dynamo.Params{K1: trueRates[0], K2: trueRates[1], K3: trueRates[2], Gb: 90, Ib: 11},
		Init:   dynamo.State{290, 0},
		T0:     0,
		TEnd:   180,
		Dt:     2,
		Inputs: map[string]dynamo.Signal{model.InsulinInput: insulinBump(t)},
	}
}

func newSimulator() *continuous.Simulator {
	m := model.Minimal{}
	return continuous.New(m, m.Slope, ode.NewDormandPrince(1e-8))
}

// synthetic generates zero-noise observations from the true rates.
func synthetic(t *testing.T, sim *continuous.Simulator, cfg dynamo.Config) Observations {
	t.Helper()
	times := make([]float64, 0, 19)
	for tv := 0.0; tv <= 180; tv += 10 {
		times = append(times, tv)
	}
	traj, diag, err := sim.Run(context.Background(), cfg, times)
	if err != nil || !diag.Success {
		t.Fatalf("synthetic run failed: err=%v diag=%+v", err, diag)
	}
	g, err := traj.Column("G")
	if err != nil {
		t.Fatalf("column: %v", err)
	}
	obs, err := NewObservations(times, g)
	if err != nil {
		t.Fatalf("observations: %v", err)
	}
	return obs
}

func newObjective(t *testing.T) *Objective {
	t.Helper()
	sim := newSimulator()
	cfg := fitConfig(t)
	obs := synthetic(t, sim, cfg)
	obj, err := NewObjective(cfg, sim, model.ConfigWithRates, "G", obs)
	if err != nil {
		t.Fatalf("objective: %v", err)
	}
	return obj
}

func TestNewObservationsValidation(t *testing.T) {
	tests := []struct {
		name   string
		times  []float64
		values []float64
		want   error
	}{
		{"empty", nil, nil, ErrNoObservations},
		{"length", []float64{1, 2}, []float64{1}, ErrObservationLength},
		{"order", []float64{0, 2, 2}, []float64{1, 2, 3}, ErrObservationOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewObservations(tt.times, tt.values); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestResidualsMatchObservationIndex(t *testing.T) {
	obj := newObjective(t)

	res, diag := obj.Residuals([]float64{0.02, 0.03, 2e-5})
	if len(res) != len(obj.obs.Times) {
		t.Fatalf("got %d residuals for %d observations", len(res), len(obj.obs.Times))
	}
	if !diag.Success {
		t.Errorf("integration should converge here: %s", diag.Message)
	}
}

func TestResidualsZeroAtTruth(t *testing.T) {
	obj := newObjective(t)

	res, _ := obj.Residuals(trueRates)
	if n := norm(res); n > 1e-4 {
		t.Errorf("residual norm at true rates = %v, want ~0", n)
	}
}

func TestResidualsProgressCallback(t *testing.T) {
	obj := newObjective(t)

	var calls int
	obj.Progress = func(p []float64, rn float64) {
		calls++
		if len(p) != model.RateCount {
			t.Errorf("progress saw %d params", len(p))
		}
	}
	obj.Residuals(trueRates)
	obj.Residuals([]float64{0.02, 0.03, 2e-5})
	if calls != 2 {
		t.Errorf("progress called %d times, want 2", calls)
	}
}

func TestMinimizeFromTruthStaysAtTruth(t *testing.T) {
	obj := newObjective(t)

	res, err := Minimize(obj, append([]float64(nil), trueRates...), Options{})
	if err != nil {
		t.Fatalf("minimize failed: %v", err)
	}
	if !res.Diagnostics.Success {
		t.Fatalf("expected convergence, got %q", res.Diagnostics.Message)
	}
	for i, want := range trueRates {
		rel := math.Abs(res.Params[i]-want) / want
		if rel > 1e-3 {
			t.Errorf("param %d = %v, want %v (rel %v)", i, res.Params[i], want, rel)
		}
	}
}

func TestMinimizeRecoversRatesFromPerturbedGuess(t *testing.T) {
	obj := newObjective(t)

	guess := []float64{0.02, 0.03, 2e-5}
	res, err := Minimize(obj, guess, Options{MaxEvaluations: 20000})
	if err != nil {
		t.Fatalf("minimize failed: %v", err)
	}
	if !res.Diagnostics.Success {
		t.Fatalf("expected convergence, got %q", res.Diagnostics.Message)
	}
	for i, want := range trueRates {
		rel := math.Abs(res.Params[i]-want) / want
		if rel > 0.05 {
			t.Errorf("param %d = %v, want %v (rel %v)", i, res.Params[i], want, rel)
		}
	}
	if res.Diagnostics.ResidualNorm > 1e-2 {
		t.Errorf("final residual norm %v, want near zero", res.Diagnostics.ResidualNorm)
	}
}

func TestMinimizeIsDeterministic(t *testing.T) {
	obj := newObjective(t)
	guess := []float64{0.02, 0.03, 2e-5}

	first, err := Minimize(obj, guess, Options{})
	if err != nil {
		t.Fatalf("minimize failed: %v", err)
	}
	second, err := Minimize(obj, guess, Options{})
	if err != nil {
		t.Fatalf("minimize failed: %v", err)
	}

	for i := range first.Params {
		if first.Params[i] != second.Params[i] {
			t.Errorf("param %d differs between identical runs: %v vs %v",
				i, first.Params[i], second.Params[i])
		}
	}
}

func TestMinimizeEvaluationLimitIsSoft(t *testing.T) {
	obj := newObjective(t)

	res, err := Minimize(obj, []float64{0.02, 0.03, 2e-5}, Options{MaxEvaluations: 5})
	if err != nil {
		t.Fatalf("minimize failed: %v", err)
	}
	if res.Diagnostics.Success {
		t.Error("expected non-converged diagnostics under a 5-eval budget")
	}
	if len(res.Params) != model.RateCount {
		t.Error("expected best-effort params regardless of termination")
	}
}

func TestMinimizeBounds(t *testing.T) {
	obj := newObjective(t)

	_, err := Minimize(obj, trueRates, Options{Lower: []float64{0}})
	if !errors.Is(err, ErrBadBounds) {
		t.Errorf("got %v, want ErrBadBounds", err)
	}

	res, err := Minimize(obj, []float64{0.02, 0.03, 2e-5}, Options{
		Lower: []float64{0, 0, 0},
		Upper: []float64{1, 1, 1e-3},
	})
	if err != nil {
		t.Fatalf("minimize failed: %v", err)
	}
	for i, v := range res.Params {
		if v < -1e-6 {
			t.Errorf("param %d = %v escaped the lower bound", i, v)
		}
	}
}

func TestMinimizeUnknownMethod(t *testing.T) {
	obj := newObjective(t)
	_, err := Minimize(obj, trueRates, Options{Method: "annealing"})
	if !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("got %v, want ErrUnknownMethod", err)
	}
}
