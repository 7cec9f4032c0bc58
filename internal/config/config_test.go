package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/glucosim/internal/interp"
	"github.com/san-kum/glucosim/internal/model"
)

func TestDefaultScenarioBuildsValidConfig(t *testing.T) {
	s := DefaultScenario()
	cfg := s.BuildConfig(interp.Constant(s.Params.Ib))

	if err := (model.Minimal{}).Validate(cfg); err != nil {
		t.Fatalf("default scenario invalid: %v", err)
	}
	if cfg.Params.K1 != DefaultK1 || cfg.Dt != DefaultDt {
		t.Error("defaults not carried into config")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	content := "params:\n  k1: 0.05\nspan:\n  t_end: 120\nfit:\n  method: bfgs\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if s.Params.K1 != 0.05 {
		t.Errorf("k1 = %v, want 0.05", s.Params.K1)
	}
	if s.Span.TEnd != 120 {
		t.Errorf("t_end = %v, want 120", s.Span.TEnd)
	}
	if s.Fit.Method != "bfgs" {
		t.Errorf("method = %q, want bfgs", s.Fit.Method)
	}
	// Untouched fields keep defaults.
	if s.Params.K2 != DefaultK2 {
		t.Errorf("k2 = %v, want default", s.Params.K2)
	}
	if s.Data.GlucoseColumn != "glucose" {
		t.Errorf("glucose column = %q, want default", s.Data.GlucoseColumn)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")

	s := DefaultScenario()
	s.Params.K3 = 4.2e-5
	s.Fit.Lower = []float64{0, 0, 0}

	if err := Save(path, s); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if got.Params.K3 != 4.2e-5 {
		t.Errorf("k3 = %v, want 4.2e-5", got.Params.K3)
	}
	if len(got.Fit.Lower) != 3 {
		t.Errorf("lower bounds = %v", got.Fit.Lower)
	}
}
