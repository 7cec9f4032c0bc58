// Package config loads and saves YAML scenario files describing one
// simulation or fit setup.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/glucosim/internal/dynamo"
	"github.com/san-kum/glucosim/internal/fit"
	"github.com/san-kum/glucosim/internal/model"
)

const (
	DefaultK1        = 0.03
	DefaultK2        = 0.02
	DefaultK3        = 1e-5
	DefaultG0        = 290.0
	DefaultTEnd      = 180.0
	DefaultDt        = 2.0
	DefaultTolerance = 1e-8
)

type Scenario struct {
	Params ParamsConfig `yaml:"params"`
	Init   InitConfig   `yaml:"init_state"`
	Span   SpanConfig   `yaml:"span"`
	Solver SolverConfig `yaml:"solver"`
	Data   DataConfig   `yaml:"data"`
	Fit    FitConfig    `yaml:"fit"`
}

type ParamsConfig struct {
	K1 float64 `yaml:"k1"`
	K2 float64 `yaml:"k2"`
	K3 float64 `yaml:"k3"`
	Gb float64 `yaml:"gb"`
	Ib float64 `yaml:"ib"`
}

type InitConfig struct {
	G float64 `yaml:"g"`
	X float64 `yaml:"x"`
}

type SpanConfig struct {
	T0   float64 `yaml:"t0"`
	TEnd float64 `yaml:"t_end"`
	Dt   float64 `yaml:"dt"`
}

type SolverConfig struct {
	Tolerance float64 `yaml:"tolerance"`
}

type DataConfig struct {
	Path          string `yaml:"path"`
	TimeColumn    string `yaml:"time_column"`
	GlucoseColumn string `yaml:"glucose_column"`
	InsulinColumn string `yaml:"insulin_column"`
}

type FitConfig struct {
	Method         string    `yaml:"method"`
	Tolerance      float64   `yaml:"tolerance"`
	MaxEvaluations int       `yaml:"max_evaluations"`
	Guess          []float64 `yaml:"guess"`
	Lower          []float64 `yaml:"lower,omitempty"`
	Upper          []float64 `yaml:"upper,omitempty"`
}

func DefaultScenario() *Scenario {
	return &Scenario{
		Params: ParamsConfig{K1: DefaultK1, K2: DefaultK2, K3: DefaultK3, Gb: 90, Ib: 11},
		Init:   InitConfig{G: DefaultG0, X: 0},
		Span:   SpanConfig{T0: 0, TEnd: DefaultTEnd, Dt: DefaultDt},
		Solver: SolverConfig{Tolerance: DefaultTolerance},
		Data: DataConfig{
			TimeColumn:    "t",
			GlucoseColumn: "glucose",
			InsulinColumn: "insulin",
		},
		Fit: FitConfig{
			Method:         string(fit.MethodNelderMead),
			Tolerance:      1e-10,
			MaxEvaluations: 10000,
			Guess:          []float64{DefaultK1, DefaultK2, DefaultK3},
		},
	}
}

// Load reads a scenario, starting from defaults so partial files work.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := DefaultScenario()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

func Save(path string, s *Scenario) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// BuildConfig assembles a simulation config from the scenario and an
// insulin signal (interpolated from data, or constant basal).
func (s *Scenario) BuildConfig(insulin dynamo.Signal) dynamo.Config {
	return dynamo.Config{
		Params: dynamo.Params{
			K1: s.Params.K1, K2: s.Params.K2, K3: s.Params.K3,
			Gb: s.Params.Gb, Ib: s.Params.Ib,
		},
		Init: dynamo.State{s.Init.G, s.Init.X},
		T0:   s.Span.T0,
		TEnd: s.Span.TEnd,
		Dt:   s.Span.Dt,
		Inputs: map[string]dynamo.Signal{
			model.InsulinInput: insulin,
		},
	}
}

// FitOptions translates the fit section into fitter options.
func (s *Scenario) FitOptions() fit.Options {
	return fit.Options{
		Method:         fit.Method(s.Fit.Method),
		Tolerance:      s.Fit.Tolerance,
		MaxEvaluations: s.Fit.MaxEvaluations,
		Lower:          s.Fit.Lower,
		Upper:          s.Fit.Upper,
	}
}
