// Package model implements the Bergman minimal model of glucose/insulin
// dynamics: plasma glucose G and the remote insulin effect X.
//
//	dG/dt = -(k1 + X)*G + k1*Gb
//	dX/dt = -k2*X + k3*(I(t) - Ib)
//
// I(t) is the interpolated plasma insulin input, Gb and Ib the basal
// levels taken from the first observed sample.
package model

import (
	"github.com/san-kum/glucosim/internal/dynamo"
)

// State field order.
const (
	G = iota
	X
)

// InsulinInput names the required input signal in Config.Inputs.
const InsulinInput = "insulin"

type Minimal struct{}

func (Minimal) StateNames() []string { return []string{"G", "X"} }

// Validate checks the model's own config requirements beyond the
// generic ones, so a missing insulin signal is rejected before any
// stepping starts rather than blowing up inside the rule.
func (Minimal) Validate(cfg dynamo.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	_, err := cfg.Input(InsulinInput)
	return err
}

// Slope is the continuous-time rule: the instantaneous derivative of
// each field, in field order.
func (Minimal) Slope(x dynamo.State, t float64, cfg dynamo.Config) dynamo.State {
	ins, err := cfg.Input(InsulinInput)
	if err != nil {
		panic(err)
	}
	p := cfg.Params
	dG := -(p.K1+x[X])*x[G] + p.K1*p.Gb
	dX := -p.K2*x[X] + p.K3*(ins(t)-p.Ib)
	return dynamo.State{dG, dX}
}

// Update is the discrete-time rule: one explicit Euler step of cfg.Dt,
// performed inside the rule. The discrete simulator only books the
// result.
func (m Minimal) Update(x dynamo.State, t float64, cfg dynamo.Config) dynamo.State {
	d := m.Slope(x, t, cfg)
	return dynamo.State{
		x[G] + cfg.Dt*d[G],
		x[X] + cfg.Dt*d[X],
	}
}

// RateCount is the number of fitted rate constants.
const RateCount = 3

// ConfigWithRates rebuilds a fresh Config from a candidate rate vector
// [k1 k2 k3], leaving everything else as in base. The base value is
// never mutated, so fit trials stay independent.
func ConfigWithRates(base dynamo.Config, rates []float64) dynamo.Config {
	cfg := base
	cfg.Params.K1 = rates[0]
	cfg.Params.K2 = rates[1]
	cfg.Params.K3 = rates[2]
	return cfg
}

// Rates extracts the fitted-parameter vector from a config, in the
// order ConfigWithRates expects.
func Rates(cfg dynamo.Config) []float64 {
	return []float64{cfg.Params.K1, cfg.Params.K2, cfg.Params.K3}
}
