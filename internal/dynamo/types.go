package dynamo

import (
	"fmt"
	"math"
)

// State is one instant of the simulated system, positional. Field names
// are carried by the model (see System) and are fixed for a whole run.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Signal is a time-varying input, valid over the configured span.
type Signal func(t float64) float64

// Params holds the named scalar parameters of the glucose minimal model.
// K1 is glucose effectiveness, K2 the decay rate of remote insulin
// action, K3 the gain from plasma insulin to remote action. Gb and Ib
// are the basal (first-sample) glucose and insulin levels.
type Params struct {
	K1 float64
	K2 float64
	K3 float64
	Gb float64
	Ib float64
}

// Config is one complete simulation setup. It is treated as read-only:
// every simulation or fit trial builds a fresh value, nothing mutates a
// Config after construction.
type Config struct {
	Params Params
	Init   State
	T0     float64
	TEnd   float64
	Dt     float64
	Inputs map[string]Signal
}

func (c Config) Validate() error {
	if c.T0 > c.TEnd {
		return fmt.Errorf("%w: t0=%g > tEnd=%g", ErrInvalidSpan, c.T0, c.TEnd)
	}
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt=%g", ErrInvalidStep, c.Dt)
	}
	if len(c.Init) == 0 {
		return ErrMissingInit
	}
	if !c.Init.IsValid() {
		return ErrInvalidState
	}
	return nil
}

// Input returns the named signal; a missing signal is a configuration
// error and surfaces before any stepping starts.
func (c Config) Input(name string) (Signal, error) {
	sig, ok := c.Inputs[name]
	if !ok || sig == nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingInput, name)
	}
	return sig, nil
}

// UpdateRule advances the state by one discrete step of cfg.Dt. The rule
// performs its own explicit step internally; the simulator only books.
type UpdateRule func(x State, t float64, cfg Config) State

// SlopeRule returns the instantaneous derivative of each state field,
// in field order.
type SlopeRule func(x State, t float64, cfg Config) State

// System names the state fields of a model. Simulators use the names to
// label trajectory columns.
type System interface {
	StateNames() []string
}

// Trajectory is the time-indexed result table of one run. Times are
// strictly increasing; States[i] is the state at Times[i].
type Trajectory struct {
	Fields []string
	Times  []float64
	States []State
}

func NewTrajectory(fields []string) *Trajectory {
	return &Trajectory{Fields: fields}
}

func (tr *Trajectory) Len() int { return len(tr.Times) }

func (tr *Trajectory) Append(t float64, x State) {
	tr.Times = append(tr.Times, t)
	tr.States = append(tr.States, x.Clone())
}

// Column returns the series for one named state field.
func (tr *Trajectory) Column(name string) ([]float64, error) {
	idx := -1
	for i, f := range tr.Fields {
		if f == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: column %q", ErrUnknownField, name)
	}
	col := make([]float64, len(tr.States))
	for i, s := range tr.States {
		col[i] = s[idx]
	}
	return col, nil
}

// Final returns the last recorded time and state.
func (tr *Trajectory) Final() (float64, State) {
	n := len(tr.Times)
	if n == 0 {
		return 0, nil
	}
	return tr.Times[n-1], tr.States[n-1]
}

// Diagnostics reports how a solver or optimizer terminated. Callers
// must check Success before trusting the accompanying trajectory or
// parameter vector as a converged result.
type Diagnostics struct {
	Success      bool
	Message      string
	Evaluations  int
	Iterations   int
	ResidualNorm float64
}
