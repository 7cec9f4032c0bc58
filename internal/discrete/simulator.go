package discrete

import (
	"context"
	"fmt"

	"github.com/san-kum/glucosim/internal/dynamo"
)

// Simulator advances a state in fixed steps of cfg.Dt using an update
// rule. The rule performs its own explicit step internally; the
// simulator is a pure stepping and bookkeeping harness, it does no
// numerical integration of its own.
type Simulator struct {
	fields []string
	rule   dynamo.UpdateRule
}

func New(sys dynamo.System, rule dynamo.UpdateRule) *Simulator {
	return &Simulator{fields: sys.StateNames(), rule: rule}
}

// Run produces the trajectory over [cfg.T0, cfg.TEnd] stepped by
// cfg.Dt. The initial state is recorded at T0, then each rule output
// at t+dt. When the span is not an exact multiple of dt, the final row
// falls at or before TEnd, never after. A panic inside the rule is not
// recovered.
func (s *Simulator) Run(ctx context.Context, cfg dynamo.Config) (*dynamo.Trajectory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Init) != len(s.fields) {
		return nil, fmt.Errorf("%w: state has %d fields, model expects %d",
			dynamo.ErrDimensionMismatch, len(cfg.Init), len(s.fields))
	}

	traj := dynamo.NewTrajectory(s.fields)

	x := cfg.Init.Clone()
	t := cfg.T0
	traj.Append(t, x)

	// Tolerate float accumulation when the span is an exact multiple
	// of dt, e.g. t0=0 tEnd=4 dt=2 must yield rows at 0, 2, 4.
	eps := cfg.Dt * 1e-9
	for t+cfg.Dt <= cfg.TEnd+eps {
		select {
		case <-ctx.Done():
			return traj, ctx.Err()
		default:
		}

		x = s.rule(x, t, cfg)
		t += cfg.Dt
		traj.Append(t, x)
	}

	return traj, nil
}
