package ode

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Dormand-Prince 4(5) coefficients.
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// DormandPrince is an adaptive-step solver. The zero value is not
// usable; construct with NewDormandPrince.
type DormandPrince struct {
	Tolerance float64
	MinStep   float64
	MaxSteps  int

	safety   float64
	minScale float64
	maxScale float64
}

func NewDormandPrince(tol float64) *DormandPrince {
	if tol <= 0 {
		tol = 1e-6
	}
	return &DormandPrince{
		Tolerance: tol,
		MinStep:   1e-12,
		MaxSteps:  100000,
		safety:    0.9,
		minScale:  0.2,
		maxScale:  10.0,
	}
}

func (s *DormandPrince) Solve(ctx context.Context, f Func, y0 mat.Vector, t0, tEnd float64, at []float64) (*Solution, error) {
	if tEnd < t0 {
		return nil, fmt.Errorf("%w: [%g, %g]", ErrSpan, t0, tEnd)
	}
	if err := checkEvalTimes(at, t0, tEnd); err != nil {
		return nil, err
	}

	n := y0.Len()
	y := mat.NewVecDense(n, nil)
	y.CopyVec(y0)

	sol := &Solution{}
	t := t0
	tiny := math.Max(1e-12, 1e-12*math.Abs(tEnd-t0))

	// Output bookkeeping: either every accepted step, or exactly the
	// requested times.
	ai := 0
	record := func() {
		if at == nil {
			row := mat.NewVecDense(n, nil)
			row.CopyVec(y)
			sol.Times = append(sol.Times, t)
			sol.States = append(sol.States, row)
			return
		}
		for ai < len(at) && at[ai] <= t+tiny {
			row := mat.NewVecDense(n, nil)
			row.CopyVec(y)
			sol.Times = append(sol.Times, at[ai])
			sol.States = append(sol.States, row)
			ai++
		}
	}
	record()

	if tEnd-t0 <= tiny {
		return sol, nil
	}

	k := make([]*mat.VecDense, 7)
	for i := range k {
		k[i] = mat.NewVecDense(n, nil)
	}
	ytmp := mat.NewVecDense(n, nil)
	ynew := mat.NewVecDense(n, nil)

	h := (tEnd - t0) / 100

	for t < tEnd-tiny {
		select {
		case <-ctx.Done():
			return sol, ctx.Err()
		default:
		}

		if sol.Stats.Steps+sol.Stats.Rejected >= s.MaxSteps {
			return sol, fmt.Errorf("%w (%d) at t=%g", ErrMaxSteps, s.MaxSteps, t)
		}

		hTry := math.Min(h, tEnd-t)
		// Land exactly on the next requested output time.
		if at != nil && ai < len(at) && at[ai] > t+tiny && at[ai]-t < hTry {
			hTry = at[ai] - t
		}

		errRatio := s.attempt(f, t, hTry, y, k, ytmp, ynew)
		sol.Stats.Evaluations += 7

		if errRatio <= 1 {
			t += hTry
			y.CopyVec(ynew)
			sol.Stats.Steps++
			sol.Stats.LastStep = hTry
			record()

			if errRatio > 0 {
				h = hTry * math.Min(s.maxScale, s.safety*math.Pow(errRatio, -0.2))
			} else {
				h = hTry * s.maxScale
			}
			continue
		}

		sol.Stats.Rejected++
		h = hTry * math.Max(s.minScale, s.safety*math.Pow(errRatio, -0.25))
		if h < s.MinStep {
			return sol, fmt.Errorf("%w: h=%g at t=%g", ErrStepUnderflow, h, t)
		}
	}

	return sol, nil
}

// attempt performs one trial step of size h from (t, y), writing the
// fifth-order result into ynew and returning the scaled error estimate
// relative to the tolerance.
func (s *DormandPrince) attempt(f Func, t, h float64, y *mat.VecDense, k []*mat.VecDense, ytmp, ynew *mat.VecDense) float64 {
	f(t, y, k[0])

	ytmp.CopyVec(y)
	ytmp.AddScaledVec(ytmp, h*b21, k[0])
	f(t+a2*h, ytmp, k[1])

	ytmp.CopyVec(y)
	ytmp.AddScaledVec(ytmp, h*b31, k[0])
	ytmp.AddScaledVec(ytmp, h*b32, k[1])
	f(t+a3*h, ytmp, k[2])

	ytmp.CopyVec(y)
	ytmp.AddScaledVec(ytmp, h*b41, k[0])
	ytmp.AddScaledVec(ytmp, h*b42, k[1])
	ytmp.AddScaledVec(ytmp, h*b43, k[2])
	f(t+a4*h, ytmp, k[3])

	ytmp.CopyVec(y)
	ytmp.AddScaledVec(ytmp, h*b51, k[0])
	ytmp.AddScaledVec(ytmp, h*b52, k[1])
	ytmp.AddScaledVec(ytmp, h*b53, k[2])
	ytmp.AddScaledVec(ytmp, h*b54, k[3])
	f(t+a5*h, ytmp, k[4])

	ytmp.CopyVec(y)
	ytmp.AddScaledVec(ytmp, h*b61, k[0])
	ytmp.AddScaledVec(ytmp, h*b62, k[1])
	ytmp.AddScaledVec(ytmp, h*b63, k[2])
	ytmp.AddScaledVec(ytmp, h*b64, k[3])
	ytmp.AddScaledVec(ytmp, h*b65, k[4])
	f(t+h, ytmp, k[5])

	ynew.CopyVec(y)
	ynew.AddScaledVec(ynew, h*c1, k[0])
	ynew.AddScaledVec(ynew, h*c3, k[2])
	ynew.AddScaledVec(ynew, h*c4, k[3])
	ynew.AddScaledVec(ynew, h*c5, k[4])
	ynew.AddScaledVec(ynew, h*c6, k[5])

	f(t+h, ynew, k[6])

	errMax := 0.0
	for i := 0; i < y.Len(); i++ {
		errEst := h * (dc1*k[0].AtVec(i) + dc3*k[2].AtVec(i) + dc4*k[3].AtVec(i) +
			dc5*k[4].AtVec(i) + dc6*k[5].AtVec(i) + dc7*k[6].AtVec(i))
		scale := math.Abs(y.AtVec(i)) + math.Abs(h*k[0].AtVec(i)) + 1e-10
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}

	return errMax / s.Tolerance
}

func checkEvalTimes(at []float64, t0, tEnd float64) error {
	if at == nil {
		return nil
	}
	if len(at) == 0 {
		return fmt.Errorf("%w: empty", ErrEvalTimes)
	}
	for i, tv := range at {
		if tv < t0 || tv > tEnd {
			return fmt.Errorf("%w: t=%g outside [%g, %g]", ErrEvalTimes, tv, t0, tEnd)
		}
		if i > 0 && tv <= at[i-1] {
			return fmt.Errorf("%w: not strictly increasing at index %d", ErrEvalTimes, i)
		}
	}
	return nil
}
