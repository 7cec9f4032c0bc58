// Package metrics scores fit quality from residual streams, in the
// Observe/Value/Reset style used by the simulators' observers.
package metrics

import "math"

type Metric interface {
	Name() string
	Observe(residual float64)
	Value() float64
	Reset()
}

// RMSE is the root mean squared residual.
type RMSE struct {
	sumSq   float64
	samples int
}

func NewRMSE() *RMSE { return &RMSE{} }

func (m *RMSE) Name() string { return "rmse" }

func (m *RMSE) Observe(r float64) {
	m.sumSq += r * r
	m.samples++
}

func (m *RMSE) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return math.Sqrt(m.sumSq / float64(m.samples))
}

func (m *RMSE) Reset() {
	m.sumSq = 0
	m.samples = 0
}

// MaxAbs is the largest absolute residual seen.
type MaxAbs struct {
	max float64
}

func NewMaxAbs() *MaxAbs { return &MaxAbs{} }

func (m *MaxAbs) Name() string { return "max_abs_error" }

func (m *MaxAbs) Observe(r float64) {
	m.max = math.Max(m.max, math.Abs(r))
}

func (m *MaxAbs) Value() float64 { return m.max }

func (m *MaxAbs) Reset() { m.max = 0 }

// Collect runs a residual slice through each metric and returns the
// values keyed by metric name.
func Collect(residuals []float64, ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		for _, r := range residuals {
			m.Observe(r)
		}
		out[m.Name()] = m.Value()
	}
	return out
}
