package interp

import (
	"errors"
	"math"
	"testing"
)

func TestLinearHitsSamples(t *testing.T) {
	times := []float64{0, 10, 20, 30}
	values := []float64{90, 300, 180, 100}

	sig, err := Linear(times, values)
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	for i, tv := range times {
		if got := sig(tv); math.Abs(got-values[i]) > 1e-12 {
			t.Errorf("sig(%v) = %v, want %v", tv, got, values[i])
		}
	}

	// Midpoint of a linear segment.
	if got := sig(5); math.Abs(got-195) > 1e-12 {
		t.Errorf("sig(5) = %v, want 195", got)
	}
}

func TestShapePreservingHitsSamples(t *testing.T) {
	times := []float64{0, 10, 20, 30}
	values := []float64{11, 130, 80, 20}

	sig, err := ShapePreserving(times, values)
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	for i, tv := range times {
		if got := sig(tv); math.Abs(got-values[i]) > 1e-9 {
			t.Errorf("sig(%v) = %v, want %v", tv, got, values[i])
		}
	}
}

func TestConstant(t *testing.T) {
	sig := Constant(11)
	if sig(0) != 11 || sig(1e6) != 11 {
		t.Error("constant signal not constant")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		times  []float64
		values []float64
		want   error
	}{
		{"length mismatch", []float64{0, 1}, []float64{1}, ErrLengthMismatch},
		{"single point", []float64{0}, []float64{1}, ErrTooFewPoints},
		{"repeated time", []float64{0, 1, 1}, []float64{1, 2, 3}, ErrNotIncreasing},
		{"decreasing", []float64{0, 2, 1}, []float64{1, 2, 3}, ErrNotIncreasing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Linear(tt.times, tt.values); !errors.Is(err, tt.want) {
				t.Errorf("Linear: got %v, want %v", err, tt.want)
			}
			if _, err := ShapePreserving(tt.times, tt.values); !errors.Is(err, tt.want) {
				t.Errorf("ShapePreserving: got %v, want %v", err, tt.want)
			}
		})
	}
}
