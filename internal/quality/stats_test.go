package quality

import (
	"math"
	"testing"
)

func TestQuantile(t *testing.T) {
	t.Run("empty input is NaN", func(t *testing.T) {
		if !math.IsNaN(quantile(nil, 0.95)) {
			t.Error("expected NaN")
		}
	})

	t.Run("median of even count interpolates", func(t *testing.T) {
		if got := median([]float64{33, 400, 34, 33}); got != 33.5 {
			t.Errorf("expected 33.5, got %v", got)
		}
	})

	t.Run("median of odd count is middle value", func(t *testing.T) {
		if got := median([]float64{3, 1, 2}); got != 2 {
			t.Errorf("expected 2, got %v", got)
		}
	})

	t.Run("p95 interpolates between order statistics", func(t *testing.T) {
		// positions 0..4, p95 at index 3.8: 4*0.2 + 5*0.8 = 4.8
		if got := quantile([]float64{1, 2, 3, 4, 5}, 0.95); !almostEqual(got, 4.8, 1e-9) {
			t.Errorf("expected 4.8, got %v", got)
		}
	})

	t.Run("does not mutate input", func(t *testing.T) {
		in := []float64{3, 1, 2}
		_ = quantile(in, 0.5)
		if in[0] != 3 || in[1] != 1 || in[2] != 2 {
			t.Errorf("input mutated: %v", in)
		}
	})
}

func TestPopStd(t *testing.T) {
	// population std, divisor N: mean 32, squared devs 4+16+16+4
	got := popStd([]float64{30, 36, 28, 34})
	if !almostEqual(got, math.Sqrt(10), 1e-9) {
		t.Errorf("expected sqrt(10), got %v", got)
	}
	if popStd([]float64{5, 5, 5}) != 0 {
		t.Error("expected 0 for constant series")
	}
	if !math.IsNaN(popStd(nil)) {
		t.Error("expected NaN for empty series")
	}
}
