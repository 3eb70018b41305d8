package quality

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// quantile returns the q-th quantile (0 <= q <= 1) of xs using linear
// interpolation between neighbouring order statistics. gonum's stat.Quantile
// offers empirical and midpoint cumulant kinds but not this estimator, and
// the report numbers are defined in terms of it, so it stays local.
func quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func median(xs []float64) float64 {
	return quantile(xs, 0.5)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.Mean(xs, nil)
}

// popStd is the population standard deviation (divisor N, not N-1), which is
// what the jitter spread is defined over.
func popStd(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.PopStdDev(xs, nil)
}

func maxOf(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return floats.Max(xs)
}

// finiteOnly returns the finite values of xs. A frame with a missing
// timestamp cell yields NaN deltas on both sides; the miss itself is already
// counted by nanCounts, so the deltas carry no extra information.
func finiteOnly(xs []float64) []float64 {
	out := xs[:0:0]
	for _, v := range xs {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
