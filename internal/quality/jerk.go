package quality

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// jerkStats are one episode's motion-roughness numbers. NaN fields mean the
// episode produced no usable jerk series and is excluded from aggregation.
type jerkStats struct {
	mean float64
	max  float64
	p95  float64
}

func noJerk() jerkStats {
	return jerkStats{mean: math.NaN(), max: math.NaN(), p95: math.NaN()}
}

// ok reports whether the stats are usable for aggregation. A non-finite
// mean (NaN cells in the signal, or no jerk series at all) implies the whole
// set is non-finite; such episodes must stay out of the report so its
// numeric fields remain either a real number or null.
func (j jerkStats) ok() bool {
	return !math.IsNaN(j.mean) && !math.IsInf(j.mean, 0)
}

// computeJerk quantifies motion roughness of a selected vector signal by
// triple finite differencing against a uniform time step. The step is the
// median of the episode's normalized deltas (or the nominal frame period
// when no timestamp series of matching length exists); using a single
// uniform step keeps the derivative chain stable against local jitter.
//
// The jerk series has N-3 samples; episodes shorter than 4 frames yield NaN
// stats.
func computeJerk(vec [][]float64, tsRaw []float64, fps float64) jerkStats {
	n := len(vec)
	if n < 4 {
		return noJerk()
	}

	var dts []float64
	if len(tsRaw) != n {
		dtMs := 1000.0 / fps
		dts = make([]float64, n-1)
		for i := range dts {
			dts[i] = dtMs
		}
	} else {
		dts = NormalizeToMilliseconds(finiteOnly(diffs(tsRaw)))
		replaceNonPositive(dts)
	}
	if len(dts) == 0 {
		return noJerk()
	}

	dtS := median(dts) / 1000.0

	v := diffRows(vec, dtS)
	a := diffRows(v, dtS)
	j := diffRows(a, dtS)

	norms := make([]float64, len(j))
	for i, row := range j {
		norms[i] = floats.Norm(row, 2)
	}
	if len(norms) == 0 {
		return noJerk()
	}
	return jerkStats{
		mean: mean(norms),
		max:  maxOf(norms),
		p95:  quantile(norms, 0.95),
	}
}

// replaceNonPositive substitutes zero or negative deltas with the median of
// the positive ones, or 1.0 when no positive delta exists.
func replaceNonPositive(dts []float64) {
	var positive []float64
	for _, dt := range dts {
		if dt > 0 {
			positive = append(positive, dt)
		}
	}
	fill := 1.0
	if len(positive) > 0 {
		fill = median(positive)
	}
	for i, dt := range dts {
		if dt <= 0 {
			dts[i] = fill
		}
	}
}

// diffRows returns the row-wise first difference of a matrix divided by dt.
func diffRows(rows [][]float64, dt float64) [][]float64 {
	if len(rows) < 2 {
		return nil
	}
	out := make([][]float64, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := make([]float64, len(rows[i]))
		for d := range row {
			row[d] = (rows[i][d] - rows[i-1][d]) / dt
		}
		out[i-1] = row
	}
	return out
}
