package quality

import "github.com/tern-robotics/episode.report/internal/episode"

// timestampCandidates are tried in order when looking for an explicit
// timestamp column in an episode table.
var timestampCandidates = []string{
	"timestamp",
	"timestamps",
	"time",
	"t",
	"frame_time_ms",
	"frame_time_us",
	"frame_time_ns",
}

// NormalizeToMilliseconds infers the unit of a series of inter-frame deltas
// from its median magnitude and returns the series converted to
// milliseconds. The bands are deliberately coarse: a median above 1e6 reads
// as nanoseconds, above 1e3 as microseconds, below 10 as seconds (0.033 for
// a 30 fps recording), anything else is already milliseconds. An empty input
// is returned unchanged. The conversion is idempotent: values already in
// milliseconds land in the no-op band.
func NormalizeToMilliseconds(dts []float64) []float64 {
	if len(dts) == 0 {
		return dts
	}
	m := median(dts)
	var scale float64
	switch {
	case m > 1e6:
		scale = 1.0 / 1e6
	case m > 1e3:
		scale = 1.0 / 1e3
	case m < 10:
		scale = 1e3
	default:
		return dts
	}
	out := make([]float64, len(dts))
	for i, v := range dts {
		out[i] = v * scale
	}
	return out
}

// timestampSeries returns the first declared candidate timestamp column of
// the table, or nil if the episode carries no usable timestamp field.
func timestampSeries(tbl *episode.Table) []float64 {
	for _, name := range timestampCandidates {
		if sig := tbl.Signal(name); sig != nil && sig.Kind == episode.KindScalar {
			return sig.Scalar
		}
	}
	return nil
}

// syntheticTimestamps fabricates a uniform timestamp series (milliseconds)
// from the declared frame rate, for episodes without a timestamp column.
func syntheticTimestamps(n int, fps float64) []float64 {
	period := 1000.0 / fps
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = float64(i) * period
	}
	return ts
}

// diffs returns successive differences t[i+1]-t[i].
func diffs(ts []float64) []float64 {
	if len(ts) < 2 {
		return nil
	}
	out := make([]float64, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		out[i-1] = ts[i] - ts[i-1]
	}
	return out
}
