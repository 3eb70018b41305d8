package quality

// episodeTiming holds one episode's contribution to the dataset-wide jitter
// and frame-drop statistics: normalized inter-frame deltas plus the count of
// deltas exceeding the drop threshold.
type episodeTiming struct {
	deltasMs []float64
	drops    int
}

// detectTiming computes an episode's normalized deltas and flags frame
// drops. Non-finite deltas (from frames missing their timestamp cell) are
// dropped before any statistics. The drop threshold is dropMultiplier times
// the median delta; an episode whose deltas are all non-positive after unit
// normalization treats the median as 1.0 rather than producing a nonsensical
// threshold.
func detectTiming(tsRaw []float64, dropMultiplier float64) episodeTiming {
	dts := NormalizeToMilliseconds(finiteOnly(diffs(tsRaw)))
	if len(dts) == 0 {
		return episodeTiming{}
	}

	med := median(dts)
	anyPositive := false
	for _, dt := range dts {
		if dt > 0 {
			anyPositive = true
			break
		}
	}
	if !anyPositive {
		med = 1.0
	}

	threshold := dropMultiplier * med
	drops := 0
	for _, dt := range dts {
		if dt > threshold {
			drops++
		}
	}
	return episodeTiming{deltasMs: dts, drops: drops}
}
