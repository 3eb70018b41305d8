package quality

import (
	"math"
	"sort"

	"github.com/tern-robotics/episode.report/internal/episode"
)

// requiredTopics are the core time-series every recording is expected to
// declare in its schema.
var requiredTopics = []string{"action", "observation.state", "timestamp"}

// nanCounts counts missing or non-finite entries per column of one episode.
// Scalar columns count NaN/Inf cells; list columns count non-finite entries
// inside each array, with a fully-null cell counting as one.
func nanCounts(tbl *episode.Table) map[string]int {
	counts := make(map[string]int)
	for _, sig := range tbl.Signals() {
		c := 0
		switch sig.Kind {
		case episode.KindList:
			for _, row := range sig.Rows {
				if row == nil {
					c++
					continue
				}
				for _, v := range row {
					if nonFinite(v) {
						c++
					}
				}
			}
		default:
			for _, v := range sig.Scalar {
				if nonFinite(v) {
					c++
				}
			}
		}
		counts[sig.Name] = c
	}
	return counts
}

func nonFinite(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// missingTopics returns the required topics absent from the dataset schema,
// sorted. Reported once per run, independent of episode count.
func missingTopics(schema *episode.Schema) []string {
	missing := []string{}
	for _, topic := range requiredTopics {
		if !schema.HasFeature(topic) {
			missing = append(missing, topic)
		}
	}
	sort.Strings(missing)
	return missing
}
