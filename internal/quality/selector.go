package quality

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tern-robotics/episode.report/internal/episode"
)

// vectorKeywords mark list-valued columns that plausibly hold a joint-space
// signal. Matching is case-insensitive substring.
var vectorKeywords = []string{"qpos", "position", "joint", "action", "effort"}

// vectorPrefixes are the candidate bases for signals split across scalar
// columns named <prefix>.<index>, tried in this order.
var vectorPrefixes = []string{
	"observation.qpos",
	"observation.joints",
	"observation.state.position",
	"action",
	"action.joints",
	"action.qpos",
}

// VectorSignal is one multi-dimensional signal assembled from an episode
// table: an N×D matrix with constant D >= 2, plus a label recording which
// column or prefix produced it.
type VectorSignal struct {
	Label string
	Rows  [][]float64
}

// SelectVectorSignal picks the episode's representative vector signal for
// jerk computation.
//
// Priority 1: list-valued columns whose name contains a keyword, in table
// declaration order; every cell must be a non-null array of the same length
// (>= 2) across the whole episode.
//
// Priority 2: scalar columns grouped as <prefix>.<index>, stacked in numeric
// index order.
//
// Returns nil when neither priority yields a usable signal; the episode then
// simply contributes no jerk statistics.
func SelectVectorSignal(tbl *episode.Table) *VectorSignal {
	for _, sig := range tbl.Signals() {
		if sig.Kind != episode.KindList {
			continue
		}
		lowered := strings.ToLower(sig.Name)
		matched := false
		for _, kw := range vectorKeywords {
			if strings.Contains(lowered, kw) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if rows, ok := stackListRows(sig.Rows); ok {
			return &VectorSignal{Label: sig.Name + " (list)", Rows: rows}
		}
	}

	for _, prefix := range vectorPrefixes {
		if rows, ok := groupPrefixColumns(tbl, prefix); ok {
			return &VectorSignal{Label: prefix + ".*", Rows: rows}
		}
	}
	return nil
}

// stackListRows validates a list column as an N×D matrix: no null cells and
// a constant row length of at least 2.
func stackListRows(rows [][]float64) ([][]float64, bool) {
	if len(rows) == 0 {
		return nil, false
	}
	dim := -1
	for _, r := range rows {
		if r == nil {
			return nil, false
		}
		if dim == -1 {
			dim = len(r)
		} else if len(r) != dim {
			return nil, false
		}
	}
	if dim < 2 {
		return nil, false
	}
	return rows, true
}

// groupPrefixColumns stacks scalar columns named <prefix>.<index> into an
// N×D matrix ordered by the numeric index suffix.
func groupPrefixColumns(tbl *episode.Table, prefix string) ([][]float64, bool) {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `\.(\d+)$`)

	type indexed struct {
		idx int
		sig *episode.Signal
	}
	var cols []indexed
	for _, sig := range tbl.Signals() {
		if sig.Kind != episode.KindScalar {
			continue
		}
		m := pattern.FindStringSubmatch(sig.Name)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		cols = append(cols, indexed{idx: idx, sig: sig})
	}
	if len(cols) < 2 {
		return nil, false
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].idx < cols[j].idx })

	n := tbl.NumFrames()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(cols))
		for d, c := range cols {
			row[d] = c.sig.Scalar[i]
		}
		rows[i] = row
	}
	return rows, true
}
