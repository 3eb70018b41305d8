package api

import (
	"fmt"
	"math"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/tern-robotics/episode.report/internal/quality"
)

// handleDeltaChart renders a bar histogram (HTML) of the pooled inter-frame
// deltas of a dataset using go-echarts. This is a debugging-only endpoint to
// eyeball the timing distribution behind a jitter verdict without any UI.
// Query params:
//   - dataset (required): dataset directory path
//   - bins (optional; default 40, capped at 200)
func (s *Server) handleDeltaChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	dataset := r.URL.Query().Get("dataset")
	if dataset == "" {
		s.writeJSONError(w, http.StatusBadRequest, "dataset is required")
		return
	}

	bins := 40
	if b := r.URL.Query().Get("bins"); b != "" {
		if _, err := fmt.Sscanf(b, "%d", &bins); err != nil || bins < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "bad bins value")
			return
		}
		if bins > 200 {
			bins = 200
		}
	}

	src, err := s.openDataset(dataset)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("open dataset: %v", err))
		return
	}
	opts2 := s.tuning.Options()
	_, diags, err := quality.NewEvaluator(src, opts2).EvaluateDetailed(r.Context())
	if err != nil {
		s.writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if len(diags.DeltasMs) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "no inter-frame deltas observed")
		return
	}

	labels, counts := histogram(diags.DeltasMs, bins)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Inter-frame delta distribution",
			Subtitle: dataset,
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "delta (ms)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "frames"}),
	)

	data := make([]opts.BarData, len(counts))
	for i, c := range counts {
		data[i] = opts.BarData{Value: c}
	}
	bar.SetXAxis(labels).AddSeries("deltas", data)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := bar.Render(w); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render chart: %v", err))
	}
}

// histogram buckets values into equal-width bins over [min, max].
func histogram(values []float64, bins int) ([]string, []int) {
	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	width := (hi - lo) / float64(bins)
	if width == 0 {
		return []string{fmt.Sprintf("%.2f", lo)}, []int{len(values)}
	}

	counts := make([]int, bins)
	for _, v := range values {
		bin := int(math.Floor((v - lo) / width))
		if bin >= bins {
			bin = bins - 1
		}
		if bin < 0 {
			bin = 0
		}
		counts[bin]++
	}
	labels := make([]string, bins)
	for i := range labels {
		labels[i] = fmt.Sprintf("%.1f", lo+(float64(i)+0.5)*width)
	}
	return labels, counts
}
