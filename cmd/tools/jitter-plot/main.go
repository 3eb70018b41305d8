// Command jitter-plot renders a PNG histogram of a dataset's pooled
// inter-frame deltas, for eyeballing timing quality offline.
package main

import (
	"context"
	"flag"
	"log"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/tern-robotics/episode.report/internal/episode"
	"github.com/tern-robotics/episode.report/internal/quality"
)

var (
	datasetDir  = flag.String("dataset", "", "Dataset directory (meta/info.json + episode files)")
	output      = flag.String("o", "jitter.png", "Output PNG path")
	bins        = flag.Int("bins", 40, "Histogram bin count")
	maxEpisodes = flag.Int("max-episodes", 0, "Evaluate at most N episodes (0 = all)")
)

func main() {
	flag.Parse()
	if *datasetDir == "" {
		log.Fatal("usage: jitter-plot -dataset <dir> [-o out.png]")
	}

	src, err := episode.NewDirSource(*datasetDir)
	if err != nil {
		log.Fatalf("failed to open dataset: %v", err)
	}

	ev := quality.NewEvaluator(src, quality.Options{MaxEpisodes: *maxEpisodes})
	report, diags, err := ev.EvaluateDetailed(context.Background())
	if err != nil {
		log.Fatalf("evaluation failed: %v", err)
	}
	if len(diags.DeltasMs) == 0 {
		log.Fatal("no inter-frame deltas observed")
	}

	values := make(plotter.Values, len(diags.DeltasMs))
	copy(values, diags.DeltasMs)

	p := plot.New()
	p.Title.Text = "Inter-frame delta distribution"
	p.X.Label.Text = "delta (ms)"
	p.Y.Label.Text = "frames"

	hist, err := plotter.NewHist(values, *bins)
	if err != nil {
		log.Fatalf("failed to build histogram: %v", err)
	}
	p.Add(hist)

	if err := p.Save(8*vg.Inch, 5*vg.Inch, *output); err != nil {
		log.Fatalf("failed to save plot: %v", err)
	}

	if report.JitterMs.Median != nil && report.JitterMs.Std != nil {
		log.Printf("wrote %s (median=%.3fms std=%.3fms lack_of_jitter=%v)",
			*output, *report.JitterMs.Median, *report.JitterMs.Std, report.LackOfJitter)
	} else {
		log.Printf("wrote %s", *output)
	}
}
