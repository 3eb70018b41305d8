// Command evaluate runs the quality-heuristics engine over one dataset
// directory and prints the report as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/tern-robotics/episode.report/internal/config"
	"github.com/tern-robotics/episode.report/internal/episode"
	"github.com/tern-robotics/episode.report/internal/quality"
)

var (
	datasetDir  = flag.String("dataset", "", "Dataset directory (meta/info.json + episode files)")
	maxEpisodes = flag.Int("max-episodes", 0, "Evaluate at most N episodes (0 = all)")
	workers     = flag.Int("workers", 1, "Concurrent episode workers")
	tuningFile  = flag.String("tuning", "", "Optional JSON tuning config")
	summaryOnly = flag.Bool("summary", false, "Print only the condensed summary")
)

func main() {
	flag.Parse()
	if *datasetDir == "" {
		flag.Usage()
		os.Exit(2)
	}

	tuning, err := config.LoadTuningConfig(*tuningFile)
	if err != nil {
		log.Fatalf("failed to load tuning config: %v", err)
	}
	opts := tuning.Options()
	if *maxEpisodes > 0 {
		opts.MaxEpisodes = *maxEpisodes
	}
	if *workers > 1 {
		opts.Workers = *workers
	}

	src, err := episode.NewDirSource(*datasetDir)
	if err != nil {
		log.Fatalf("failed to open dataset: %v", err)
	}

	report, err := quality.NewEvaluator(src, opts).Evaluate(context.Background())
	if err != nil {
		log.Fatalf("evaluation failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if *summaryOnly {
		if err := enc.Encode(report.Summary()); err != nil {
			log.Fatalf("failed to encode summary: %v", err)
		}
		return
	}
	if err := enc.Encode(report); err != nil {
		log.Fatalf("failed to encode report: %v", err)
	}
}
