package quality

import (
	"context"
	"fmt"
	"sync"

	"github.com/tern-robotics/episode.report/internal/episode"
	"github.com/tern-robotics/episode.report/internal/monitoring"
)

// DefaultDropThresholdMultiplier flags a delta as a frame drop when it
// exceeds this multiple of the episode's median delta.
const DefaultDropThresholdMultiplier = 1.5

// DefaultJitterCVThreshold is the relative-variation bound below which
// timing is suspiciously perfect (a possible synthetic-timestamp artifact).
const DefaultJitterCVThreshold = 5e-3

// Options control one evaluation run. Zero values select defaults.
type Options struct {
	// MaxEpisodes caps how many episodes are requested; <= 0 means all.
	MaxEpisodes int

	// Workers sets the number of concurrent episode fetch+evaluate
	// goroutines; <= 1 runs sequentially. The report is identical for any
	// worker count.
	Workers int

	// DropThresholdMultiplier overrides DefaultDropThresholdMultiplier.
	DropThresholdMultiplier float64

	// JitterCVThreshold overrides DefaultJitterCVThreshold.
	JitterCVThreshold float64
}

func (o Options) withDefaults() Options {
	if o.DropThresholdMultiplier <= 0 {
		o.DropThresholdMultiplier = DefaultDropThresholdMultiplier
	}
	if o.JitterCVThreshold <= 0 {
		o.JitterCVThreshold = DefaultJitterCVThreshold
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	return o
}

// Evaluator folds per-episode heuristic results into one quality report. It
// holds no state between runs; every call recomputes from scratch.
type Evaluator struct {
	src  episode.Source
	opts Options
}

// NewEvaluator builds an evaluator over an episode source.
func NewEvaluator(src episode.Source, opts Options) *Evaluator {
	return &Evaluator{src: src, opts: opts.withDefaults()}
}

// Diagnostics carries run byproducts that are not part of the report, for
// debug plotting.
type Diagnostics struct {
	// DeltasMs is the pooled normalized inter-frame delta series of all
	// evaluated episodes.
	DeltasMs []float64
}

// Evaluate runs the full pipeline and returns the aggregated report. The
// only fatal condition is an unavailable dataset descriptor; individual
// episode failures are skipped and a report built from whatever episodes
// completed is still valid, even if that is none of them.
func (e *Evaluator) Evaluate(ctx context.Context) (*Report, error) {
	report, _, err := e.EvaluateDetailed(ctx)
	return report, err
}

// EvaluateDetailed is Evaluate plus diagnostics.
func (e *Evaluator) EvaluateDetailed(ctx context.Context) (*Report, *Diagnostics, error) {
	schema, err := e.src.Schema(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("dataset descriptor unavailable: %w", err)
	}

	count := schema.TotalEpisodes
	if e.opts.MaxEpisodes > 0 && e.opts.MaxEpisodes < count {
		count = e.opts.MaxEpisodes
	}

	results := e.collect(ctx, schema, count)
	report, diags := e.fold(schema, results)
	return report, diags, nil
}

// episodeResult is the partial result of evaluating one episode table.
type episodeResult struct {
	nan    map[string]int
	timing episodeTiming
	jerk   jerkStats
	signal string
	hasVec bool
}

// evaluateEpisode applies every per-episode heuristic to one frame table.
// Pure function of its inputs; safe to run concurrently across episodes.
func evaluateEpisode(tbl *episode.Table, fps, dropMultiplier float64) *episodeResult {
	res := &episodeResult{nan: nanCounts(tbl)}

	ts := timestampSeries(tbl)
	if ts == nil {
		ts = syntheticTimestamps(tbl.NumFrames(), fps)
	}
	res.timing = detectTiming(ts, dropMultiplier)

	if vec := SelectVectorSignal(tbl); vec != nil {
		res.hasVec = true
		res.signal = vec.Label
		res.jerk = computeJerk(vec.Rows, ts, fps)
	} else {
		res.jerk = noJerk()
	}
	return res
}

// collect fetches and evaluates the requested episode range, sequentially or
// with a bounded worker pool. Slot i of the result belongs to episode i; nil
// slots are skipped episodes.
func (e *Evaluator) collect(ctx context.Context, schema *episode.Schema, count int) []*episodeResult {
	results := make([]*episodeResult, count)

	if e.opts.Workers <= 1 {
		for i := 0; i < count; i++ {
			results[i] = e.evaluateOne(ctx, schema, i)
		}
		return results
	}

	// never spawn more workers than there are episodes to hand out
	workers := e.opts.Workers
	if workers > count {
		workers = count
	}

	indices := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				results[i] = e.evaluateOne(ctx, schema, i)
			}
		}()
	}
	for i := 0; i < count; i++ {
		indices <- i
	}
	close(indices)
	wg.Wait()
	return results
}

func (e *Evaluator) evaluateOne(ctx context.Context, schema *episode.Schema, index int) *episodeResult {
	tbl, err := e.src.Episode(ctx, index)
	if err != nil {
		monitoring.Logf("skipping episode %d: %v", index, err)
		return nil
	}
	return evaluateEpisode(tbl, schema.FPS, e.opts.DropThresholdMultiplier)
}

// fold reduces per-episode partial results into the final report. Results
// are walked in episode order, so the jerk signal label is the one from the
// lowest successfully-selected episode regardless of worker count.
func (e *Evaluator) fold(schema *episode.Schema, results []*episodeResult) (*Report, *Diagnostics) {
	var (
		pooledDeltas []float64
		dropCount    int
		deltaCount   int
		nanTotals    = make(map[string]int)
		jerkMeans    []float64
		jerkMaxes    []float64
		jerkP95s     []float64
		jerkSignal   *string
		evaluated    int
	)

	for _, res := range results {
		if res == nil {
			continue
		}
		evaluated++

		for name, c := range res.nan {
			nanTotals[name] += c
		}

		pooledDeltas = append(pooledDeltas, res.timing.deltasMs...)
		dropCount += res.timing.drops
		deltaCount += len(res.timing.deltasMs)

		if res.hasVec && jerkSignal == nil {
			label := res.signal
			jerkSignal = &label
		}
		if res.jerk.ok() {
			jerkMeans = append(jerkMeans, res.jerk.mean)
			jerkMaxes = append(jerkMaxes, res.jerk.max)
			jerkP95s = append(jerkP95s, res.jerk.p95)
		}
	}

	report := &Report{
		NaNCounts:         nanTotals,
		MissingTopics:     missingTopics(schema),
		EpisodesEvaluated: evaluated,
		FPS:               schema.FPS,
	}

	if deltaCount > 0 {
		ratio := float64(dropCount) / float64(deltaCount)
		report.FrameDropRatio = &ratio
	}

	if len(pooledDeltas) > 0 {
		med := median(pooledDeltas)
		std := popStd(pooledDeltas)
		report.JitterMs = JitterStats{Median: &med, Std: &std}
		denom := med
		if denom < 1e-6 {
			denom = 1e-6
		}
		report.LackOfJitter = std/denom < e.opts.JitterCVThreshold
	}

	// Mixed aggregation (mean of means, max of maxes, mean of p95s) is
	// preserved for output compatibility with earlier evaluations; changing
	// it would silently shift the externally observed numbers.
	if len(jerkMeans) > 0 {
		m := mean(jerkMeans)
		mx := maxOf(jerkMaxes)
		p := mean(jerkP95s)
		report.Jerk = JerkReport{Mean: &m, Max: &mx, P95: &p}
	}
	report.Jerk.Signal = jerkSignal

	return report, &Diagnostics{DeltasMs: pooledDeltas}
}
