// Package runner orchestrates evaluation runs: it feeds golden queries to
// the pipeline, classifies the answers, aggregates the summary, persists
// the run, renders reports and applies the gate.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/sergeeey/verifind/internal/artifact"
	"github.com/sergeeey/verifind/internal/evaluation"
	"github.com/sergeeey/verifind/internal/events"
	"github.com/sergeeey/verifind/internal/gate"
	"github.com/sergeeey/verifind/internal/golden"
	"github.com/sergeeey/verifind/internal/pipeline"
	"github.com/sergeeey/verifind/internal/ratesource"
	"github.com/sergeeey/verifind/internal/report"
	"github.com/sergeeey/verifind/internal/store"
)

// DefaultSmokeSize is the number of queries a smoke run evaluates.
const DefaultSmokeSize = 5

// Options configure a single run.
type Options struct {
	Mode          string   // full | smoke | subset
	SubsetIDs     []string // for subset mode
	SmokeSize     int      // for smoke mode; DefaultSmokeSize when zero
	Workers       int      // bounded worker pool size; 1 = serial
	Timeout       time.Duration
	Ceiling       float64
	GitCommit     string
	GoldenSetPath string // recorded on the run for provenance
	ReportDir     string // empty disables file artifacts
}

// Runner executes evaluation runs. Per-query failures are recorded and the
// run continues; only the gate decision is fatal to the overall process.
type Runner struct {
	invoker  pipeline.Invoker
	runs     *store.RunStore    // nil disables persistence
	uploader *artifact.Uploader // nil disables uploads
	rates    *ratesource.Provider
	bus      *events.Bus
	log      zerolog.Logger
}

// New creates a runner. The store and uploader may be nil.
func New(invoker pipeline.Invoker, runs *store.RunStore, rates *ratesource.Provider, bus *events.Bus, uploader *artifact.Uploader, log zerolog.Logger) *Runner {
	return &Runner{
		invoker:  invoker,
		runs:     runs,
		uploader: uploader,
		rates:    rates,
		bus:      bus,
		log:      log.With().Str("component", "runner").Logger(),
	}
}

// Run evaluates the golden set under the given options.
//
// The returned error covers harness failures (bad options, persistence);
// a failing gate is reported through the Decision, not the error.
func (r *Runner) Run(ctx context.Context, set *golden.Set, opts Options) (*store.StoredRun, gate.Decision, error) {
	queries, err := selectQueries(set, opts)
	if err != nil {
		return nil, gate.Decision{}, err
	}

	if opts.Workers < 1 {
		opts.Workers = 1
	}

	runID := uuid.NewString()
	startedAt := time.Now().UTC()

	r.log.Info().
		Str("run_id", runID).
		Str("mode", opts.Mode).
		Int("queries", len(queries)).
		Int("workers", opts.Workers).
		Msg("Run started")

	r.bus.Publish(&events.RunStartedData{
		RunID:        runID,
		Mode:         opts.Mode,
		TotalQueries: len(queries),
		GitCommit:    opts.GitCommit,
	})

	results := r.evaluateAll(ctx, runID, queries, opts)

	summary := evaluation.Aggregate(results)
	decision := gate.Evaluate(summary, opts.Ceiling)

	run := &store.StoredRun{
		ID:            runID,
		CreatedAt:     startedAt,
		GitCommit:     opts.GitCommit,
		Mode:          opts.Mode,
		GoldenSetPath: opts.GoldenSetPath,
		Summary:       summary,
		RateSource:    string(r.rates.Source()),
		Ceiling:       opts.Ceiling,
		GatePassed:    decision.Passed,
		Results:       results,
	}
	r.captureHostStats(run)

	r.bus.Publish(&events.RunCompletedData{
		RunID:       runID,
		SuccessRate: summary.SuccessRate,
		HitRate:     summary.HitRate,
		NearRate:    summary.NearRate,
		MissRate:    summary.MissRate,
		AvgError:    summary.AvgError,
		NoData:      summary.NoData,
	})
	r.bus.Publish(&events.GateEvaluatedData{
		RunID:    runID,
		Passed:   decision.Passed,
		Reason:   decision.Reason,
		AvgError: decision.AvgError,
		Ceiling:  decision.Ceiling,
	})

	if r.runs != nil {
		if err := r.runs.Save(run); err != nil {
			return run, decision, fmt.Errorf("run completed but could not be persisted: %w", err)
		}
	}

	if opts.ReportDir != "" {
		textPath, jsonPath, err := report.WriteFiles(opts.ReportDir, run, decision)
		if err != nil {
			return run, decision, fmt.Errorf("run completed but report rendering failed: %w", err)
		}
		r.log.Info().Str("text", textPath).Str("json", jsonPath).Msg("Report artifacts written")

		if r.uploader != nil {
			// Upload failures are logged inside UploadAll; they never fail a run.
			_ = r.uploader.UploadAll(ctx, textPath, jsonPath)
		}
	}

	r.log.Info().
		Str("run_id", runID).
		Bool("gate_passed", decision.Passed).
		Str("gate_reason", decision.Reason).
		Msg("Run completed")

	return run, decision, nil
}

// evaluateAll runs queries through a bounded worker pool. Each result slot
// is owned by exactly one worker until the pool drains, and result order
// matches query order regardless of completion order.
func (r *Runner) evaluateAll(ctx context.Context, runID string, queries []golden.Query, opts Options) []evaluation.QueryResult {
	results := make([]evaluation.QueryResult, len(queries))

	workers := opts.Workers
	if workers > len(queries) {
		workers = len(queries)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = r.evaluateOne(ctx, runID, idx, len(queries), queries[idx], opts.Timeout)
			}
		}()
	}

	for idx := range queries {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return results
}

func (r *Runner) evaluateOne(ctx context.Context, runID string, idx, total int, q golden.Query, timeout time.Duration) evaluation.QueryResult {
	qctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	answer, err := r.invoker.Invoke(qctx, q)

	var result evaluation.QueryResult
	if err != nil {
		kind := evaluation.FailurePipeline
		var extractErr *pipeline.ExtractionError
		if errors.As(err, &extractErr) {
			kind = evaluation.FailureExtraction
		}
		result = evaluation.NewFailure(q, kind, err.Error(), time.Since(start))

		r.log.Warn().
			Str("run_id", runID).
			Str("query", q.ID).
			Str("failure", kind.String()).
			Err(err).
			Msg("Query failed")
	} else {
		result = evaluation.NewResult(q, answer.Value, answer.Raw, answer.Duration, answer.Cost)

		r.log.Info().
			Str("run_id", runID).
			Str("query", q.ID).
			Float64("expected", q.Expected).
			Float64("actual", answer.Value).
			Str("band", result.Band.String()).
			Msg("Query evaluated")
	}

	data := &events.QueryCompletedData{
		RunID:      runID,
		QueryID:    q.ID,
		Index:      idx,
		Total:      total,
		RelError:   result.RelError,
		Failed:     !result.Succeeded(),
		DurationMS: result.Duration.Milliseconds(),
	}
	if result.Succeeded() {
		data.Band = result.Band.String()
	} else {
		data.Failure = result.Failure.String()
	}
	r.bus.Publish(data)

	return result
}

// captureHostStats snapshots cpu/memory load onto the run record.
// Best-effort: a failed probe leaves the fields zero.
func (r *Runner) captureHostStats(run *store.StoredRun) {
	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		run.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		run.MemUsedPercent = vm.UsedPercent
	}
}

func selectQueries(set *golden.Set, opts Options) ([]golden.Query, error) {
	switch opts.Mode {
	case "full":
		return set.Queries, nil
	case "smoke":
		size := opts.SmokeSize
		if size <= 0 {
			size = DefaultSmokeSize
		}
		return set.Head(size).Queries, nil
	case "subset":
		sub, err := set.Subset(opts.SubsetIDs)
		if err != nil {
			return nil, err
		}
		if sub.Len() == 0 {
			return nil, fmt.Errorf("subset mode requires at least one query id")
		}
		return sub.Queries, nil
	default:
		return nil, fmt.Errorf("unknown run mode %q (want full, smoke or subset)", opts.Mode)
	}
}
