package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergeeey/verifind/internal/events"
	"github.com/sergeeey/verifind/internal/pipeline"
	"github.com/sergeeey/verifind/internal/ratesource"
	"github.com/sergeeey/verifind/internal/store"
	vtesting "github.com/sergeeey/verifind/internal/testing"
)

func newTestRunner(t *testing.T, invoker pipeline.Invoker) (*Runner, *store.RunStore, func()) {
	t.Helper()
	db, cleanup := vtesting.NewTestDB(t, "runs")
	runs := store.NewRunStore(db, zerolog.Nop())
	rates := ratesource.New("", zerolog.Nop())
	r := New(invoker, runs, rates, events.NewBus(), nil, zerolog.Nop())
	return r, runs, cleanup
}

func baselineOptions() Options {
	return Options{
		Mode:    "full",
		Workers: 1,
		Timeout: 5 * time.Second,
		Ceiling: 0.15,
	}
}

func TestRunner_BaselineRun(t *testing.T) {
	invoker := vtesting.NewMockInvoker(vtesting.BaselineActuals())
	r, runs, cleanup := newTestRunner(t, invoker)
	defer cleanup()

	run, decision, err := r.Run(context.Background(), vtesting.BaselineGoldenSet(), baselineOptions())
	require.NoError(t, err)

	assert.True(t, decision.Passed)
	assert.InDelta(t, 0.045, decision.AvgError, 0.001)

	assert.Equal(t, 5, run.Summary.TotalQueries)
	assert.Equal(t, 5, run.Summary.Succeeded)
	assert.InDelta(t, 0.40, run.Summary.HitRate, 1e-9)
	assert.InDelta(t, 1.00, run.Summary.NearRate, 1e-9)
	assert.Equal(t, "fallback", run.RateSource)

	// The run is persisted and retrievable by id.
	stored, err := runs.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Summary.HitCount, stored.Summary.HitCount)
	assert.Len(t, stored.Results, 5)
}

func TestRunner_ResultsPreserveQueryOrder(t *testing.T) {
	invoker := vtesting.NewMockInvoker(vtesting.BaselineActuals())
	invoker.Delay = 5 * time.Millisecond
	r, _, cleanup := newTestRunner(t, invoker)
	defer cleanup()

	opts := baselineOptions()
	opts.Workers = 3

	set := vtesting.BaselineGoldenSet()
	run, _, err := r.Run(context.Background(), set, opts)
	require.NoError(t, err)

	require.Len(t, run.Results, set.Len())
	for i, q := range set.Queries {
		assert.Equal(t, q.ID, run.Results[i].Query.ID)
	}
}

func TestRunner_PerQueryFailureDoesNotAbortRun(t *testing.T) {
	invoker := vtesting.NewMockInvoker(vtesting.BaselineActuals())
	invoker.Errors["sharpe-nvda-2023"] = &pipeline.PipelineError{Stage: "fetch", Message: "ticker not recognized"}
	r, _, cleanup := newTestRunner(t, invoker)
	defer cleanup()

	run, _, err := r.Run(context.Background(), vtesting.BaselineGoldenSet(), baselineOptions())
	require.NoError(t, err)

	assert.Equal(t, 5, run.Summary.TotalQueries)
	assert.Equal(t, 4, run.Summary.Succeeded)
	assert.Equal(t, 1, run.Summary.Failed)
	assert.InDelta(t, 0.8, run.Summary.SuccessRate, 1e-9)
}

func TestRunner_ExtractionFailureKind(t *testing.T) {
	invoker := vtesting.NewMockInvoker(vtesting.BaselineActuals())
	invoker.Errors["sharpe-ko-2023"] = &pipeline.ExtractionError{Output: "no number here"}
	r, _, cleanup := newTestRunner(t, invoker)
	defer cleanup()

	run, _, err := r.Run(context.Background(), vtesting.BaselineGoldenSet(), baselineOptions())
	require.NoError(t, err)

	var found bool
	for _, res := range run.Results {
		if res.Query.ID == "sharpe-ko-2023" {
			found = true
			assert.Equal(t, "extraction_error", res.Failure.String())
		}
	}
	assert.True(t, found)
}

func TestRunner_TimeoutBecomesPipelineFailure(t *testing.T) {
	invoker := vtesting.NewMockInvoker(vtesting.BaselineActuals())
	invoker.Delay = time.Second
	r, _, cleanup := newTestRunner(t, invoker)
	defer cleanup()

	opts := baselineOptions()
	opts.Mode = "smoke"
	opts.SmokeSize = 1
	opts.Timeout = 20 * time.Millisecond

	run, decision, err := r.Run(context.Background(), vtesting.BaselineGoldenSet(), opts)
	require.NoError(t, err)

	assert.Equal(t, 1, run.Summary.Failed)
	assert.True(t, run.Summary.NoData)
	assert.False(t, decision.Passed)
}

func TestRunner_SmokeMode(t *testing.T) {
	invoker := vtesting.NewMockInvoker(vtesting.BaselineActuals())
	r, _, cleanup := newTestRunner(t, invoker)
	defer cleanup()

	opts := baselineOptions()
	opts.Mode = "smoke"
	opts.SmokeSize = 2

	run, _, err := r.Run(context.Background(), vtesting.BaselineGoldenSet(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Summary.TotalQueries)
}

func TestRunner_SubsetMode(t *testing.T) {
	invoker := vtesting.NewMockInvoker(vtesting.BaselineActuals())
	r, _, cleanup := newTestRunner(t, invoker)
	defer cleanup()

	opts := baselineOptions()
	opts.Mode = "subset"
	opts.SubsetIDs = []string{"sharpe-tsla-2023", "sharpe-ko-2023"}

	run, decision, err := r.Run(context.Background(), vtesting.BaselineGoldenSet(), opts)
	require.NoError(t, err)

	assert.Equal(t, 2, run.Summary.TotalQueries)
	// Both subset answers are hits.
	assert.InDelta(t, 1.0, run.Summary.HitRate, 1e-9)
	assert.True(t, decision.Passed)
}

func TestRunner_UnknownModeRejected(t *testing.T) {
	invoker := vtesting.NewMockInvoker(vtesting.BaselineActuals())
	r, _, cleanup := newTestRunner(t, invoker)
	defer cleanup()

	opts := baselineOptions()
	opts.Mode = "partial"

	_, _, err := r.Run(context.Background(), vtesting.BaselineGoldenSet(), opts)
	require.Error(t, err)
}

func TestRunner_WritesReportArtifacts(t *testing.T) {
	invoker := vtesting.NewMockInvoker(vtesting.BaselineActuals())
	r, _, cleanup := newTestRunner(t, invoker)
	defer cleanup()

	opts := baselineOptions()
	opts.ReportDir = t.TempDir()

	run, _, err := r.Run(context.Background(), vtesting.BaselineGoldenSet(), opts)
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(opts.ReportDir, "run_*"+run.ID+"*"))
	require.NoError(t, err)
	assert.Len(t, matches, 2) // .txt and .json

	for _, m := range matches {
		info, err := os.Stat(m)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestRunner_PublishesProgressEvents(t *testing.T) {
	invoker := vtesting.NewMockInvoker(vtesting.BaselineActuals())
	db, cleanup := vtesting.NewTestDB(t, "runs")
	defer cleanup()

	bus := events.NewBus()
	ch, unsub := bus.Subscribe()
	defer unsub()

	r := New(invoker, store.NewRunStore(db, zerolog.Nop()), ratesource.New("", zerolog.Nop()), bus, nil, zerolog.Nop())

	_, _, err := r.Run(context.Background(), vtesting.BaselineGoldenSet(), baselineOptions())
	require.NoError(t, err)

	counts := map[events.EventType]int{}
	for {
		select {
		case evt := <-ch:
			counts[evt.Type]++
			if counts[events.GateEvaluated] == 1 {
				assert.Equal(t, 1, counts[events.RunStarted])
				assert.Equal(t, 5, counts[events.QueryCompleted])
				assert.Equal(t, 1, counts[events.RunCompleted])
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("missing events, saw %v", counts)
		}
	}
}
