package store

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergeeey/verifind/internal/evaluation"
	vtesting "github.com/sergeeey/verifind/internal/testing"
)

func newStore(t *testing.T) (*RunStore, func()) {
	t.Helper()
	db, cleanup := vtesting.NewTestDB(t, "runs")
	return NewRunStore(db, zerolog.Nop()), cleanup
}

func sampleRun(t *testing.T) *StoredRun {
	t.Helper()
	results := vtesting.BaselineResults()
	return &StoredRun{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
		GitCommit:  "abc1234",
		Mode:       "full",
		Summary:    evaluation.Aggregate(results),
		RateSource: "fallback",
		Ceiling:    0.15,
		GatePassed: true,
		CPUPercent: 12.5,
		Results:    results,
	}
}

func TestRunStore_SaveAndGet(t *testing.T) {
	s, cleanup := newStore(t)
	defer cleanup()

	run := sampleRun(t)
	require.NoError(t, s.Save(run))

	got, err := s.Get(run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "abc1234", got.GitCommit)
	assert.Equal(t, "full", got.Mode)
	assert.Equal(t, 5, got.Summary.TotalQueries)
	assert.InDelta(t, run.Summary.AvgError, got.Summary.AvgError, 1e-9)
	assert.InDelta(t, run.Summary.HitRate, got.Summary.HitRate, 1e-9)
	assert.True(t, got.Summary.TotalCost.Equal(run.Summary.TotalCost))
	assert.True(t, got.GatePassed)
	assert.InDelta(t, 12.5, got.CPUPercent, 1e-9)

	// Per-query results survive the blob round trip.
	require.Len(t, got.Results, 5)
	assert.Equal(t, run.Results[0].Query.ID, got.Results[0].Query.ID)
	assert.InDelta(t, run.Results[0].RelError, got.Results[0].RelError, 1e-9)
	assert.Equal(t, run.Results[0].Band, got.Results[0].Band)
}

func TestRunStore_SaveIsAppendOnly(t *testing.T) {
	s, cleanup := newStore(t)
	defer cleanup()

	run := sampleRun(t)
	require.NoError(t, s.Save(run))

	// Re-saving the same id must fail, never overwrite.
	err := s.Save(run)
	require.Error(t, err)
}

func TestRunStore_NoDataRunRoundTrip(t *testing.T) {
	s, cleanup := newStore(t)
	defer cleanup()

	run := sampleRun(t)
	run.ID = uuid.NewString()
	run.Summary = evaluation.Aggregate(nil)
	run.GatePassed = false
	run.Results = nil
	require.NoError(t, s.Save(run))

	got, err := s.Get(run.ID)
	require.NoError(t, err)
	assert.True(t, got.Summary.NoData)
	assert.True(t, math.IsNaN(got.Summary.AvgError))
	assert.True(t, math.IsNaN(got.Summary.HitRate))
}

func TestRunStore_LatestAndList(t *testing.T) {
	s, cleanup := newStore(t)
	defer cleanup()

	// No runs yet.
	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Nil(t, latest)

	older := sampleRun(t)
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.Save(older))

	newer := sampleRun(t)
	newer.ID = uuid.NewString()
	newer.CreatedAt = time.Now().UTC()
	require.NoError(t, s.Save(newer))

	latest, err = s.Latest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, newer.ID, latest.ID)

	runs, err := s.List(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, older.ID, runs[1].ID)
	// List omits the heavy per-query blob.
	assert.Nil(t, runs[0].Results)
}

func TestRunStore_GetMissing(t *testing.T) {
	s, cleanup := newStore(t)
	defer cleanup()

	_, err := s.Get("does-not-exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
