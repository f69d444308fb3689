// Package store persists evaluation runs. Each run is an immutable record
// keyed by run id, git commit and timestamp: there is no mutable "current
// baseline", only independently inspectable history.
package store

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/sergeeey/verifind/internal/database"
	"github.com/sergeeey/verifind/internal/evaluation"
)

// StoredRun is a full evaluation run: summary, metadata, and the
// per-query results.
type StoredRun struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	GitCommit     string    `json:"git_commit,omitempty"`
	Mode          string    `json:"mode"`
	GoldenSetPath string    `json:"golden_set_path,omitempty"`

	Summary    evaluation.RunSummary `json:"summary"`
	RateSource string                `json:"rate_source"`
	Ceiling    float64               `json:"ceiling"`
	GatePassed bool                  `json:"gate_passed"`

	// Host stats snapshot at run time; zero when unavailable.
	CPUPercent     float64 `json:"cpu_percent,omitempty"`
	MemUsedPercent float64 `json:"mem_used_percent,omitempty"`

	Results []evaluation.QueryResult `json:"results,omitempty"`
}

// JSONSafe returns a copy of the run whose undefined (NaN) statistics are
// zeroed so it can be JSON-encoded. The summary's NoData flag still marks
// them as undefined.
func (r *StoredRun) JSONSafe() *StoredRun {
	out := *r
	out.Summary = r.Summary.Sanitized()
	return &out
}

// RunStore reads and writes run records.
type RunStore struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRunStore creates a run store on an initialized runs database.
func NewRunStore(db *database.DB, log zerolog.Logger) *RunStore {
	return &RunStore{
		db:  db,
		log: log.With().Str("repository", "runs").Logger(),
	}
}

// Save inserts a run record. Runs are append-only; saving an existing id
// is an error.
func (s *RunStore) Save(run *StoredRun) error {
	blob, err := msgpack.Marshal(run.Results)
	if err != nil {
		return fmt.Errorf("failed to encode results for run %s: %w", run.ID, err)
	}

	sum := run.Summary
	_, err = s.db.Conn().Exec(`
		INSERT INTO runs (
			id, created_at, git_commit, mode, golden_set_path,
			total_queries, succeeded, failed,
			hit_count, near_count, miss_count,
			success_rate, hit_rate, near_rate, miss_rate,
			avg_error, max_error,
			avg_duration_ms, total_cost, avg_cost,
			rate_source, ceiling, gate_passed,
			cpu_percent, mem_used_percent,
			results_blob
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.CreatedAt.UTC().Format(time.RFC3339),
		run.GitCommit,
		run.Mode,
		run.GoldenSetPath,
		sum.TotalQueries, sum.Succeeded, sum.Failed,
		sum.HitCount, sum.NearCount, sum.MissCount,
		nullIfNaN(sum.SuccessRate),
		nullIfNaN(sum.HitRate), nullIfNaN(sum.NearRate), nullIfNaN(sum.MissRate),
		nullIfNaN(sum.AvgError), nullIfNaN(sum.MaxError),
		float64(sum.AvgDuration)/float64(time.Millisecond),
		sum.TotalCost.String(), sum.AvgCost.String(),
		run.RateSource, run.Ceiling, run.GatePassed,
		nullIfZero(run.CPUPercent), nullIfZero(run.MemUsedPercent),
		blob,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}

	s.log.Info().Str("run_id", run.ID).Str("mode", run.Mode).Msg("Run persisted")
	return nil
}

// Get loads a full run record, per-query results included.
func (s *RunStore) Get(id string) (*StoredRun, error) {
	row := s.db.Conn().QueryRow(selectColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row, true)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return run, nil
}

// Latest loads the most recent run, or nil when no runs exist.
func (s *RunStore) Latest() (*StoredRun, error) {
	row := s.db.Conn().QueryRow(selectColumns + ` FROM runs ORDER BY created_at DESC LIMIT 1`)
	run, err := scanRun(row, true)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest run: %w", err)
	}
	return run, nil
}

// List returns run records newest-first, without per-query results.
func (s *RunStore) List(limit int) ([]*StoredRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Conn().Query(selectColumns+` FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*StoredRun
	for rows.Next() {
		run, err := scanRun(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

const selectColumns = `
	SELECT id, created_at, git_commit, mode, golden_set_path,
		total_queries, succeeded, failed,
		hit_count, near_count, miss_count,
		success_rate, hit_rate, near_rate, miss_rate,
		avg_error, max_error,
		avg_duration_ms, total_cost, avg_cost,
		rate_source, ceiling, gate_passed,
		cpu_percent, mem_used_percent,
		results_blob`

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner, withResults bool) (*StoredRun, error) {
	var (
		run         StoredRun
		createdAt   string
		successRate sql.NullFloat64
		hitRate     sql.NullFloat64
		nearRate    sql.NullFloat64
		missRate    sql.NullFloat64
		avgError    sql.NullFloat64
		maxError    sql.NullFloat64
		avgDurMS    float64
		totalCost   string
		avgCost     string
		cpuPct      sql.NullFloat64
		memPct      sql.NullFloat64
		blob        []byte
	)

	err := row.Scan(
		&run.ID, &createdAt, &run.GitCommit, &run.Mode, &run.GoldenSetPath,
		&run.Summary.TotalQueries, &run.Summary.Succeeded, &run.Summary.Failed,
		&run.Summary.HitCount, &run.Summary.NearCount, &run.Summary.MissCount,
		&successRate, &hitRate, &nearRate, &missRate,
		&avgError, &maxError,
		&avgDurMS, &totalCost, &avgCost,
		&run.RateSource, &run.Ceiling, &run.GatePassed,
		&cpuPct, &memPct,
		&blob,
	)
	if err != nil {
		return nil, err
	}

	run.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}

	run.Summary.SuccessRate = floatOrNaN(successRate)
	run.Summary.HitRate = floatOrNaN(hitRate)
	run.Summary.NearRate = floatOrNaN(nearRate)
	run.Summary.MissRate = floatOrNaN(missRate)
	run.Summary.AvgError = floatOrNaN(avgError)
	run.Summary.MaxError = floatOrNaN(maxError)
	run.Summary.NoData = run.Summary.Succeeded == 0
	run.Summary.AvgDuration = time.Duration(avgDurMS * float64(time.Millisecond))

	run.Summary.TotalCost, err = decimal.NewFromString(totalCost)
	if err != nil {
		return nil, fmt.Errorf("invalid total_cost %q: %w", totalCost, err)
	}
	run.Summary.AvgCost, err = decimal.NewFromString(avgCost)
	if err != nil {
		return nil, fmt.Errorf("invalid avg_cost %q: %w", avgCost, err)
	}

	if cpuPct.Valid {
		run.CPUPercent = cpuPct.Float64
	}
	if memPct.Valid {
		run.MemUsedPercent = memPct.Float64
	}

	if withResults && len(blob) > 0 {
		if err := msgpack.Unmarshal(blob, &run.Results); err != nil {
			return nil, fmt.Errorf("failed to decode results blob: %w", err)
		}
	}

	return &run, nil
}

// nullIfNaN maps NaN (undefined statistics on no-data runs) to SQL NULL.
func nullIfNaN(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func nullIfZero(v float64) any {
	if v == 0 {
		return nil
	}
	return v
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
