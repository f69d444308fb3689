// Package evaluation turns per-query pipeline answers into classified
// results and reduces them into run summaries.
package evaluation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sergeeey/verifind/internal/classify"
	"github.com/sergeeey/verifind/internal/golden"
)

// FailureKind distinguishes the ways a query can fail to produce a usable
// number. Extraction failures historically caused false regressions, so
// they are tracked separately from genuine pipeline errors.
type FailureKind int

const (
	// FailureNone - the pipeline produced a numeric answer.
	FailureNone FailureKind = iota
	// FailurePipeline - the pipeline itself errored (bad ticker, timeout, stage failure).
	FailurePipeline
	// FailureExtraction - the pipeline answered, but no number could be parsed from the output.
	FailureExtraction
)

// String returns a short label for logs and reports.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailurePipeline:
		return "pipeline_error"
	case FailureExtraction:
		return "extraction_error"
	default:
		return "unknown"
	}
}

// QueryResult records the outcome of one golden query in one run.
// Created once, never mutated.
type QueryResult struct {
	Query golden.Query `json:"query" msgpack:"query"`

	Actual   float64         `json:"actual" msgpack:"actual"`
	Raw      string          `json:"raw,omitempty" msgpack:"raw"`
	Duration time.Duration   `json:"duration_ns" msgpack:"duration_ns"`
	Cost     decimal.Decimal `json:"cost" msgpack:"cost"`

	Band     classify.Band `json:"band" msgpack:"band"`
	RelError float64       `json:"rel_error" msgpack:"rel_error"`

	Failure       FailureKind `json:"failure" msgpack:"failure"`
	FailureDetail string      `json:"failure_detail,omitempty" msgpack:"failure_detail"`
}

// Succeeded reports whether the query produced a numeric answer at all.
// Distinct from accuracy banding: a MISS still succeeded.
func (r QueryResult) Succeeded() bool {
	return r.Failure == FailureNone
}

// NewResult classifies a numeric answer against its golden query.
func NewResult(q golden.Query, actual float64, raw string, duration time.Duration, cost decimal.Decimal) QueryResult {
	c := classify.Classify(q.Expected, actual)
	return QueryResult{
		Query:    q,
		Actual:   actual,
		Raw:      raw,
		Duration: duration,
		Cost:     cost,
		Band:     c.Band,
		RelError: c.Error,
	}
}

// NewFailure records a query that produced no usable number. Failed
// queries count against the success rate but are excluded from the
// error-band statistics.
func NewFailure(q golden.Query, kind FailureKind, detail string, duration time.Duration) QueryResult {
	return QueryResult{
		Query:         q,
		Duration:      duration,
		Cost:          decimal.Zero,
		Failure:       kind,
		FailureDetail: detail,
	}
}
