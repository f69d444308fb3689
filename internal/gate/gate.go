// Package gate implements the accuracy ceiling check that fails a build
// when aggregate error drifts past the configured limit.
package gate

import (
	"fmt"
	"math"

	"github.com/sergeeey/verifind/internal/evaluation"
)

// Decision is the outcome of evaluating a run summary against the ceiling.
// This is the only harness component whose failure is fatal to the overall
// process; per-query failures never are.
type Decision struct {
	Passed   bool    `json:"passed"`
	Reason   string  `json:"reason"`
	AvgError float64 `json:"avg_error"`
	Ceiling  float64 `json:"ceiling"`
}

// JSONSafe returns a copy with a NaN average error (no-data runs) zeroed
// so the decision can be JSON-encoded.
func (d Decision) JSONSafe() Decision {
	if math.IsNaN(d.AvgError) {
		d.AvgError = 0
	}
	return d
}

// Evaluate checks a run summary against an average-error ceiling.
//
// The gate fails iff avg error > ceiling; exactly-equal passes. A no-data
// summary fails outright: a run with nothing measurable cannot certify
// accuracy, and letting it pass would mask a broken pipeline.
func Evaluate(summary evaluation.RunSummary, ceiling float64) Decision {
	d := Decision{
		AvgError: summary.AvgError,
		Ceiling:  ceiling,
	}

	if summary.NoData {
		d.Passed = false
		d.Reason = "no successful results: aggregate error is undefined"
		return d
	}

	if summary.AvgError > ceiling {
		d.Passed = false
		d.Reason = fmt.Sprintf("average error %.2f%% exceeds ceiling %.2f%%",
			summary.AvgError*100, ceiling*100)
		return d
	}

	d.Passed = true
	d.Reason = fmt.Sprintf("average error %.2f%% within ceiling %.2f%%",
		summary.AvgError*100, ceiling*100)
	return d
}
