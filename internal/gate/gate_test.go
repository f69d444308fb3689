package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sergeeey/verifind/internal/evaluation"
)

func summaryWithAvgError(avg float64) evaluation.RunSummary {
	return evaluation.RunSummary{
		TotalQueries: 5,
		Succeeded:    5,
		AvgError:     avg,
	}
}

func TestEvaluate_WithinCeiling(t *testing.T) {
	d := Evaluate(summaryWithAvgError(0.045), 0.15)
	assert.True(t, d.Passed)
	assert.InDelta(t, 0.045, d.AvgError, 1e-9)
}

func TestEvaluate_ExceedsCeiling(t *testing.T) {
	d := Evaluate(summaryWithAvgError(0.151), 0.15)
	assert.False(t, d.Passed)
	assert.Contains(t, d.Reason, "exceeds ceiling")
}

func TestEvaluate_ExactlyAtCeilingPasses(t *testing.T) {
	// Boundary is defined as not-fail at exactly equal.
	d := Evaluate(summaryWithAvgError(0.15), 0.15)
	assert.True(t, d.Passed)
}

func TestEvaluate_NoDataFails(t *testing.T) {
	d := Evaluate(evaluation.RunSummary{NoData: true}, 0.15)
	assert.False(t, d.Passed)
	assert.Contains(t, d.Reason, "no successful results")
}
