// Package pipeline defines the interface to the multi-stage analysis
// pipeline under test and a client implementation for its HTTP service.
// The pipeline itself (plan, fetch, verification, debate stages) is an
// external collaborator; the harness only submits queries and interprets
// answers.
package pipeline

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sergeeey/verifind/internal/golden"
)

// Answer is a numeric result extracted from the pipeline's output, with
// timing and cost metadata.
type Answer struct {
	Value    float64
	Raw      string // the pipeline's textual output the value was extracted from
	Duration time.Duration
	Cost     decimal.Decimal
}

// Invoker submits a golden query to the pipeline and returns its answer.
// Implementations must honor context cancellation; a timed-out query
// surfaces as a *PipelineError, never a crash.
type Invoker interface {
	Invoke(ctx context.Context, q golden.Query) (*Answer, error)
}
