package testing

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sergeeey/verifind/internal/golden"
	"github.com/sergeeey/verifind/internal/pipeline"
)

// MockInvoker is a pipeline.Invoker backed by canned answers and errors,
// keyed by golden query ID. Safe for concurrent use.
type MockInvoker struct {
	mu      sync.Mutex
	Answers map[string]float64
	Errors  map[string]error
	Delay   time.Duration
	calls   []string
}

// NewMockInvoker creates a mock invoker answering with the given values.
func NewMockInvoker(answers map[string]float64) *MockInvoker {
	return &MockInvoker{
		Answers: answers,
		Errors:  make(map[string]error),
	}
}

// Invoke returns the canned answer or error for the query.
func (m *MockInvoker) Invoke(ctx context.Context, q golden.Query) (*pipeline.Answer, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, &pipeline.PipelineError{Message: "query timed out", Err: ctx.Err()}
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, q.ID)
	err := m.Errors[q.ID]
	value, ok := m.Answers[q.ID]
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &pipeline.PipelineError{Message: "no canned answer for " + q.ID}
	}

	return &pipeline.Answer{
		Value:    value,
		Raw:      "mock answer",
		Duration: 10 * time.Millisecond,
		Cost:     decimal.NewFromFloat(0.01),
	}, nil
}

// Calls returns the query IDs invoked so far.
func (m *MockInvoker) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}
