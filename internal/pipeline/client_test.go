package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergeeey/verifind/internal/golden"
)

func testQuery() golden.Query {
	return golden.Query{
		ID:       "q1",
		Text:     "What was the Sharpe ratio of AAPL in 2023?",
		Ticker:   "AAPL",
		Period:   golden.Period{FiscalYear: 2023},
		Metric:   "sharpe_ratio",
		Expected: 1.743,
	}
}

func TestClient_Invoke_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/query", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req queryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "AAPL", req.Ticker)
		assert.Equal(t, 2023, req.FiscalYear)

		_ = json.NewEncoder(w).Encode(queryResponse{
			Answer:  "The Sharpe ratio is 1.552 based on daily closes.",
			CostUSD: 0.034,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, zerolog.Nop())
	answer, err := client.Invoke(context.Background(), testQuery())

	require.NoError(t, err)
	assert.InDelta(t, 1.552, answer.Value, 1e-9)
	assert.Contains(t, answer.Raw, "1.552")
	assert.Greater(t, answer.Duration, time.Duration(0))
	assert.Equal(t, "0.034", answer.Cost.String())
}

func TestClient_Invoke_PipelineError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(errorResponse{Error: "ticker not recognized", Stage: "fetch"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, zerolog.Nop())
	_, err := client.Invoke(context.Background(), testQuery())

	var pipeErr *PipelineError
	require.True(t, errors.As(err, &pipeErr))
	assert.Equal(t, "fetch", pipeErr.Stage)
	assert.Contains(t, pipeErr.Error(), "ticker not recognized")
}

func TestClient_Invoke_ExtractionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(queryResponse{
			Answer: "The debate did not converge on a value.",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, zerolog.Nop())
	_, err := client.Invoke(context.Background(), testQuery())

	var extractErr *ExtractionError
	require.True(t, errors.As(err, &extractErr))
}

func TestClient_Invoke_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Invoke(ctx, testQuery())

	// A timed-out query surfaces as a pipeline error, never a crash.
	var pipeErr *PipelineError
	require.True(t, errors.As(err, &pipeErr))
}
