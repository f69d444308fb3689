package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sergeeey/verifind/internal/golden"
)

// Client invokes the pipeline over its HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a pipeline HTTP client. The timeout is the transport
// ceiling; per-query deadlines come in through the context.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log.With().Str("client", "pipeline").Logger(),
	}
}

// queryRequest is the wire format of a pipeline query submission.
type queryRequest struct {
	Query       string `json:"query"`
	Ticker      string `json:"ticker,omitempty"`
	PeriodStart string `json:"period_start,omitempty"`
	PeriodEnd   string `json:"period_end,omitempty"`
	FiscalYear  int    `json:"fiscal_year,omitempty"`
	Metric      string `json:"metric,omitempty"`
}

// queryResponse is the pipeline's answer envelope. The answer itself is
// free text; the numeric value is extracted client-side.
type queryResponse struct {
	Answer  string  `json:"answer"`
	CostUSD float64 `json:"cost_usd"`
}

// errorResponse is the pipeline's failure envelope.
type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage"`
}

// Invoke submits a golden query and extracts a numeric answer.
func (c *Client) Invoke(ctx context.Context, q golden.Query) (*Answer, error) {
	body, err := json.Marshal(queryRequest{
		Query:       q.Text,
		Ticker:      q.Ticker,
		PeriodStart: q.Period.Start,
		PeriodEnd:   q.Period.End,
		FiscalYear:  q.Period.FiscalYear,
		Metric:      q.Metric,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query %s: %w", q.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request for query %s: %w", q.ID, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		// Timeouts and transport failures are pipeline errors: the run
		// records them and continues.
		return nil, &PipelineError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &PipelineError{Message: fmt.Sprintf("failed to read response: %v", err), Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
			return nil, &PipelineError{Stage: errResp.Stage, Message: errResp.Error}
		}
		return nil, &PipelineError{Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	var qr queryResponse
	if err := json.Unmarshal(raw, &qr); err != nil {
		return nil, &PipelineError{Message: fmt.Sprintf("malformed response body: %v", err), Err: err}
	}

	value, err := ExtractNumber(qr.Answer)
	if err != nil {
		c.log.Warn().Str("query", q.ID).Msg("No numeric value in pipeline answer")
		return nil, err
	}

	c.log.Debug().
		Str("query", q.ID).
		Float64("value", value).
		Dur("duration", duration).
		Msg("Pipeline answered")

	return &Answer{
		Value:    value,
		Raw:      qr.Answer,
		Duration: duration,
		Cost:     decimal.NewFromFloat(qr.CostUSD),
	}, nil
}
