// Package ratesource provides annual risk-free rates for Sharpe ratio
// work. Rates come from the FRED API when a key is configured; without a
// key the provider falls back to hardcoded annual averages.
//
// The fallback is the known root cause of systematic underestimation bias
// in pipeline results, so the active source is recorded on every run
// summary and in golden-set verification output.
package ratesource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// Source identifies where rates are coming from.
type Source string

const (
	// SourceAPI - live rates from the FRED API.
	SourceAPI Source = "api"
	// SourceFallback - hardcoded annual averages; introduces known bias.
	SourceFallback Source = "fallback"
)

const defaultBaseURL = "https://api.stlouisfed.org/fred"

// fallbackAnnualRates are 3-month Treasury bill annual averages, used when
// no FRED_API_KEY is configured.
var fallbackAnnualRates = map[int]float64{
	2019: 0.0206,
	2020: 0.0036,
	2021: 0.0004,
	2022: 0.0202,
	2023: 0.0507,
	2024: 0.0496,
	2025: 0.0421,
}

// Provider serves annual risk-free rates with an in-memory cache.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger

	mu    sync.Mutex
	cache map[int]float64
}

// New creates a rate provider. An empty apiKey selects the fallback table.
func New(apiKey string, log zerolog.Logger) *Provider {
	return NewWithBaseURL(apiKey, defaultBaseURL, log)
}

// NewWithBaseURL creates a rate provider against a custom endpoint.
// Used by tests.
func NewWithBaseURL(apiKey, baseURL string, log zerolog.Logger) *Provider {
	return &Provider{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log:   log.With().Str("client", "ratesource").Logger(),
		cache: make(map[int]float64),
	}
}

// Source reports which rate source is active.
func (p *Provider) Source() Source {
	if p.apiKey == "" {
		return SourceFallback
	}
	return SourceAPI
}

// AnnualRate returns the annual risk-free rate for a calendar year as a
// fraction (0.05 = 5%).
func (p *Provider) AnnualRate(ctx context.Context, year int) (float64, error) {
	p.mu.Lock()
	if rate, ok := p.cache[year]; ok {
		p.mu.Unlock()
		return rate, nil
	}
	p.mu.Unlock()

	var rate float64
	var err error
	if p.apiKey == "" {
		rate, err = p.fallbackRate(year)
	} else {
		rate, err = p.fetchRate(ctx, year)
	}
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	p.cache[year] = rate
	p.mu.Unlock()

	return rate, nil
}

func (p *Provider) fallbackRate(year int) (float64, error) {
	rate, ok := fallbackAnnualRates[year]
	if !ok {
		return 0, fmt.Errorf("no fallback risk-free rate for year %d (set FRED_API_KEY)", year)
	}
	p.log.Warn().Int("year", year).Float64("rate", rate).
		Msg("Using hardcoded fallback risk-free rate; results carry known bias")
	return rate, nil
}

// observationsResponse is the FRED observations envelope. Missing
// observations carry the value ".".
type observationsResponse struct {
	Observations []struct {
		Value string `json:"value"`
	} `json:"observations"`
}

func (p *Provider) fetchRate(ctx context.Context, year int) (float64, error) {
	params := url.Values{}
	params.Set("series_id", "DGS3MO")
	params.Set("api_key", p.apiKey)
	params.Set("file_type", "json")
	params.Set("observation_start", fmt.Sprintf("%d-01-01", year))
	params.Set("observation_end", fmt.Sprintf("%d-12-31", year))

	reqURL := p.baseURL + "/series/observations?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build rate request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rate request failed for %d: %w", year, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate provider returned status %d for %d", resp.StatusCode, year)
	}

	var body observationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode rate response for %d: %w", year, err)
	}

	var values []float64
	for _, obs := range body.Observations {
		if obs.Value == "." {
			continue
		}
		v, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			continue
		}
		values = append(values, v)
	}

	if len(values) == 0 {
		return 0, fmt.Errorf("no rate observations for year %d", year)
	}

	// FRED reports percent; convert the annual mean to a fraction.
	return stat.Mean(values, nil) / 100, nil
}
