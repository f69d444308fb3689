package ratesource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_FallbackWithoutKey(t *testing.T) {
	p := New("", zerolog.Nop())

	assert.Equal(t, SourceFallback, p.Source())

	rate, err := p.AnnualRate(context.Background(), 2023)
	require.NoError(t, err)
	assert.InDelta(t, 0.0507, rate, 1e-9)
}

func TestProvider_FallbackUnknownYear(t *testing.T) {
	p := New("", zerolog.Nop())

	_, err := p.AnnualRate(context.Background(), 1995)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FRED_API_KEY")
}

func TestProvider_FetchesAndCaches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/series/observations", r.URL.Path)
		assert.Equal(t, "DGS3MO", r.URL.Query().Get("series_id"))
		assert.Equal(t, "2023-01-01", r.URL.Query().Get("observation_start"))

		// Two real observations and one missing marker.
		_, _ = w.Write([]byte(`{"observations":[{"value":"5.00"},{"value":"."},{"value":"5.14"}]}`))
	}))
	defer srv.Close()

	p := NewWithBaseURL("test-key", srv.URL, zerolog.Nop())
	assert.Equal(t, SourceAPI, p.Source())

	rate, err := p.AnnualRate(context.Background(), 2023)
	require.NoError(t, err)
	assert.InDelta(t, 0.0507, rate, 1e-9)

	// Second call hits the cache.
	_, err = p.AnnualRate(context.Background(), 2023)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestProvider_APIErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	p := NewWithBaseURL("bad-key", srv.URL, zerolog.Nop())
	_, err := p.AnnualRate(context.Background(), 2023)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestProvider_NoObservations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"observations":[{"value":"."}]}`))
	}))
	defer srv.Close()

	p := NewWithBaseURL("test-key", srv.URL, zerolog.Nop())
	_, err := p.AnnualRate(context.Background(), 2023)
	require.Error(t, err)
}
