package evaluation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnnualizedSharpe_ConstantReturns(t *testing.T) {
	// Zero variance: Sharpe is undefined.
	returns := []float64{0.001, 0.001, 0.001}
	assert.True(t, math.IsNaN(AnnualizedSharpe(returns, 0.05)))
}

func TestAnnualizedSharpe_TooShort(t *testing.T) {
	assert.True(t, math.IsNaN(AnnualizedSharpe(nil, 0.05)))
	assert.True(t, math.IsNaN(AnnualizedSharpe([]float64{0.01}, 0.05)))
}

func TestAnnualizedSharpe_KnownSeries(t *testing.T) {
	// Alternating +1%/-0.5% daily: mean 0.25%/day, known stddev.
	returns := make([]float64, 252)
	for i := range returns {
		if i%2 == 0 {
			returns[i] = 0.01
		} else {
			returns[i] = -0.005
		}
	}

	got := AnnualizedSharpe(returns, 0.05)

	// Reference computation, same formula by hand.
	mean := 0.0025
	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	std := math.Sqrt(variance)
	want := (mean*252 - 0.05) / (std * math.Sqrt(252))

	assert.InDelta(t, want, got, 1e-9)
}

func TestAnnualizedSharpe_RiskFreeLowersRatio(t *testing.T) {
	returns := []float64{0.01, -0.004, 0.007, 0.002, -0.001, 0.005}
	low := AnnualizedSharpe(returns, 0.0008)
	high := AnnualizedSharpe(returns, 0.05)
	// The hardcoded-fallback bias: an understated risk-free rate inflates
	// the ratio, an overstated one deflates it.
	assert.Greater(t, low, high)
}

func TestDailyReturns(t *testing.T) {
	prices := []float64{100, 101, 99.99}
	returns := DailyReturns(prices)

	assert.Len(t, returns, 2)
	assert.InDelta(t, 0.01, returns[0], 1e-9)
	assert.InDelta(t, -0.01, returns[1], 1e-4)

	assert.Nil(t, DailyReturns([]float64{100}))
}
