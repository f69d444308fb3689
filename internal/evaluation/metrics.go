package evaluation

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualization factor for daily return series.
const TradingDaysPerYear = 252

// AnnualizedSharpe computes the annualized Sharpe ratio of a daily return
// series against an annual risk-free rate. Used by golden-set verification
// to cross-check curated expected values.
//
// Returns NaN for series shorter than two observations or with zero
// variance: a Sharpe ratio is undefined there and a curation check must
// not mistake it for a real value.
func AnnualizedSharpe(dailyReturns []float64, annualRiskFree float64) float64 {
	if len(dailyReturns) < 2 {
		return math.NaN()
	}

	mean := stat.Mean(dailyReturns, nil)
	std := stat.StdDev(dailyReturns, nil)
	if std == 0 {
		return math.NaN()
	}

	annualReturn := mean * TradingDaysPerYear
	annualVol := std * math.Sqrt(TradingDaysPerYear)

	return (annualReturn - annualRiskFree) / annualVol
}

// DailyReturns converts a price series into simple daily returns.
func DailyReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		returns = append(returns, prices[i]/prices[i-1]-1)
	}
	return returns
}
