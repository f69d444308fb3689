package testing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sergeeey/verifind/internal/evaluation"
	"github.com/sergeeey/verifind/internal/golden"
)

// BaselineGoldenSet returns the five-query baseline set used across tests.
// Expected values are the literal figures from the baseline accuracy run.
func BaselineGoldenSet() *golden.Set {
	return &golden.Set{Queries: []golden.Query{
		{ID: "sharpe-aapl-2023", Text: "What was the Sharpe ratio of AAPL in 2023?", Ticker: "AAPL", Period: golden.Period{FiscalYear: 2023}, Metric: "sharpe_ratio", Expected: 1.743},
		{ID: "sharpe-tsla-2023", Text: "What was the Sharpe ratio of TSLA in 2023?", Ticker: "TSLA", Period: golden.Period{FiscalYear: 2023}, Metric: "sharpe_ratio", Expected: 0.542},
		{ID: "sharpe-nvda-2023", Text: "What was the Sharpe ratio of NVDA in 2023?", Ticker: "NVDA", Period: golden.Period{FiscalYear: 2023}, Metric: "sharpe_ratio", Expected: 2.493},
		{ID: "sharpe-ko-2023", Text: "What was the Sharpe ratio of KO in 2023?", Ticker: "KO", Period: golden.Period{FiscalYear: 2023}, Metric: "sharpe_ratio", Expected: 0.457},
		{ID: "sharpe-msft-2023", Text: "What was the Sharpe ratio of MSFT in 2023?", Ticker: "MSFT", Period: golden.Period{FiscalYear: 2023}, Metric: "sharpe_ratio", Expected: 2.217},
	}}
}

// BaselineActuals maps golden query IDs to the actual values of the
// baseline run (2 HITs, 3 NEARs, avg error ~4.5%).
func BaselineActuals() map[string]float64 {
	return map[string]float64{
		"sharpe-aapl-2023": 1.552,
		"sharpe-tsla-2023": 0.541,
		"sharpe-nvda-2023": 2.353,
		"sharpe-ko-2023":   0.457,
		"sharpe-msft-2023": 2.092,
	}
}

// BaselineResults builds classified QueryResults for the baseline run.
func BaselineResults() []evaluation.QueryResult {
	set := BaselineGoldenSet()
	actuals := BaselineActuals()

	results := make([]evaluation.QueryResult, 0, set.Len())
	for _, q := range set.Queries {
		results = append(results, evaluation.NewResult(
			q, actuals[q.ID], "fixture", 55*time.Second, decimal.NewFromFloat(0.03)))
	}
	return results
}
