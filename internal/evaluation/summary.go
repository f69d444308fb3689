package evaluation

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sergeeey/verifind/internal/classify"
)

// RunSummary is the aggregate view of one evaluation run. It is derived
// fresh from the run's QueryResults and never persisted incrementally.
//
// Band counts are exclusive (a result is counted once, in its tightest
// band); band rates are cumulative, so NearRate includes the hits and
// HitRate <= NearRate always holds.
type RunSummary struct {
	TotalQueries int  `json:"total_queries"`
	Succeeded    int  `json:"succeeded"`
	Failed       int  `json:"failed"`
	NoData       bool `json:"no_data"` // no successful results: band statistics are undefined

	SuccessRate float64 `json:"success_rate"`

	HitCount  int `json:"hit_count"`
	NearCount int `json:"near_count"` // NEAR but not HIT
	MissCount int `json:"miss_count"`

	HitRate  float64 `json:"hit_rate"`  // NaN when NoData
	NearRate float64 `json:"near_rate"` // cumulative: includes hits; NaN when NoData
	MissRate float64 `json:"miss_rate"` // NaN when NoData

	AvgError float64 `json:"avg_error"` // mean relative error over successful results; NaN when NoData
	MaxError float64 `json:"max_error"` // NaN when NoData

	AvgDuration time.Duration   `json:"avg_duration_ns"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	AvgCost     decimal.Decimal `json:"avg_cost"`
}

// Sanitized returns a copy with NaN statistics zeroed so the summary can
// be JSON-encoded; the NoData flag still marks them as undefined.
func (s RunSummary) Sanitized() RunSummary {
	for _, f := range []*float64{&s.SuccessRate, &s.HitRate, &s.NearRate, &s.MissRate, &s.AvgError, &s.MaxError} {
		if math.IsNaN(*f) {
			*f = 0
		}
	}
	return s
}

// Aggregate reduces a sequence of QueryResults into a RunSummary. The
// reduction is commutative over result order. An empty sequence yields a
// flagged no-data summary, never a division-by-zero fault.
func Aggregate(results []QueryResult) RunSummary {
	s := RunSummary{
		TotalQueries: len(results),
		TotalCost:    decimal.Zero,
		AvgCost:      decimal.Zero,
	}

	if len(results) == 0 {
		s.NoData = true
		s.SuccessRate = math.NaN()
		s.HitRate, s.NearRate, s.MissRate = math.NaN(), math.NaN(), math.NaN()
		s.AvgError, s.MaxError = math.NaN(), math.NaN()
		return s
	}

	var errors []float64
	var totalDuration time.Duration

	for _, r := range results {
		totalDuration += r.Duration
		s.TotalCost = s.TotalCost.Add(r.Cost)

		if !r.Succeeded() {
			s.Failed++
			continue
		}
		s.Succeeded++
		errors = append(errors, r.RelError)

		switch r.Band {
		case classify.Hit:
			s.HitCount++
		case classify.Near:
			s.NearCount++
		case classify.Miss:
			s.MissCount++
		}
	}

	s.SuccessRate = float64(s.Succeeded) / float64(s.TotalQueries)
	s.AvgDuration = totalDuration / time.Duration(s.TotalQueries)
	s.AvgCost = s.TotalCost.Div(decimal.NewFromInt(int64(s.TotalQueries)))

	if s.Succeeded == 0 {
		s.NoData = true
		s.HitRate, s.NearRate, s.MissRate = math.NaN(), math.NaN(), math.NaN()
		s.AvgError, s.MaxError = math.NaN(), math.NaN()
		return s
	}

	succeeded := float64(s.Succeeded)
	s.HitRate = float64(s.HitCount) / succeeded
	s.NearRate = float64(s.HitCount+s.NearCount) / succeeded
	s.MissRate = float64(s.MissCount) / succeeded

	s.AvgError = stat.Mean(errors, nil)
	s.MaxError = floats.Max(errors)

	return s
}
