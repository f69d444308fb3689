// Package classify buckets pipeline answers into tolerance bands against
// their expected values. Classification is a pure function of
// (expected, actual) under fixed thresholds.
package classify

import "math"

// Band thresholds on relative error. Both comparisons are strict:
// an error of exactly 1% is NEAR, exactly 10% is MISS.
const (
	HitThreshold  = 0.01
	NearThreshold = 0.10
)

// Band is the tolerance band an answer falls into. Bands are nested:
// every HIT also satisfies the NEAR bound. The band reported is the
// tightest one satisfied.
type Band int

const (
	// Hit - relative error under 1%.
	Hit Band = iota
	// Near - relative error under 10% but not a Hit.
	Near
	// Miss - relative error at or above 10%.
	Miss
)

// String returns the band name as it appears in report tables.
func (b Band) String() string {
	switch b {
	case Hit:
		return "HIT"
	case Near:
		return "NEAR"
	case Miss:
		return "MISS"
	default:
		return "UNKNOWN"
	}
}

// Classification is the outcome of comparing an actual value against its
// expected value.
type Classification struct {
	Band  Band
	Error float64 // relative error, or absolute error when expected == 0
}

// RelativeError computes |actual - expected| / |expected|.
//
// Relative error is undefined for expected == 0; in that case the absolute
// error |actual| is returned and thresholded on the same scale. The golden
// set has never exercised this case, but a curated zero must not divide by
// zero.
func RelativeError(expected, actual float64) float64 {
	if expected == 0 {
		return math.Abs(actual)
	}
	return math.Abs(actual-expected) / math.Abs(expected)
}

// BandFor returns the tightest band the given error satisfies.
func BandFor(err float64) Band {
	switch {
	case err < HitThreshold:
		return Hit
	case err < NearThreshold:
		return Near
	default:
		return Miss
	}
}

// Classify compares an actual value against its expected value.
func Classify(expected, actual float64) Classification {
	err := RelativeError(expected, actual)
	return Classification{
		Band:  BandFor(err),
		Error: err,
	}
}
