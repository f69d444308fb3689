package pipeline

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// The pipeline's final answer is free text produced by a debate between
// models; there is no guaranteed answer format. Extraction prefers a value
// that follows an answer-like label and falls back to the last numeric
// token, which in practice is the concluding figure of the answer text.

var (
	// "the Sharpe ratio is 1.55", "final answer: 1.55", "result = **1.55**"
	labeledNumber = regexp.MustCompile(
		`(?i)(?:final answer|answer|result|value|ratio)\s*(?:is|was|=|:)\s*\**\s*([-+]?\d[\d,]*(?:\.\d+)?)`)

	anyNumber = regexp.MustCompile(`[-+]?\d[\d,]*(?:\.\d+)?`)
)

// ExtractNumber parses a numeric value out of free-text pipeline output.
// Returns an *ExtractionError when the text contains no usable number.
func ExtractNumber(text string) (float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, &ExtractionError{Output: text}
	}

	if m := labeledNumber.FindStringSubmatch(trimmed); m != nil {
		if v, ok := parseNumeric(m[1]); ok {
			return v, nil
		}
	}

	matches := anyNumber.FindAllString(trimmed, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		if v, ok := parseNumeric(matches[i]); ok {
			return v, nil
		}
	}

	return 0, &ExtractionError{Output: text}
}

func parseNumeric(token string) (float64, bool) {
	cleaned := strings.ReplaceAll(token, ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
