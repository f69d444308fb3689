// Package golden loads and validates the golden query set: the curated
// reference queries with known-correct expected answers that every
// evaluation run is measured against.
package golden

import (
	"encoding/json"
	"fmt"
	"os"
)

// Period identifies the time range a query is about. Either a start/end
// date pair or a fiscal year is set, never both.
type Period struct {
	Start      string `json:"start,omitempty"` // ISO date, e.g. "2023-01-01"
	End        string `json:"end,omitempty"`
	FiscalYear int    `json:"fiscal_year,omitempty"`
}

// String returns a compact human-readable form for report tables.
func (p Period) String() string {
	if p.FiscalYear != 0 {
		return fmt.Sprintf("FY%d", p.FiscalYear)
	}
	if p.Start == "" && p.End == "" {
		return "-"
	}
	return p.Start + ".." + p.End
}

// Query is a single golden query: immutable reference data, curated by
// hand and never mutated by the harness.
type Query struct {
	ID       string  `json:"id"`
	Text     string  `json:"query"`
	Ticker   string  `json:"ticker"`
	Period   Period  `json:"period"`
	Metric   string  `json:"metric"` // e.g. "sharpe_ratio"
	Expected float64 `json:"expected"`
}

// Set is an ordered collection of golden queries.
type Set struct {
	Queries []Query
}

// Load reads a golden set from a JSON file and validates it.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read golden set %s: %w", path, err)
	}

	var queries []Query
	if err := json.Unmarshal(data, &queries); err != nil {
		return nil, fmt.Errorf("failed to parse golden set %s: %w", path, err)
	}

	set := &Set{Queries: queries}
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("invalid golden set %s: %w", path, err)
	}

	return set, nil
}

// Validate checks structural integrity of the set.
func (s *Set) Validate() error {
	seen := make(map[string]bool, len(s.Queries))
	for i, q := range s.Queries {
		if q.ID == "" {
			return fmt.Errorf("query %d: missing id", i)
		}
		if seen[q.ID] {
			return fmt.Errorf("query %d: duplicate id %q", i, q.ID)
		}
		seen[q.ID] = true

		if q.Text == "" {
			return fmt.Errorf("query %s: missing query text", q.ID)
		}
		if q.Metric == "" {
			return fmt.Errorf("query %s: missing metric kind", q.ID)
		}
	}
	return nil
}

// Len returns the number of queries in the set.
func (s *Set) Len() int {
	return len(s.Queries)
}

// Head returns a new set containing the first n queries. Used for smoke
// runs against a subset of the full set.
func (s *Set) Head(n int) *Set {
	if n >= len(s.Queries) {
		return &Set{Queries: s.Queries}
	}
	return &Set{Queries: s.Queries[:n]}
}

// Subset returns a new set containing only the queries with the given IDs,
// preserving the set's original order. Unknown IDs are an error so a typo
// in a CI configuration fails loudly instead of silently shrinking the run.
func (s *Set) Subset(ids []string) (*Set, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	out := &Set{}
	for _, q := range s.Queries {
		if want[q.ID] {
			out.Queries = append(out.Queries, q)
			delete(want, q.ID)
		}
	}

	if len(want) > 0 {
		for id := range want {
			return nil, fmt.Errorf("unknown golden query id %q", id)
		}
	}

	return out, nil
}
