package golden

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSet(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "golden_set.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeSet(t, `[
		{"id": "sharpe-aapl-2023", "query": "What was AAPL's Sharpe ratio in FY2023?",
		 "ticker": "AAPL", "period": {"fiscal_year": 2023},
		 "metric": "sharpe_ratio", "expected": 1.743},
		{"id": "sharpe-jnj-2023", "query": "What was JNJ's Sharpe ratio in FY2023?",
		 "ticker": "JNJ", "period": {"fiscal_year": 2023},
		 "metric": "sharpe_ratio", "expected": 0.542}
	]`)

	set, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())
	assert.Equal(t, "sharpe-aapl-2023", set.Queries[0].ID)
	assert.Equal(t, 1.743, set.Queries[0].Expected)
	assert.Equal(t, "FY2023", set.Queries[0].Period.String())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestLoad_DuplicateIDs(t *testing.T) {
	path := writeSet(t, `[
		{"id": "q1", "query": "a", "metric": "sharpe_ratio", "expected": 1},
		{"id": "q1", "query": "b", "metric": "sharpe_ratio", "expected": 2}
	]`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id")
}

func TestValidate_MissingFields(t *testing.T) {
	cases := []struct {
		name string
		q    Query
	}{
		{"missing id", Query{Text: "q", Metric: "sharpe_ratio"}},
		{"missing text", Query{ID: "q1", Metric: "sharpe_ratio"}},
		{"missing metric", Query{ID: "q1", Text: "q"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set := &Set{Queries: []Query{tc.q}}
			require.Error(t, set.Validate())
		})
	}
}

func TestHead(t *testing.T) {
	set := &Set{Queries: []Query{
		{ID: "a"}, {ID: "b"}, {ID: "c"},
	}}

	assert.Equal(t, 2, set.Head(2).Len())
	assert.Equal(t, "a", set.Head(2).Queries[0].ID)
	assert.Equal(t, 3, set.Head(10).Len())
}

func TestSubset(t *testing.T) {
	set := &Set{Queries: []Query{
		{ID: "a"}, {ID: "b"}, {ID: "c"},
	}}

	sub, err := set.Subset([]string{"c", "a"})
	require.NoError(t, err)
	require.Equal(t, 2, sub.Len())
	// Set order wins over argument order.
	assert.Equal(t, "a", sub.Queries[0].ID)
	assert.Equal(t, "c", sub.Queries[1].ID)
}

func TestSubset_UnknownID(t *testing.T) {
	set := &Set{Queries: []Query{{ID: "a"}}}

	_, err := set.Subset([]string{"a", "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestPeriodString(t *testing.T) {
	assert.Equal(t, "FY2023", Period{FiscalYear: 2023}.String())
	assert.Equal(t, "2023-01-01..2023-12-31", Period{Start: "2023-01-01", End: "2023-12-31"}.String())
	assert.Equal(t, "-", Period{}.String())
}
