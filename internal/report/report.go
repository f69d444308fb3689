// Package report renders evaluation runs into durable artifacts: a
// human-readable table and a machine-readable JSON record.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/sergeeey/verifind/internal/evaluation"
	"github.com/sergeeey/verifind/internal/gate"
	"github.com/sergeeey/verifind/internal/store"
)

const maxQueryWidth = 48

// Render writes the per-query table and aggregate block.
func Render(w io.Writer, run *store.StoredRun, decision gate.Decision) error {
	fmt.Fprintf(w, "verifind accuracy run %s\n", run.ID)
	fmt.Fprintf(w, "created: %s", run.CreatedAt.Format(time.RFC3339))
	if run.GitCommit != "" {
		fmt.Fprintf(w, "  commit: %s", run.GitCommit)
	}
	fmt.Fprintf(w, "  mode: %s\n\n", run.Mode)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tQUERY\tTICKER\tPERIOD\tEXPECTED\tACTUAL\tERROR%\tBAND")

	for i, r := range run.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.3f\t%s\t%s\t%s\n",
			i+1,
			truncate(r.Query.Text, maxQueryWidth),
			r.Query.Ticker,
			r.Query.Period.String(),
			r.Query.Expected,
			actualCell(r),
			errorCell(r),
			bandCell(r),
		)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to render query table: %w", err)
	}

	sum := run.Summary
	fmt.Fprintf(w, "\nqueries: %d  succeeded: %d  failed: %d  success rate: %s\n",
		sum.TotalQueries, sum.Succeeded, sum.Failed, pct(sum.SuccessRate))
	fmt.Fprintf(w, "HIT: %s  NEAR: %s  MISS: %s\n",
		pct(sum.HitRate), pct(sum.NearRate), pct(sum.MissRate))
	fmt.Fprintf(w, "avg error: %s  max error: %s\n", pct(sum.AvgError), pct(sum.MaxError))
	fmt.Fprintf(w, "avg duration: %s  total cost: $%s  avg cost: $%s\n",
		sum.AvgDuration.Round(time.Millisecond), sum.TotalCost.StringFixed(4), sum.AvgCost.StringFixed(4))
	fmt.Fprintf(w, "risk-free rate source: %s\n", run.RateSource)
	if run.RateSource == "fallback" {
		fmt.Fprintln(w, "warning: hardcoded fallback rates in use; results carry known underestimation bias")
	}
	if sum.NoData {
		fmt.Fprintln(w, "NO DATA: no successful results; band statistics are undefined")
	}

	status := "PASS"
	if !decision.Passed {
		status = "FAIL"
	}
	fmt.Fprintf(w, "\ngate: %s (%s)\n", status, decision.Reason)

	return nil
}

// jsonArtifact is the machine-readable run record.
type jsonArtifact struct {
	Run  *store.StoredRun `json:"run"`
	Gate gate.Decision    `json:"gate"`
}

// WriteFiles renders both artifacts into dir, named by timestamp and run
// id. Returns the written paths.
func WriteFiles(dir string, run *store.StoredRun, decision gate.Decision) (textPath, jsonPath string, err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create report directory: %w", err)
	}

	base := fmt.Sprintf("run_%s_%s", run.CreatedAt.Format("20060102T150405Z"), run.ID)
	textPath = filepath.Join(dir, base+".txt")
	jsonPath = filepath.Join(dir, base+".json")

	f, err := os.Create(textPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()
	if err := Render(f, run, decision); err != nil {
		return "", "", err
	}

	// NaN is not representable in JSON; strip undefined stats first.
	data, err := json.MarshalIndent(jsonArtifact{Run: run.JSONSafe(), Gate: decision.JSONSafe()}, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to encode run artifact: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return "", "", fmt.Errorf("failed to write run artifact: %w", err)
	}

	return textPath, jsonPath, nil
}

// truncate shortens s to at most n runes. Query text may carry multibyte
// company names, so slicing happens on runes, never bytes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func actualCell(r evaluation.QueryResult) string {
	if !r.Succeeded() {
		return "-"
	}
	return fmt.Sprintf("%.3f", r.Actual)
}

func errorCell(r evaluation.QueryResult) string {
	if !r.Succeeded() {
		return "-"
	}
	return fmt.Sprintf("%.2f", r.RelError*100)
}

func bandCell(r evaluation.QueryResult) string {
	if !r.Succeeded() {
		return r.Failure.String()
	}
	return r.Band.String()
}

func pct(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", v*100)
}
