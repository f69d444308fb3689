package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sergeeey/verifind/internal/classify"
	"github.com/sergeeey/verifind/internal/evaluation"
	"github.com/sergeeey/verifind/internal/golden"
	"github.com/sergeeey/verifind/internal/ratesource"
)

var (
	verifyGoldenPath string
	verifyReturnsDir string
)

var goldenCmd = &cobra.Command{
	Use:   "golden",
	Short: "Curate and verify the golden set",
}

var goldenVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Recompute Sharpe ratios and check curated expected values",
	Long: `Recomputes the annualized Sharpe ratio for each golden query from a
return series file and compares it against the curated expected value.

Return series live in the returns directory as <query-id>.json, each
holding either a "daily_returns" or a "prices" array. Queries without
a series file are skipped. The command fails when any recomputed value
lands outside the near band of its curated expectation.`,
	RunE: runGoldenVerify,
}

func init() {
	goldenVerifyCmd.Flags().StringVar(&verifyGoldenPath, "golden", "", "golden set path (default from GOLDEN_SET_PATH)")
	goldenVerifyCmd.Flags().StringVar(&verifyReturnsDir, "returns", "", "directory of per-query return series files")
	_ = goldenVerifyCmd.MarkFlagRequired("returns")

	goldenCmd.AddCommand(goldenVerifyCmd)
	rootCmd.AddCommand(goldenCmd)
}

// returnsFile is a per-query return series. Prices are converted to
// simple daily returns when no returns are given directly.
type returnsFile struct {
	DailyReturns []float64 `json:"daily_returns"`
	Prices       []float64 `json:"prices"`
}

func runGoldenVerify(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	goldenPath := cfg.GoldenSetPath
	if verifyGoldenPath != "" {
		goldenPath = verifyGoldenPath
	}

	set, err := golden.Load(goldenPath)
	if err != nil {
		return err
	}

	rates := ratesource.New(cfg.FredAPIKey, log)
	ctx := context.Background()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEXPECTED\tRECOMPUTED\tERROR%\tBAND")

	var checked, misses, skipped int
	for _, q := range set.Queries {
		series, err := loadReturns(verifyReturnsDir, q.ID)
		if err != nil {
			if os.IsNotExist(err) {
				skipped++
				continue
			}
			return err
		}

		year, err := periodYear(q.Period)
		if err != nil {
			return fmt.Errorf("query %s: %w", q.ID, err)
		}
		riskFree, err := rates.AnnualRate(ctx, year)
		if err != nil {
			return fmt.Errorf("query %s: %w", q.ID, err)
		}

		sharpe := evaluation.AnnualizedSharpe(series, riskFree)
		if sharpe != sharpe {
			return fmt.Errorf("query %s: Sharpe ratio undefined for its return series", q.ID)
		}

		c := classify.Classify(q.Expected, sharpe)
		if c.Band == classify.Miss {
			misses++
		}
		checked++

		fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.2f\t%s\n",
			q.ID, q.Expected, sharpe, c.Error*100, c.Band)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nchecked: %d  skipped: %d  risk-free source: %s\n",
		checked, skipped, rates.Source())

	if misses > 0 {
		return fmt.Errorf("%d golden expected value(s) disagree with recomputation", misses)
	}
	return nil
}

// periodYear resolves the calendar year a query's period falls in: the
// fiscal year when set, otherwise the year of the start date.
func periodYear(p golden.Period) (int, error) {
	if p.FiscalYear != 0 {
		return p.FiscalYear, nil
	}
	if p.Start != "" {
		start, err := time.Parse("2006-01-02", p.Start)
		if err != nil {
			return 0, fmt.Errorf("unparseable period start %q: %w", p.Start, err)
		}
		return start.Year(), nil
	}
	return 0, errors.New("period has neither a fiscal year nor a start date")
}

func loadReturns(dir, queryID string) ([]float64, error) {
	data, err := os.ReadFile(filepath.Join(dir, queryID+".json"))
	if err != nil {
		return nil, err
	}

	var rf returnsFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("invalid return series for %s: %w", queryID, err)
	}

	if len(rf.DailyReturns) > 0 {
		return rf.DailyReturns, nil
	}
	returns := evaluation.DailyReturns(rf.Prices)
	if len(returns) == 0 {
		return nil, fmt.Errorf("return series for %s holds no usable data", queryID)
	}
	return returns, nil
}
