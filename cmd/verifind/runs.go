package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sergeeey/verifind/internal/gate"
	"github.com/sergeeey/verifind/internal/report"
)

var (
	runsLimit    int
	runsShowJSON bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the stored run history",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the full report for one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	runsShowCmd.Flags().BoolVar(&runsShowJSON, "json", false, "print the run record as JSON")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	runs, closeStore, err := openRunStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	list, err := runs.List(runsLimit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tMODE\tQUERIES\tHIT\tAVG ERR\tGATE")
	for _, run := range list {
		gateCell := "FAIL"
		if run.GatePassed {
			gateCell = "PASS"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			run.ID,
			run.CreatedAt.Format(time.RFC3339),
			run.Mode,
			run.Summary.TotalQueries,
			statCell(run.Summary.HitRate),
			statCell(run.Summary.AvgError),
			gateCell,
		)
	}
	return tw.Flush()
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	runs, closeStore, err := openRunStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	run, err := runs.Get(args[0])
	if err != nil {
		return err
	}

	// The stored record carries the decision inputs, so the decision is
	// reproducible from the summary and the ceiling in effect at run time.
	decision := gate.Evaluate(run.Summary, run.Ceiling)

	if runsShowJSON {
		data, err := json.MarshalIndent(struct {
			Run  any           `json:"run"`
			Gate gate.Decision `json:"gate"`
		}{run.JSONSafe(), decision.JSONSafe()}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode run: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}
	return report.Render(os.Stdout, run, decision)
}

func statCell(v float64) string {
	if v != v {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", v*100)
}
