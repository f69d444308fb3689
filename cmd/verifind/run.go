package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sergeeey/verifind/internal/artifact"
	"github.com/sergeeey/verifind/internal/events"
	"github.com/sergeeey/verifind/internal/gate"
	"github.com/sergeeey/verifind/internal/golden"
	"github.com/sergeeey/verifind/internal/pipeline"
	"github.com/sergeeey/verifind/internal/ratesource"
	"github.com/sergeeey/verifind/internal/report"
	"github.com/sergeeey/verifind/internal/runner"
	"github.com/sergeeey/verifind/internal/store"
)

var (
	runGoldenPath string
	runMode       string
	runSubsetIDs  []string
	runCeiling    float64
	runWorkers    int
	runTimeout    time.Duration
	runJSONOutput bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate the golden set against the pipeline",
	Long: `Runs golden queries through the pipeline, classifies every answer,
persists the run, writes report artifacts and applies the accuracy gate.

The exit code reflects the gate decision: 0 when the run passes,
1 when average error exceeds the ceiling (or the run produced no
data), 2 on harness errors.`,
	RunE: runEvaluation,
}

func init() {
	runCmd.Flags().StringVar(&runGoldenPath, "golden", "", "golden set path (default from GOLDEN_SET_PATH)")
	runCmd.Flags().StringVar(&runMode, "mode", "full", "run mode: full, smoke or subset")
	runCmd.Flags().StringSliceVar(&runSubsetIDs, "subset", nil, "query ids for subset mode")
	runCmd.Flags().Float64Var(&runCeiling, "ceiling", 0, "gate ceiling on average error (default from ERROR_CEILING)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "worker pool size (default from EVAL_WORKERS)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "per-query timeout (default from PIPELINE_TIMEOUT_SECONDS)")
	runCmd.Flags().BoolVar(&runJSONOutput, "json", false, "print the run record as JSON instead of a table")

	rootCmd.AddCommand(runCmd)
}

func runEvaluation(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	// Flags override environment configuration when set.
	goldenPath := cfg.GoldenSetPath
	if runGoldenPath != "" {
		goldenPath = runGoldenPath
	}
	ceiling := cfg.ErrorCeiling
	if cmd.Flags().Changed("ceiling") {
		ceiling = runCeiling
	}
	workers := cfg.Workers
	if cmd.Flags().Changed("workers") {
		workers = runWorkers
	}
	timeout := cfg.PipelineTimeout
	if cmd.Flags().Changed("timeout") {
		timeout = runTimeout
	}

	set, err := golden.Load(goldenPath)
	if err != nil {
		return err
	}

	runs, closeStore, err := openRunStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var uploader *artifact.Uploader
	if cfg.Artifact.Enabled() {
		uploader, err = artifact.NewUploader(ctx, cfg.Artifact, log)
		if err != nil {
			// Artifact storage is best-effort; a misconfigured bucket must
			// not block accuracy measurement.
			log.Error().Err(err).Msg("Artifact uploads disabled")
			uploader = nil
		}
	}

	// The HTTP client timeout sits above the per-query deadline so the
	// context, not the transport, decides when a query is overdue.
	invoker := pipeline.NewClient(cfg.PipelineURL, timeout+10*time.Second, log)
	rates := ratesource.New(cfg.FredAPIKey, log)

	r := runner.New(invoker, runs, rates, events.NewBus(), uploader, log)

	run, decision, err := r.Run(ctx, set, runner.Options{
		Mode:          runMode,
		SubsetIDs:     runSubsetIDs,
		Workers:       workers,
		Timeout:       timeout,
		Ceiling:       ceiling,
		GitCommit:     cfg.GitCommit,
		GoldenSetPath: goldenPath,
		ReportDir:     cfg.ReportDir,
	})
	if err != nil {
		return err
	}

	if err := printRun(run, decision); err != nil {
		return err
	}

	if !decision.Passed {
		return errGateFailed
	}
	return nil
}

func printRun(run *store.StoredRun, decision gate.Decision) error {
	if runJSONOutput {
		data, err := json.MarshalIndent(struct {
			Run  *store.StoredRun `json:"run"`
			Gate gate.Decision    `json:"gate"`
		}{run.JSONSafe(), decision.JSONSafe()}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode run: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}
	return report.Render(os.Stdout, run, decision)
}
