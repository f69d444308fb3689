package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sergeeey/verifind/internal/artifact"
	"github.com/sergeeey/verifind/internal/events"
	"github.com/sergeeey/verifind/internal/pipeline"
	"github.com/sergeeey/verifind/internal/ratesource"
	"github.com/sergeeey/verifind/internal/runner"
	"github.com/sergeeey/verifind/internal/scheduler"
	"github.com/sergeeey/verifind/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run history API and schedule nightly evaluations",
	Long: `Starts the HTTP API over the run history, streams run progress
over WebSocket, and runs the full golden set on the configured cron
schedule (RUN_SCHEDULE). Scheduled runs record accuracy history; a
failing gate is logged, not fatal.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	log.Info().Msg("Starting verifind")

	runs, closeStore, err := openRunStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	bus := events.NewBus()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var uploader *artifact.Uploader
	if cfg.Artifact.Enabled() {
		uploader, err = artifact.NewUploader(ctx, cfg.Artifact, log)
		if err != nil {
			log.Error().Err(err).Msg("Artifact uploads disabled")
			uploader = nil
		}
	}

	invoker := pipeline.NewClient(cfg.PipelineURL, cfg.PipelineTimeout+10*time.Second, log)
	rates := ratesource.New(cfg.FredAPIKey, log)
	r := runner.New(invoker, runs, rates, bus, uploader, log)

	// Scheduled full runs. The whole run is bounded by the per-query
	// timeout times the set size plus slack; reloading the golden set on
	// each trigger picks up curation changes without a restart.
	sched := scheduler.New(log)
	job := scheduler.NewEvaluationJob(r, cfg.GoldenSetPath, runner.Options{
		Mode:          "full",
		Workers:       cfg.Workers,
		Timeout:       cfg.PipelineTimeout,
		Ceiling:       cfg.ErrorCeiling,
		GitCommit:     cfg.GitCommit,
		GoldenSetPath: cfg.GoldenSetPath,
		ReportDir:     cfg.ReportDir,
	}, 4*time.Hour, log)
	if err := sched.AddJob(cfg.Schedule, job); err != nil {
		return err
	}
	sched.Start()
	log.Info().Str("schedule", cfg.Schedule).Msg("Evaluation scheduler started")

	srv := server.New(server.Config{
		Log:     log,
		Runs:    runs,
		Bus:     bus,
		Port:    cfg.Port,
		DevMode: cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
	return nil
}
