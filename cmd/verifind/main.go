// Package main is the entry point for verifind, the accuracy evaluation
// harness for the multi-stage financial analysis pipeline.
//
// The harness runs a golden set of queries against the pipeline service,
// classifies each numeric answer into HIT/NEAR/MISS tolerance bands,
// persists every run as an immutable record, and gates CI on the
// aggregate error.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sergeeey/verifind/internal/config"
	"github.com/sergeeey/verifind/internal/database"
	"github.com/sergeeey/verifind/internal/store"
	"github.com/sergeeey/verifind/pkg/logger"
)

var (
	// Global flags
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "verifind",
	Short: "Accuracy evaluation harness for the financial analysis pipeline",
	Long: `verifind measures the numeric accuracy of the analysis pipeline
against a curated golden set of queries with known-correct answers.

Each answer is classified into tolerance bands (HIT <1%, NEAR <10%,
MISS otherwise), runs are stored as immutable versioned records, and
the accuracy gate fails the build when average error exceeds the
configured ceiling.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// errGateFailed marks a run that completed but failed the accuracy gate.
// It flows back through cobra as a normal error so deferred cleanup
// (database close) runs before the process exits with code 1.
var errGateFailed = errors.New("accuracy gate failed")

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errGateFailed) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps command outcomes to process exit codes: 0 gate pass,
// 1 gate fail, 2 harness error.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errGateFailed):
		return 1
	default:
		return 2
	}
}

// setup loads configuration and builds the logger shared by all commands.
func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{
		Level:  level,
		Pretty: true,
	})
	logger.SetGlobalLogger(log)

	return cfg, log, nil
}

// openRunStore opens and migrates the runs database.
func openRunStore(cfg *config.Config, log zerolog.Logger) (*store.RunStore, func(), error) {
	db, err := database.New(database.Config{
		Path:    cfg.RunsDBPath(),
		Profile: database.ProfileLedger,
		Name:    "runs",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open runs database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to migrate runs database: %w", err)
	}

	return store.NewRunStore(db, log), func() { _ = db.Close() }, nil
}
