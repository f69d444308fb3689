package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sergeeey/verifind/internal/golden"
	"github.com/sergeeey/verifind/internal/runner"
)

// EvaluationJob runs a full golden-set evaluation on schedule. The golden
// set is reloaded on every trigger so curation changes take effect without
// a restart.
type EvaluationJob struct {
	runner        *runner.Runner
	goldenSetPath string
	opts          runner.Options
	timeout       time.Duration
	log           zerolog.Logger
}

// NewEvaluationJob creates the scheduled full-run job. The overall timeout
// bounds the whole run, on top of the per-query timeout in opts.
func NewEvaluationJob(r *runner.Runner, goldenSetPath string, opts runner.Options, timeout time.Duration, log zerolog.Logger) *EvaluationJob {
	return &EvaluationJob{
		runner:        r,
		goldenSetPath: goldenSetPath,
		opts:          opts,
		timeout:       timeout,
		log:           log.With().Str("job", "scheduled_evaluation").Logger(),
	}
}

// Name returns the job name for scheduler logs.
func (j *EvaluationJob) Name() string {
	return "scheduled_evaluation"
}

// Run executes the evaluation. A failing gate is logged but is not a job
// error: scheduled runs record accuracy history, they do not break builds.
func (j *EvaluationJob) Run() error {
	set, err := golden.Load(j.goldenSetPath)
	if err != nil {
		return fmt.Errorf("scheduled run could not load golden set: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	run, decision, err := j.runner.Run(ctx, set, j.opts)
	if err != nil {
		return err
	}

	if !decision.Passed {
		j.log.Warn().
			Str("run_id", run.ID).
			Str("reason", decision.Reason).
			Msg("Scheduled run failed the accuracy gate")
	}
	return nil
}
