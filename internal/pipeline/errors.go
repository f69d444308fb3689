package pipeline

import "fmt"

// PipelineError reports that the pipeline itself failed: a stage errored,
// a ticker was not recognized, or the call timed out.
type PipelineError struct {
	Stage   string // plan, fetch, vee, gate, debate; empty when unknown
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("pipeline error in %s stage: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("pipeline error: %s", e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// ExtractionError reports that the pipeline produced output but no number
// could be parsed from it. Kept distinct from PipelineError: historically
// this parsing step caused false regressions that looked like accuracy
// drops.
type ExtractionError struct {
	Output string
}

func (e *ExtractionError) Error() string {
	out := e.Output
	if len(out) > 120 {
		out = out[:120] + "..."
	}
	return fmt.Sprintf("could not extract a number from pipeline output: %q", out)
}
