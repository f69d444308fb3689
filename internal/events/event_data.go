package events

// RunStartedData contains data for RunStarted events
type RunStartedData struct {
	RunID        string `json:"run_id"`
	Mode         string `json:"mode"`
	TotalQueries int    `json:"total_queries"`
	GitCommit    string `json:"git_commit,omitempty"`
}

// EventType returns the event type for RunStartedData
func (d *RunStartedData) EventType() EventType {
	return RunStarted
}

// QueryCompletedData contains data for QueryCompleted events
type QueryCompletedData struct {
	RunID      string  `json:"run_id"`
	QueryID    string  `json:"query_id"`
	Index      int     `json:"index"`
	Total      int     `json:"total"`
	Band       string  `json:"band,omitempty"`
	RelError   float64 `json:"rel_error"`
	Failed     bool    `json:"failed"`
	Failure    string  `json:"failure,omitempty"`
	DurationMS int64   `json:"duration_ms"`
}

// EventType returns the event type for QueryCompletedData
func (d *QueryCompletedData) EventType() EventType {
	return QueryCompleted
}

// RunCompletedData contains data for RunCompleted events
type RunCompletedData struct {
	RunID       string  `json:"run_id"`
	SuccessRate float64 `json:"success_rate"`
	HitRate     float64 `json:"hit_rate"`
	NearRate    float64 `json:"near_rate"`
	MissRate    float64 `json:"miss_rate"`
	AvgError    float64 `json:"avg_error"`
	NoData      bool    `json:"no_data"`
}

// EventType returns the event type for RunCompletedData
func (d *RunCompletedData) EventType() EventType {
	return RunCompleted
}

// GateEvaluatedData contains data for GateEvaluated events
type GateEvaluatedData struct {
	RunID    string  `json:"run_id"`
	Passed   bool    `json:"passed"`
	Reason   string  `json:"reason"`
	AvgError float64 `json:"avg_error"`
	Ceiling  float64 `json:"ceiling"`
}

// EventType returns the event type for GateEvaluatedData
func (d *GateEvaluatedData) EventType() EventType {
	return GateEvaluated
}
