package pipeline

import "time"

const (
	StatusCompleted = "completed"
	StatusUnchanged = "unchanged"
	StatusFailed    = "failed"
)

// Report summarizes one harvest run.
type Report struct {
	RunID             string    `json:"runId"`
	Source            string    `json:"source"`
	Version           string    `json:"version,omitempty"`
	Status            string    `json:"status"`
	DryRun            bool      `json:"dryRun"`
	RecordsEmitted    int64     `json:"recordsEmitted"`
	RecordsRejected   int64     `json:"recordsRejected"`
	DataflowsListed   int       `json:"dataflowsListed"`
	DataflowsSelected int       `json:"dataflowsSelected"`
	DataflowsExpanded int       `json:"dataflowsExpanded"`
	DataflowsSkipped  int       `json:"dataflowsSkipped"`
	SkippedDataflows  []string  `json:"skippedDataflows,omitempty"`
	StartedAt         time.Time `json:"startedAt"`
	FinishedAt        time.Time `json:"finishedAt"`
	Error             string    `json:"error,omitempty"`
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
