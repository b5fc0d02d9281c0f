package analytics

import "time"

// RunSummary is the persisted outcome of one experiment run.
type RunSummary struct {
	RunID      string             `json:"run_id"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Stats      Stats              `json:"stats"`
	Summaries  []EvaluationRecord `json:"summaries"`
	Failures   []Failure          `json:"failures,omitempty"`
}

// Summary snapshots the aggregator as a RunSummary.
func (a *Aggregator) Summary(runID string, started, finished time.Time) RunSummary {
	return RunSummary{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: finished,
		Stats:      a.Stats(),
		Summaries:  a.Summaries(),
		Failures:   a.Failures(),
	}
}
