package analytics

import "time"

// AllQueries is the qid of aggregate rows.
const AllQueries = "all"

type EventType string

const (
	EventEvaluation EventType = "evaluation"
	EventFailure    EventType = "failure"
	EventRunSummary EventType = "run_summary"
)

// EvaluationRecord is one metric value for one (model, variant, qid). Rows
// with QID == AllQueries carry the mean over Evaluated queries.
type EvaluationRecord struct {
	Model     string  `json:"model"`
	Variant   string  `json:"variant"`
	QID       string  `json:"qid"`
	Metric    string  `json:"metric"`
	Value     float64 `json:"value"`
	Evaluated int      `json:"evaluated,omitempty"`
	QIDs      []string `json:"qids,omitempty"`
}

// Row is one line of the denormalized result table.
type Row struct {
	Model   string  `json:"model"`
	Variant string  `json:"variant"`
	QID     string  `json:"qid"`
	DocNo   string  `json:"docno"`
	Score   float64 `json:"score"`
	Rank    int     `json:"rank"`
}

// Failure records a combination that could not be scored or evaluated.
type Failure struct {
	Model   string `json:"model"`
	Variant string `json:"variant"`
	QID     string `json:"qid,omitempty"`
	Error   string `json:"error"`
}

// Event is the envelope published for every record of a run.
type Event struct {
	Type      EventType         `json:"type"`
	RunID     string            `json:"run_id"`
	Record    *EvaluationRecord `json:"record,omitempty"`
	Failure   *Failure          `json:"failure,omitempty"`
	Stats     *Stats            `json:"stats,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
