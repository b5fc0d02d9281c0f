package analytics

import (
	"cmp"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	evalmetrics "github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/evaluation/metrics"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/ranker"
)

// Stats summarizes what an Aggregator has collected.
type Stats struct {
	Combinations int   `json:"combinations"`
	Queries      int   `json:"queries"`
	Results      int   `json:"results"`
	Evaluations  int   `json:"evaluations"`
	Failures     int   `json:"failures"`
	Skipped      int64 `json:"skipped"`
}

type key struct {
	model   string
	variant string
	qid     string
}

type resultSet struct {
	key
	ranked []ranker.ScoredDoc
}

type metricSet struct {
	key
	scores evalmetrics.Scores
}

// Aggregator collects ranked results, metric values and failures from
// concurrent scoring workers. Writes only append under the lock; every read
// sorts, so output order never depends on worker scheduling.
type Aggregator struct {
	mu       sync.Mutex
	results  []resultSet
	metrics  []metricSet
	failures []Failure
	skipped  atomic.Int64

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		logger: slog.Default().With("component", "result-aggregator"),
	}
}

// Add stores the ranked result of one (model, variant, qid). The slice is
// copied.
func (a *Aggregator) Add(model, variant, qid string, ranked []ranker.ScoredDoc) {
	rs := resultSet{key: key{model, variant, qid}, ranked: slices.Clone(ranked)}
	a.mu.Lock()
	a.results = append(a.results, rs)
	a.mu.Unlock()
}

// AddMetrics stores the metric values of one evaluable query.
func (a *Aggregator) AddMetrics(model, variant, qid string, scores evalmetrics.Scores) {
	ms := metricSet{key: key{model, variant, qid}, scores: make(evalmetrics.Scores, len(scores))}
	for name, v := range scores {
		ms.scores[name] = v
	}
	a.mu.Lock()
	a.metrics = append(a.metrics, ms)
	a.mu.Unlock()
}

// AddFailure records a combination that failed. qid is empty when the whole
// (model, variant) combination failed.
func (a *Aggregator) AddFailure(model, variant, qid string, err error) {
	f := Failure{Model: model, Variant: variant, QID: qid}
	if err != nil {
		f.Error = err.Error()
	}
	a.mu.Lock()
	a.failures = append(a.failures, f)
	a.mu.Unlock()
	a.logger.Warn("combination failed",
		"model", model,
		"variant", variant,
		"qid", qid,
		"error", err,
	)
}

// AddSkipped counts a query that was scored but is not evaluable.
func (a *Aggregator) AddSkipped(model, variant, qid string) {
	a.skipped.Add(1)
	a.logger.Debug("query not evaluable", "model", model, "variant", variant, "qid", qid)
}

// TopK returns at most k rows per (model, variant, qid), ordered like
// Export. k <= 0 returns every row.
func (a *Aggregator) TopK(k int) []Row {
	a.mu.Lock()
	sets := slices.Clone(a.results)
	a.mu.Unlock()

	var rows []Row
	for _, rs := range sets {
		ranked := slices.Clone(rs.ranked)
		slices.SortStableFunc(ranked, func(x, y ranker.ScoredDoc) int {
			if c := cmp.Compare(y.Score, x.Score); c != 0 {
				return c
			}
			return cmp.Compare(x.Rank, y.Rank)
		})
		if k > 0 && len(ranked) > k {
			ranked = ranked[:k]
		}
		for _, doc := range ranked {
			rows = append(rows, Row{
				Model:   rs.model,
				Variant: rs.variant,
				QID:     rs.qid,
				DocNo:   doc.DocID,
				Score:   doc.Score,
				Rank:    doc.Rank,
			})
		}
	}
	sortRows(rows)
	return rows
}

// Export returns every stored result as one table sorted by variant, model,
// qid, descending score, then rank.
func (a *Aggregator) Export() []Row {
	return a.TopK(0)
}

func sortRows(rows []Row) {
	slices.SortStableFunc(rows, func(x, y Row) int {
		if c := cmp.Compare(x.Variant, y.Variant); c != 0 {
			return c
		}
		if c := cmp.Compare(x.Model, y.Model); c != 0 {
			return c
		}
		if c := cmp.Compare(x.QID, y.QID); c != 0 {
			return c
		}
		if c := cmp.Compare(y.Score, x.Score); c != 0 {
			return c
		}
		return cmp.Compare(x.Rank, y.Rank)
	})
}

// Records returns one record per metric per evaluated query plus, for every
// (model, variant), aggregate rows with QID AllQueries holding the mean and
// the queries it covers. Aggregate rows follow the per-query rows
// of their combination.
func (a *Aggregator) Records() []EvaluationRecord {
	a.mu.Lock()
	sets := slices.Clone(a.metrics)
	a.mu.Unlock()

	type combo struct{ model, variant string }
	perCombo := make(map[combo]map[string]evalmetrics.Scores)
	var records []EvaluationRecord
	for _, ms := range sets {
		c := combo{ms.model, ms.variant}
		if perCombo[c] == nil {
			perCombo[c] = make(map[string]evalmetrics.Scores)
		}
		perCombo[c][ms.qid] = ms.scores
		for name, v := range ms.scores {
			records = append(records, EvaluationRecord{
				Model:   ms.model,
				Variant: ms.variant,
				QID:     ms.qid,
				Metric:  name,
				Value:   v,
			})
		}
	}
	for c, perQuery := range perCombo {
		summary := evalmetrics.Aggregate(perQuery)
		for name, mean := range summary.Means {
			records = append(records, EvaluationRecord{
				Model:     c.model,
				Variant:   c.variant,
				QID:       AllQueries,
				Metric:    name,
				Value:     mean,
				Evaluated: summary.Evaluated,
				QIDs:      summary.QIDs,
			})
		}
	}

	slices.SortFunc(records, func(x, y EvaluationRecord) int {
		if c := cmp.Compare(x.Variant, y.Variant); c != 0 {
			return c
		}
		if c := cmp.Compare(x.Model, y.Model); c != 0 {
			return c
		}
		if xa, ya := x.QID == AllQueries, y.QID == AllQueries; xa != ya {
			if xa {
				return 1
			}
			return -1
		}
		if c := cmp.Compare(x.QID, y.QID); c != 0 {
			return c
		}
		return cmp.Compare(x.Metric, y.Metric)
	})
	return records
}

// Summaries returns the aggregate rows only, keyed by variant then model.
func (a *Aggregator) Summaries() []EvaluationRecord {
	var out []EvaluationRecord
	for _, r := range a.Records() {
		if r.QID == AllQueries {
			out = append(out, r)
		}
	}
	return out
}

// Failures returns recorded failures sorted by variant, model and qid.
func (a *Aggregator) Failures() []Failure {
	a.mu.Lock()
	out := slices.Clone(a.failures)
	a.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Variant != out[j].Variant {
			return out[i].Variant < out[j].Variant
		}
		if out[i].Model != out[j].Model {
			return out[i].Model < out[j].Model
		}
		return out[i].QID < out[j].QID
	})
	return out
}

func (a *Aggregator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	combos := make(map[[2]string]struct{})
	qids := make(map[string]struct{})
	rows := 0
	for _, rs := range a.results {
		combos[[2]string{rs.model, rs.variant}] = struct{}{}
		qids[rs.qid] = struct{}{}
		rows += len(rs.ranked)
	}
	return Stats{
		Combinations: len(combos),
		Queries:      len(qids),
		Results:      rows,
		Evaluations:  len(a.metrics),
		Failures:     len(a.failures),
		Skipped:      a.skipped.Load(),
	}
}
