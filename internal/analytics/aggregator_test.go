package analytics

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	evalmetrics "github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/evaluation/metrics"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/ranker"
)

func docs(pairs ...any) []ranker.ScoredDoc {
	var out []ranker.ScoredDoc
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, ranker.ScoredDoc{
			DocID: pairs[i].(string),
			Score: pairs[i+1].(float64),
			Rank:  i/2 + 1,
		})
	}
	return out
}

func TestTopK(t *testing.T) {
	a := NewAggregator()
	a.Add("TF-IDF", "stemmed", "q1", docs("3", 2.0, "1", 1.0, "2", 1.0))
	a.Add("BM25", "stemmed", "q1", docs("1", 5.0, "2", 5.0, "3", 4.0))
	a.Add("BM25", "original", "q2", docs("9", 1.5))

	got := a.TopK(2)
	want := []Row{
		{Model: "BM25", Variant: "original", QID: "q2", DocNo: "9", Score: 1.5, Rank: 1},
		{Model: "BM25", Variant: "stemmed", QID: "q1", DocNo: "1", Score: 5, Rank: 1},
		{Model: "BM25", Variant: "stemmed", QID: "q1", DocNo: "2", Score: 5, Rank: 2},
		{Model: "TF-IDF", Variant: "stemmed", QID: "q1", DocNo: "3", Score: 2, Rank: 1},
		{Model: "TF-IDF", Variant: "stemmed", QID: "q1", DocNo: "1", Score: 1, Rank: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TopK mismatch (-want +got):\n%s", diff)
	}

	if n := len(a.Export()); n != 7 {
		t.Errorf("Export rows = %d, want 7", n)
	}
}

func TestAddCopiesInput(t *testing.T) {
	a := NewAggregator()
	ranked := docs("1", 1.0)
	a.Add("BM25", "original", "q1", ranked)
	ranked[0].DocID = "mutated"
	if got := a.Export()[0].DocNo; got != "1" {
		t.Errorf("stored docno = %q, want 1", got)
	}
}

func TestRecords(t *testing.T) {
	a := NewAggregator()
	a.AddMetrics("BM25", "original", "q2", evalmetrics.Scores{evalmetrics.AP: 0.5})
	a.AddMetrics("BM25", "original", "q1", evalmetrics.Scores{evalmetrics.AP: 1})
	a.AddSkipped("BM25", "original", "q3")

	want := []EvaluationRecord{
		{Model: "BM25", Variant: "original", QID: "q1", Metric: "AP", Value: 1},
		{Model: "BM25", Variant: "original", QID: "q2", Metric: "AP", Value: 0.5},
		{Model: "BM25", Variant: "original", QID: AllQueries, Metric: "AP", Value: 0.75, Evaluated: 2, QIDs: []string{"q1", "q2"}},
	}
	if diff := cmp.Diff(want, a.Records()); diff != "" {
		t.Errorf("Records mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want[2:], a.Summaries()); diff != "" {
		t.Errorf("Summaries mismatch (-want +got):\n%s", diff)
	}
	if a.Stats().Skipped != 1 {
		t.Errorf("skipped = %d, want 1", a.Stats().Skipped)
	}
}

func TestFailures(t *testing.T) {
	a := NewAggregator()
	a.AddFailure("Nope", "stemmed", "", errors.New("unknown model"))
	a.AddFailure("BM25", "lemmatized", "q1", errors.New("index missing"))

	got := a.Failures()
	want := []Failure{
		{Model: "BM25", Variant: "lemmatized", QID: "q1", Error: "index missing"},
		{Model: "Nope", Variant: "stemmed", Error: "unknown model"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Failures mismatch (-want +got):\n%s", diff)
	}
}

func TestConcurrentAddIsDeterministic(t *testing.T) {
	run := func() *Aggregator {
		a := NewAggregator()
		var wg sync.WaitGroup
		for m := 0; m < 4; m++ {
			for q := 0; q < 25; q++ {
				wg.Add(1)
				go func(m, q int) {
					defer wg.Done()
					model := fmt.Sprintf("m%d", m)
					qid := fmt.Sprintf("q%02d", q)
					a.Add(model, "original", qid, docs("1", float64(q), "2", float64(m)))
					a.AddMetrics(model, "original", qid, evalmetrics.Scores{evalmetrics.RR: 1 / float64(q+1)})
				}(m, q)
			}
		}
		wg.Wait()
		return a
	}

	first, second := run(), run()
	if diff := cmp.Diff(first.Export(), second.Export()); diff != "" {
		t.Errorf("Export differs between runs:\n%s", diff)
	}
	if diff := cmp.Diff(first.Records(), second.Records()); diff != "" {
		t.Errorf("Records differ between runs:\n%s", diff)
	}

	stats := first.Stats()
	want := Stats{Combinations: 4, Queries: 25, Results: 200, Evaluations: 100}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}
}

func TestSummary(t *testing.T) {
	a := NewAggregator()
	a.AddMetrics("BM25", "original", "q1", evalmetrics.Scores{evalmetrics.AP: 1})
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := a.Summary("run-1", start, start.Add(time.Second))
	if s.RunID != "run-1" || len(s.Summaries) != 1 || s.Stats.Evaluations != 1 {
		t.Errorf("summary = %+v", s)
	}
}
