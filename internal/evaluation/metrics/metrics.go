// Package metrics computes ranking-quality measures for one ranked list
// against binary relevance judgments, and their means over a query set.
package metrics

import (
	"math"
	"net/http"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/evaluation/qrels"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/errors"
)

const (
	AP     = "AP"
	P1     = "P@1"
	P5     = "P@5"
	P10    = "P@10"
	RR     = "RR"
	NDCG10 = "nDCG@10"
	RPrec  = "R-Prec"
)

// Names lists every metric in report order.
var Names = []string{AP, P1, P5, P10, RR, NDCG10, RPrec}

// Scores maps a metric name to its value for one query.
type Scores map[string]float64

// Summary holds the means over the evaluable queries and which queries
// those were.
type Summary struct {
	Means     map[string]float64 `json:"means"`
	Evaluated int                `json:"evaluated"`
	QIDs      []string           `json:"qids"`
}

// Evaluate scores ranked for qid. A query without judgments is not
// evaluable and yields an ErrNotEvaluable error instead of zeroes.
func Evaluate(ranked []ranker.ScoredDoc, store *qrels.Store, qid string) (Scores, error) {
	if store == nil || !store.Judged(qid) {
		return nil, apperrors.Newf(apperrors.ErrNotEvaluable, http.StatusUnprocessableEntity,
			"query %s has no relevance judgments", qid)
	}
	labels := store.LabelsFor(qid)
	relevant := store.RelevantCount(qid)

	hits := make([]bool, len(ranked))
	for i, doc := range ranked {
		hits[i] = labels[doc.DocID] == 1
	}

	return Scores{
		AP:     averagePrecision(hits, relevant),
		P1:     precisionAt(hits, 1),
		P5:     precisionAt(hits, 5),
		P10:    precisionAt(hits, 10),
		RR:     reciprocalRank(hits),
		NDCG10: ndcgAt(hits, relevant, 10),
		RPrec:  precisionAt(hits, relevant),
	}, nil
}

// averagePrecision sums precision at every relevant rank and divides by the
// number of relevant documents, so unretrieved relevant documents count as
// zero precision.
func averagePrecision(hits []bool, relevant int) float64 {
	if relevant == 0 {
		return 0
	}
	found := 0
	sum := 0.0
	for i, hit := range hits {
		if hit {
			found++
			sum += float64(found) / float64(i+1)
		}
	}
	return sum / float64(relevant)
}

// precisionAt divides by k even when fewer than k documents were retrieved.
func precisionAt(hits []bool, k int) float64 {
	if k <= 0 {
		return 0
	}
	found := 0
	for i := 0; i < k && i < len(hits); i++ {
		if hits[i] {
			found++
		}
	}
	return float64(found) / float64(k)
}

func reciprocalRank(hits []bool) float64 {
	for i, hit := range hits {
		if hit {
			return 1 / float64(i+1)
		}
	}
	return 0
}

func ndcgAt(hits []bool, relevant, k int) float64 {
	ideal := 0.0
	for i := 0; i < min(relevant, k); i++ {
		ideal += discount(i)
	}
	if ideal == 0 {
		return 0
	}
	dcg := 0.0
	for i := 0; i < k && i < len(hits); i++ {
		if hits[i] {
			dcg += discount(i)
		}
	}
	return dcg / ideal
}

// discount is the gain factor of the 0-based position i.
func discount(i int) float64 {
	return 1 / math.Log2(float64(i+2))
}

// Aggregate averages each metric over the queries in perQuery. Callers only
// put evaluable queries in the map, so Evaluated is also the denominator of
// every mean.
func Aggregate(perQuery map[string]Scores) Summary {
	qids := make([]string, 0, len(perQuery))
	for qid := range perQuery {
		qids = append(qids, qid)
	}
	sort.Strings(qids)

	summary := Summary{
		Means:     make(map[string]float64, len(Names)),
		Evaluated: len(qids),
		QIDs:      qids,
	}
	if len(qids) == 0 {
		return summary
	}

	names := make(map[string]struct{})
	for _, scores := range perQuery {
		for name := range scores {
			names[name] = struct{}{}
		}
	}
	values := make([]float64, 0, len(qids))
	for name := range names {
		values = values[:0]
		for _, qid := range qids {
			if v, ok := perQuery[qid][name]; ok {
				values = append(values, v)
			}
		}
		summary.Means[name] = stat.Mean(values, nil)
	}
	return summary
}
