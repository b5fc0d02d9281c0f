// Package ranker scores every document matching a query plan with one
// weighting model and returns the top results.
package ranker

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/weighting"
)

// ScoredDoc is one entry of a ranked result. Rank starts at 1.
type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

type candidate struct {
	ordinal int
	score   float64
}

func better(a, b candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.ordinal < b.ordinal
}

// Rank scores plan against idx with model and returns at most topN results
// (all of them when topN <= 0) by descending score, ties broken by the order
// documents were indexed. Terms outside the vocabulary contribute nothing,
// and documents whose total is zero or not finite are left out.
func Rank(plan *parser.QueryPlan, idx *index.CollectionIndex, model weighting.Model, topN int) []ScoredDoc {
	if plan == nil || plan.Empty() {
		return []ScoredDoc{}
	}

	stats := idx.Stats()
	collection := weighting.CollectionStats{
		DocCount:     float64(stats.DocCount),
		TotalTokens:  float64(stats.TotalTokens),
		AvgDocLength: stats.AvgDocLength,
	}

	scores := make(map[int]float64)
	for _, qt := range plan.Terms {
		postings := idx.Postings(qt.Term)
		if len(postings) == 0 {
			continue
		}
		ts := idx.TermStats(qt.Term)
		term := weighting.TermStats{
			DocFreq:        float64(ts.DocFreq),
			CollectionFreq: float64(ts.CollectionFreq),
		}
		for _, p := range postings {
			dl := float64(idx.DocLengthAt(p.Ordinal))
			scores[p.Ordinal] += model.Score(float64(p.Frequency), dl, term, collection, qt.KeyFrequency)
		}
	}

	for _, term := range plan.ExcludeTerms {
		for _, p := range idx.Postings(term) {
			delete(scores, p.Ordinal)
		}
	}

	candidates := make([]candidate, 0, len(scores))
	for ordinal, score := range scores {
		if score == 0 || math.IsNaN(score) || math.IsInf(score, 0) {
			continue
		}
		candidates = append(candidates, candidate{ordinal: ordinal, score: score})
	}

	top := merger.TopN(candidates, topN, better)
	ids := idx.DocIDs()
	result := make([]ScoredDoc, len(top))
	for i, c := range top {
		result[i] = ScoredDoc{
			DocID: ids[c.ordinal],
			Score: c.score,
			Rank:  i + 1,
		}
	}
	return result
}
