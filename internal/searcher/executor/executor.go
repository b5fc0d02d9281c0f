// Package executor runs one scoring request: it resolves the index variant
// and weighting model, parses the query and ranks the collection.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/weighting"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/metrics"
)

// IndexSource resolves variant names to built indexes. *indexer.Engine
// implements it.
type IndexSource interface {
	IndexByName(name string) (*index.CollectionIndex, error)
	Analyzer() *tokenizer.Analyzer
}

// Request is one (variant, model, query) scoring job. Limit <= 0 returns
// every matching document.
type Request struct {
	Variant string           `json:"variant"`
	Model   weighting.Config `json:"model"`
	QID     string           `json:"qid,omitempty"`
	Query   string           `json:"query"`
	Limit   int              `json:"limit"`
}

type SearchResult struct {
	QID       string             `json:"qid,omitempty"`
	Query     string             `json:"query"`
	Variant   string             `json:"variant"`
	Model     string             `json:"model"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
	TermStats map[string]int     `json:"term_stats"`
}

type Executor struct {
	indexes IndexSource
	metrics *metrics.Metrics
}

// New creates an executor over src. m may be nil.
func New(src IndexSource, m *metrics.Metrics) *Executor {
	return &Executor{
		indexes: src,
		metrics: m,
	}
}

// Execute scores req. An unknown variant is an ErrNotFound error and a bad
// model configuration an ErrConfig error; neither affects other requests.
func (e *Executor) Execute(ctx context.Context, req Request) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, err := e.indexes.IndexByName(req.Variant)
	if err != nil {
		return nil, fmt.Errorf("resolving variant: %w", err)
	}
	model, err := weighting.New(req.Model)
	if err != nil {
		return nil, fmt.Errorf("resolving model: %w", err)
	}

	plan := parser.Parse(req.Query, e.indexes.Analyzer(), idx.Mode())
	result := &SearchResult{
		QID:       req.QID,
		Query:     req.Query,
		Variant:   idx.Mode().String(),
		Model:     req.Model.DisplayName(),
		Results:   []ranker.ScoredDoc{},
		TermStats: make(map[string]int, len(plan.Terms)),
	}
	if plan.Empty() {
		return result, nil
	}

	start := time.Now()
	matched := make(map[int]struct{})
	for _, qt := range plan.Terms {
		postings := idx.Postings(qt.Term)
		if len(postings) == 0 {
			continue
		}
		result.TermStats[qt.Term] = len(postings)
		for _, p := range postings {
			matched[p.Ordinal] = struct{}{}
		}
	}
	result.Results = ranker.Rank(plan, idx, model, req.Limit)
	result.TotalHits = len(matched)
	elapsed := time.Since(start)
	e.metrics.ObserveScoring(model.Name(), elapsed)

	logger.FromContext(ctx).Debug("query executed",
		"component", "query-executor",
		"qid", req.QID,
		"variant", result.Variant,
		"model", result.Model,
		"terms", len(plan.Terms),
		"candidates", result.TotalHits,
		"results", len(result.Results),
		"duration", elapsed,
	)
	return result, nil
}
