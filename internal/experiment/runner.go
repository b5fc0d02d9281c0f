// Package experiment drives a full evaluation run: every configured model
// scores every query against every index variant, and each ranking is
// evaluated against the relevance judgments.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/analytics"
	evalmetrics "github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/evaluation/metrics"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/evaluation/qrels"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/weighting"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/resilience"
)

// Result is the outcome of one run. Missing lists the queries that have no
// judgments and were therefore scored but not evaluated.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Missing    []string
	Aggregator *analytics.Aggregator
}

// Summary snapshots the run for persistence and publishing.
func (r *Result) Summary() analytics.RunSummary {
	return r.Aggregator.Summary(r.RunID, r.StartedAt, r.FinishedAt)
}

type combination struct {
	variant string
	model   config.ModelConfig
	label   string
}

type Runner struct {
	cfg      config.ExperimentConfig
	indexes  executor.IndexSource
	variants []string
	exec     *executor.Executor
	cache    *cache.QueryCache
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewRunner prepares a runner over the named variants of src. qc and m may
// be nil.
func NewRunner(cfg config.ExperimentConfig, src executor.IndexSource, variants []string, qc *cache.QueryCache, m *metrics.Metrics) *Runner {
	return &Runner{
		cfg:      cfg,
		indexes:  src,
		variants: variants,
		exec:     executor.New(src, m),
		cache:    qc,
		metrics:  m,
		logger:   slog.Default().With("component", "experiment-runner"),
	}
}

// Run scores and evaluates every (variant, model, query) triple on a pool
// of cfg.Workers goroutines. A combination whose variant or model cannot be
// resolved is recorded as a failure and the rest of the run continues. The
// returned error is non-nil only when ctx is cancelled or cfg.Timeout
// expires; the partial result is returned alongside it.
func (r *Runner) Run(ctx context.Context, queries []ingestion.Query, store *qrels.Store) (*Result, error) {
	result := &Result{
		RunID:      uuid.NewString(),
		StartedAt:  time.Now().UTC(),
		Aggregator: analytics.NewAggregator(),
	}
	ctx = logger.WithRunID(ctx, result.RunID)
	log := logger.FromContext(ctx).With("component", "experiment-runner")

	queries = r.validQueries(queries)
	if store != nil {
		result.Missing = store.CrossCheck(queries)
	}
	combos := r.combinations(result.Aggregator)

	log.Info("experiment run starting",
		"queries", len(queries),
		"combinations", len(combos),
		"workers", r.cfg.Workers,
		"timeout", r.cfg.Timeout,
	)

	done := make(chan struct{})
	err := resilience.WithTimeout(ctx, r.cfg.Timeout, "experiment run", func(ctx context.Context) error {
		defer close(done)
		return r.dispatch(ctx, combos, queries, store, result.Aggregator)
	})
	// Tasks stop at their next context check; wait so the aggregator is
	// quiescent before it is handed back.
	<-done
	result.FinishedAt = time.Now().UTC()

	stats := result.Aggregator.Stats()
	log.Info("experiment run finished",
		"duration", result.FinishedAt.Sub(result.StartedAt),
		"evaluations", stats.Evaluations,
		"skipped", stats.Skipped,
		"failures", stats.Failures,
	)
	if err != nil {
		return result, fmt.Errorf("experiment run %s: %w", result.RunID, err)
	}
	return result, nil
}

func (r *Runner) validQueries(queries []ingestion.Query) []ingestion.Query {
	valid := make([]ingestion.Query, 0, len(queries))
	seen := make(map[string]int, len(queries))
	for i := range queries {
		if err := validator.ValidateQuery(&queries[i]); err != nil {
			r.logger.Warn("skipping invalid query", "position", i, "qid", queries[i].QID, "error", err)
			continue
		}
		if first, dup := seen[queries[i].QID]; dup {
			r.logger.Warn("skipping duplicate query", "position", i, "qid", queries[i].QID, "first_position", first)
			continue
		}
		seen[queries[i].QID] = i
		valid = append(valid, queries[i])
	}
	return valid
}

// combinations resolves every variant and model once. Unresolvable pairs
// are recorded on agg and left out.
func (r *Runner) combinations(agg *analytics.Aggregator) []combination {
	var variants []string
	variantErrs := make(map[string]error)
	for _, name := range r.variants {
		idx, err := r.indexes.IndexByName(name)
		if err != nil {
			variantErrs[name] = err
			continue
		}
		variants = append(variants, idx.Mode().String())
	}

	var combos []combination
	for _, model := range r.cfg.Models {
		label := model.DisplayName()
		_, modelErr := weighting.New(model)
		for _, name := range r.variants {
			if err := errors.Join(variantErrs[name], modelErr); err != nil {
				agg.AddFailure(label, name, "", err)
				r.metrics.IncFailure(name, label)
			}
		}
		if modelErr != nil {
			continue
		}
		for _, variant := range variants {
			combos = append(combos, combination{variant: variant, model: model, label: label})
		}
	}
	return combos
}

func (r *Runner) dispatch(ctx context.Context, combos []combination, queries []ingestion.Query, store *qrels.Store, agg *analytics.Aggregator) error {
	var g errgroup.Group
	g.SetLimit(max(r.cfg.Workers, 1))

	for _, c := range combos {
		for _, q := range queries {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				r.runTask(ctx, c, q, store, agg)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// runTask never returns an error: every failure is recorded on agg so
// sibling tasks keep running.
func (r *Runner) runTask(ctx context.Context, c combination, q ingestion.Query, store *qrels.Store, agg *analytics.Aggregator) {
	req := executor.Request{
		Variant: c.variant,
		Model:   c.model,
		QID:     q.QID,
		Query:   q.Text,
		Limit:   r.cfg.TopN,
	}
	res, _, err := r.cache.GetOrCompute(ctx, req, func() (*executor.SearchResult, error) {
		return r.exec.Execute(ctx, req)
	})
	if err != nil {
		agg.AddFailure(c.label, c.variant, q.QID, err)
		r.metrics.IncFailure(c.variant, c.label)
		return
	}
	agg.Add(c.label, c.variant, q.QID, res.Results)

	scores, err := evalmetrics.Evaluate(res.Results, store, q.QID)
	if errors.Is(err, apperrors.ErrNotEvaluable) {
		agg.AddSkipped(c.label, c.variant, q.QID)
		r.metrics.IncSkipped()
		return
	}
	if err != nil {
		agg.AddFailure(c.label, c.variant, q.QID, err)
		r.metrics.IncFailure(c.variant, c.label)
		return
	}
	agg.AddMetrics(c.label, c.variant, q.QID, scores)
	r.metrics.IncEvaluation(c.variant, c.label)
}
