// Package indexer builds, persists and reloads the index variants of one
// document collection.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/metrics"
)

// BuildReport describes the outcome of building one variant.
type BuildReport struct {
	Variant  tokenizer.Mode
	Stats    index.Stats
	Duration time.Duration
	Err      error
}

// Engine owns one CollectionIndex per configured variant. Each variant has a
// single writer during Build; once published an index is read-only.
type Engine struct {
	cfg      config.IndexConfig
	analyzer *tokenizer.Analyzer
	variants []tokenizer.Mode
	writer   *segment.Writer
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu      sync.RWMutex
	indexes map[tokenizer.Mode]*index.CollectionIndex
}

// NewEngine validates the configured variants and prepares the analyzer. m
// may be nil.
func NewEngine(cfg config.IndexConfig, m *metrics.Metrics) (*Engine, error) {
	analyzer, err := tokenizer.NewAnalyzer(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating analyzer: %w", err)
	}
	variants := make([]tokenizer.Mode, 0, len(cfg.Variants))
	seen := make(map[tokenizer.Mode]struct{}, len(cfg.Variants))
	for _, name := range cfg.Variants {
		mode, err := tokenizer.ParseMode(name)
		if err != nil {
			return nil, apperrors.Configf("index.variants: %v", err)
		}
		if _, dup := seen[mode]; dup {
			return nil, apperrors.Configf("index.variants: %q listed twice", name)
		}
		seen[mode] = struct{}{}
		variants = append(variants, mode)
	}
	return &Engine{
		cfg:      cfg,
		analyzer: analyzer,
		variants: variants,
		writer:   segment.NewWriter(cfg.DataDir),
		metrics:  m,
		logger:   slog.Default().With("component", "indexer"),
		indexes:  make(map[tokenizer.Mode]*index.CollectionIndex),
	}, nil
}

// Build indexes docs once per configured variant, concurrently. A variant
// that fails is reported in its BuildReport and the others are still
// published. The returned error is non-nil only when no variant could be
// built.
func (e *Engine) Build(ctx context.Context, docs []ingestion.Document) ([]BuildReport, error) {
	reports := make([]BuildReport, len(e.variants))
	built := make([]*index.CollectionIndex, len(e.variants))

	var g errgroup.Group
	for i, mode := range e.variants {
		g.Go(func() error {
			start := time.Now()
			reports[i].Variant = mode
			if err := ctx.Err(); err != nil {
				reports[i].Err = err
				return nil
			}
			idx, err := index.Build(docs, e.analyzer, mode)
			reports[i].Duration = time.Since(start)
			if err != nil {
				reports[i].Err = fmt.Errorf("building %s index: %w", mode, err)
				e.metrics.ObserveBuild(mode.String(), 0, 0, reports[i].Duration, err)
				return nil
			}
			reports[i].Stats = idx.Stats()
			built[i] = idx
			e.metrics.ObserveBuild(mode.String(), reports[i].Stats.DocCount, reports[i].Stats.UniqueTerms, reports[i].Duration, nil)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	e.mu.Lock()
	for i, idx := range built {
		r := reports[i]
		if idx == nil {
			errs = append(errs, r.Err)
			e.logger.Error("index build failed", "variant", r.Variant.String(), "error", r.Err)
			continue
		}
		e.indexes[r.Variant] = idx
		e.logger.Info("index built",
			"variant", r.Variant.String(),
			"docs", r.Stats.DocCount,
			"unique_terms", r.Stats.UniqueTerms,
			"avg_doc_length", r.Stats.AvgDocLength,
			"duration", r.Duration,
		)
	}
	e.mu.Unlock()

	if len(errs) == len(reports) && len(reports) > 0 {
		return reports, fmt.Errorf("no index variant could be built: %w", errors.Join(errs...))
	}
	return reports, nil
}

// Index returns the built index for mode.
func (e *Engine) Index(mode tokenizer.Mode) (*index.CollectionIndex, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	idx, ok := e.indexes[mode]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrNotFound, http.StatusNotFound, "index variant %q is not available", mode.String())
	}
	return idx, nil
}

// IndexByName resolves a variant name such as "stemmed" or "lemma".
func (e *Engine) IndexByName(name string) (*index.CollectionIndex, error) {
	mode, err := tokenizer.ParseMode(name)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrNotFound, http.StatusNotFound, "%v", err)
	}
	return e.Index(mode)
}

// Variants returns the configured variants in configuration order.
func (e *Engine) Variants() []tokenizer.Mode {
	out := make([]tokenizer.Mode, len(e.variants))
	copy(out, e.variants)
	return out
}

// Names returns the configured variant names.
func (e *Engine) Names() []string {
	out := make([]string, len(e.variants))
	for i, mode := range e.variants {
		out[i] = mode.String()
	}
	return out
}

// Available returns the variants that currently have an index, in mode
// order.
func (e *Engine) Available() []tokenizer.Mode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]tokenizer.Mode, 0, len(e.indexes))
	for mode := range e.indexes {
		out = append(out, mode)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (e *Engine) Analyzer() *tokenizer.Analyzer {
	return e.analyzer
}

// Persist writes one segment file per available variant into the data
// directory and returns their paths.
func (e *Engine) Persist() ([]string, error) {
	var paths []string
	for _, mode := range e.Available() {
		idx, err := e.Index(mode)
		if err != nil {
			return paths, err
		}
		path, err := e.writer.Write(mode.String(), idx.Snapshot())
		if err != nil {
			return paths, fmt.Errorf("persisting %s index: %w", mode, err)
		}
		e.logger.Info("index persisted", "variant", mode.String(), "path", path)
		paths = append(paths, path)
	}
	return paths, nil
}

// Load restores every configured variant from its segment file. Variants
// whose file is missing or corrupt are skipped and reported in the returned
// error; the rest stay available.
func (e *Engine) Load() error {
	var errs []error
	for _, mode := range e.variants {
		idx, err := e.loadVariant(mode)
		if err != nil {
			e.logger.Error("failed to load index variant, skipping", "variant", mode.String(), "error", err)
			errs = append(errs, err)
			continue
		}
		e.mu.Lock()
		e.indexes[mode] = idx
		e.mu.Unlock()
		stats := idx.Stats()
		e.logger.Info("loaded index variant",
			"variant", mode.String(),
			"docs", stats.DocCount,
			"unique_terms", stats.UniqueTerms,
		)
	}
	e.logger.Info("index recovery complete", "variants_loaded", len(e.Available()))
	return errors.Join(errs...)
}

func (e *Engine) loadVariant(mode tokenizer.Mode) (*index.CollectionIndex, error) {
	path := e.writer.Path(mode.String())
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("index variant %s: %w", mode, err)
	}
	r, err := segment.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	if r.Mode() != mode {
		return nil, fmt.Errorf("segment %s holds variant %s, want %s", path, r.Mode(), mode)
	}
	snap, err := r.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	idx, err := index.Restore(snap)
	if err != nil {
		return nil, fmt.Errorf("restoring %s: %w", path, err)
	}
	return idx, nil
}
