// Package handler serves the search API over the loaded index variants.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/weighting"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/metrics"
)

type SearchExecutor interface {
	Execute(ctx context.Context, req executor.Request) (*executor.SearchResult, error)
}

// IndexStats is satisfied by *indexer.Engine.
type IndexStats interface {
	Available() []tokenizer.Mode
	Index(mode tokenizer.Mode) (*index.CollectionIndex, error)
}

type Handler struct {
	executor SearchExecutor
	indexes  IndexStats
	cache    *cache.QueryCache
	cfg      config.SearchConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New builds the handler. queryCache and m may be nil.
func New(exec SearchExecutor, indexes IndexStats, queryCache *cache.QueryCache, cfg config.SearchConfig, m *metrics.Metrics) *Handler {
	return &Handler{
		executor: exec,
		indexes:  indexes,
		cache:    queryCache,
		cfg:      cfg,
		metrics:  m,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Search answers GET /api/v1/search?q=&variant=&model=&params=&limit=.
// params is a comma-separated list of name:value pairs, e.g. k1:0.9,b:0.3.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	req, err := h.parseRequest(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, cacheHit, err := h.cache.GetOrCompute(ctx, req, func() (*executor.SearchResult, error) {
		return h.executor.Execute(ctx, req)
	})
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			log.Error("search execution failed", "query", req.Query, "error", err)
		}
		h.writeError(w, err)
		return
	}

	elapsed := time.Since(start)
	cacheStatus := "miss"
	switch {
	case h.cache == nil:
		cacheStatus = "disabled"
	case cacheHit:
		cacheStatus = "hit"
	}
	resultType := "hits"
	if len(result.Results) == 0 {
		resultType = "zero"
	}
	h.metrics.ObserveSearch(resultType, cacheStatus, len(result.Results), elapsed)

	log.Info("search completed",
		"query", req.Query,
		"variant", result.Variant,
		"model", result.Model,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache", cacheStatus,
		"latency_ms", elapsed.Milliseconds(),
	)
	w.Header().Set("X-Cache", strings.ToUpper(cacheStatus))
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) parseRequest(r *http.Request) (executor.Request, error) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		return executor.Request{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required")
	}

	limit := h.cfg.DefaultLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return executor.Request{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, h.cfg.MaxResults)
	}

	variant := q.Get("variant")
	if variant == "" {
		variant = h.cfg.DefaultVariant
	}
	model := weighting.Config{Name: q.Get("model")}
	if model.Name == "" {
		model.Name = h.cfg.DefaultModel
	}
	if raw := q.Get("params"); raw != "" {
		params, err := parseParams(raw)
		if err != nil {
			return executor.Request{}, err
		}
		model.Params = params
	}

	return executor.Request{
		Variant: variant,
		Model:   model,
		Query:   query,
		Limit:   limit,
	}, nil
}

func parseParams(raw string) (map[string]float64, error) {
	params := make(map[string]float64)
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || name == "" {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "params: %q is not name:value", pair)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "params: %s: %q is not a number", name, value)
		}
		params[strings.ToLower(name)] = v
	}
	return params, nil
}

// Stats answers GET /api/v1/stats with the statistics of every loaded
// variant.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	type variantStats struct {
		Variant string `json:"variant"`
		index.Stats
	}
	out := []variantStats{}
	for _, mode := range h.indexes.Available() {
		idx, err := h.indexes.Index(mode)
		if err != nil {
			continue
		}
		out = append(out, variantStats{Variant: mode.String(), Stats: idx.Stats()})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"variants": out})
}

// Models answers GET /api/v1/models.
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"models":  weighting.Names(),
		"default": h.cfg.DefaultModel,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrNotFound, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, apperrors.New(apperrors.ErrInternal, http.StatusInternalServerError, "cache invalidation failed"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": msg})
}

// Register mounts the search routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/models", h.Models)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}
