// Package cache memoizes ranked results in Redis, keyed by variant, model
// configuration, limit and normalized query. Concurrent identical misses
// are collapsed with singleflight, and a circuit breaker stops calling Redis
// while it is unhealthy. A nil *QueryCache computes every request directly.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/weighting"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/resilience"
)

const keyPrefix = "rank:"

// Store is the subset of *pkgredis.Client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New wraps store. m may be nil.
func New(store Store, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	c := &QueryCache{
		store:   store,
		ttl:     cfg.CacheTTL,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
	c.breaker = resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		IsFailure:        func(err error) bool { return err != nil && !pkgredis.IsNilError(err) },
		OnStateChange: func(name string, _, to resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return c
}

// Get returns a cached result for req. Store failures count as misses.
func (c *QueryCache) Get(ctx context.Context, req executor.Request) (*executor.SearchResult, bool) {
	key := buildKey(req)
	var data string
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.store.Get(ctx, key)
		return err
	})
	if err != nil && !pkgredis.IsNilError(err) {
		c.logger.Warn("cache get failed", "key", key, "error", err)
	}
	if err != nil || data == "" {
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	c.metrics.CacheHit()
	c.logger.Debug("cache hit", "query", req.Query, "key", key)
	return &result, true
}

// Set stores result for req.
func (c *QueryCache) Set(ctx context.Context, req executor.Request, result *executor.SearchResult) {
	key := buildKey(req)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	}); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for req or computes, stores and
// returns it. The boolean reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	req executor.Request,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if c == nil {
		result, err := computeFn()
		return result, false, err
	}
	if result, ok := c.Get(ctx, req); ok {
		return result, true, nil
	}
	key := buildKey(req)
	val, err, _ := c.group.Do(key, func() (any, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, req, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate drops every cached ranking, typically after an index rebuild.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	c.metrics.CacheMiss()
}

func buildKey(req executor.Request) string {
	raw := fmt.Sprintf("%s|%s|limit=%d|%s",
		strings.ToLower(strings.TrimSpace(req.Variant)),
		modelKey(req.Model),
		req.Limit,
		normalizeQuery(req.Query),
	)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// modelKey identifies the scoring function, not its report label, so two
// labels for the same configuration share entries.
func modelKey(cfg weighting.Config) string {
	params := make([]string, 0, len(cfg.Params))
	for name, v := range cfg.Params {
		params = append(params, fmt.Sprintf("%s=%g", strings.ToLower(name), v))
	}
	sort.Strings(params)
	return strings.ToLower(strings.TrimSpace(cfg.Name)) + "(" + strings.Join(params, ",") + ")"
}

// normalizeQuery collapses whitespace. Case is kept because the NOT
// operator is case-sensitive.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
