// Package redis wraps go-redis/v9 for the ranked-result cache.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/resilience"
)

// Nil is the error Get returns for a missing key.
var Nil = redis.Nil

const unlinkBatch = 100

type Client struct {
	rdb *redis.Client
}

// NewClient connects to cfg.Addr and waits for a PING to succeed, retrying
// briefly so a Redis container that is still starting is not reported as
// missing.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := resilience.Retry(ctx, "redis ping", resilience.Backoff{Attempts: 3, Initial: 250 * time.Millisecond}, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

// Set stores value under key. ttl <= 0 keeps the key until invalidated.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// FlushByPattern removes every key matching the glob pattern with
// non-blocking UNLINKs of up to 100 keys and returns how many were removed.
func (c *Client) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var removed int64
	keys := make([]string, 0, unlinkBatch)
	unlink := func() error {
		if len(keys) == 0 {
			return nil
		}
		n, err := c.rdb.Unlink(ctx, keys...).Result()
		removed += n
		keys = keys[:0]
		if err != nil {
			return fmt.Errorf("unlinking keys matching %s: %w", pattern, err)
		}
		return nil
	}

	iter := c.rdb.Scan(ctx, 0, pattern, unlinkBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == unlinkBatch {
			if err := unlink(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scanning %s: %w", pattern, err)
	}
	return removed, unlink()
}

func IsNilError(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
