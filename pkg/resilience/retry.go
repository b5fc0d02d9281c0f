package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Backoff describes exponential retry delays. Zero fields take the values
// of DefaultBackoff.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
	Factor   float64
	Jitter   float64
}

// DefaultBackoff suits short-lived backend hiccups: three attempts, 100ms
// doubling up to 10s, ±10% jitter.
var DefaultBackoff = Backoff{
	Attempts: 3,
	Initial:  100 * time.Millisecond,
	Max:      10 * time.Second,
	Factor:   2,
	Jitter:   0.1,
}

func (b Backoff) withDefaults() Backoff {
	if b.Attempts <= 0 {
		b.Attempts = DefaultBackoff.Attempts
	}
	if b.Initial <= 0 {
		b.Initial = DefaultBackoff.Initial
	}
	if b.Max <= 0 {
		b.Max = DefaultBackoff.Max
	}
	if b.Factor < 1 {
		b.Factor = DefaultBackoff.Factor
	}
	if b.Jitter <= 0 {
		b.Jitter = DefaultBackoff.Jitter
	}
	return b
}

// Delay returns the wait before retry number n (1-based), capped at Max.
func (b Backoff) Delay(n int) time.Duration {
	b = b.withDefaults()
	d := float64(b.Initial)
	for i := 1; i < n && d < float64(b.Max); i++ {
		d *= b.Factor
	}
	d += d * b.Jitter * (2*rand.Float64() - 1)
	return time.Duration(min(max(d, float64(b.Initial)/2), float64(b.Max)))
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Retry calls fn until it succeeds, returns a Permanent error, the attempts
// run out or ctx ends. Context errors from fn are never retried.
func Retry(ctx context.Context, name string, b Backoff, fn func(ctx context.Context) error) error {
	b = b.withDefaults()
	log := slog.Default().With("component", "retry", "operation", name)

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			if attempt > 1 {
				log.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		var perm *permanentError
		switch {
		case errors.As(err, &perm):
			return fmt.Errorf("%s: %w", name, perm.err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return fmt.Errorf("%s: %w", name, err)
		case attempt >= b.Attempts:
			return fmt.Errorf("%s: giving up after %d attempts: %w", name, attempt, err)
		}

		delay := b.Delay(attempt)
		log.Warn("attempt failed, retrying", "attempt", attempt, "max_attempts", b.Attempts, "delay", delay, "error", err)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: aborted during backoff: %w (last error: %v)", name, ctx.Err(), err)
		}
	}
}
