// Package tracing times the stages of a run as a tree of spans carried in
// the context. A finished root span logs the whole tree through slog.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/logger"
)

type spanKey struct{}

type Span struct {
	Name      string
	TraceID   string
	StartTime time.Time
	Duration  time.Duration

	mu       sync.Mutex
	children []*Span
	attrs    []any
	ended    bool
}

// Start opens a span named name. Inside another span it becomes a child
// sharing the parent's trace ID; otherwise it is a root whose trace ID is
// the run ID of ctx.
func Start(ctx context.Context, name string) (context.Context, *Span) {
	span := &Span{Name: name, StartTime: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		span.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, span)
		parent.mu.Unlock()
	} else {
		span.TraceID = logger.RunID(ctx)
	}
	return context.WithValue(ctx, spanKey{}, span), span
}

// FromContext returns the innermost span of ctx, or nil.
func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(spanKey{}).(*Span)
	return span
}

// SetAttr attaches a key-value pair logged with the span. Safe on nil.
func (s *Span) SetAttr(key string, value any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.attrs = append(s.attrs, key, value)
	s.mu.Unlock()
}

// End fixes the duration. Only the first call counts.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.Duration = time.Since(s.StartTime)
}

func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Span, len(s.children))
	copy(out, s.children)
	return out
}

// Log writes the span and its descendants, depth first.
func (s *Span) Log(log *slog.Logger) {
	if s == nil {
		return
	}
	if log == nil {
		log = slog.Default()
	}
	s.log(log.With("component", "tracing"), 0)
}

func (s *Span) log(log *slog.Logger, depth int) {
	s.mu.Lock()
	attrs := append([]any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_ms", s.Duration.Milliseconds(),
		"depth", depth,
	}, s.attrs...)
	children := s.children
	s.mu.Unlock()

	log.Info("span", attrs...)
	for _, child := range children {
		child.log(log, depth+1)
	}
}
