// Package collector buffers evaluation events in memory and publishes them
// to Kafka in batches.
package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/kafka"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = 5 * time.Second
	finalFlushTimeout    = 5 * time.Second

	// retainedBatches bounds how many batches' worth of events survive
	// consecutive publish failures.
	retainedBatches = 3
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// BatchCollector flushes when batchSize events are pending or every
// flushInterval, whichever comes first.
type BatchCollector struct {
	publisher     Publisher
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger

	mu      sync.Mutex
	pending []kafka.Event

	// publishing serialises flushes so batches leave in tracking order.
	publishing sync.Mutex
	stopped    chan struct{}
}

func NewBatchCollector(publisher Publisher, batchSize int, flushInterval time.Duration) *BatchCollector {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}
	return &BatchCollector{
		publisher:     publisher,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "run-publisher"),
		pending:       make([]kafka.Event, 0, batchSize),
		stopped:       make(chan struct{}),
	}
}

// Start runs the periodic flush loop until ctx is cancelled, then flushes
// once more with a fresh deadline.
func (bc *BatchCollector) Start(ctx context.Context) {
	bc.logger.Info("run publisher started", "batch_size", bc.batchSize, "flush_interval", bc.flushInterval)
	go func() {
		defer close(bc.stopped)
		ticker := time.NewTicker(bc.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				final, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalFlushTimeout)
				bc.flush(final)
				cancel()
				return
			case <-ticker.C:
				bc.flush(ctx)
			}
		}
	}()
}

// Track queues one event under key.
func (bc *BatchCollector) Track(key string, value any) {
	bc.enqueue(kafka.Event{Key: key, Value: value})
}

// TrackRun queues every record and failure of a finished run, then its
// summary, all keyed by run ID so the run stays on one partition in order.
// It returns the number of events queued.
func (bc *BatchCollector) TrackRun(run analytics.RunSummary, records []analytics.EvaluationRecord, failures []analytics.Failure) int {
	now := time.Now().UTC()
	events := make([]kafka.Event, 0, len(records)+len(failures)+1)
	wrap := func(ev analytics.Event) kafka.Event {
		ev.RunID = run.RunID
		ev.Timestamp = now
		return kafka.Event{Key: run.RunID, Type: string(ev.Type), Value: ev}
	}
	for i := range records {
		events = append(events, wrap(analytics.Event{Type: analytics.EventEvaluation, Record: &records[i]}))
	}
	for i := range failures {
		events = append(events, wrap(analytics.Event{Type: analytics.EventFailure, Failure: &failures[i]}))
	}
	stats := run.Stats
	events = append(events, wrap(analytics.Event{Type: analytics.EventRunSummary, Stats: &stats}))

	bc.enqueue(events...)
	return len(events)
}

// Flush publishes everything pending and waits for the result.
func (bc *BatchCollector) Flush(ctx context.Context) {
	bc.flush(ctx)
}

// Close blocks until the loop started by Start has exited.
func (bc *BatchCollector) Close() {
	<-bc.stopped
}

func (bc *BatchCollector) BufferLen() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return len(bc.pending)
}

func (bc *BatchCollector) enqueue(events ...kafka.Event) {
	bc.mu.Lock()
	bc.pending = append(bc.pending, events...)
	full := len(bc.pending) >= bc.batchSize
	bc.mu.Unlock()
	if full {
		go bc.flush(context.Background())
	}
}

// take swaps out the pending slice.
func (bc *BatchCollector) take() []kafka.Event {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	batch := bc.pending
	bc.pending = make([]kafka.Event, 0, bc.batchSize)
	return batch
}

// requeue puts a failed batch back in front of anything tracked since and
// trims the tail beyond the retention limit.
func (bc *BatchCollector) requeue(batch []kafka.Event) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.pending = append(batch, bc.pending...)
	if limit := bc.batchSize * retainedBatches; len(bc.pending) > limit {
		bc.logger.Warn("publish backlog full, dropping events", "dropped", len(bc.pending)-limit)
		bc.pending = bc.pending[:limit]
	}
}

func (bc *BatchCollector) flush(ctx context.Context) {
	bc.publishing.Lock()
	defer bc.publishing.Unlock()

	batch := bc.take()
	if len(batch) == 0 {
		return
	}
	if err := bc.publisher.PublishBatch(ctx, batch); err != nil {
		bc.logger.Error("publishing run events failed", "events", len(batch), "error", err)
		bc.requeue(batch)
		return
	}
	bc.logger.Debug("run events published", "events", len(batch))
}
