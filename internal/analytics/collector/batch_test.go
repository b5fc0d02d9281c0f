package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/kafka"
)

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	fail    bool
}

func (p *recordingPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.batches = append(p.batches, events)
	return nil
}

func (p *recordingPublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func TestFlush(t *testing.T) {
	pub := &recordingPublisher{}
	bc := NewBatchCollector(pub, 100, time.Hour)
	bc.Track("run", "a")
	bc.Track("run", "b")
	if bc.BufferLen() != 2 {
		t.Fatalf("buffer = %d, want 2", bc.BufferLen())
	}
	bc.Flush(context.Background())
	if bc.BufferLen() != 0 || pub.published() != 2 {
		t.Errorf("buffer = %d, published = %d", bc.BufferLen(), pub.published())
	}
}

func TestFlushFailureRequeues(t *testing.T) {
	pub := &recordingPublisher{fail: true}
	bc := NewBatchCollector(pub, 2, time.Hour)
	bc.mu.Lock()
	for i := 0; i < 10; i++ {
		bc.pending = append(bc.pending, kafka.Event{Key: "k", Value: i})
	}
	bc.mu.Unlock()

	bc.Flush(context.Background())
	if got := bc.BufferLen(); got != 6 {
		t.Errorf("buffer after failed flush = %d, want 6", got)
	}
}

func TestTrackRun(t *testing.T) {
	pub := &recordingPublisher{}
	bc := NewBatchCollector(pub, 1000, time.Hour)
	run := analytics.RunSummary{RunID: "run-7", Stats: analytics.Stats{Evaluations: 2}}
	records := []analytics.EvaluationRecord{
		{Model: "BM25", Variant: "original", QID: "MB39", Metric: "AP", Value: 1},
		{Model: "BM25", Variant: "original", QID: "all", Metric: "AP", Value: 1, Evaluated: 1},
	}
	failures := []analytics.Failure{{Model: "PL2", Variant: "stemmed", Error: "boom"}}

	if n := bc.TrackRun(run, records, failures); n != 4 {
		t.Fatalf("TrackRun = %d, want 4", n)
	}
	bc.Flush(context.Background())

	batch := pub.batches[0]
	if len(batch) != 4 {
		t.Fatalf("batch = %d events, want 4", len(batch))
	}
	for _, ev := range batch {
		if ev.Key != "run-7" {
			t.Errorf("key = %q, want run-7", ev.Key)
		}
	}
	last := batch[3].Value.(analytics.Event)
	if last.Type != analytics.EventRunSummary || last.Stats.Evaluations != 2 {
		t.Errorf("last event = %+v", last)
	}
	second := batch[1].Value.(analytics.Event)
	if second.Record.QID != "all" {
		t.Errorf("second record = %+v", second.Record)
	}
}

func TestStartFlushesOnCancel(t *testing.T) {
	pub := &recordingPublisher{}
	bc := NewBatchCollector(pub, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	bc.Start(ctx)
	bc.Track("run", "x")
	cancel()
	bc.Close()
	if pub.published() != 1 {
		t.Errorf("published = %d, want 1", pub.published())
	}
}
