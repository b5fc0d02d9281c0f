package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/resilience"
)

type fakeWriter struct {
	mu       sync.Mutex
	failures int
	err      error
	written  []kafka.Message
	calls    int
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.calls <= w.failures {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func testProducer(w *fakeWriter) *Producer {
	p := newProducer(w, "evaluation-records")
	p.backoff = resilience.Backoff{Attempts: 3, Initial: time.Millisecond}
	return p
}

func TestPublishBatchEncodes(t *testing.T) {
	w := &fakeWriter{}
	p := testProducer(w)
	err := p.PublishBatch(context.Background(), []Event{
		{Key: "run-1", Type: "evaluation", Value: map[string]float64{"AP": 0.5}},
		{Key: "run-1", Value: "plain"},
	})
	if err != nil {
		t.Fatalf("PublishBatch: %v", err)
	}
	if len(w.written) != 2 {
		t.Fatalf("written = %d, want 2", len(w.written))
	}
	first := w.written[0]
	if string(first.Key) != "run-1" || string(first.Value) != `{"AP":0.5}` {
		t.Errorf("first message = %s %s", first.Key, first.Value)
	}
	if len(first.Headers) != 1 || first.Headers[0].Key != TypeHeader || string(first.Headers[0].Value) != "evaluation" {
		t.Errorf("headers = %+v", first.Headers)
	}
	if len(w.written[1].Headers) != 0 {
		t.Errorf("untyped event got headers %+v", w.written[1].Headers)
	}
}

func TestPublishBatchRetries(t *testing.T) {
	w := &fakeWriter{failures: 2, err: errors.New("leader not available")}
	if err := testProducer(w).Publish(context.Background(), Event{Key: "k", Value: 1}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if w.calls != 3 || len(w.written) != 1 {
		t.Errorf("calls = %d, written = %d", w.calls, len(w.written))
	}
}

func TestPublishBatchMessageTooLarge(t *testing.T) {
	w := &fakeWriter{failures: 5, err: kafka.MessageSizeTooLarge}
	err := testProducer(w).Publish(context.Background(), Event{Key: "k", Value: 1})
	if !errors.Is(err, kafka.MessageSizeTooLarge) {
		t.Fatalf("err = %v", err)
	}
	if w.calls != 1 {
		t.Errorf("calls = %d, want 1", w.calls)
	}
}

func TestPublishBatchUnencodable(t *testing.T) {
	w := &fakeWriter{}
	err := testProducer(w).PublishBatch(context.Background(), []Event{{Key: "k", Value: make(chan int)}})
	if err == nil || w.calls != 0 {
		t.Fatalf("err = %v, calls = %d", err, w.calls)
	}
}
