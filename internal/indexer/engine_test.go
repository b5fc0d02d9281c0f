package indexer

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/metrics"
)

func testConfig(t *testing.T) config.IndexConfig {
	cfg := config.Default().Index
	cfg.DataDir = t.TempDir()
	return cfg
}

var docs = []ingestion.Document{
	{DocNo: "1", Text: "Gaza ceasefire now"},
	{DocNo: "2", Text: "Military occupation continues"},
	{DocNo: "3", Text: "Refugees fleeing attacks in Gaza"},
}

func TestBuildAllVariants(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	e, err := NewEngine(testConfig(t), m)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	reports, err := e.Build(context.Background(), docs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("got %d reports", len(reports))
	}
	for _, r := range reports {
		if r.Err != nil {
			t.Errorf("%v: %v", r.Variant, r.Err)
		}
		if r.Stats.DocCount != 3 {
			t.Errorf("%v: doc count %d", r.Variant, r.Stats.DocCount)
		}
	}

	stemmed, err := e.Index(tokenizer.ModeStemmed)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := e.IndexByName("original")
	if err != nil {
		t.Fatal(err)
	}
	if raw.Postings("attacks") == nil || stemmed.Postings("attacks") != nil {
		t.Error("only the original variant should keep the inflected form")
	}
	if got := testutil.ToFloat64(m.DocsIndexedTotal.WithLabelValues("lemmatized")); got != 3 {
		t.Errorf("docs indexed metric = %v", got)
	}
}

func TestBuildFailureIsReported(t *testing.T) {
	e, err := NewEngine(testConfig(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	bad := append([]ingestion.Document{}, docs...)
	bad = append(bad, ingestion.Document{DocNo: "1", Text: "duplicate"})

	reports, err := e.Build(context.Background(), bad)
	if err == nil {
		t.Fatal("expected an error when every variant fails")
	}
	for _, r := range reports {
		if !errors.Is(r.Err, apperrors.ErrData) {
			t.Errorf("%v: expected ErrData, got %v", r.Variant, r.Err)
		}
	}
	if _, err := e.Index(tokenizer.ModeRaw); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unbuilt variant, got %v", err)
	}
}

func TestNewEngineRejectsUnknownVariant(t *testing.T) {
	cfg := testConfig(t)
	cfg.Variants = []string{"original", "bigram"}
	if _, err := NewEngine(cfg, nil); !errors.Is(err, apperrors.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestPersistAndLoad(t *testing.T) {
	cfg := testConfig(t)
	e, err := NewEngine(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Build(context.Background(), docs); err != nil {
		t.Fatal(err)
	}
	paths, err := e.Persist()
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("persisted %d files", len(paths))
	}

	reopened, err := NewEngine(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := reopened.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, mode := range e.Variants() {
		want, _ := e.Index(mode)
		got, err := reopened.Index(mode)
		if err != nil {
			t.Fatalf("%v: %v", mode, err)
		}
		if want.Stats() != got.Stats() {
			t.Errorf("%v: stats %+v, want %+v", mode, got.Stats(), want.Stats())
		}
	}
}

func TestLoadMissingVariant(t *testing.T) {
	e, err := NewEngine(testConfig(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Load(); err == nil {
		t.Fatal("expected error when no segment files exist")
	}
	if len(e.Available()) != 0 {
		t.Errorf("available = %v", e.Available())
	}
}
