package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/weighting"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/errors"
)

func newEngine(t *testing.T) *indexer.Engine {
	t.Helper()
	cfg := config.Default().Index
	cfg.DataDir = t.TempDir()
	cfg.Variants = []string{"original", "stemmed"}
	e, err := indexer.NewEngine(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	docs := []ingestion.Document{
		{DocNo: "1", Text: "gaza ceasefire now"},
		{DocNo: "2", Text: "military occupation continues"},
		{DocNo: "3", Text: "ceasefire talks stall"},
	}
	if _, err := e.Build(context.Background(), docs); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestExecute(t *testing.T) {
	ex := New(newEngine(t), nil)
	res, err := ex.Execute(context.Background(), Request{
		Variant: "original",
		Model:   weighting.Config{Name: "BM25"},
		QID:     "MB42",
		Query:   "gaza ceasefire",
		Limit:   1,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.TotalHits != 2 {
		t.Errorf("TotalHits = %d, want 2", res.TotalHits)
	}
	if len(res.Results) != 1 || res.Results[0].DocID != "1" {
		t.Errorf("results = %+v", res.Results)
	}
	if res.TermStats["ceasefire"] != 2 || res.TermStats["gaza"] != 1 {
		t.Errorf("term stats = %v", res.TermStats)
	}
	if res.Model != "BM25" || res.Variant != "original" || res.QID != "MB42" {
		t.Errorf("metadata = %+v", res)
	}
}

func TestExecuteErrors(t *testing.T) {
	ex := New(newEngine(t), nil)
	ctx := context.Background()

	_, err := ex.Execute(ctx, Request{Variant: "original", Model: weighting.Config{Name: "XYZ"}, Query: "gaza"})
	if !errors.Is(err, apperrors.ErrConfig) {
		t.Errorf("unknown model: expected ErrConfig, got %v", err)
	}
	_, err = ex.Execute(ctx, Request{Variant: "lemmatized", Model: weighting.Config{Name: "BM25"}, Query: "gaza"})
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("unbuilt variant: expected ErrNotFound, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := ex.Execute(cancelled, Request{Variant: "original", Model: weighting.Config{Name: "BM25"}, Query: "gaza"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExecuteEmptyQuery(t *testing.T) {
	ex := New(newEngine(t), nil)
	res, err := ex.Execute(context.Background(), Request{Variant: "stemmed", Model: weighting.Config{Name: "PL2"}, Query: "the"})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalHits != 0 || len(res.Results) != 0 {
		t.Errorf("result = %+v", res)
	}
}
