// Package e2e runs the whole evaluation pipeline in process: collection
// files on disk, index build and reload, an experiment run, the result
// files and the search API over the reloaded indexes.
package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/analytics"
	evalmetrics "github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/evaluation/metrics"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/evaluation/qrels"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/experiment"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/report"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/health"
)

const (
	documentsTSV = "docno\ttext\n" +
		"1\tgaza ceasefire now\n" +
		"2\tmilitary occupation continues\n" +
		"3\tceasefire talks stall\n"
	queriesTSV = "qid\tquery\n" +
		"q1\tgaza ceasefire\n" +
		"q2\tmilitary occupation\n"
	qrelsText = "q1 0 1 1\n" +
		"q1 0 3 1\n" +
		"q2 0 2 1\n" +
		"q2 0 1 0\n" +
		"broken line\n"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPipeline(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Index.DataDir = filepath.Join(dir, "index")
	cfg.Data.Documents = writeFile(t, dir, "tweets.tsv", documentsTSV)
	cfg.Data.Queries = writeFile(t, dir, "queries.tsv", queriesTSV)
	cfg.Data.Qrels = writeFile(t, dir, "qrels.txt", qrelsText)
	cfg.Data.OutputDir = filepath.Join(dir, "results")
	cfg.Experiment.Workers = 4
	cfg.Experiment.Models = []config.ModelConfig{{Name: "BM25"}, {Name: "TF-IDF"}}

	ctx := context.Background()

	docs, err := ingestion.ReadDocumentsFile(cfg.Data.Documents)
	if err != nil {
		t.Fatalf("reading documents: %v", err)
	}
	builder, err := indexer.NewEngine(cfg.Index, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := builder.Build(ctx, docs); err != nil {
		t.Fatalf("Build: %v", err)
	}
	persisted, err := builder.Persist()
	if err != nil || len(persisted) != 3 {
		t.Fatalf("Persist = %v, %v", persisted, err)
	}

	engine, err := indexer.NewEngine(cfg.Index, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	store, loadReport, err := qrels.LoadFile(cfg.Data.Qrels)
	if err != nil {
		t.Fatal(err)
	}
	if loadReport.Accepted != 4 || loadReport.DroppedByReason[qrels.ReasonFieldCount] != 1 {
		t.Errorf("qrels report = %+v", loadReport)
	}
	queries, err := ingestion.ReadQueriesFile(cfg.Data.Queries)
	if err != nil {
		t.Fatal(err)
	}

	runner := experiment.NewRunner(cfg.Experiment, engine, engine.Names(), nil, nil)
	result, err := runner.Run(ctx, queries, store)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	stats := result.Aggregator.Stats()
	want := analytics.Stats{Combinations: 6, Queries: 2, Results: 18, Evaluations: 12}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}

	// Every relevant document matches its query and nothing else does, so
	// each model ranks them perfectly.
	for _, rec := range result.Aggregator.Summaries() {
		if rec.Metric == evalmetrics.AP && rec.Value != 1 {
			t.Errorf("%s/%s MAP = %v, want 1", rec.Variant, rec.Model, rec.Value)
		}
	}

	paths, err := report.SaveAll(cfg.Data.OutputDir, result.Aggregator, cfg.Experiment.ReportTopK)
	if err != nil || len(paths) != 3 {
		t.Fatalf("SaveAll = %v, %v", paths, err)
	}
	run, err := os.ReadFile(filepath.Join(cfg.Data.OutputDir, report.RunFile))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(run)), "\n")
	if len(lines) != stats.Results {
		t.Errorf("run file has %d lines, want %d", len(lines), stats.Results)
	}
	if fields := strings.Fields(lines[0]); len(fields) != 6 || fields[1] != "Q0" {
		t.Errorf("run line = %q", lines[0])
	}

	checker := health.NewChecker()
	checker.Register("index_engine", health.Ping(func(context.Context) error { return nil }, false))
	mux := http.NewServeMux()
	handler.New(executor.New(engine, nil), engine, nil, cfg.Search, nil).Register(mux)
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/search?q=ceasefire&variant=lemmatized")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var sr executor.SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || sr.TotalHits != 2 || sr.Variant != "lemmatized" {
		t.Errorf("search: status %d, result %+v", resp.StatusCode, sr)
	}

	ready, err := http.Get(srv.URL + "/health/ready")
	if err != nil {
		t.Fatal(err)
	}
	ready.Body.Close()
	if ready.StatusCode != http.StatusOK {
		t.Errorf("ready status = %d", ready.StatusCode)
	}
}
