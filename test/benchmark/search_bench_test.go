package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/evaluation/metrics"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/evaluation/qrels"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/experiment"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/weighting"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/config"
)

func BenchmarkQueryParse(b *testing.B) {
	analyzer := tokenizer.DefaultAnalyzer()
	queries := []struct {
		name  string
		query string
	}{
		{"simple", "gaza ceasefire"},
		{"with_not", "ceasefire talks NOT football"},
		{"long", "humanitarian aid refugees border protest sanctions embassy minister negotiations"},
	}
	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = parser.Parse(q.query, analyzer, tokenizer.ModeStemmed)
			}
		})
	}
}

// BenchmarkRank scores one query with every weighting model over a
// stemmed index.
func BenchmarkRank(b *testing.B) {
	analyzer := tokenizer.DefaultAnalyzer()
	idx, err := index.Build(corpus(20000), analyzer, tokenizer.ModeStemmed)
	if err != nil {
		b.Fatal(err)
	}
	plan := parser.Parse("gaza ceasefire hostages", analyzer, tokenizer.ModeStemmed)
	for _, name := range weighting.Names() {
		model, err := weighting.New(weighting.Config{Name: name})
		if err != nil {
			b.Fatal(err)
		}
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = ranker.Rank(plan, idx, model, 1000)
			}
		})
	}
}

func BenchmarkEvaluate(b *testing.B) {
	ranked := make([]ranker.ScoredDoc, 1000)
	lines := make([]string, 0, 200)
	for i := range ranked {
		ranked[i] = ranker.ScoredDoc{DocID: fmt.Sprint(i), Score: float64(1000 - i), Rank: i + 1}
		if i%5 == 0 {
			lines = append(lines, fmt.Sprintf("q1 0 %d %d", i, (i/5)%2))
		}
	}
	store, _ := qrels.Parse(lines)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := metrics.Evaluate(ranked, store, "q1"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkExperimentRun measures a full run of the default models over
// every variant with one worker per CPU.
func BenchmarkExperimentRun(b *testing.B) {
	cfg := config.Default()
	cfg.Index.DataDir = b.TempDir()
	engine, err := indexer.NewEngine(cfg.Index, nil)
	if err != nil {
		b.Fatal(err)
	}
	if _, err := engine.Build(context.Background(), corpus(5000)); err != nil {
		b.Fatal(err)
	}
	queries := ingestion.DefaultQueries()
	var lines []string
	for _, q := range queries {
		for d := 1; d <= 50; d++ {
			lines = append(lines, fmt.Sprintf("%s 0 %d %d", q.QID, d*7, d%2))
		}
	}
	store, _ := qrels.Parse(lines)
	runner := experiment.NewRunner(cfg.Experiment, engine, engine.Names(), nil, nil)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := runner.Run(context.Background(), queries, store); err != nil {
			b.Fatal(err)
		}
	}
}
