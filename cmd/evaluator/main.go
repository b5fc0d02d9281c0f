package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/evaluation/qrels"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/experiment"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/report"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/tracing"
)

type options struct {
	configPath string
	documents  string
	queries    string
	qrels      string
	output     string
	workers    int
	rebuild    bool
}

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options
	flagSet := pflag.NewFlagSet("evaluator", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file (defaults apply when empty)")
	flagSet.StringVar(&opts.documents, "documents", "", "document collection, used when the index must be built")
	flagSet.StringVar(&opts.queries, "queries", "", "query file: TSV with qid/query columns or topic JSON (built-in topics when empty)")
	flagSet.StringVar(&opts.qrels, "qrels", "", "relevance judgments: qid iter docno label lines")
	flagSet.StringVarP(&opts.output, "output", "o", "", "directory for result files")
	flagSet.IntVarP(&opts.workers, "workers", "w", 0, "concurrent scoring workers")
	flagSet.BoolVar(&opts.rebuild, "rebuild", false, "build the index from documents instead of loading saved index files")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyFlags(cfg, opts)

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(nil)
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	ctx, root := tracing.Start(ctx, "evaluate")
	defer func() {
		root.End()
		root.Log(slog.Default())
	}()

	store, err := loadQrels(ctx, cfg, m)
	if err != nil {
		return err
	}
	queries, err := ingestion.ReadQueriesFile(cfg.Data.Queries)
	if err != nil {
		return err
	}

	engine, err := loadEngine(ctx, cfg, m, opts.rebuild)
	if err != nil {
		return err
	}

	queryCache, closeCache := openCache(cfg, m)
	defer closeCache()

	runCtx, runSpan := tracing.Start(ctx, "run")
	runner := experiment.NewRunner(cfg.Experiment, engine, engine.Names(), queryCache, m)
	result, runErr := runner.Run(runCtx, queries, store)
	runSpan.SetAttr("run_id", result.RunID)
	runSpan.End()
	if runErr != nil {
		slog.Error("experiment run incomplete, reporting partial results", "error", runErr)
	}

	agg := result.Aggregator
	fmt.Fprintf(os.Stdout, "\nTop %d results per model and index (run %s)\n", cfg.Experiment.ReportTopK, result.RunID)
	report.RenderTopResults(os.Stdout, agg.TopK(cfg.Experiment.ReportTopK))
	fmt.Fprintln(os.Stdout, "\nMean metrics over evaluated queries")
	report.RenderSummary(os.Stdout, agg.Summaries())
	report.RenderFailures(os.Stdout, agg.Failures())

	paths, err := report.SaveAll(cfg.Data.OutputDir, agg, cfg.Experiment.ReportTopK)
	if err != nil {
		return err
	}
	slog.Info("results written", "files", paths)

	// Export failures are logged; the local result files are already written.
	summary := result.Summary()
	if cfg.Postgres.Enabled {
		if err := saveRun(ctx, cfg, result); err != nil {
			slog.Error("saving run to postgres failed", "run_id", summary.RunID, "error", err)
		}
	}
	if cfg.Kafka.Enabled {
		publishRun(ctx, cfg, result)
	}
	return runErr
}

func applyFlags(cfg *config.Config, opts options) {
	if opts.documents != "" {
		cfg.Data.Documents = opts.documents
	}
	if opts.queries != "" {
		cfg.Data.Queries = opts.queries
	}
	if opts.qrels != "" {
		cfg.Data.Qrels = opts.qrels
	}
	if opts.output != "" {
		cfg.Data.OutputDir = opts.output
	}
	if opts.workers > 0 {
		cfg.Experiment.Workers = opts.workers
	}
}

func loadQrels(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*qrels.Store, error) {
	_, span := tracing.Start(ctx, "load_qrels")
	defer span.End()

	store, loadReport, err := qrels.LoadFile(cfg.Data.Qrels)
	if err != nil {
		return nil, err
	}
	for reason, n := range loadReport.DroppedByReason {
		m.AddQrelsDropped(reason, n)
	}
	span.SetAttr("accepted", loadReport.Accepted)
	span.SetAttr("dropped", loadReport.Dropped)

	fmt.Fprintln(os.Stdout, "Qrels verification")
	report.RenderQrelsReport(os.Stdout, loadReport)
	return store, nil
}

// loadEngine reopens the saved index files, falling back to a build from
// the document collection when they are missing or rebuild is set.
func loadEngine(ctx context.Context, cfg *config.Config, m *metrics.Metrics, rebuild bool) (*indexer.Engine, error) {
	ctx, span := tracing.Start(ctx, "index")
	defer span.End()

	engine, err := indexer.NewEngine(cfg.Index, m)
	if err != nil {
		return nil, err
	}
	if !rebuild {
		if err := engine.Load(); err == nil {
			span.SetAttr("source", "segments")
			return engine, nil
		}
		slog.Warn("saved index incomplete, building from documents", "data_dir", cfg.Index.DataDir)
	}

	docs, err := ingestion.ReadDocumentsFile(cfg.Data.Documents)
	if err != nil {
		return nil, err
	}
	reports, err := engine.Build(ctx, docs)
	fmt.Fprintln(os.Stdout, "\nIndex statistics")
	report.RenderIndexStats(os.Stdout, reports)
	if err != nil {
		return nil, err
	}
	if _, err := engine.Persist(); err != nil {
		slog.Warn("index files not saved", "error", err)
	}
	span.SetAttr("source", "documents")
	span.SetAttr("documents", len(docs))
	return engine, nil
}

func openCache(cfg *config.Config, m *metrics.Metrics) (*cache.QueryCache, func()) {
	if !cfg.Redis.Enabled {
		return nil, func() {}
	}
	client, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, ranking cache disabled", "error", err)
		return nil, func() {}
	}
	slog.Info("ranking cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	return cache.New(client, cfg.Redis, m), func() { client.Close() }
}

func saveRun(ctx context.Context, cfg *config.Config, result *experiment.Result) error {
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()

	store := aggregator.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	agg := result.Aggregator
	return store.SaveRun(ctx, result.Summary(), agg.Records(), agg.TopK(cfg.Experiment.ReportTopK))
}

func publishRun(ctx context.Context, cfg *config.Config, result *experiment.Result) {
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.EvaluationRecords)
	defer producer.Close()

	bc := collector.NewBatchCollector(producer, cfg.Kafka.BatchSize, cfg.Kafka.FlushInterval)
	n := bc.TrackRun(result.Summary(), result.Aggregator.Records(), result.Aggregator.Failures())
	bc.Flush(ctx)
	if left := bc.BufferLen(); left > 0 {
		slog.Error("evaluation events not published", "run_id", result.RunID, "pending", left, "total", n)
		return
	}
	slog.Info("evaluation events published", "run_id", result.RunID, "events", n, "topic", cfg.Kafka.Topics.EvaluationRecords)
}
