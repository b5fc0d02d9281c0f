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

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/report"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/metrics"
)

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
	var configPath, documents, dataDir string
	var variants []string

	flagSet := pflag.NewFlagSet("indexer", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to YAML config file (defaults apply when empty)")
	flagSet.StringVar(&documents, "documents", "", "document collection: TSV with docno/text columns or collected tweet JSON")
	flagSet.StringVar(&dataDir, "data-dir", "", "directory the index files are written to")
	flagSet.StringSliceVar(&variants, "variants", nil, "variants to build (original, stemmed, lemmatized)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if documents != "" {
		cfg.Data.Documents = documents
	}
	if dataDir != "" {
		cfg.Index.DataDir = dataDir
	}
	if len(variants) > 0 {
		cfg.Index.Variants = variants
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(nil)
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	slog.Info("starting indexer",
		"documents", cfg.Data.Documents,
		"data_dir", cfg.Index.DataDir,
		"variants", cfg.Index.Variants,
	)
	docs, err := ingestion.ReadDocumentsFile(cfg.Data.Documents)
	if err != nil {
		return err
	}

	engine, err := indexer.NewEngine(cfg.Index, m)
	if err != nil {
		return err
	}
	reports, buildErr := engine.Build(ctx, docs)
	report.RenderIndexStats(os.Stdout, reports)
	if buildErr != nil {
		return buildErr
	}

	paths, err := engine.Persist()
	if err != nil {
		return err
	}
	slog.Info("indexer finished", "files", paths)
	return nil
}
