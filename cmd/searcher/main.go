package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/redis"
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
	var configPath, dataDir string
	var port int

	flagSet := pflag.NewFlagSet("searcher", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to YAML config file (defaults apply when empty)")
	flagSet.StringVar(&dataDir, "data-dir", "", "directory holding the index files")
	flagSet.IntVarP(&port, "port", "p", 0, "HTTP listen port")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if dataDir != "" {
		cfg.Index.DataDir = dataDir
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)

	engine, err := indexer.NewEngine(cfg.Index, m)
	if err != nil {
		return err
	}
	if err := engine.Load(); err != nil && len(engine.Available()) == 0 {
		return fmt.Errorf("no index variant could be loaded from %s: %w", cfg.Index.DataDir, err)
	}
	slog.Info("starting search service", "port", cfg.Server.Port, "variants", len(engine.Available()))

	checker := health.NewChecker()
	checker.Register("index_engine", func(ctx context.Context) health.ComponentHealth {
		n := len(engine.Available())
		if n == len(engine.Variants()) {
			return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d variants loaded", n)}
		}
		if n > 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: fmt.Sprintf("%d of %d variants loaded", n, len(engine.Variants()))}
		}
		return health.ComponentHealth{Status: health.StatusDown, Message: "no variants loaded"}
	})

	var queryCache *cache.QueryCache
	var redisPing func(context.Context) error
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis, m)
			redisPing = redisClient.Ping
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	checker.Register("redis", health.Ping(redisPing, true))

	mux := http.NewServeMux()
	h := handler.New(executor.New(engine, m), engine, queryCache, cfg.Search, m)
	h.Register(mux)

	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, run history disabled", "error", err)
			checker.Register("postgres", health.Ping(nil, true))
		} else {
			defer db.Close()
			runs := analytics.NewHandler(aggregator.NewStore(db))
			mux.HandleFunc("GET /api/v1/runs", runs.List)
			mux.HandleFunc("GET /api/v1/runs/latest", runs.Latest)
			checker.Register("postgres", health.Ping(db.Ping, true))
		}
	}

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m, "/api/v1/search", "/api/v1/stats", "/api/v1/models", "/api/v1/cache", "/api/v1/runs", "/health")(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}
	slog.Info("search service stopped")
	return nil
}
