package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Adithya-Monish-Kumar-K/review-scores/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/review-scores/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/review-scores/internal/query/cache"
	"github.com/Adithya-Monish-Kumar-K/review-scores/internal/scoring/index"
	"github.com/Adithya-Monish-Kumar-K/review-scores/internal/service/handler"
	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/review-scores/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting score service",
		"port", cfg.Server.Port,
		"corpus_source", cfg.Corpus.Source,
		"max_lines", cfg.Corpus.MaxLines,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if cfg.Metrics.Enabled {
		metricsServer, err := metrics.StartServer(cfg.Metrics.Port, reg)
		if err != nil {
			slog.Warn("metrics endpoint disabled", "error", err)
		} else {
			defer metricsServer.Shutdown(context.Background())
		}
	}

	src, closeSource, err := corpus.Open(ctx, cfg.Corpus, cfg.Postgres)
	if err != nil {
		slog.Error("failed to open corpus", "error", err)
		os.Exit(1)
	}
	idx, err := index.BuildFromSource(ctx, src, cfg.Corpus.MaxLines, m)
	closeSource()
	if err != nil {
		slog.Error("failed to build score index", "source", src.String(), "error", err)
		os.Exit(1)
	}

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, query caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			cb := resilience.NewCircuitBreaker("redis", resilience.CircuitBreakerConfig{
				FailureThreshold: 5,
				ResetTimeout:     10 * time.Second,
			})
			store := cache.Guard(redisClient, cb, pkgredis.IsNilError)
			queryCache = cache.New(store, pkgredis.IsNilError, idx.Fingerprint(), cfg.Redis.CacheTTL, m)
			slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	mux := http.NewServeMux()
	var tracker handler.Tracker
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.QueryEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, cfg.Kafka.BufferSize)
		collector.Start(ctx)
		defer collector.Close()
		tracker = collector

		aggregator := analytics.NewAggregator()
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.QueryEvents, aggregator.HandleEvent())
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("analytics consumer error", "error", err)
			}
		}()
		mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
		slog.Info("query analytics enabled", "topic", cfg.Kafka.QueryEvents, "brokers", cfg.Kafka.Brokers)
	}

	checker := health.NewChecker()
	checker.Register("score_index", func(ctx context.Context) health.ComponentHealth {
		stats := idx.Stats()
		if stats.Words == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "index is empty"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d words in %d buckets", stats.Words, stats.Buckets),
		}
	})
	var redisPing func(context.Context) error
	if redisClient != nil {
		redisPing = redisClient.Ping
	}
	checker.Register("redis", health.PingCheck(redisPing))

	h := handler.New(idx, queryCache, tracker, cfg.Query, m)
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("score service listening", "addr", server.Addr, "fingerprint", idx.Fingerprint())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-shutdownDone
	slog.Info("score service stopped")
}
