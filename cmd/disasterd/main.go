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

	"github.com/couchcryptid/disaster-feed-service/internal/adapter/eonet"
	"github.com/couchcryptid/disaster-feed-service/internal/adapter/filestore"
	httpadapter "github.com/couchcryptid/disaster-feed-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/disaster-feed-service/internal/adapter/kafka"
	"github.com/couchcryptid/disaster-feed-service/internal/adapter/memstore"
	redisadapter "github.com/couchcryptid/disaster-feed-service/internal/adapter/redis"
	"github.com/couchcryptid/disaster-feed-service/internal/adapter/usgs"
	"github.com/couchcryptid/disaster-feed-service/internal/config"
	"github.com/couchcryptid/disaster-feed-service/internal/observability"
	"github.com/couchcryptid/disaster-feed-service/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open cache store", "backend", cfg.CacheBackend, "error", err)
		os.Exit(1)
	}
	logger.Info("cache store ready", "backend", cfg.CacheBackend)

	// Kafka publishing is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var publisher *kafkaadapter.Publisher
	pcfg := pipeline.Config{
		Disasters:   eonet.NewClient(cfg.EONETBaseURL, cfg.EONETLimit, cfg.FetchTimeout, clock, logger),
		Earthquakes: usgs.NewClient(usgs.Config{
			BaseURL:      cfg.USGSBaseURL,
			Limit:        cfg.USGSLimit,
			MinMagnitude: cfg.USGSMinMagnitude,
			WindowDays:   cfg.USGSWindowDays,
			Timeout:      cfg.FetchTimeout,
		}, clock, logger),
		Store:     store,
		Clock:     clock,
		Freshness: cfg.CacheTTL,
	}
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, clock, logger)
		pcfg.Publisher = publisher
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka publishing disabled")
	}

	p := pipeline.New(pcfg, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, clock, cfg.PageSize, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Warm the cache so /readyz turns green without waiting for a request.
	go func() {
		ds, err := p.Load(ctx, false)
		if err != nil {
			logger.Warn("initial load failed", "error", err, "events", len(ds.All()))
			return
		}
		logger.Info("initial load complete", "events", len(ds.All()), "fetched_at", ds.FetchedAt)
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if err := closeStore(); err != nil {
		logger.Error("cache store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// openStore builds the configured cache backend and a func releasing it.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (pipeline.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		s, err := redisadapter.Connect(ctx, redisadapter.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.CacheBackendMemory:
		return memstore.New(), noop, nil
	case config.CacheBackendFile:
		s, err := filestore.New(cfg.CacheDir)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
