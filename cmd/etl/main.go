package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/complaint-club-etl/internal/adapter/geo"
	httpadapter "github.com/couchcryptid/complaint-club-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/complaint-club-etl/internal/adapter/kafka"
	redisadapter "github.com/couchcryptid/complaint-club-etl/internal/adapter/redis"
	"github.com/couchcryptid/complaint-club-etl/internal/adapter/socrata"
	"github.com/couchcryptid/complaint-club-etl/internal/aggregate"
	"github.com/couchcryptid/complaint-club-etl/internal/config"
	"github.com/couchcryptid/complaint-club-etl/internal/observability"
	"github.com/couchcryptid/complaint-club-etl/internal/pipeline"
	"github.com/couchcryptid/complaint-club-etl/internal/query"
	"github.com/couchcryptid/complaint-club-etl/internal/scheduler"
	"github.com/couchcryptid/complaint-club-etl/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()
	if err := st.Migrate(ctx); err != nil {
		logger.Error("failed to migrate store", "error", err)
		os.Exit(1)
	}

	source := socrata.NewClient(cfg.SocrataBaseURL, cfg.SocrataAppToken, cfg.SocrataTimeout, cfg.Location, logger)
	resolver := geo.NewCachedResolver(store.NewPostGISResolver(st), cfg.ResolverCacheSize, metrics)

	opts := pipeline.Options{
		Resolver:   resolver,
		Location:   cfg.Location,
		FetchLimit: cfg.FetchLimit,
		BatchSize:  cfg.BatchSize,
		Lookback:   cfg.DefaultLookback,
	}
	// Optional publisher of classified complaints (enabled by KAFKA_BROKERS).
	if cfg.KafkaEnabled() {
		publisher := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		opts.Publisher = publisher
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}
	p := pipeline.New(source, st, logger, metrics, opts)

	engine := aggregate.NewEngine(st, cfg.Location, cfg.ChaosMaxima, 0, logger, metrics)

	queryOpts := query.Options{CacheTTL: cfg.CacheTTL, Location: cfg.Location}
	// Optional query response cache (enabled by REDIS_ADDR).
	if cfg.CacheEnabled() {
		cache := redisadapter.NewCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Error("redis close error", "error", err)
			}
		}()
		if err := cache.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, queries fall through to the store", "error", err)
		}
		queryOpts.Cache = cache
		logger.Info("query cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	}
	queries := query.NewService(st, logger, metrics, queryOpts)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Ready:      st,
		Queries:    queries,
		Ingester:   p,
		Aggregator: engine,
		Audit:      st,
		AdminToken: cfg.AdminToken,
		Location:   cfg.Location,
	}, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	var sched *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		sched = scheduler.New(cfg.Location, logger)
		jobs := []scheduler.Job{
			scheduler.IngestJob(cfg.IngestSchedule, cfg.IngestTimeout, p),
			scheduler.AggregateJob(cfg.AggregateSchedule, cfg.AggregateTimeout, engine),
		}
		for _, job := range jobs {
			if _, err := sched.Add(job); err != nil {
				logger.Error("failed to schedule job", "job", job.Name, "error", err)
				os.Exit(1)
			}
		}
		sched.Start(ctx)
	} else {
		logger.Info("scheduler disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			logger.Error("scheduler shutdown error", "error", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
