// Command relationworker consumes relation jobs and expands the ownership
// graph: it fetches shareholders, officers and appointments from the
// registry, persists entities and relationships, and enqueues follow-up
// relation and risk jobs.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairyhunter13/company-investigation/internal/adapter/observability"
	"github.com/fairyhunter13/company-investigation/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/company-investigation/internal/adapter/registry/companieshouse"
	"github.com/fairyhunter13/company-investigation/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/company-investigation/internal/config"
	"github.com/fairyhunter13/company-investigation/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()
	go serveMetrics(cfg.MetricsPort)

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	entityRepo := postgres.NewEntityRepo(pool)
	relationshipRepo := postgres.NewRelationshipRepo(pool)
	jobRepo := postgres.NewJobRepo(pool)

	registry := companieshouse.New(cfg)

	producerClient, err := redpanda.NewProducerClient(cfg.KafkaBrokers)
	if err != nil {
		slog.Error("redpanda producer connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer producerClient.Close()

	// The relation producer carries both the registry rate budget and the
	// per-check fan-out cap; risk enqueues are neither limited nor capped.
	relationProducer := redpanda.NewProducer(producerClient, redpanda.TopicEntityRelation, jobRepo,
		redpanda.WithRateLimitPerMinute(cfg.EffectiveRelationRateLimit()),
		redpanda.WithMaxJobsPerCheck(cfg.MaxJobsPerCheck))
	riskProducer := redpanda.NewProducer(producerClient, redpanda.TopicRisk, jobRepo)

	relationSvc := usecase.NewRelationService(entityRepo, relationshipRepo, registry, relationProducer, riskProducer)

	groupClient, err := redpanda.NewGroupClient(cfg.KafkaBrokers, redpanda.GroupEntityRelation, redpanda.TopicEntityRelation)
	if err != nil {
		slog.Error("redpanda group connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	consumer := redpanda.NewConsumer(groupClient, jobRepo, relationSvc.Handle)
	defer consumer.Close()

	slog.Info("relation worker starting",
		slog.String("group", redpanda.GroupEntityRelation),
		slog.Int("rate_limit_per_min", cfg.EffectiveRelationRateLimit()))
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("consumer stopped", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("relation worker stopped")
}

func serveMetrics(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
		slog.Error("metrics server error", slog.Any("error", err))
	}
}
