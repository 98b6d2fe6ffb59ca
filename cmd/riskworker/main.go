// Command riskworker consumes risk jobs and runs the per-entity risk rules:
// watchlist screening, age plausibility and company dormancy.
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
	"github.com/fairyhunter13/company-investigation/internal/adapter/watchlist/opensanctions"
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
	riskRepo := postgres.NewRiskRepo(pool)
	jobRepo := postgres.NewJobRepo(pool)

	registry := companieshouse.New(cfg)
	watchlist := opensanctions.New(cfg)
	riskSvc := usecase.NewRiskService(entityRepo, riskRepo, registry, watchlist)

	groupClient, err := redpanda.NewGroupClient(cfg.KafkaBrokers, redpanda.GroupRisk, redpanda.TopicRisk)
	if err != nil {
		slog.Error("redpanda group connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	consumer := redpanda.NewConsumer(groupClient, jobRepo, riskSvc.Handle)
	defer consumer.Close()

	slog.Info("risk worker starting", slog.String("group", redpanda.GroupRisk))
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("consumer stopped", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("risk worker stopped")
}

func serveMetrics(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
		slog.Error("metrics server error", slog.Any("error", err))
	}
}
