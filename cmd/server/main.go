// Command server starts the company investigation HTTP API.
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
	"time"

	httpserver "github.com/fairyhunter13/company-investigation/internal/adapter/httpserver"
	"github.com/fairyhunter13/company-investigation/internal/adapter/observability"
	"github.com/fairyhunter13/company-investigation/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/company-investigation/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/company-investigation/internal/app"
	"github.com/fairyhunter13/company-investigation/internal/config"
	"github.com/fairyhunter13/company-investigation/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	kafka, err := redpanda.NewProducerClient(cfg.KafkaBrokers)
	if err != nil {
		slog.Error("redpanda client connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer kafka.Close()

	if err := redpanda.EnsureTopics(ctx, kafka); err != nil {
		slog.Error("topic bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Repositories
	checkRepo := postgres.NewCheckRepo(pool)
	entityRepo := postgres.NewEntityRepo(pool)
	relationshipRepo := postgres.NewRelationshipRepo(pool)
	jobRepo := postgres.NewJobRepo(pool)
	monitoringRepo := postgres.NewMonitoringRepo(pool)

	// Producers. The API seeds checks: the relation producer carries the
	// fan-out cap, the risk producer is unbounded.
	relationProducer := redpanda.NewProducer(kafka, redpanda.TopicEntityRelation, jobRepo,
		redpanda.WithMaxJobsPerCheck(cfg.MaxJobsPerCheck))
	riskProducer := redpanda.NewProducer(kafka, redpanda.TopicRisk, jobRepo)

	checkSvc := usecase.NewCheckService(
		checkRepo, entityRepo, relationshipRepo, jobRepo, monitoringRepo,
		relationProducer, riskProducer)

	srv := httpserver.NewServer(cfg, checkSvc, app.BuildReadinessChecks(pool, kafka))
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
