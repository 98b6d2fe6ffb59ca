// Command streamworker ingests one registry change stream (company, officer
// or shareholder) and turns each record into a streaming-update job on the
// matching topic. Which stream it owns is selected by STREAM_KIND, so each
// stream gets exactly one ingesting process.
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
	"github.com/fairyhunter13/company-investigation/internal/domain"
	"github.com/fairyhunter13/company-investigation/internal/usecase"
)

func streamTopic(kind domain.StreamKind) (string, error) {
	switch kind {
	case domain.StreamCompany:
		return redpanda.TopicCompanyStreaming, nil
	case domain.StreamOfficer:
		return redpanda.TopicOfficerStreaming, nil
	case domain.StreamShareholder:
		return redpanda.TopicShareholderStreaming, nil
	default:
		return "", fmt.Errorf("unknown stream kind %q", kind)
	}
}

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

	kind := domain.StreamKind(cfg.StreamKind)
	topic, err := streamTopic(kind)
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	jobRepo := postgres.NewJobRepo(pool)
	streamRepo := postgres.NewStreamRepo(pool)

	producerClient, err := redpanda.NewProducerClient(cfg.KafkaBrokers)
	if err != nil {
		slog.Error("redpanda producer connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer producerClient.Close()
	producer := redpanda.NewProducer(producerClient, topic, jobRepo)

	ingestor := usecase.NewStreamIngestor(
		companieshouse.NewStreamClient(cfg),
		producer,
		streamRepo,
		kind,
		cfg.StreamReconnectMax,
	)

	slog.Info("stream worker starting",
		slog.String("stream_kind", string(kind)),
		slog.String("topic", topic))
	if err := ingestor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("stream ingest stopped", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("stream worker stopped")
}

func serveMetrics(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
		slog.Error("metrics server error", slog.Any("error", err))
	}
}
