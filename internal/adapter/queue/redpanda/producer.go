package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/time/rate"

	"github.com/fairyhunter13/company-investigation/internal/adapter/observability"
	"github.com/fairyhunter13/company-investigation/internal/domain"
)

// deliveriesHeader counts failed deliveries of a record so far. The consumer
// increments it on each transient failure and routes to the DLQ once the
// count reaches MaxJobRetry.
const deliveriesHeader = "deliveries"

// producerClient is the kgo subset producers need; *kgo.Client satisfies it.
type producerClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Producer enqueues typed jobs onto one topic. It implements domain.Enqueuer:
// a durable job row is created before the message is produced, with an
// optional token-bucket rate limit and an optional per-check job cap.
type Producer struct {
	client          producerClient
	topic           string
	jobs            domain.JobRepository
	limiter         *rate.Limiter
	maxJobsPerCheck int
}

// ProducerOption configures a Producer.
type ProducerOption func(*Producer)

// WithRateLimitPerMinute caps enqueues to n per minute, refilled smoothly
// with a burst of 1.
func WithRateLimitPerMinute(n int) ProducerOption {
	return func(p *Producer) {
		if n > 0 {
			p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
		}
	}
}

// WithMaxJobsPerCheck drops enqueues once a check holds n jobs. The drop is
// logged, counted and reported as success so fan-out terminates quietly.
func WithMaxJobsPerCheck(n int) ProducerOption {
	return func(p *Producer) { p.maxJobsPerCheck = n }
}

// NewProducer constructs a Producer for one topic.
func NewProducer(client producerClient, topic string, jobs domain.JobRepository, opts ...ProducerOption) *Producer {
	p := &Producer{client: client, topic: topic, jobs: jobs}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enqueue creates the job row (linked to checkID when non-nil) and produces
// the envelope. The two steps are not one distributed transaction: a crash in
// between leaves a permanently incomplete job and the check stays incomplete.
func (p *Producer) Enqueue(ctx domain.Context, checkID *uuid.UUID, kind domain.JobKind) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("op=bus.enqueue: %w", err)
		}
	}

	if checkID != nil && p.maxJobsPerCheck > 0 {
		n, err := p.jobs.GetNumOfJobs(ctx, *checkID)
		if err != nil {
			return fmt.Errorf("op=bus.enqueue: %w", err)
		}
		if n >= p.maxJobsPerCheck {
			slog.Warn("job cap reached, dropping enqueue",
				slog.String("topic", p.topic),
				slog.String("check_id", checkID.String()),
				slog.Int("jobs", n),
				slog.Int("cap", p.maxJobsPerCheck))
			observability.JobsCappedTotal.WithLabelValues(p.topic).Inc()
			return nil
		}
	}

	var jobID uuid.UUID
	var err error
	if checkID != nil {
		jobID, err = p.jobs.AddJobWithCheck(ctx, *checkID)
	} else {
		jobID, err = p.jobs.AddJob(ctx)
	}
	if err != nil {
		return fmt.Errorf("op=bus.enqueue: %w", err)
	}

	msg := domain.JobMessage{ID: jobID, JobKind: kind}
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("op=bus.enqueue: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(jobID.String()),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: deliveriesHeader, Value: []byte("0")},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		slog.Error("failed to produce message",
			slog.String("topic", p.topic),
			slog.String("job_id", jobID.String()),
			slog.Any("error", err))
		return fmt.Errorf("op=bus.enqueue: %w", err)
	}

	observability.JobsEnqueuedTotal.WithLabelValues(p.topic).Inc()
	slog.Debug("job enqueued",
		slog.String("topic", p.topic),
		slog.String("job_id", jobID.String()))
	return nil
}
