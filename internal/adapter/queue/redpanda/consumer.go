package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"

	adapterobs "github.com/fairyhunter13/company-investigation/internal/adapter/observability"
	"github.com/fairyhunter13/company-investigation/internal/domain"
	"github.com/fairyhunter13/company-investigation/internal/observability"
)

// Handler processes one decoded job message. A nil return completes the job;
// a terminal error completes it with has_error; a transient error flags the
// job and schedules redelivery.
type Handler func(ctx context.Context, msg domain.JobMessage) error

// consumerClient is the kgo subset consumers need; *kgo.Client satisfies it.
type consumerClient interface {
	PollFetches(ctx context.Context) kgo.Fetches
	MarkCommitRecords(rs ...*kgo.Record)
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Consumer runs a single-task poll loop over a group subscription. Records
// are processed strictly in order within the loop, so a one-partition topic
// with one group member behaves as an exclusive subscription.
type Consumer struct {
	client   consumerClient
	jobs     domain.JobRepository
	handler  Handler
	maxRetry int
}

// NewConsumer constructs a Consumer around an already-subscribed client.
func NewConsumer(client consumerClient, jobs domain.JobRepository, handler Handler) *Consumer {
	return &Consumer{client: client, jobs: jobs, handler: handler, maxRetry: MaxJobRetry}
}

// Run polls until the context ends. Work is sequential per record, never
// spawned per message. A broker-level fetch error aborts the loop; the
// supervisor is expected to restart the process.
func (c *Consumer) Run(ctx context.Context) error {
	lg := observability.LoggerFromContext(ctx)
	for {
		fetches := c.client.PollFetches(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, fe := range errs {
				lg.Error("fetch error",
					slog.String("topic", fe.Topic),
					slog.Any("error", fe.Err))
			}
			return fmt.Errorf("op=bus.consume: %w", errs[0].Err)
		}
		var iterErr error
		fetches.EachRecord(func(rec *kgo.Record) {
			if iterErr != nil {
				return
			}
			iterErr = c.processRecord(ctx, rec)
		})
		if iterErr != nil {
			return iterErr
		}
	}
}

// Close releases the underlying client.
func (c *Consumer) Close() { c.client.Close() }

// processRecord decodes one record and drives completion accounting:
//
//   - malformed payload: warn, ack, drop (no job row is reachable)
//   - handler success: complete the job, ack
//   - terminal error: complete the job with has_error, ack
//   - transient error: flag has_error, redeliver or dead-letter, ack original
func (c *Consumer) processRecord(ctx context.Context, rec *kgo.Record) error {
	lg := observability.LoggerFromContext(ctx)

	var msg domain.JobMessage
	if err := json.Unmarshal(rec.Value, &msg); err != nil {
		lg.Warn("dropping malformed job message",
			slog.String("topic", rec.Topic),
			slog.Any("error", err))
		c.client.MarkCommitRecords(rec)
		return nil
	}

	err := c.handler(observability.ContextWithLogger(ctx, lg.With(slog.String("job_id", msg.ID.String()))), msg)
	switch {
	case err == nil:
		if cerr := c.jobs.CompleteJob(ctx, msg.ID); cerr != nil {
			return fmt.Errorf("op=bus.consume: %w", cerr)
		}
		adapterobs.JobsCompletedTotal.WithLabelValues(rec.Topic).Inc()
	case domain.IsTerminal(err):
		lg.Warn("job failed terminally",
			slog.String("topic", rec.Topic),
			slog.String("job_id", msg.ID.String()),
			slog.Any("error", err))
		if uerr := c.jobs.UpdateJobWithError(ctx, msg.ID); uerr != nil {
			return fmt.Errorf("op=bus.consume: %w", uerr)
		}
		if cerr := c.jobs.CompleteJob(ctx, msg.ID); cerr != nil {
			return fmt.Errorf("op=bus.consume: %w", cerr)
		}
		adapterobs.JobsFailedTotal.WithLabelValues(rec.Topic).Inc()
	default:
		lg.Warn("job failed, scheduling redelivery",
			slog.String("topic", rec.Topic),
			slog.String("job_id", msg.ID.String()),
			slog.Any("error", err))
		if uerr := c.jobs.UpdateJobWithError(ctx, msg.ID); uerr != nil {
			return fmt.Errorf("op=bus.consume: %w", uerr)
		}
		adapterobs.JobsFailedTotal.WithLabelValues(rec.Topic).Inc()
		if rerr := c.redeliver(ctx, rec); rerr != nil {
			return rerr
		}
	}
	c.client.MarkCommitRecords(rec)
	return nil
}

// redeliver re-produces a failed record with an incremented deliveries count,
// or moves it to the dead-letter topic once the count reaches the bound. The
// job row is left incomplete either way.
func (c *Consumer) redeliver(ctx context.Context, rec *kgo.Record) error {
	lg := observability.LoggerFromContext(ctx)
	deliveries := recordDeliveries(rec) + 1

	topic := rec.Topic
	if deliveries >= c.maxRetry {
		topic = DLQTopic(rec.Topic)
		adapterobs.JobsDeadLetteredTotal.WithLabelValues(rec.Topic).Inc()
		lg.Warn("delivery bound reached, routing to DLQ",
			slog.String("topic", rec.Topic),
			slog.String("dlq", topic),
			slog.Int("deliveries", deliveries))
	}

	out := &kgo.Record{
		Topic: topic,
		Key:   rec.Key,
		Value: rec.Value,
		Headers: []kgo.RecordHeader{
			{Key: deliveriesHeader, Value: []byte(strconv.Itoa(deliveries))},
		},
	}
	if err := c.client.ProduceSync(ctx, out).FirstErr(); err != nil {
		return fmt.Errorf("op=bus.redeliver: %w", err)
	}
	return nil
}

func recordDeliveries(rec *kgo.Record) int {
	for _, h := range rec.Headers {
		if h.Key == deliveriesHeader {
			if n, err := strconv.Atoi(string(h.Value)); err == nil {
				return n
			}
			return 0
		}
	}
	return 0
}
