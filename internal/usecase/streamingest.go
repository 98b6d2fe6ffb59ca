package usecase

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	adapterobs "github.com/fairyhunter13/company-investigation/internal/adapter/observability"
	"github.com/fairyhunter13/company-investigation/internal/domain"
	"github.com/fairyhunter13/company-investigation/internal/observability"
)

// StreamOpener opens the registry event stream for one kind, optionally
// resuming from a timepoint cursor.
type StreamOpener interface {
	OpenStream(ctx domain.Context, kind domain.StreamKind, timepoint *int64) (io.ReadCloser, error)
}

// StreamIngestor pumps one registry event stream onto the bus. The body is a
// sequence of newline-delimited JSON records where a lone newline is a
// keep-alive heartbeat. Each record becomes one StreamingUpdateJob; the
// resume cursor is the last timepoint the monitored-update worker processed,
// so a restart replays at-least-once from there.
type StreamIngestor struct {
	opener       StreamOpener
	producer     domain.Enqueuer
	store        domain.StreamRepository
	kind         domain.StreamKind
	reconnectMax time.Duration

	// initialBackoff overrides the first reconnect wait; tests shrink it.
	initialBackoff time.Duration
}

// NewStreamIngestor constructs a StreamIngestor for one stream kind.
func NewStreamIngestor(
	opener StreamOpener,
	producer domain.Enqueuer,
	store domain.StreamRepository,
	kind domain.StreamKind,
	reconnectMax time.Duration,
) *StreamIngestor {
	return &StreamIngestor{
		opener:       opener,
		producer:     producer,
		store:        store,
		kind:         kind,
		reconnectMax: reconnectMax,
	}
}

// Run ingests until the context ends, reconnecting with exponential backoff
// whenever the connection drops or errors.
func (s *StreamIngestor) Run(ctx context.Context) error {
	lg := observability.LoggerFromContext(ctx).With(slog.String("stream_kind", string(s.kind)))
	ctx = observability.ContextWithLogger(ctx, lg)

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = s.reconnectMax
	bo.MaxElapsedTime = 0
	if s.initialBackoff > 0 {
		bo.InitialInterval = s.initialBackoff
	}

	for {
		err := s.connectAndIngest(ctx, bo)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		adapterobs.StreamReconnectsTotal.WithLabelValues(string(s.kind)).Inc()
		wait := bo.NextBackOff()
		lg.Warn("stream disconnected, reconnecting",
			slog.Any("error", err),
			slog.Duration("backoff", wait))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// connectAndIngest opens one connection from the persisted cursor and pumps
// it until it errors or ends. A stream that ends cleanly is still abnormal;
// the caller reconnects either way. The backoff resets once a connection is
// established so a long-lived stream's next drop starts from the shortest
// wait again.
func (s *StreamIngestor) connectAndIngest(ctx context.Context, bo *backoff.ExponentialBackOff) error {
	timepoint, err := s.store.GetLastProcessedTimepoint(ctx, s.kind)
	if err != nil {
		return fmt.Errorf("op=stream.ingest: %w", err)
	}

	body, err := s.opener.OpenStream(ctx, s.kind, timepoint)
	if err != nil {
		return fmt.Errorf("op=stream.ingest: %w", err)
	}
	defer func() { _ = body.Close() }()
	bo.Reset()

	return s.ingest(ctx, body)
}

// ingest frames the byte stream into records: split on newline, a lone
// newline is a heartbeat, everything else decodes to one stream record.
// Malformed records are logged and dropped.
func (s *StreamIngestor) ingest(ctx context.Context, body io.Reader) error {
	lg := observability.LoggerFromContext(ctx)
	reader := bufio.NewReader(body)

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return fmt.Errorf("op=stream.ingest: %w: %w", domain.ErrUpstream, err)
		}

		record := bytes.TrimRight(line, "\n")
		if len(record) == 0 {
			adapterobs.StreamRecordsTotal.WithLabelValues(string(s.kind), "heartbeat").Inc()
			continue
		}

		job, err := s.decode(record)
		if err != nil {
			adapterobs.StreamRecordsTotal.WithLabelValues(string(s.kind), "malformed").Inc()
			lg.Warn("dropping malformed stream record", slog.Any("error", err))
			continue
		}

		if err := s.producer.Enqueue(ctx, nil, domain.NewStreamingUpdateJobKind(job)); err != nil {
			return fmt.Errorf("op=stream.ingest: %w", err)
		}
		adapterobs.StreamRecordsTotal.WithLabelValues(string(s.kind), "ok").Inc()
	}
}

// streamRecord is the wire envelope of one stream record.
type streamRecord struct {
	Data  json.RawMessage     `json:"data"`
	Event *domain.StreamEvent `json:"event"`
}

// decode parses one framed record into a StreamingUpdateJob for this
// ingestor's kind. Records without an event carry no resume cursor and are
// rejected; company and officer records additionally need a payload.
func (s *StreamIngestor) decode(record []byte) (domain.StreamingUpdateJob, error) {
	var raw streamRecord
	if err := json.Unmarshal(record, &raw); err != nil {
		return domain.StreamingUpdateJob{}, err
	}
	if raw.Event == nil {
		return domain.StreamingUpdateJob{}, fmt.Errorf("record has no event: %w", domain.ErrSchemaInvalid)
	}

	kind := domain.StreamingUpdateKind{}
	switch s.kind {
	case domain.StreamCompany:
		if len(raw.Data) == 0 {
			return domain.StreamingUpdateJob{}, fmt.Errorf("company record has no data: %w", domain.ErrSchemaInvalid)
		}
		var data domain.CompanyData
		if err := json.Unmarshal(raw.Data, &data); err != nil {
			return domain.StreamingUpdateJob{}, err
		}
		kind.Company = &data
	case domain.StreamOfficer:
		if len(raw.Data) == 0 {
			return domain.StreamingUpdateJob{}, fmt.Errorf("officer record has no data: %w", domain.ErrSchemaInvalid)
		}
		var data domain.OfficerData
		if err := json.Unmarshal(raw.Data, &data); err != nil {
			return domain.StreamingUpdateJob{}, err
		}
		kind.Officer = &data
	case domain.StreamShareholder:
		kind.Shareholder = true
	default:
		return domain.StreamingUpdateJob{}, fmt.Errorf("unknown stream kind %q: %w", s.kind, domain.ErrInvalidArgument)
	}

	return domain.StreamingUpdateJob{Event: *raw.Event, Kind: kind}, nil
}
