package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/company-investigation/internal/domain"
)

// StreamRepo persists the per-kind resume cursors of the registry stream.
type StreamRepo struct{ Pool PgxPool }

// NewStreamRepo constructs a StreamRepo with the given pool.
func NewStreamRepo(p PgxPool) *StreamRepo { return &StreamRepo{Pool: p} }

// InsertProcessedUpdate appends a processed-update row for a timepoint.
func (r *StreamRepo) InsertProcessedUpdate(ctx domain.Context, timepoint int64, kind domain.StreamKind) error {
	tracer := otel.Tracer("repo.stream")
	ctx, span := tracer.Start(ctx, "stream.InsertProcessedUpdate")
	defer span.End()
	q := `INSERT INTO processed_updates (id, processed_at, timepoint, kind) VALUES ($1,$2,$3,$4)`
	if _, err := r.Pool.Exec(ctx, q, uuid.New(), time.Now().UTC(), timepoint, kind); err != nil {
		return fmt.Errorf("op=stream.insert_processed: %w", err)
	}
	return nil
}

// GetLastProcessedTimepoint returns the max processed timepoint for a stream
// kind, or nil when the stream has never been consumed.
func (r *StreamRepo) GetLastProcessedTimepoint(ctx domain.Context, kind domain.StreamKind) (*int64, error) {
	tracer := otel.Tracer("repo.stream")
	ctx, span := tracer.Start(ctx, "stream.GetLastProcessedTimepoint")
	defer span.End()
	q := `SELECT MAX(timepoint) FROM processed_updates WHERE kind=$1`
	var tp *int64
	if err := r.Pool.QueryRow(ctx, q, kind).Scan(&tp); err != nil {
		return nil, fmt.Errorf("op=stream.last_processed: %w", err)
	}
	return tp, nil
}
