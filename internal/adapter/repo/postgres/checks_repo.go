package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/company-investigation/internal/domain"
)

// CheckRepo persists and loads checks from PostgreSQL using a minimal pgx pool.
type CheckRepo struct{ Pool PgxPool }

// NewCheckRepo constructs a CheckRepo with the given pool.
func NewCheckRepo(p PgxPool) *CheckRepo { return &CheckRepo{Pool: p} }

// InsertCheck creates a new check and returns its id.
func (r *CheckRepo) InsertCheck(ctx domain.Context, kind domain.CheckKind) (uuid.UUID, error) {
	tracer := otel.Tracer("repo.checks")
	ctx, span := tracer.Start(ctx, "checks.InsertCheck")
	defer span.End()
	id := uuid.New()
	q := `INSERT INTO checks (id, started_at, kind) VALUES ($1,$2,$3)`
	if _, err := r.Pool.Exec(ctx, q, id, time.Now().UTC(), kind); err != nil {
		return uuid.Nil, fmt.Errorf("op=check.insert: %w", err)
	}
	return id, nil
}

// GetCheck loads a check by id.
func (r *CheckRepo) GetCheck(ctx domain.Context, id uuid.UUID) (domain.Check, error) {
	tracer := otel.Tracer("repo.checks")
	ctx, span := tracer.Start(ctx, "checks.GetCheck")
	defer span.End()
	q := `SELECT id, started_at, kind FROM checks WHERE id=$1`
	var c domain.Check
	if err := r.Pool.QueryRow(ctx, q, id).Scan(&c.ID, &c.StartedAt, &c.Kind); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Check{}, fmt.Errorf("op=check.get: %w", domain.ErrNotFound)
		}
		return domain.Check{}, fmt.Errorf("op=check.get: %w", err)
	}
	return c, nil
}

// GetChecks loads all checks, newest first.
func (r *CheckRepo) GetChecks(ctx domain.Context) ([]domain.Check, error) {
	tracer := otel.Tracer("repo.checks")
	ctx, span := tracer.Start(ctx, "checks.GetChecks")
	defer span.End()
	q := `SELECT id, started_at, kind FROM checks ORDER BY started_at DESC`
	rows, err := r.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("op=check.list: %w", err)
	}
	defer rows.Close()
	var out []domain.Check
	for rows.Next() {
		var c domain.Check
		if err := rows.Scan(&c.ID, &c.StartedAt, &c.Kind); err != nil {
			return nil, fmt.Errorf("op=check.list: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=check.list: %w", err)
	}
	return out, nil
}
