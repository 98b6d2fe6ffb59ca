package postgres

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/company-investigation/internal/domain"
)

// RiskRepo persists risk annotations: flags, datasets, positions and the
// outlier/dormancy verdicts.
type RiskRepo struct{ Pool PgxPool }

// NewRiskRepo constructs a RiskRepo with the given pool.
func NewRiskRepo(p PgxPool) *RiskRepo { return &RiskRepo{Pool: p} }

// InsertFlags appends flags to an entity, each item with a fresh id, all in
// one transaction.
func (r *RiskRepo) InsertFlags(ctx domain.Context, entityID uuid.UUID, kinds []domain.FlagKind) error {
	if len(kinds) == 0 {
		return nil
	}
	tracer := otel.Tracer("repo.risk")
	ctx, span := tracer.Start(ctx, "risk.InsertFlags")
	defer span.End()
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("op=risk.insert_flags: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	for _, k := range kinds {
		id := uuid.New()
		if _, err := tx.Exec(ctx, `INSERT INTO flags (id, kind) VALUES ($1,$2)`, id, k); err != nil {
			return fmt.Errorf("op=risk.insert_flags: %w", err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO entity_flag_map (entity_id, flag_id) VALUES ($1,$2)`, entityID, id); err != nil {
			return fmt.Errorf("op=risk.insert_flags: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=risk.insert_flags: %w", err)
	}
	return nil
}

// InsertDatasets appends watchlist dataset names to an entity.
func (r *RiskRepo) InsertDatasets(ctx domain.Context, entityID uuid.UUID, names []string) error {
	if len(names) == 0 {
		return nil
	}
	tracer := otel.Tracer("repo.risk")
	ctx, span := tracer.Start(ctx, "risk.InsertDatasets")
	defer span.End()
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("op=risk.insert_datasets: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	for _, name := range names {
		id := uuid.New()
		if _, err := tx.Exec(ctx, `INSERT INTO datasets (id, name) VALUES ($1,$2)`, id, name); err != nil {
			return fmt.Errorf("op=risk.insert_datasets: %w", err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO entity_dataset_map (entity_id, dataset_id) VALUES ($1,$2)`, entityID, id); err != nil {
			return fmt.Errorf("op=risk.insert_datasets: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=risk.insert_datasets: %w", err)
	}
	return nil
}

// InsertPositions appends watchlist position titles to an entity.
func (r *RiskRepo) InsertPositions(ctx domain.Context, entityID uuid.UUID, titles []string) error {
	if len(titles) == 0 {
		return nil
	}
	tracer := otel.Tracer("repo.risk")
	ctx, span := tracer.Start(ctx, "risk.InsertPositions")
	defer span.End()
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("op=risk.insert_positions: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	for _, title := range titles {
		id := uuid.New()
		if _, err := tx.Exec(ctx, `INSERT INTO positions (id, title) VALUES ($1,$2)`, id, title); err != nil {
			return fmt.Errorf("op=risk.insert_positions: %w", err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO entity_position_map (entity_id, position_id) VALUES ($1,$2)`, entityID, id); err != nil {
			return fmt.Errorf("op=risk.insert_positions: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=risk.insert_positions: %w", err)
	}
	return nil
}

// InsertOutlierAge records the age-rule verdict for an individual. Re-running
// the rule is a no-op.
func (r *RiskRepo) InsertOutlierAge(ctx domain.Context, entityID uuid.UUID, outlier bool) error {
	tracer := otel.Tracer("repo.risk")
	ctx, span := tracer.Start(ctx, "risk.InsertOutlierAge")
	defer span.End()
	q := `INSERT INTO outlier_ages (entity_id, is_outlier) VALUES ($1,$2) ON CONFLICT (entity_id) DO NOTHING`
	if _, err := r.Pool.Exec(ctx, q, entityID, outlier); err != nil {
		return fmt.Errorf("op=risk.insert_outlier_age: %w", err)
	}
	return nil
}

// InsertDormantCompany records the dormancy verdict for a company. Re-running
// the rule is a no-op.
func (r *RiskRepo) InsertDormantCompany(ctx domain.Context, entityID uuid.UUID, dormant bool) error {
	tracer := otel.Tracer("repo.risk")
	ctx, span := tracer.Start(ctx, "risk.InsertDormantCompany")
	defer span.End()
	q := `INSERT INTO dormant_companies (entity_id, is_dormant) VALUES ($1,$2) ON CONFLICT (entity_id) DO NOTHING`
	if _, err := r.Pool.Exec(ctx, q, entityID, dormant); err != nil {
		return fmt.Errorf("op=risk.insert_dormant_company: %w", err)
	}
	return nil
}
