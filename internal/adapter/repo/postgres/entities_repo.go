package postgres

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/company-investigation/internal/domain"
)

// EntityRepo persists and loads graph entities using a minimal pgx pool.
type EntityRepo struct{ Pool PgxPool }

// NewEntityRepo constructs an EntityRepo with the given pool.
func NewEntityRepo(p PgxPool) *EntityRepo { return &EntityRepo{Pool: p} }

const entityColumns = `id, company_house_number, name, kind, country, postal_code, date_of_origin, is_root, officer_id`

// InsertEntity inserts an entity scoped to a check. When the check already
// holds an entity with the same registry number the stored id is returned and
// nothing is written; otherwise the entity row and the check link are created
// in one transaction. This is the per-check deduplication invariant.
func (r *EntityRepo) InsertEntity(ctx domain.Context, e domain.Entity, checkID uuid.UUID) (uuid.UUID, error) {
	tracer := otel.Tracer("repo.entities")
	ctx, span := tracer.Start(ctx, "entities.InsertEntity")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("check.id", checkID.String()),
	)

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return uuid.Nil, fmt.Errorf("op=entity.insert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lookup := `SELECT e.id FROM entities e
		JOIN check_entity_map m ON m.entity_id = e.id
		WHERE m.check_id=$1 AND e.company_house_number=$2
		LIMIT 1`
	var existing uuid.UUID
	err = tx.QueryRow(ctx, lookup, checkID, e.RegistryNumber).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("op=entity.insert: %w", err)
	}

	id := e.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	insert := `INSERT INTO entities (` + entityColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	if _, err := tx.Exec(ctx, insert, id, e.RegistryNumber, e.Name, e.Kind, e.Country, e.PostalCode, e.DateOfOrigin, e.IsRoot, e.OfficerID); err != nil {
		return uuid.Nil, fmt.Errorf("op=entity.insert: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO check_entity_map (check_id, entity_id) VALUES ($1,$2)`, checkID, id); err != nil {
		return uuid.Nil, fmt.Errorf("op=entity.insert: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("op=entity.insert: %w", err)
	}
	return id, nil
}

// GetEntity loads an entity by id.
func (r *EntityRepo) GetEntity(ctx domain.Context, id uuid.UUID) (domain.Entity, error) {
	tracer := otel.Tracer("repo.entities")
	ctx, span := tracer.Start(ctx, "entities.GetEntity")
	defer span.End()
	q := `SELECT ` + entityColumns + ` FROM entities WHERE id=$1`
	e, err := scanEntity(r.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Entity{}, fmt.Errorf("op=entity.get: %w", domain.ErrNotFound)
		}
		return domain.Entity{}, fmt.Errorf("op=entity.get: %w", err)
	}
	return e, nil
}

// GetEntities loads every entity linked to a check.
func (r *EntityRepo) GetEntities(ctx domain.Context, checkID uuid.UUID) ([]domain.Entity, error) {
	tracer := otel.Tracer("repo.entities")
	ctx, span := tracer.Start(ctx, "entities.GetEntities")
	defer span.End()
	q := `SELECT e.id, e.company_house_number, e.name, e.kind, e.country, e.postal_code, e.date_of_origin, e.is_root, e.officer_id
		FROM entities e
		JOIN check_entity_map m ON m.entity_id = e.id
		WHERE m.check_id=$1`
	rows, err := r.Pool.Query(ctx, q, checkID)
	if err != nil {
		return nil, fmt.Errorf("op=entity.list: %w", err)
	}
	defer rows.Close()
	var out []domain.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("op=entity.list: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=entity.list: %w", err)
	}
	return out, nil
}

// GetRootEntity loads the root entity of a check.
func (r *EntityRepo) GetRootEntity(ctx domain.Context, checkID uuid.UUID) (domain.Entity, error) {
	tracer := otel.Tracer("repo.entities")
	ctx, span := tracer.Start(ctx, "entities.GetRootEntity")
	defer span.End()
	q := `SELECT e.id, e.company_house_number, e.name, e.kind, e.country, e.postal_code, e.date_of_origin, e.is_root, e.officer_id
		FROM entities e
		JOIN check_entity_map m ON m.entity_id = e.id
		WHERE m.check_id=$1 AND e.is_root
		LIMIT 1`
	e, err := scanEntity(r.Pool.QueryRow(ctx, q, checkID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Entity{}, fmt.Errorf("op=entity.get_root: %w", domain.ErrNotFound)
		}
		return domain.Entity{}, fmt.Errorf("op=entity.get_root: %w", err)
	}
	return e, nil
}

func scanEntity(row pgx.Row) (domain.Entity, error) {
	var e domain.Entity
	err := row.Scan(&e.ID, &e.RegistryNumber, &e.Name, &e.Kind, &e.Country, &e.PostalCode, &e.DateOfOrigin, &e.IsRoot, &e.OfficerID)
	return e, err
}
