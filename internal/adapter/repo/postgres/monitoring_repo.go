package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/company-investigation/internal/domain"
)

// MonitoringRepo persists monitoring spans, monitored entities and snapshots.
type MonitoringRepo struct{ Pool PgxPool }

// NewMonitoringRepo constructs a MonitoringRepo with the given pool.
func NewMonitoringRepo(p PgxPool) *MonitoringRepo { return &MonitoringRepo{Pool: p} }

// StartMonitoring opens a monitoring span for a registry number under a
// check: span, monitored entity and check link in one transaction.
func (r *MonitoringRepo) StartMonitoring(ctx domain.Context, checkID uuid.UUID, registryNumber string) error {
	tracer := otel.Tracer("repo.monitoring")
	ctx, span := tracer.Start(ctx, "monitoring.StartMonitoring")
	defer span.End()
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("op=monitoring.start: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	spanID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO monitoring_spans (id, started_at) VALUES ($1,$2)`, spanID, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=monitoring.start: %w", err)
	}
	entityID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO monitored_entities (id, company_house_number, monitoring_span_id) VALUES ($1,$2,$3)`, entityID, registryNumber, spanID); err != nil {
		return fmt.Errorf("op=monitoring.start: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO check_monitored_entity_map (check_id, monitored_entity_id) VALUES ($1,$2)`, checkID, entityID); err != nil {
		return fmt.Errorf("op=monitoring.start: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=monitoring.start: %w", err)
	}
	return nil
}

// CancelMonitoring closes every open span linked to the check.
func (r *MonitoringRepo) CancelMonitoring(ctx domain.Context, checkID uuid.UUID) error {
	tracer := otel.Tracer("repo.monitoring")
	ctx, span := tracer.Start(ctx, "monitoring.CancelMonitoring")
	defer span.End()
	q := `UPDATE monitoring_spans SET ended_at=$2
		WHERE ended_at IS NULL AND id IN (
			SELECT me.monitoring_span_id FROM monitored_entities me
			JOIN check_monitored_entity_map m ON m.monitored_entity_id = me.id
			WHERE m.check_id=$1)`
	if _, err := r.Pool.Exec(ctx, q, checkID, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=monitoring.cancel: %w", err)
	}
	return nil
}

// GetMonitoredEntityCheckIDs returns the checks with an open monitoring span
// on the given registry number.
func (r *MonitoringRepo) GetMonitoredEntityCheckIDs(ctx domain.Context, registryNumber string) ([]uuid.UUID, error) {
	tracer := otel.Tracer("repo.monitoring")
	ctx, span := tracer.Start(ctx, "monitoring.GetMonitoredEntityCheckIDs")
	defer span.End()
	q := `SELECT DISTINCT m.check_id FROM check_monitored_entity_map m
		JOIN monitored_entities me ON me.id = m.monitored_entity_id
		JOIN monitoring_spans s ON s.id = me.monitoring_span_id
		WHERE me.company_house_number=$1 AND s.ended_at IS NULL`
	rows, err := r.Pool.Query(ctx, q, registryNumber)
	if err != nil {
		return nil, fmt.Errorf("op=monitoring.check_ids: %w", err)
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("op=monitoring.check_ids: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=monitoring.check_ids: %w", err)
	}
	return out, nil
}

// InsertEntitySnapshot inserts a fresh entity row, a snapshot referencing it
// and one check link per check id, all in one transaction. History is kept
// by appending entity rows, never by mutating old ones.
func (r *MonitoringRepo) InsertEntitySnapshot(ctx domain.Context, e domain.Entity, checkIDs []uuid.UUID) error {
	tracer := otel.Tracer("repo.monitoring")
	ctx, span := tracer.Start(ctx, "monitoring.InsertEntitySnapshot")
	defer span.End()
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("op=monitoring.snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	entityID := uuid.New()
	insert := `INSERT INTO entities (` + entityColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	if _, err := tx.Exec(ctx, insert, entityID, e.RegistryNumber, e.Name, e.Kind, e.Country, e.PostalCode, e.DateOfOrigin, false, e.OfficerID); err != nil {
		return fmt.Errorf("op=monitoring.snapshot: %w", err)
	}
	snapshotID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO snapshots (id, received_at, entity_id) VALUES ($1,$2,$3)`, snapshotID, time.Now().UTC(), entityID); err != nil {
		return fmt.Errorf("op=monitoring.snapshot: %w", err)
	}
	for _, checkID := range checkIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO check_snapshot_map (check_id, snapshot_id) VALUES ($1,$2)`, checkID, snapshotID); err != nil {
			return fmt.Errorf("op=monitoring.snapshot: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=monitoring.snapshot: %w", err)
	}
	return nil
}
