package postgres

import (
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/company-investigation/internal/domain"
)

// RelationshipRepo persists and loads graph edges using a minimal pgx pool.
type RelationshipRepo struct{ Pool PgxPool }

// NewRelationshipRepo constructs a RelationshipRepo with the given pool.
func NewRelationshipRepo(p PgxPool) *RelationshipRepo { return &RelationshipRepo{Pool: p} }

// InsertRelationship inserts an edge. A duplicate (parent, child) pair maps
// to domain.ErrConflict so callers can downgrade it to a warning.
func (r *RelationshipRepo) InsertRelationship(ctx domain.Context, rel domain.Relationship) error {
	tracer := otel.Tracer("repo.relationships")
	ctx, span := tracer.Start(ctx, "relationships.InsertRelationship")
	defer span.End()
	q := `INSERT INTO relationships (parent_id, child_id, kind, started_on, ended_on) VALUES ($1,$2,$3,$4,$5)`
	if _, err := r.Pool.Exec(ctx, q, rel.ParentID, rel.ChildID, rel.Kind, rel.StartedOn, rel.EndedOn); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("op=relationship.insert: %w", domain.ErrConflict)
		}
		return fmt.Errorf("op=relationship.insert: %w", err)
	}
	return nil
}

// GetRelations returns the parents related to an entity by edge kind.
func (r *RelationshipRepo) GetRelations(ctx domain.Context, entityID uuid.UUID, kind domain.RelationshipKind) ([]domain.Relation, error) {
	tracer := otel.Tracer("repo.relationships")
	ctx, span := tracer.Start(ctx, "relationships.GetRelations")
	defer span.End()
	q := `SELECT parent_id, started_on, ended_on FROM relationships WHERE child_id=$1 AND kind=$2`
	rows, err := r.Pool.Query(ctx, q, entityID, kind)
	if err != nil {
		return nil, fmt.Errorf("op=relationship.list: %w", err)
	}
	defer rows.Close()
	var out []domain.Relation
	for rows.Next() {
		var rl domain.Relation
		if err := rows.Scan(&rl.ParentID, &rl.StartedOn, &rl.EndedOn); err != nil {
			return nil, fmt.Errorf("op=relationship.list: %w", err)
		}
		out = append(out, rl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=relationship.list: %w", err)
	}
	return out, nil
}
