// Package usecase holds the application services: the check lifecycle, the
// per-topic job handlers and the stream ingest loop. Services depend only on
// the domain ports; adapters are injected by the binaries.
package usecase

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/company-investigation/internal/domain"
	"github.com/fairyhunter13/company-investigation/internal/observability"
)

// RelationService expands one relation of one entity per job: it fetches the
// requested registry relation, persists the discovered entities and edges,
// and fans out follow-up jobs while remaining depth allows.
type RelationService struct {
	entities      domain.EntityRepository
	relationships domain.RelationshipRepository
	registry      domain.RegistryClient
	relationJobs  domain.Enqueuer
	riskJobs      domain.Enqueuer
}

// NewRelationService constructs a RelationService. relationJobs is expected
// to carry the rate limit and per-check cap; riskJobs carries neither.
func NewRelationService(
	entities domain.EntityRepository,
	relationships domain.RelationshipRepository,
	registry domain.RegistryClient,
	relationJobs domain.Enqueuer,
	riskJobs domain.Enqueuer,
) *RelationService {
	return &RelationService{
		entities:      entities,
		relationships: relationships,
		registry:      registry,
		relationJobs:  relationJobs,
		riskJobs:      riskJobs,
	}
}

// Handle processes one relation job message.
func (s *RelationService) Handle(ctx domain.Context, msg domain.JobMessage) error {
	ctx, span := otel.Tracer("usecase.relation").Start(ctx, "relation.handle")
	defer span.End()

	job := msg.JobKind.Relation
	if job == nil {
		return fmt.Errorf("op=relation.handle: not a relation job: %w", domain.ErrSchemaInvalid)
	}
	ctx = observability.ContextWithCheckID(ctx, job.CheckID.String())

	var (
		relations []domain.EntityRelation
		edgeKind  domain.RelationshipKind
		reversed  bool
		err       error
	)
	switch job.RelationJobKind {
	case domain.RelationShareholders:
		relations, err = s.registry.Shareholders(ctx, job.CompanyHouseNumber)
		edgeKind = domain.RelationshipShareholder
	case domain.RelationOfficers:
		relations, err = s.registry.Officers(ctx, job.CompanyHouseNumber)
		edgeKind = domain.RelationshipOfficer
	case domain.RelationAppointments:
		var officerID string
		if job.OfficerID != nil {
			officerID = *job.OfficerID
		}
		relations, err = s.registry.Appointments(ctx, officerID)
		edgeKind = domain.RelationshipOfficer
		reversed = true
	default:
		return fmt.Errorf("op=relation.handle: unknown relation job kind %q: %w",
			job.RelationJobKind, domain.ErrSchemaInvalid)
	}
	if err != nil {
		return fmt.Errorf("op=relation.handle: %w", err)
	}

	lg := observability.LoggerFromContext(ctx)
	for _, rel := range relations {
		entityID, err := s.entities.InsertEntity(ctx, rel.Entity, job.CheckID)
		if err != nil {
			return fmt.Errorf("op=relation.handle: %w", err)
		}

		edge := domain.Relationship{
			ParentID:  entityID,
			ChildID:   job.ChildID,
			Kind:      edgeKind,
			StartedOn: rel.StartedOn,
			EndedOn:   rel.EndedOn,
		}
		if reversed {
			// An appointment edge runs the other way: the individual we
			// expanded from controls the appointed company.
			edge.ParentID, edge.ChildID = job.ChildID, entityID
		}
		if err := s.relationships.InsertRelationship(ctx, edge); err != nil {
			// Duplicate edges are expected when graphs revisit a pair;
			// the entity still fans out below.
			lg.Warn("inserting relationship failed",
				slog.String("kind", string(edgeKind)),
				slog.Any("error", err))
		}

		if err := s.fanOut(ctx, job, entityID, rel.Entity); err != nil {
			return fmt.Errorf("op=relation.handle: %w", err)
		}
	}
	return nil
}

// fanOut schedules the follow-up jobs for one discovered entity, keyed by the
// canonical (deduplicated) entity id so revisits converge on one node.
func (s *RelationService) fanOut(ctx domain.Context, job *domain.RelationJob, entityID uuid.UUID, e domain.Entity) error {
	next := func(kind domain.RelationJobKind) domain.JobKind {
		return domain.NewRelationJobKind(domain.RelationJob{
			ChildID:            entityID,
			CheckID:            job.CheckID,
			CompanyHouseNumber: e.RegistryNumber,
			OfficerID:          e.OfficerID,
			RemainingDepth:     job.RemainingDepth - 1,
			RelationJobKind:    kind,
		})
	}

	switch e.Kind {
	case domain.EntityCompany:
		if job.RemainingDepth > 0 {
			if err := s.relationJobs.Enqueue(ctx, &job.CheckID, next(domain.RelationShareholders)); err != nil {
				return err
			}
			if err := s.relationJobs.Enqueue(ctx, &job.CheckID, next(domain.RelationOfficers)); err != nil {
				return err
			}
		}
	case domain.EntityIndividual:
		if job.RemainingDepth > 0 {
			if err := s.relationJobs.Enqueue(ctx, &job.CheckID, next(domain.RelationAppointments)); err != nil {
				return err
			}
		}
		// Individuals are screened regardless of depth.
		if err := s.riskJobs.Enqueue(ctx, &job.CheckID, domain.NewLocalRiskJobKind(entityID, domain.RiskFlags)); err != nil {
			return err
		}
	}
	return nil
}
