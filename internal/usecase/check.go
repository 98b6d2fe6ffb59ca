package usecase

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/company-investigation/internal/domain"
)

// CheckService owns the check lifecycle: starting an investigation, reading
// its status and results, and starting or cancelling monitoring.
type CheckService struct {
	checks        domain.CheckRepository
	entities      domain.EntityRepository
	relationships domain.RelationshipRepository
	jobs          domain.JobRepository
	monitoring    domain.MonitoringRepository
	relationJobs  domain.Enqueuer
	riskJobs      domain.Enqueuer
}

// NewCheckService constructs a CheckService.
func NewCheckService(
	checks domain.CheckRepository,
	entities domain.EntityRepository,
	relationships domain.RelationshipRepository,
	jobs domain.JobRepository,
	monitoring domain.MonitoringRepository,
	relationJobs domain.Enqueuer,
	riskJobs domain.Enqueuer,
) *CheckService {
	return &CheckService{
		checks:        checks,
		entities:      entities,
		relationships: relationships,
		jobs:          jobs,
		monitoring:    monitoring,
		relationJobs:  relationJobs,
		riskJobs:      riskJobs,
	}
}

// CheckStatus is the API view of a check's progress.
type CheckStatus struct {
	ID            uuid.UUID
	Kind          domain.CheckKind
	StartedAt     time.Time
	CompletedAt   *time.Time
	HasErroredJob bool
	NumJobs       int
	NumEntities   int
}

// RelationView is one ownership edge of a check's graph, read from the
// child's side.
type RelationView struct {
	ParentID  uuid.UUID
	ChildID   uuid.UUID
	Kind      domain.RelationshipKind
	StartedOn *time.Time
	EndedOn   *time.Time
}

// StartCheck begins an investigation of companyNumber to the given depth:
// it creates the check and the root entity, then seeds the expansion with
// shareholders and officers relation jobs plus the root's risk rules.
func (s *CheckService) StartCheck(ctx domain.Context, companyNumber string, depth int) (uuid.UUID, error) {
	ctx, span := otel.Tracer("usecase.check").Start(ctx, "check.start")
	defer span.End()

	if companyNumber == "" {
		return uuid.Nil, fmt.Errorf("op=check.start: company number is empty: %w", domain.ErrInvalidArgument)
	}
	if depth < 0 {
		return uuid.Nil, fmt.Errorf("op=check.start: depth is negative: %w", domain.ErrInvalidArgument)
	}
	number := domain.PadRegistryNumber(companyNumber)

	checkID, err := s.checks.InsertCheck(ctx, domain.CheckEntityRelation)
	if err != nil {
		return uuid.Nil, fmt.Errorf("op=check.start: %w", err)
	}

	root := domain.Entity{
		ID:             uuid.New(),
		RegistryNumber: number,
		Kind:           domain.EntityCompany,
		IsRoot:         true,
	}
	rootID, err := s.entities.InsertEntity(ctx, root, checkID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("op=check.start: %w", err)
	}

	for _, kind := range []domain.RelationJobKind{domain.RelationShareholders, domain.RelationOfficers} {
		job := domain.NewRelationJobKind(domain.RelationJob{
			ChildID:            rootID,
			CheckID:            checkID,
			CompanyHouseNumber: number,
			RemainingDepth:     depth,
			RelationJobKind:    kind,
		})
		if err := s.relationJobs.Enqueue(ctx, &checkID, job); err != nil {
			return uuid.Nil, fmt.Errorf("op=check.start: %w", err)
		}
	}

	for _, kind := range []domain.LocalRiskKind{domain.RiskOutlierAge, domain.RiskDormancy} {
		if err := s.riskJobs.Enqueue(ctx, &checkID, domain.NewLocalRiskJobKind(rootID, kind)); err != nil {
			return uuid.Nil, fmt.Errorf("op=check.start: %w", err)
		}
	}

	return checkID, nil
}

// Status reports a check's progress. CompletedAt stays nil until every
// linked job has completed.
func (s *CheckService) Status(ctx domain.Context, checkID uuid.UUID) (CheckStatus, error) {
	check, err := s.checks.GetCheck(ctx, checkID)
	if err != nil {
		return CheckStatus{}, fmt.Errorf("op=check.status: %w", err)
	}
	completedAt, err := s.jobs.CheckCompletedAt(ctx, checkID)
	if err != nil {
		return CheckStatus{}, fmt.Errorf("op=check.status: %w", err)
	}
	hasError, err := s.jobs.DoesCheckHaveErroredJob(ctx, checkID)
	if err != nil {
		return CheckStatus{}, fmt.Errorf("op=check.status: %w", err)
	}
	numJobs, err := s.jobs.GetNumOfJobs(ctx, checkID)
	if err != nil {
		return CheckStatus{}, fmt.Errorf("op=check.status: %w", err)
	}
	entities, err := s.entities.GetEntities(ctx, checkID)
	if err != nil {
		return CheckStatus{}, fmt.Errorf("op=check.status: %w", err)
	}

	return CheckStatus{
		ID:            check.ID,
		Kind:          check.Kind,
		StartedAt:     check.StartedAt,
		CompletedAt:   completedAt,
		HasErroredJob: hasError,
		NumJobs:       numJobs,
		NumEntities:   len(entities),
	}, nil
}

// Checks lists every check, newest first.
func (s *CheckService) Checks(ctx domain.Context) ([]domain.Check, error) {
	checks, err := s.checks.GetChecks(ctx)
	if err != nil {
		return nil, fmt.Errorf("op=check.list: %w", err)
	}
	return checks, nil
}

// Entities lists every entity discovered by a check.
func (s *CheckService) Entities(ctx domain.Context, checkID uuid.UUID) ([]domain.Entity, error) {
	entities, err := s.entities.GetEntities(ctx, checkID)
	if err != nil {
		return nil, fmt.Errorf("op=check.entities: %w", err)
	}
	return entities, nil
}

// Relations lists every ownership edge of a check's graph, assembled from
// the child side of each entity.
func (s *CheckService) Relations(ctx domain.Context, checkID uuid.UUID) ([]RelationView, error) {
	entities, err := s.entities.GetEntities(ctx, checkID)
	if err != nil {
		return nil, fmt.Errorf("op=check.relations: %w", err)
	}

	var views []RelationView
	for _, e := range entities {
		for _, kind := range []domain.RelationshipKind{domain.RelationshipShareholder, domain.RelationshipOfficer} {
			relations, err := s.relationships.GetRelations(ctx, e.ID, kind)
			if err != nil {
				return nil, fmt.Errorf("op=check.relations: %w", err)
			}
			for _, r := range relations {
				views = append(views, RelationView{
					ParentID:  r.ParentID,
					ChildID:   e.ID,
					Kind:      kind,
					StartedOn: r.StartedOn,
					EndedOn:   r.EndedOn,
				})
			}
		}
	}
	return views, nil
}

// StartMonitoring creates a monitoring check for a registry number and opens
// its monitoring span.
func (s *CheckService) StartMonitoring(ctx domain.Context, companyNumber string) (uuid.UUID, error) {
	ctx, span := otel.Tracer("usecase.check").Start(ctx, "check.start_monitoring")
	defer span.End()

	if companyNumber == "" {
		return uuid.Nil, fmt.Errorf("op=check.start_monitoring: company number is empty: %w", domain.ErrInvalidArgument)
	}
	number := domain.PadRegistryNumber(companyNumber)

	checkID, err := s.checks.InsertCheck(ctx, domain.CheckMonitoredEntity)
	if err != nil {
		return uuid.Nil, fmt.Errorf("op=check.start_monitoring: %w", err)
	}
	if err := s.monitoring.StartMonitoring(ctx, checkID, number); err != nil {
		return uuid.Nil, fmt.Errorf("op=check.start_monitoring: %w", err)
	}
	return checkID, nil
}

// CancelMonitoring closes the monitoring span of a check. Cancelling an
// already-cancelled check is a no-op.
func (s *CheckService) CancelMonitoring(ctx domain.Context, checkID uuid.UUID) error {
	if _, err := s.checks.GetCheck(ctx, checkID); err != nil {
		return fmt.Errorf("op=check.cancel_monitoring: %w", err)
	}
	if err := s.monitoring.CancelMonitoring(ctx, checkID); err != nil {
		return fmt.Errorf("op=check.cancel_monitoring: %w", err)
	}
	return nil
}
