package usecase

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/company-investigation/internal/domain"
	"github.com/fairyhunter13/company-investigation/internal/observability"
)

// MonitoredUpdateService applies registry stream updates to the monitored
// set: updates for monitored registry numbers append a snapshot, and every
// update advances the per-kind resume cursor.
type MonitoredUpdateService struct {
	monitoring domain.MonitoringRepository
	stream     domain.StreamRepository
}

// NewMonitoredUpdateService constructs a MonitoredUpdateService.
func NewMonitoredUpdateService(monitoring domain.MonitoringRepository, stream domain.StreamRepository) *MonitoredUpdateService {
	return &MonitoredUpdateService{monitoring: monitoring, stream: stream}
}

// Handle processes one streaming-update job message. The processed-update
// row is written even when the update concerns nobody we monitor, so a
// restarted ingester never replays it.
func (s *MonitoredUpdateService) Handle(ctx domain.Context, msg domain.JobMessage) error {
	ctx, span := otel.Tracer("usecase.monitored").Start(ctx, "monitored.handle")
	defer span.End()

	job := msg.JobKind.StreamingUpdate
	if job == nil {
		return fmt.Errorf("op=monitored.handle: not a streaming update job: %w", domain.ErrSchemaInvalid)
	}

	if number := job.Kind.RegistryNumber(); number != nil {
		if err := s.snapshotIfMonitored(ctx, job, *number); err != nil {
			return err
		}
	}

	if err := s.stream.InsertProcessedUpdate(ctx, job.Event.Timepoint, job.Kind.StreamKind()); err != nil {
		return fmt.Errorf("op=monitored.handle: %w", err)
	}
	return nil
}

func (s *MonitoredUpdateService) snapshotIfMonitored(ctx domain.Context, job *domain.StreamingUpdateJob, number string) error {
	number = domain.PadRegistryNumber(number)
	checkIDs, err := s.monitoring.GetMonitoredEntityCheckIDs(ctx, number)
	if err != nil {
		return fmt.Errorf("op=monitored.handle: %w", err)
	}
	if len(checkIDs) == 0 {
		return nil
	}

	entity := entityFromStreamPayload(job.Kind, number)
	if err := s.monitoring.InsertEntitySnapshot(ctx, entity, checkIDs); err != nil {
		return fmt.Errorf("op=monitored.handle: %w", err)
	}
	observability.LoggerFromContext(ctx).Info("snapshot recorded for monitored entity",
		slog.String("registry_number", number),
		slog.Int("checks", len(checkIDs)))
	return nil
}

// entityFromStreamPayload projects a stream payload into the entity state
// captured by a snapshot.
func entityFromStreamPayload(kind domain.StreamingUpdateKind, number string) domain.Entity {
	switch {
	case kind.Company != nil:
		e := domain.Entity{
			RegistryNumber: number,
			Name:           kind.Company.CompanyName,
			Kind:           domain.EntityCompany,
			DateOfOrigin:   kind.Company.DateOfCreation,
		}
		if addr := kind.Company.RegisteredOfficeAddress; addr != nil {
			e.Country = addr.Country
			e.PostalCode = addr.PostalCode
		}
		return e
	case kind.Officer != nil:
		e := domain.Entity{
			RegistryNumber: number,
			Name:           kind.Officer.Name,
			Kind:           domain.EntityIndividual,
		}
		if addr := kind.Officer.Address; addr != nil {
			e.Country = addr.Country
			e.PostalCode = addr.PostalCode
		}
		return e
	}
	return domain.Entity{RegistryNumber: number, Kind: domain.EntityCompany}
}
