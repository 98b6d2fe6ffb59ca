package usecase

import (
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/company-investigation/internal/domain"
	"github.com/fairyhunter13/company-investigation/internal/observability"
)

// dormancyYears is the filing-gap threshold after which a company is
// recorded as dormant.
const dormancyYears = 5

// Age bounds outside which an individual's recorded age is implausible for
// a company officer or owner.
const (
	minPlausibleAge = 15
	maxPlausibleAge = 85
)

// RiskService runs per-entity risk rules: watchlist screening, age
// plausibility and company dormancy.
type RiskService struct {
	entities  domain.EntityRepository
	risks     domain.RiskRepository
	registry  domain.RegistryClient
	watchlist domain.WatchlistClient
	now       func() time.Time
}

// NewRiskService constructs a RiskService.
func NewRiskService(
	entities domain.EntityRepository,
	risks domain.RiskRepository,
	registry domain.RegistryClient,
	watchlist domain.WatchlistClient,
) *RiskService {
	return &RiskService{
		entities:  entities,
		risks:     risks,
		registry:  registry,
		watchlist: watchlist,
		now:       time.Now,
	}
}

// Handle processes one risk job message. Global rules are reserved: they are
// accepted at the wire level and acked with a warning.
func (s *RiskService) Handle(ctx domain.Context, msg domain.JobMessage) error {
	ctx, span := otel.Tracer("usecase.risk").Start(ctx, "risk.handle")
	defer span.End()

	job := msg.JobKind.Risk
	if job == nil {
		return fmt.Errorf("op=risk.handle: not a risk job: %w", domain.ErrSchemaInvalid)
	}

	if job.Global != nil {
		observability.LoggerFromContext(ctx).Warn("global risk rules are not implemented",
			slog.String("kind", string(*job.Global)))
		return nil
	}

	local := job.Local
	entity, err := s.entities.GetEntity(ctx, local.EntityID)
	if err != nil {
		return fmt.Errorf("op=risk.handle: %w", err)
	}

	switch local.Kind {
	case domain.RiskFlags:
		return s.flags(ctx, entity)
	case domain.RiskOutlierAge:
		return s.outlierAge(ctx, entity)
	case domain.RiskDormancy:
		return s.dormancy(ctx, entity)
	}
	return fmt.Errorf("op=risk.handle: unknown local risk kind %q: %w", local.Kind, domain.ErrSchemaInvalid)
}

// flags screens an individual's name against the watchlist and records the
// mapped flags plus the raw positions and datasets of the top match.
func (s *RiskService) flags(ctx domain.Context, entity domain.Entity) error {
	if entity.Kind != domain.EntityIndividual || entity.Name == nil {
		return nil
	}

	match, err := s.watchlist.Flags(ctx, *entity.Name)
	if err != nil {
		return fmt.Errorf("op=risk.flags: %w", err)
	}
	if match == nil {
		return nil
	}

	if err := s.risks.InsertFlags(ctx, entity.ID, domain.FlagsFromTopics(match.Topics)); err != nil {
		return fmt.Errorf("op=risk.flags: %w", err)
	}
	if err := s.risks.InsertPositions(ctx, entity.ID, match.Positions); err != nil {
		return fmt.Errorf("op=risk.flags: %w", err)
	}
	if err := s.risks.InsertDatasets(ctx, entity.ID, match.Datasets); err != nil {
		return fmt.Errorf("op=risk.flags: %w", err)
	}
	return nil
}

// outlierAge marks an individual whose recorded date of origin implies an
// implausible age. Individuals without a date of origin get a false row, so
// the annotation exists for every screened entity.
func (s *RiskService) outlierAge(ctx domain.Context, entity domain.Entity) error {
	if entity.Kind != domain.EntityIndividual {
		return nil
	}

	outlier := false
	if entity.DateOfOrigin != nil {
		born, err := parseOriginDate(*entity.DateOfOrigin)
		if err != nil {
			return fmt.Errorf("op=risk.outlier_age: %w: %w", domain.ErrSchemaInvalid, err)
		}
		age := yearsSince(born, s.now())
		if age < minPlausibleAge || age > maxPlausibleAge {
			outlier = true
		}
	}

	if err := s.risks.InsertOutlierAge(ctx, entity.ID, outlier); err != nil {
		return fmt.Errorf("op=risk.outlier_age: %w", err)
	}
	return nil
}

// dormancy marks a company whose most recent filing is older than the
// dormancy threshold. A company with no filings at all is not marked; the
// registry lists incorporation filings for any real company, so an empty
// history means the record is out of scope rather than dormant.
func (s *RiskService) dormancy(ctx domain.Context, entity domain.Entity) error {
	filings, err := s.registry.FilingHistory(ctx, entity.RegistryNumber)
	if err != nil {
		return fmt.Errorf("op=risk.dormancy: %w", err)
	}

	dormant := false
	if len(filings) > 0 {
		cutoff := s.now().AddDate(0, 0, -dormancyYears*365)
		if filings[0].Date.Before(cutoff) {
			dormant = true
		}
	}

	if err := s.risks.InsertDormantCompany(ctx, entity.ID, dormant); err != nil {
		return fmt.Errorf("op=risk.dormancy: %w", err)
	}
	return nil
}

func parseOriginDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// yearsSince counts whole years between born and now, the way ages are read
// off a calendar.
func yearsSince(born, now time.Time) int {
	years := now.Year() - born.Year()
	anniversary := born.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}
