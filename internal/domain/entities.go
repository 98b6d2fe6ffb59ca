// Package domain holds the core entities, error taxonomy and ports of the
// investigation pipeline. Adapters depend on this package, never the reverse.
package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrMissingIdentifier = errors.New("missing identifier")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrUpstream          = errors.New("upstream failure")
	ErrInternal          = errors.New("internal error")
)

// IsTerminal reports whether an error must not trigger redelivery: decoding
// and integrity faults repeat identically on every delivery, so the consumer
// acks them and records has_error on the job row. Everything else is treated
// as transient I/O and goes through nack -> redeliver -> DLQ.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrSchemaInvalid) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrMissingIdentifier)
}

// registryNumberWidth is the canonical width of a company number. The
// registry returns unpadded numbers for old registrations in some endpoints
// and padded ones in others; normalising to one width keeps per-check
// deduplication honest.
const registryNumberWidth = 8

// PadRegistryNumber left-pads a registry number with zeros to the canonical
// width. Longer identifiers (LLPs, overseas prefixes) pass through unchanged.
func PadRegistryNumber(n string) string {
	if len(n) >= registryNumberWidth {
		return n
	}
	return strings.Repeat("0", registryNumberWidth-len(n)) + n
}

// CheckKind distinguishes graph-expansion checks from monitoring checks.
type CheckKind string

const (
	CheckEntityRelation  CheckKind = "entity_relation"
	CheckMonitoredEntity CheckKind = "monitored_entity"
)

// EntityKind is the node type of the ownership graph.
type EntityKind string

const (
	EntityCompany    EntityKind = "company"
	EntityIndividual EntityKind = "individual"
)

// RelationshipKind is the edge type of the ownership graph.
type RelationshipKind string

const (
	RelationshipShareholder RelationshipKind = "shareholder"
	RelationshipOfficer     RelationshipKind = "officer"
)

// StreamKind names a registry event stream; also the key for resume cursors.
type StreamKind string

const (
	StreamCompany     StreamKind = "company"
	StreamOfficer     StreamKind = "officer"
	StreamShareholder StreamKind = "shareholder"
)

// Check scopes one investigation: all entities, relationships and jobs it
// spawns hang off the check id. Immutable after creation.
type Check struct {
	ID        uuid.UUID
	StartedAt time.Time
	Kind      CheckKind
}

// Entity is a company or individual discovered during a check.
// RegistryNumber is the company number for companies and the person number
// for individuals; (check_id, registry_number) is unique within a check.
// OfficerID carries the registry's opaque officer identifier so appointments
// can be fetched without a re-search. DateOfOrigin is a YYYY-MM-DD string;
// for individuals the registry only discloses month and year, so the day is
// pinned to 01.
type Entity struct {
	ID             uuid.UUID
	RegistryNumber string
	Name           *string
	Kind           EntityKind
	Country        *string
	PostalCode     *string
	DateOfOrigin   *string
	IsRoot         bool
	OfficerID      *string
}

// Relationship is a directed edge: parent is a shareholder/officer of child.
// (ParentID, ChildID) is the primary key; a pair admits at most one row.
type Relationship struct {
	ParentID  uuid.UUID
	ChildID   uuid.UUID
	Kind      RelationshipKind
	StartedOn *time.Time
	EndedOn   *time.Time
}

// Relation is the projection returned by relationship lookups.
type Relation struct {
	ParentID  uuid.UUID
	StartedOn *time.Time
	EndedOn   *time.Time
}

// Job is the durable completion-accounting row behind every bus message.
// The row is created before the message is produced.
type Job struct {
	ID          uuid.UUID
	EnqueuedAt  time.Time
	CompletedAt *time.Time
	HasError    bool
}

// MonitoringSpan brackets the interval during which stream updates for its
// monitored entities produce snapshots.
type MonitoringSpan struct {
	ID        uuid.UUID
	StartedAt time.Time
	EndedAt   *time.Time
}

// MonitoredEntity binds a registry number to a monitoring span.
type MonitoredEntity struct {
	ID               uuid.UUID
	RegistryNumber   string
	MonitoringSpanID uuid.UUID
}

// Snapshot records the state of a monitored entity at the time a stream
// update arrived. The referenced entity row is freshly inserted each time;
// history is kept by appending, never by mutating.
type Snapshot struct {
	ID         uuid.UUID
	ReceivedAt time.Time
	EntityID   uuid.UUID
}

// ProcessedUpdate is the per-kind resume cursor for the registry stream.
type ProcessedUpdate struct {
	ID          uuid.UUID
	ProcessedAt time.Time
	Timepoint   int64
	Kind        StreamKind
}

// EntityRelation pairs a projected entity with the tenure of its relation to
// the company it was discovered from. Registry adapters return these.
type EntityRelation struct {
	Entity    Entity
	StartedOn *time.Time
	EndedOn   *time.Time
}

// CompanyMatch is one hit from a registry company search.
type CompanyMatch struct {
	RegistryNumber string
	Name           string
	Status         string
}

// Filing is one entry of a company's filing history.
type Filing struct {
	Date        time.Time
	Category    string
	Description string
}

// WatchlistMatch is the extraction from the top-ranked watchlist result.
type WatchlistMatch struct {
	Topics    []string
	Positions []string
	Datasets  []string
}

// Repositories (ports)

type CheckRepository interface {
	InsertCheck(ctx Context, kind CheckKind) (uuid.UUID, error)
	GetCheck(ctx Context, id uuid.UUID) (Check, error)
	GetChecks(ctx Context) ([]Check, error)
}

// EntityRepository persists graph nodes. InsertEntity is the per-check
// deduplication point: when (checkID, entity.RegistryNumber) already exists
// the stored id is returned and nothing is written.
type EntityRepository interface {
	InsertEntity(ctx Context, e Entity, checkID uuid.UUID) (uuid.UUID, error)
	GetEntity(ctx Context, id uuid.UUID) (Entity, error)
	GetEntities(ctx Context, checkID uuid.UUID) ([]Entity, error)
	GetRootEntity(ctx Context, checkID uuid.UUID) (Entity, error)
}

// RelationshipRepository persists graph edges. InsertRelationship returns
// ErrConflict when the (parent, child) pair already has a row; callers
// downgrade that to a warning.
type RelationshipRepository interface {
	InsertRelationship(ctx Context, rel Relationship) error
	GetRelations(ctx Context, entityID uuid.UUID, kind RelationshipKind) ([]Relation, error)
}

type JobRepository interface {
	AddJob(ctx Context) (uuid.UUID, error)
	AddJobWithCheck(ctx Context, checkID uuid.UUID) (uuid.UUID, error)
	CompleteJob(ctx Context, jobID uuid.UUID) error
	UpdateJobWithError(ctx Context, jobID uuid.UUID) error
	CheckCompletedAt(ctx Context, checkID uuid.UUID) (*time.Time, error)
	DoesCheckHaveErroredJob(ctx Context, checkID uuid.UUID) (bool, error)
	GetNumOfJobs(ctx Context, checkID uuid.UUID) (int, error)
}

// RiskRepository persists risk annotations. The list inserts run each batch
// in a single transaction; outlier/dormancy are single-row writes.
type RiskRepository interface {
	InsertFlags(ctx Context, entityID uuid.UUID, kinds []FlagKind) error
	InsertDatasets(ctx Context, entityID uuid.UUID, names []string) error
	InsertPositions(ctx Context, entityID uuid.UUID, titles []string) error
	InsertOutlierAge(ctx Context, entityID uuid.UUID, outlier bool) error
	InsertDormantCompany(ctx Context, entityID uuid.UUID, dormant bool) error
}

type MonitoringRepository interface {
	StartMonitoring(ctx Context, checkID uuid.UUID, registryNumber string) error
	CancelMonitoring(ctx Context, checkID uuid.UUID) error
	GetMonitoredEntityCheckIDs(ctx Context, registryNumber string) ([]uuid.UUID, error)
	InsertEntitySnapshot(ctx Context, e Entity, checkIDs []uuid.UUID) error
}

type StreamRepository interface {
	InsertProcessedUpdate(ctx Context, timepoint int64, kind StreamKind) error
	GetLastProcessedTimepoint(ctx Context, kind StreamKind) (*int64, error)
}

// RegistryClient (port)
//
// Shareholders, Officers and Appointments return projected entities; the wire
// records are sparse and projection skips (with a warning) any record missing
// its registry identifier. Appointments fails with ErrMissingIdentifier when
// officerID is empty.
type RegistryClient interface {
	SearchCompanies(ctx Context, name string) ([]CompanyMatch, error)
	Shareholders(ctx Context, companyNumber string) ([]EntityRelation, error)
	Officers(ctx Context, companyNumber string) ([]EntityRelation, error)
	Appointments(ctx Context, officerID string) ([]EntityRelation, error)
	FilingHistory(ctx Context, companyNumber string) ([]Filing, error)
}

// WatchlistClient (port)
//
// Flags returns the top-ranked match for a name, or nil when the watchlist
// has no results.
type WatchlistClient interface {
	Flags(ctx Context, name string) (*WatchlistMatch, error)
}

// Enqueuer (port)
//
// Enqueue creates the durable job row (linked to checkID when non-nil) and
// produces the message in one logical act. Implementations may rate-limit or
// drop the enqueue when the check's job cap is reached; a capped enqueue
// still returns nil.
type Enqueuer interface {
	Enqueue(ctx Context, checkID *uuid.UUID, kind JobKind) error
}

// Context is an alias so domain signatures stay decoupled from the std
// context package at the call sites; adapters pass context.Context through.
type Context = context.Context
