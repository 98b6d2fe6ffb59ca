package usecase

import (
	"fmt"
	"io"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/fairyhunter13/company-investigation/internal/domain"
)

// enqueued is one recorded Enqueue call.
type enqueued struct {
	checkID *uuid.UUID
	kind    domain.JobKind
}

type fakeEnqueuer struct {
	jobs []enqueued
	err  error
}

func (f *fakeEnqueuer) Enqueue(_ domain.Context, checkID *uuid.UUID, kind domain.JobKind) error {
	if f.err != nil {
		return f.err
	}
	var id *uuid.UUID
	if checkID != nil {
		c := *checkID
		id = &c
	}
	f.jobs = append(f.jobs, enqueued{checkID: id, kind: kind})
	return nil
}

func (f *fakeEnqueuer) relationJobs() []domain.RelationJob {
	var out []domain.RelationJob
	for _, j := range f.jobs {
		if j.kind.Relation != nil {
			out = append(out, *j.kind.Relation)
		}
	}
	return out
}

func (f *fakeEnqueuer) localRiskJobs() []domain.LocalRiskJob {
	var out []domain.LocalRiskJob
	for _, j := range f.jobs {
		if j.kind.Risk != nil && j.kind.Risk.Local != nil {
			out = append(out, *j.kind.Risk.Local)
		}
	}
	return out
}

// fakeEntityRepo deduplicates on (checkID, registry number) like the store.
type fakeEntityRepo struct {
	byKey     map[string]uuid.UUID
	entities  map[uuid.UUID]domain.Entity
	order     []uuid.UUID
	insertErr error
	getErr    error
}

func newFakeEntityRepo() *fakeEntityRepo {
	return &fakeEntityRepo{
		byKey:    map[string]uuid.UUID{},
		entities: map[uuid.UUID]domain.Entity{},
	}
}

func (f *fakeEntityRepo) InsertEntity(_ domain.Context, e domain.Entity, checkID uuid.UUID) (uuid.UUID, error) {
	if f.insertErr != nil {
		return uuid.Nil, f.insertErr
	}
	key := fmt.Sprintf("%s/%s", checkID, e.RegistryNumber)
	if id, ok := f.byKey[key]; ok {
		return id, nil
	}
	id := e.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	e.ID = id
	f.byKey[key] = id
	f.entities[id] = e
	f.order = append(f.order, id)
	return id, nil
}

func (f *fakeEntityRepo) GetEntity(_ domain.Context, id uuid.UUID) (domain.Entity, error) {
	if f.getErr != nil {
		return domain.Entity{}, f.getErr
	}
	e, ok := f.entities[id]
	if !ok {
		return domain.Entity{}, domain.ErrNotFound
	}
	return e, nil
}

func (f *fakeEntityRepo) GetEntities(_ domain.Context, _ uuid.UUID) ([]domain.Entity, error) {
	out := make([]domain.Entity, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.entities[id])
	}
	return out, nil
}

func (f *fakeEntityRepo) GetRootEntity(_ domain.Context, _ uuid.UUID) (domain.Entity, error) {
	for _, id := range f.order {
		if f.entities[id].IsRoot {
			return f.entities[id], nil
		}
	}
	return domain.Entity{}, domain.ErrNotFound
}

// add seeds an entity directly, bypassing dedup bookkeeping.
func (f *fakeEntityRepo) add(e domain.Entity) {
	f.entities[e.ID] = e
	f.order = append(f.order, e.ID)
}

// fakeRelationshipRepo rejects duplicate (parent, child) pairs with
// ErrConflict like the store does.
type fakeRelationshipRepo struct {
	edges []domain.Relationship
}

func (f *fakeRelationshipRepo) InsertRelationship(_ domain.Context, rel domain.Relationship) error {
	for _, e := range f.edges {
		if e.ParentID == rel.ParentID && e.ChildID == rel.ChildID {
			return fmt.Errorf("op=relationship.insert: %w", domain.ErrConflict)
		}
	}
	f.edges = append(f.edges, rel)
	return nil
}

func (f *fakeRelationshipRepo) GetRelations(_ domain.Context, entityID uuid.UUID, kind domain.RelationshipKind) ([]domain.Relation, error) {
	var out []domain.Relation
	for _, e := range f.edges {
		if e.ChildID == entityID && e.Kind == kind {
			out = append(out, domain.Relation{ParentID: e.ParentID, StartedOn: e.StartedOn, EndedOn: e.EndedOn})
		}
	}
	return out, nil
}

type fakeRegistry struct {
	shareholders map[string][]domain.EntityRelation
	officers     map[string][]domain.EntityRelation
	appointments map[string][]domain.EntityRelation
	filings      map[string][]domain.Filing
	err          error

	lastCtx domain.Context
}

func (f *fakeRegistry) SearchCompanies(_ domain.Context, _ string) ([]domain.CompanyMatch, error) {
	return nil, f.err
}

func (f *fakeRegistry) Shareholders(ctx domain.Context, n string) ([]domain.EntityRelation, error) {
	f.lastCtx = ctx
	return f.shareholders[n], f.err
}

func (f *fakeRegistry) Officers(ctx domain.Context, n string) ([]domain.EntityRelation, error) {
	f.lastCtx = ctx
	return f.officers[n], f.err
}

func (f *fakeRegistry) Appointments(ctx domain.Context, id string) ([]domain.EntityRelation, error) {
	if id == "" {
		return nil, fmt.Errorf("op=registry.appointments: officer id is empty: %w", domain.ErrMissingIdentifier)
	}
	f.lastCtx = ctx
	return f.appointments[id], f.err
}

func (f *fakeRegistry) FilingHistory(_ domain.Context, n string) ([]domain.Filing, error) {
	return f.filings[n], f.err
}

type fakeWatchlist struct {
	matches map[string]*domain.WatchlistMatch
	err     error
	queries []string
}

func (f *fakeWatchlist) Flags(_ domain.Context, name string) (*domain.WatchlistMatch, error) {
	f.queries = append(f.queries, name)
	return f.matches[name], f.err
}

type fakeRiskRepo struct {
	flags     map[uuid.UUID][]domain.FlagKind
	positions map[uuid.UUID][]string
	datasets  map[uuid.UUID][]string
	outliers  map[uuid.UUID]bool
	dormant   map[uuid.UUID]bool
}

func newFakeRiskRepo() *fakeRiskRepo {
	return &fakeRiskRepo{
		flags:     map[uuid.UUID][]domain.FlagKind{},
		positions: map[uuid.UUID][]string{},
		datasets:  map[uuid.UUID][]string{},
		outliers:  map[uuid.UUID]bool{},
		dormant:   map[uuid.UUID]bool{},
	}
}

func (f *fakeRiskRepo) InsertFlags(_ domain.Context, id uuid.UUID, kinds []domain.FlagKind) error {
	f.flags[id] = append(f.flags[id], kinds...)
	return nil
}

func (f *fakeRiskRepo) InsertDatasets(_ domain.Context, id uuid.UUID, names []string) error {
	f.datasets[id] = append(f.datasets[id], names...)
	return nil
}

func (f *fakeRiskRepo) InsertPositions(_ domain.Context, id uuid.UUID, titles []string) error {
	f.positions[id] = append(f.positions[id], titles...)
	return nil
}

func (f *fakeRiskRepo) InsertOutlierAge(_ domain.Context, id uuid.UUID, outlier bool) error {
	f.outliers[id] = outlier
	return nil
}

func (f *fakeRiskRepo) InsertDormantCompany(_ domain.Context, id uuid.UUID, dormant bool) error {
	f.dormant[id] = dormant
	return nil
}

type snapshotRec struct {
	entity   domain.Entity
	checkIDs []uuid.UUID
}

type fakeMonitoringRepo struct {
	monitored map[string][]uuid.UUID
	snapshots []snapshotRec
	started   []string
	cancelled []uuid.UUID
}

func (f *fakeMonitoringRepo) StartMonitoring(_ domain.Context, checkID uuid.UUID, number string) error {
	if f.monitored == nil {
		f.monitored = map[string][]uuid.UUID{}
	}
	f.monitored[number] = append(f.monitored[number], checkID)
	f.started = append(f.started, number)
	return nil
}

func (f *fakeMonitoringRepo) CancelMonitoring(_ domain.Context, checkID uuid.UUID) error {
	f.cancelled = append(f.cancelled, checkID)
	return nil
}

func (f *fakeMonitoringRepo) GetMonitoredEntityCheckIDs(_ domain.Context, number string) ([]uuid.UUID, error) {
	return f.monitored[number], nil
}

func (f *fakeMonitoringRepo) InsertEntitySnapshot(_ domain.Context, e domain.Entity, checkIDs []uuid.UUID) error {
	f.snapshots = append(f.snapshots, snapshotRec{entity: e, checkIDs: checkIDs})
	return nil
}

type processedRec struct {
	timepoint int64
	kind      domain.StreamKind
}

type fakeStreamRepo struct {
	processed []processedRec
	last      *int64
}

func (f *fakeStreamRepo) InsertProcessedUpdate(_ domain.Context, timepoint int64, kind domain.StreamKind) error {
	f.processed = append(f.processed, processedRec{timepoint: timepoint, kind: kind})
	return nil
}

func (f *fakeStreamRepo) GetLastProcessedTimepoint(_ domain.Context, _ domain.StreamKind) (*int64, error) {
	return f.last, nil
}

type fakeCheckRepo struct {
	checks map[uuid.UUID]domain.Check
}

func (f *fakeCheckRepo) InsertCheck(_ domain.Context, kind domain.CheckKind) (uuid.UUID, error) {
	if f.checks == nil {
		f.checks = map[uuid.UUID]domain.Check{}
	}
	id := uuid.New()
	f.checks[id] = domain.Check{ID: id, StartedAt: time.Now(), Kind: kind}
	return id, nil
}

func (f *fakeCheckRepo) GetCheck(_ domain.Context, id uuid.UUID) (domain.Check, error) {
	c, ok := f.checks[id]
	if !ok {
		return domain.Check{}, domain.ErrNotFound
	}
	return c, nil
}

func (f *fakeCheckRepo) GetChecks(_ domain.Context) ([]domain.Check, error) {
	out := make([]domain.Check, 0, len(f.checks))
	for _, c := range f.checks {
		out = append(out, c)
	}
	return out, nil
}

type fakeJobRepo struct {
	numJobs     int
	completedAt *time.Time
	hasError    bool
}

func (f *fakeJobRepo) AddJob(_ domain.Context) (uuid.UUID, error) { return uuid.New(), nil }
func (f *fakeJobRepo) AddJobWithCheck(_ domain.Context, _ uuid.UUID) (uuid.UUID, error) {
	return uuid.New(), nil
}
func (f *fakeJobRepo) CompleteJob(_ domain.Context, _ uuid.UUID) error        { return nil }
func (f *fakeJobRepo) UpdateJobWithError(_ domain.Context, _ uuid.UUID) error { return nil }
func (f *fakeJobRepo) CheckCompletedAt(_ domain.Context, _ uuid.UUID) (*time.Time, error) {
	return f.completedAt, nil
}
func (f *fakeJobRepo) DoesCheckHaveErroredJob(_ domain.Context, _ uuid.UUID) (bool, error) {
	return f.hasError, nil
}
func (f *fakeJobRepo) GetNumOfJobs(_ domain.Context, _ uuid.UUID) (int, error) {
	return f.numJobs, nil
}

// fakeOpener hands out scripted stream bodies and records the timepoints it
// was opened with.
type fakeOpener struct {
	bodies     []io.ReadCloser
	timepoints []*int64
	err        error
}

func (f *fakeOpener) OpenStream(_ domain.Context, _ domain.StreamKind, timepoint *int64) (io.ReadCloser, error) {
	var tp *int64
	if timepoint != nil {
		v := *timepoint
		tp = &v
	}
	f.timepoints = append(f.timepoints, tp)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.bodies) == 0 {
		return nil, domain.ErrUpstream
	}
	body := f.bodies[0]
	f.bodies = f.bodies[1:]
	return body, nil
}

func strOf(s string) *string { return &s }

func newTestBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Millisecond
	bo.MaxElapsedTime = 0
	return bo
}
