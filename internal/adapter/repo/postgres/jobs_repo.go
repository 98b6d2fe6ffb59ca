package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/company-investigation/internal/domain"
)

// JobRepo persists the completion-accounting rows behind bus messages.
type JobRepo struct{ Pool PgxPool }

// NewJobRepo constructs a JobRepo with the given pool.
func NewJobRepo(p PgxPool) *JobRepo { return &JobRepo{Pool: p} }

// AddJob creates a job row with no check link and returns its id.
func (r *JobRepo) AddJob(ctx domain.Context) (uuid.UUID, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.AddJob")
	defer span.End()
	id := uuid.New()
	q := `INSERT INTO jobs (id, enqueued_at, has_error) VALUES ($1,$2,false)`
	if _, err := r.Pool.Exec(ctx, q, id, time.Now().UTC()); err != nil {
		return uuid.Nil, fmt.Errorf("op=job.add: %w", err)
	}
	return id, nil
}

// AddJobWithCheck creates a job row and its check link in one transaction.
func (r *JobRepo) AddJobWithCheck(ctx domain.Context, checkID uuid.UUID) (uuid.UUID, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.AddJobWithCheck")
	defer span.End()
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return uuid.Nil, fmt.Errorf("op=job.add_with_check: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO jobs (id, enqueued_at, has_error) VALUES ($1,$2,false)`, id, time.Now().UTC()); err != nil {
		return uuid.Nil, fmt.Errorf("op=job.add_with_check: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO check_job_map (check_id, job_id) VALUES ($1,$2)`, checkID, id); err != nil {
		return uuid.Nil, fmt.Errorf("op=job.add_with_check: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("op=job.add_with_check: %w", err)
	}
	return id, nil
}

// CompleteJob stamps completed_at on a job.
func (r *JobRepo) CompleteJob(ctx domain.Context, jobID uuid.UUID) error {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.CompleteJob")
	defer span.End()
	q := `UPDATE jobs SET completed_at=$2 WHERE id=$1`
	if _, err := r.Pool.Exec(ctx, q, jobID, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=job.complete: %w", err)
	}
	return nil
}

// UpdateJobWithError flags a job as errored. It does not touch completed_at;
// callers decide separately whether the job also completes.
func (r *JobRepo) UpdateJobWithError(ctx domain.Context, jobID uuid.UUID) error {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.UpdateJobWithError")
	defer span.End()
	q := `UPDATE jobs SET has_error=true WHERE id=$1`
	if _, err := r.Pool.Exec(ctx, q, jobID); err != nil {
		return fmt.Errorf("op=job.update_error: %w", err)
	}
	return nil
}

// CheckCompletedAt returns the max completed_at over the check's jobs, but
// only when every job under the check has completed; otherwise nil.
func (r *JobRepo) CheckCompletedAt(ctx domain.Context, checkID uuid.UUID) (*time.Time, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.CheckCompletedAt")
	defer span.End()
	q := `SELECT COUNT(*) FILTER (WHERE j.completed_at IS NULL), MAX(j.completed_at)
		FROM jobs j
		JOIN check_job_map m ON m.job_id = j.id
		WHERE m.check_id=$1`
	var pending int
	var maxAt *time.Time
	if err := r.Pool.QueryRow(ctx, q, checkID).Scan(&pending, &maxAt); err != nil {
		return nil, fmt.Errorf("op=job.check_completed_at: %w", err)
	}
	if pending > 0 || maxAt == nil {
		return nil, nil
	}
	return maxAt, nil
}

// DoesCheckHaveErroredJob reports whether any job under the check errored.
func (r *JobRepo) DoesCheckHaveErroredJob(ctx domain.Context, checkID uuid.UUID) (bool, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.DoesCheckHaveErroredJob")
	defer span.End()
	q := `SELECT EXISTS (
		SELECT 1 FROM jobs j
		JOIN check_job_map m ON m.job_id = j.id
		WHERE m.check_id=$1 AND j.has_error)`
	var errored bool
	if err := r.Pool.QueryRow(ctx, q, checkID).Scan(&errored); err != nil {
		return false, fmt.Errorf("op=job.has_errored: %w", err)
	}
	return errored, nil
}

// GetNumOfJobs counts the jobs linked to a check.
func (r *JobRepo) GetNumOfJobs(ctx domain.Context, checkID uuid.UUID) (int, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.GetNumOfJobs")
	defer span.End()
	q := `SELECT COUNT(*) FROM check_job_map WHERE check_id=$1`
	var n int
	if err := r.Pool.QueryRow(ctx, q, checkID).Scan(&n); err != nil {
		return 0, fmt.Errorf("op=job.count: %w", err)
	}
	return n, nil
}
