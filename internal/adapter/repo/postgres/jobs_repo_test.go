package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/company-investigation/internal/adapter/repo/postgres"
)

func TestJobRepo_AddJob(t *testing.T) {
	pool := &poolStub{}
	repo := postgres.NewJobRepo(pool)

	id, err := repo.AddJob(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	require.Len(t, pool.execSQL, 1)
	assert.Contains(t, pool.execSQL[0], "INSERT INTO jobs")

	pool = &poolStub{execErr: assert.AnError}
	repo = postgres.NewJobRepo(pool)
	_, err = repo.AddJob(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=job.add")
}

func TestJobRepo_AddJobWithCheck(t *testing.T) {
	tx := &txStub{}
	pool := &poolStub{tx: tx}
	repo := postgres.NewJobRepo(pool)

	id, err := repo.AddJobWithCheck(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.True(t, tx.committed)
	require.Len(t, tx.execSQL, 2)
	assert.Contains(t, tx.execSQL[0], "INSERT INTO jobs")
	assert.Contains(t, tx.execSQL[1], "INSERT INTO check_job_map")

	// tx failure rolls back, nothing committed
	tx = &txStub{execErr: assert.AnError}
	pool = &poolStub{tx: tx}
	repo = postgres.NewJobRepo(pool)
	_, err = repo.AddJobWithCheck(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=job.add_with_check")
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

func TestJobRepo_CompleteAndError(t *testing.T) {
	pool := &poolStub{}
	repo := postgres.NewJobRepo(pool)
	jobID := uuid.New()

	require.NoError(t, repo.CompleteJob(context.Background(), jobID))
	require.NoError(t, repo.UpdateJobWithError(context.Background(), jobID))
	require.Len(t, pool.execSQL, 2)
	assert.Contains(t, pool.execSQL[0], "SET completed_at")
	assert.Contains(t, pool.execSQL[1], "SET has_error")
	// has_error never touches completed_at
	assert.NotContains(t, pool.execSQL[1], "completed_at")
}

func TestJobRepo_CheckCompletedAt(t *testing.T) {
	// a pending job leaves the check incomplete
	pool := &poolStub{row: rowStub{scan: func(dest ...any) error {
		*(dest[0].(*int)) = 1
		return nil
	}}}
	repo := postgres.NewJobRepo(pool)
	at, err := repo.CheckCompletedAt(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, at)

	// all jobs done: max completed_at is surfaced
	want := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	pool = &poolStub{row: rowStub{scan: func(dest ...any) error {
		*(dest[0].(*int)) = 0
		*(dest[1].(**time.Time)) = &want
		return nil
	}}}
	repo = postgres.NewJobRepo(pool)
	at, err = repo.CheckCompletedAt(context.Background(), uuid.New())
	require.NoError(t, err)
	require.NotNil(t, at)
	assert.Equal(t, want, *at)

	// a check with no jobs at all is not complete
	pool = &poolStub{row: rowStub{scan: func(dest ...any) error {
		*(dest[0].(*int)) = 0
		return nil
	}}}
	repo = postgres.NewJobRepo(pool)
	at, err = repo.CheckCompletedAt(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, at)
}

func TestJobRepo_Counters(t *testing.T) {
	pool := &poolStub{row: rowStub{scan: func(dest ...any) error {
		*(dest[0].(*int)) = 42
		return nil
	}}}
	repo := postgres.NewJobRepo(pool)
	n, err := repo.GetNumOfJobs(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	pool = &poolStub{row: rowStub{scan: func(dest ...any) error {
		*(dest[0].(*bool)) = true
		return nil
	}}}
	repo = postgres.NewJobRepo(pool)
	errored, err := repo.DoesCheckHaveErroredJob(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, errored)
}
