package postgres_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/company-investigation/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/company-investigation/internal/domain"
)

func TestRiskRepo_InsertFlags(t *testing.T) {
	tx := &txStub{}
	pool := &poolStub{tx: tx}
	repo := postgres.NewRiskRepo(pool)

	err := repo.InsertFlags(context.Background(), uuid.New(), []domain.FlagKind{
		domain.FlagSanctionedEntity,
		domain.FlagPolitician,
	})
	require.NoError(t, err)
	assert.True(t, tx.committed)
	// one flag row plus one map row per kind
	require.Len(t, tx.execSQL, 4)
	assert.Contains(t, tx.execSQL[0], "INSERT INTO flags")
	assert.Contains(t, tx.execSQL[1], "INSERT INTO entity_flag_map")
	assert.Equal(t, domain.FlagSanctionedEntity, tx.execArgs[0][1])
	assert.Equal(t, domain.FlagPolitician, tx.execArgs[2][1])
}

func TestRiskRepo_EmptyListsAreNoOps(t *testing.T) {
	pool := &poolStub{beginErr: assert.AnError} // any tx would fail loudly
	repo := postgres.NewRiskRepo(pool)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, repo.InsertFlags(ctx, id, nil))
	require.NoError(t, repo.InsertDatasets(ctx, id, nil))
	require.NoError(t, repo.InsertPositions(ctx, id, nil))
}

func TestRiskRepo_InsertDatasetsAndPositions(t *testing.T) {
	tx := &txStub{}
	pool := &poolStub{tx: tx}
	repo := postgres.NewRiskRepo(pool)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, repo.InsertDatasets(ctx, id, []string{"OFAC", "UKHMT"}))
	require.NoError(t, repo.InsertPositions(ctx, id, []string{"Minister"}))
	require.Len(t, tx.execSQL, 6)
	assert.Contains(t, tx.execSQL[0], "INSERT INTO datasets")
	assert.Contains(t, tx.execSQL[4], "INSERT INTO positions")
	assert.Equal(t, "Minister", tx.execArgs[4][1])
}

func TestRiskRepo_Verdicts(t *testing.T) {
	pool := &poolStub{}
	repo := postgres.NewRiskRepo(pool)
	ctx := context.Background()

	require.NoError(t, repo.InsertOutlierAge(ctx, uuid.New(), true))
	require.NoError(t, repo.InsertDormantCompany(ctx, uuid.New(), false))
	require.Len(t, pool.execSQL, 2)
	// re-running a verdict must be a no-op, not an error
	assert.Contains(t, pool.execSQL[0], "ON CONFLICT (entity_id) DO NOTHING")
	assert.Contains(t, pool.execSQL[1], "ON CONFLICT (entity_id) DO NOTHING")
}
