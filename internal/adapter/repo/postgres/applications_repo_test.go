package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiregrid/matchengine/internal/adapter/repo/postgres"
	"github.com/hiregrid/matchengine/internal/domain"
)

func TestApplicationRepo_Create_Defaults(t *testing.T) {
	pool := &poolStub{}
	repo := postgres.NewApplicationRepo(pool)

	id, err := repo.Create(context.Background(), domain.Application{JobID: "j-1", CandidateID: "c-1"})
	require.NoError(t, err)
	assert.Len(t, id, 26) // ULID

	require.Len(t, pool.execArgs, 1)
	assert.Equal(t, domain.ApplicationPending, pool.execArgs[0][3])
}

func TestApplicationRepo_Create_DuplicateApply(t *testing.T) {
	pool := &poolStub{execErr: &pgconn.PgError{Code: "23505"}}
	repo := postgres.NewApplicationRepo(pool)

	_, err := repo.Create(context.Background(), domain.Application{JobID: "j-1", CandidateID: "c-1"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestApplicationRepo_Get_DecodesResult(t *testing.T) {
	now := time.Now().UTC()
	pool := &poolStub{row: rowStub{scan: func(dest ...any) error {
		*(dest[0].(*string)) = "a-1"
		*(dest[1].(*string)) = "j-1"
		*(dest[2].(*string)) = "c-1"
		*(dest[3].(*domain.ApplicationStatus)) = domain.ApplicationSelected
		*(dest[4].(*[]byte)) = []byte(`{"candidate_id":"c-1","score":0.82}`)
		*(dest[5].(*time.Time)) = now
		*(dest[6].(*time.Time)) = now
		return nil
	}}}
	repo := postgres.NewApplicationRepo(pool)

	a, err := repo.Get(context.Background(), "a-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationSelected, a.Status)
	assert.Equal(t, "c-1", a.Result.CandidateID)
	assert.InDelta(t, 0.82, a.Result.Score, 1e-9)
}

func TestApplicationRepo_Get_NotFound(t *testing.T) {
	pool := &poolStub{row: rowStub{scan: func(_ ...any) error { return pgx.ErrNoRows }}}
	repo := postgres.NewApplicationRepo(pool)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApplicationRepo_UpdateStatus_EmptyIDs(t *testing.T) {
	pool := &poolStub{}
	repo := postgres.NewApplicationRepo(pool)

	err := repo.UpdateStatus(context.Background(), nil, domain.ApplicationRejected)
	require.NoError(t, err)
	assert.Empty(t, pool.execSQL)
}

func TestApplicationRepo_UpdateStatus_PendingOnly(t *testing.T) {
	pool := &poolStub{}
	repo := postgres.NewApplicationRepo(pool)

	err := repo.UpdateStatus(context.Background(), []string{"a-1", "a-2"}, domain.ApplicationSelected)
	require.NoError(t, err)
	require.Len(t, pool.execSQL, 1)
	assert.Contains(t, pool.execSQL[0], "status='pending'")
}

func TestApplicationRepo_UpdateResult_NotFound(t *testing.T) {
	pool := &poolStub{execTag: pgconn.NewCommandTag("UPDATE 0")}
	repo := postgres.NewApplicationRepo(pool)

	err := repo.UpdateResult(context.Background(), "nope", domain.MatchResult{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
