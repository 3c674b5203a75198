package repository_test

import (
	"context"
	"path/filepath"
	"testing"

	"floorplan/internal/planner/repository"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *repository.Repository {
	t.Helper()

	db, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "db", "planner.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.New(db)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func TestRepository_SaveAndGet(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	plan := repository.Plan{ID: "p1", Name: "ev", Snapshot: []byte(`{"nodes":[]}`), Walls: 4, Rooms: 1}
	require.NoError(t, repo.Save(ctx, plan))

	got, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "ev", got.Name)
	assert.Equal(t, `{"nodes":[]}`, string(got.Snapshot))
	assert.Equal(t, 4, got.Walls)
	assert.Equal(t, 1, got.Rooms)
	assert.NotEmpty(t, got.CreatedAt)
	assert.NotEmpty(t, got.UpdatedAt)
}

func TestRepository_SaveUpserts(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, repository.Plan{ID: "p1", Name: "old", Snapshot: []byte("{}")}))
	require.NoError(t, repo.Save(ctx, repository.Plan{ID: "p1", Name: "new", Snapshot: []byte(`{"walls":[]}`), Walls: 2}))

	got, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Name)
	assert.Equal(t, 2, got.Walls)

	plans, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

func TestRepository_List(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	plans, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, plans)
	assert.Empty(t, plans)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Save(ctx, repository.Plan{ID: id, Name: id, Snapshot: []byte("{}")}))
	}

	plans, err = repo.List(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(plans))
	for _, p := range plans {
		ids = append(ids, p.ID)
		assert.Nil(t, p.Snapshot)
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids)
}

func TestRepository_Delete(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, repository.Plan{ID: "p1", Snapshot: []byte("{}")}))
	require.NoError(t, repo.Delete(ctx, "p1"))

	_, err := repo.GetByID(ctx, "p1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "p1"), repository.ErrNotFound)
}

func TestRepository_InitIsIdempotent(t *testing.T) {
	repo := newRepo(t)
	assert.NoError(t, repo.Init(context.Background()))
}
