package db_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/habedi/tasksctl/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	db.Path = filepath.Join(t.TempDir(), "tasksctl.db")
	require.NoError(t, db.InitDB())
	t.Cleanup(func() { _ = db.CloseDB() })
}

func TestTaskRepositoryBasicCRUD(t *testing.T) {
	setupTestDB(t)

	repo := db.NewTaskRepository(db.GetDB())
	ctx := context.Background()
	due := time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Put(ctx, db.Task{ID: "t-1", Title: "Prepare invoice run", Status: "open", DueAt: &due, Data: "{}"}))
	require.NoError(t, repo.Put(ctx, db.Task{ID: "t-2", Title: "Close ledger", Status: "done", Data: "{}"}))

	task, err := repo.GetByID(ctx, "t-1")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "Prepare invoice run", task.Title)
	require.NotNil(t, task.DueAt)
	assert.True(t, due.Equal(*task.DueAt))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Close ledger", all[0].Title, "list is ordered by title")

	res, err := repo.SearchByTitle(ctx, "invoice")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "t-1", res[0].ID)

	require.NoError(t, repo.Clear(ctx))
	all, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestTaskRepositoryPutUpdatesExisting(t *testing.T) {
	setupTestDB(t)

	repo := db.NewTaskRepository(db.GetDB())
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, db.Task{ID: "t-1", Title: "Draft", Status: "open"}))
	require.NoError(t, repo.Put(ctx, db.Task{ID: "t-1", Title: "Final", Status: "done"}))

	task, err := repo.GetByID(ctx, "t-1")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "Final", task.Title)
	assert.Equal(t, "done", task.Status)
}

func TestTaskRepositoryRejectsEmptyID(t *testing.T) {
	setupTestDB(t)

	repo := db.NewTaskRepository(db.GetDB())
	assert.Error(t, repo.Put(context.Background(), db.Task{Title: "no id"}))
}

func TestTaskRepositoryGetMissing(t *testing.T) {
	setupTestDB(t)

	task, err := db.NewTaskRepository(db.GetDB()).GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestTokenRepositoryUpsertGetClear(t *testing.T) {
	setupTestDB(t)

	repo := db.NewTokenRepository(db.GetDB())
	ctx := context.Background()

	tok, err := repo.Get(ctx)
	require.NoError(t, err)
	require.Nil(t, tok)

	require.NoError(t, repo.Upsert(ctx, &db.Token{AccessToken: "a", RefreshToken: "r", UserID: "u-1"}))
	require.NoError(t, repo.Upsert(ctx, &db.Token{AccessToken: "b", RefreshToken: "r", UserID: "u-1"}))

	tok, err = repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, uint(1), tok.ID)
	assert.Equal(t, "b", tok.AccessToken)
	assert.Equal(t, "u-1", tok.UserID)

	require.NoError(t, repo.Clear(ctx))
	tok, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, tok)
}

func TestRepositoriesNotInitialized(t *testing.T) {
	ctx := context.Background()

	_, err := db.NewTokenRepository(nil).Get(ctx)
	assert.Error(t, err)
	assert.Error(t, db.NewTokenRepository(nil).Clear(ctx))
	_, err = db.NewTaskRepository(nil).List(ctx)
	assert.Error(t, err)
}

func TestTokenHelpers(t *testing.T) {
	var nilToken *db.Token
	assert.False(t, nilToken.HasAccessToken())
	assert.False(t, nilToken.HasRefreshToken())

	tok := &db.Token{AccessToken: "a"}
	assert.True(t, tok.HasAccessToken())
	assert.False(t, tok.HasRefreshToken())
}
