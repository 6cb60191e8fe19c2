package client

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/habedi/tasksctl/auth"
	"github.com/habedi/tasksctl/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTaskRepo(t *testing.T) db.TaskRepository {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "tasks.db")), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db.NewTaskRepository(conn)
}

// stubSource serves pages from memory and fails GetTask for ids in broken. With
// sessionLost set, every GetTask fails as if the token refresh had failed.
type stubSource struct {
	pages       map[int]TaskPage
	broken      map[string]bool
	listErr     error
	sessionLost bool
}

func (s *stubSource) ListTasks(_ context.Context, f TaskFilter) (TaskPage, error) {
	if s.listErr != nil {
		return TaskPage{}, s.listErr
	}
	return s.pages[f.Page], nil
}

func (s *stubSource) GetTask(_ context.Context, id string) (Task, string, error) {
	if s.sessionLost {
		return Task{}, "", fmt.Errorf("%w: %w", auth.ErrRefreshFailed, errors.New("refresh token revoked"))
	}
	if s.broken[id] {
		return Task{}, "", errors.New("boom")
	}
	return Task{ID: id, Title: "Task " + id, Status: "open"}, `{"id":"` + id + `"}`, nil
}

func TestSyncTasks_StoresEveryPage(t *testing.T) {
	_, srv := newFakeAPI(t)
	repo := newTaskRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Put(ctx, db.Task{ID: "stale", Title: "Old"}))
	before := time.Now().Add(-time.Second)

	var mu sync.Mutex
	var last float64
	n, err := SyncTasks(ctx, New(srv.URL, srv.Client()), repo, 2, func(p float64) {
		mu.Lock()
		defer mu.Unlock()
		if p > last {
			last = p
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1.0, last)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	stale, err := repo.GetByID(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, stale, "sync replaces the cache")

	t3, err := repo.GetByID(ctx, "t-3")
	require.NoError(t, err)
	require.NotNil(t, t3)
	assert.Equal(t, "ada", t3.Assignee)
	assert.Contains(t, t3.Data, `"id":"t-3"`)
	assert.False(t, t3.SyncedAt.IsZero())
	assert.True(t, t3.SyncedAt.After(before), "SyncedAt records when the row was fetched")
}

func TestSyncTasks_SkipsFailedFetches(t *testing.T) {
	src := &stubSource{
		pages:  map[int]TaskPage{1: {Items: []Task{{ID: "a"}, {ID: "b"}, {ID: "c"}}}},
		broken: map[string]bool{"b": true},
	}
	repo := newTaskRepo(t)

	n, err := SyncTasks(context.Background(), src, repo, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSyncTasks_StopsWhenSessionIsLost(t *testing.T) {
	src := &stubSource{
		pages:       map[int]TaskPage{1: {Items: []Task{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}}},
		sessionLost: true,
	}

	n, err := SyncTasks(context.Background(), src, newTaskRepo(t), 2, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrRefreshFailed)
	assert.Zero(t, n)
}

func TestSyncTasks_Empty(t *testing.T) {
	src := &stubSource{pages: map[int]TaskPage{}}
	var got []float64
	n, err := SyncTasks(context.Background(), src, newTaskRepo(t), 1, func(p float64) { got = append(got, p) })
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []float64{1.0}, got)
}

func TestSyncTasks_ListFailureKeepsCache(t *testing.T) {
	repo := newTaskRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Put(ctx, db.Task{ID: "keep", Title: "Keep me"}))

	_, err := SyncTasks(ctx, &stubSource{listErr: errors.New("offline")}, repo, 1, nil)
	require.Error(t, err)

	kept, err := repo.GetByID(ctx, "keep")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestSyncTasks_PageLoop(t *testing.T) {
	src := &stubSource{pages: map[int]TaskPage{
		1: {Items: []Task{{ID: "a"}}, NextPage: 2},
		2: {Items: []Task{{ID: "b"}}, NextPage: 1},
	}}
	_, err := SyncTasks(context.Background(), src, newTaskRepo(t), 1, nil)
	assert.ErrorContains(t, err, "loops back")
}
