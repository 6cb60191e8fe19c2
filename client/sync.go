package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/habedi/tasksctl/auth"
	"github.com/habedi/tasksctl/db"
	"github.com/habedi/tasksctl/pkg/pool"
	"github.com/rs/zerolog/log"
)

// syncPageSize is the page size used when walking the full task list.
const syncPageSize = 100

// TaskSource is the subset of Client that SyncTasks needs.
type TaskSource interface {
	ListTasks(ctx context.Context, f TaskFilter) (TaskPage, error)
	GetTask(ctx context.Context, id string) (Task, string, error)
}

// SyncTasks refreshes the local task cache from the API and returns how many tasks were
// stored. progressCb receives values from 0.0 to 1.0. Failed per-task fetches are logged
// and skipped, except a failed token refresh, which stops the sync and is returned.
func SyncTasks(ctx context.Context, src TaskSource, repo db.TaskRepository, numWorkers int, progressCb func(float64)) (int, error) {
	ids, err := collectTaskIDs(ctx, src)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		log.Info().Msg("No tasks found.")
		if progressCb != nil {
			progressCb(1.0)
		}
		return 0, repo.Clear(ctx)
	}

	if err := repo.Clear(ctx); err != nil {
		return 0, fmt.Errorf("failed to clear task cache: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		stored    atomic.Int64
		abortOnce sync.Once
		abortErr  error
	)
	total := float64(len(ids))
	workerFunc := func(ctx context.Context, id string) error {
		task, raw, fetchErr := src.GetTask(ctx, id)
		if errors.Is(fetchErr, auth.ErrRefreshFailed) {
			abortOnce.Do(func() {
				abortErr = fetchErr
				cancel()
			})
			return fetchErr
		}
		if fetchErr != nil {
			log.Warn().Err(fetchErr).Str("task", id).Msg("Failed to fetch task details")
			return nil
		}
		row := db.Task{
			ID:       task.ID,
			Title:    task.Title,
			Status:   task.Status,
			Assignee: task.Assignee,
			DueAt:    task.DueAt,
			Data:     raw,
			SyncedAt: time.Now(),
		}
		if row.ID == "" {
			row.ID = id
		}
		if err := repo.Put(ctx, row); err != nil {
			log.Error().Err(err).Str("task", id).Msg("Failed to save task to DB")
			return nil
		}
		stored.Add(1)
		return nil
	}

	var progress pool.ProgressFunc
	if progressCb != nil {
		progress = func(done, _ int) { progressCb(float64(done) / total) }
	}
	_ = pool.RunWithProgress(runCtx, ids, numWorkers, workerFunc, progress)

	if abortErr != nil {
		return int(stored.Load()), fmt.Errorf("task sync stopped: %w", abortErr)
	}
	return int(stored.Load()), ctx.Err()
}

// collectTaskIDs walks every page of GET /tasks.
func collectTaskIDs(ctx context.Context, src TaskSource) ([]string, error) {
	var ids []string
	seen := map[int]bool{}
	page := 1
	for page > 0 {
		if seen[page] {
			return nil, fmt.Errorf("task listing loops back to page %d", page)
		}
		seen[page] = true

		res, err := src.ListTasks(ctx, TaskFilter{Page: page, PageSize: syncPageSize})
		if err != nil {
			return nil, err
		}
		for _, t := range res.Items {
			if t.ID != "" {
				ids = append(ids, t.ID)
			}
		}
		page = res.NextPage
	}
	return ids, nil
}
