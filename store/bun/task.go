package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/xraph/delayq"
	"github.com/xraph/delayq/id"
	"github.com/xraph/delayq/task"
)

// Add persists a new task in ready state.
func (s *Store) Add(ctx context.Context, t *task.Task) error {
	m := toTaskModel(t)
	_, err := s.db.NewInsert().Model(m).Exec(ctx)
	if err != nil {
		if isDuplicateKey(err) {
			return delayq.ErrTaskAlreadyExists
		}
		return fmt.Errorf("delayq/bun: add task: %w", err)
	}
	return nil
}

// AddBatch persists a batch of new tasks with a single multi-row insert.
func (s *Store) AddBatch(ctx context.Context, ts []*task.Task) error {
	if len(ts) == 0 {
		return nil
	}

	models := make([]*taskModel, len(ts))
	for i, t := range ts {
		models[i] = toTaskModel(t)
	}

	_, err := s.db.NewInsert().Model(&models).Exec(ctx)
	if err != nil {
		if isDuplicateKey(err) {
			return delayq.ErrTaskAlreadyExists
		}
		return fmt.Errorf("delayq/bun: add batch: %w", err)
	}
	return nil
}

// Find retrieves a task by ID.
func (s *Store) Find(ctx context.Context, taskID id.TaskID) (*task.Task, error) {
	var m taskModel
	err := s.db.NewSelect().Model(&m).Where("id = ?", taskID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, delayq.ErrTaskNotFound
		}
		return nil, fmt.Errorf("delayq/bun: find task: %w", err)
	}
	return fromTaskModel(&m)
}

// Start conditionally transitions the task to running. The state filter
// makes the update a row-level compare-and-set.
func (s *Store) Start(ctx context.Context, t *task.Task) (int64, error) {
	res, err := s.db.NewUpdate().
		Model((*taskModel)(nil)).
		Set("state = ?", string(task.StateRunning)).
		Set("started_at = ?", t.StartedAt).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", t.ID.String()).
		Where("state = ?", string(task.StateReady)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delayq/bun: start task: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delayq/bun: start task rows affected: %w", err)
	}
	return affected, nil
}

// End writes the terminal state, result, and EndedAt unconditionally.
func (s *Store) End(ctx context.Context, t *task.Task) error {
	_, err := s.db.NewUpdate().
		Model((*taskModel)(nil)).
		Set("state = ?", string(t.State)).
		Set("result = ?", t.Result).
		Set("ended_at = ?", t.EndedAt).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", t.ID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delayq/bun: end task: %w", err)
	}
	return nil
}

// Cancel transitions matching ready tasks to cancelled, recording
// reason as their result.
func (s *Store) Cancel(ctx context.Context, reason string, taskIDs ...id.TaskID) (int64, error) {
	if len(taskIDs) == 0 {
		return 0, nil
	}

	ids := make([]string, len(taskIDs))
	for i, tid := range taskIDs {
		ids[i] = tid.String()
	}

	now := time.Now().UTC()
	res, err := s.db.NewUpdate().
		Model((*taskModel)(nil)).
		Set("state = ?", string(task.StateCancelled)).
		Set("result = ?", reason).
		Set("ended_at = ?", now).
		Set("updated_at = ?", now).
		Where("id IN (?)", bun.In(ids)).
		Where("state = ?", string(task.StateReady)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delayq/bun: cancel tasks: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delayq/bun: cancel tasks rows affected: %w", err)
	}
	return affected, nil
}

// ListReady returns all tasks currently in ready state, ascending by
// run time.
func (s *Store) ListReady(ctx context.Context) ([]*task.Task, error) {
	var models []taskModel
	err := s.db.NewSelect().
		Model(&models).
		Where("state = ?", string(task.StateReady)).
		Order("run_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("delayq/bun: list ready: %w", err)
	}

	tasks := make([]*task.Task, 0, len(models))
	for i := range models {
		t, convErr := fromTaskModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("delayq/bun: list ready convert: %w", convErr)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
