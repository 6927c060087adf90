package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/delayq"
	"github.com/xraph/delayq/id"
	"github.com/xraph/delayq/task"
)

const taskColumns = `id, name, service, params, state, run_at, timeout, result,
		started_at, ended_at, created_at, updated_at`

// Add persists a new task in ready state.
func (s *Store) Add(ctx context.Context, t *task.Task) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO delayq_tasks (
			id, name, service, params, state, run_at, timeout, result,
			started_at, ended_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12
		)`,
		t.ID.String(), t.Name, t.Service, t.Params, string(t.State),
		t.RunAt, t.Timeout.Nanoseconds(), t.Result,
		t.StartedAt, t.EndedAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return delayq.ErrTaskAlreadyExists
		}
		return fmt.Errorf("delayq/postgres: add task: %w", err)
	}
	return nil
}

// AddBatch persists a batch of new tasks in one transaction.
func (s *Store) AddBatch(ctx context.Context, ts []*task.Task) error {
	if len(ts) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("delayq/postgres: add batch begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	for _, t := range ts {
		_, execErr := tx.Exec(ctx, `
			INSERT INTO delayq_tasks (
				id, name, service, params, state, run_at, timeout, result,
				started_at, ended_at, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8,
				$9, $10, $11, $12
			)`,
			t.ID.String(), t.Name, t.Service, t.Params, string(t.State),
			t.RunAt, t.Timeout.Nanoseconds(), t.Result,
			t.StartedAt, t.EndedAt, t.CreatedAt, t.UpdatedAt,
		)
		if execErr != nil {
			if isDuplicateKey(execErr) {
				return delayq.ErrTaskAlreadyExists
			}
			return fmt.Errorf("delayq/postgres: add batch: %w", execErr)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("delayq/postgres: add batch commit: %w", err)
	}
	return nil
}

// Find retrieves a task by ID.
func (s *Store) Find(ctx context.Context, taskID id.TaskID) (*task.Task, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM delayq_tasks
		WHERE id = $1`,
		taskID.String(),
	)

	t, err := scanTask(row)
	if err != nil {
		if isNoRows(err) {
			return nil, delayq.ErrTaskNotFound
		}
		return nil, fmt.Errorf("delayq/postgres: find task: %w", err)
	}
	return t, nil
}

// Start conditionally transitions the task to running. The state filter
// in the WHERE clause makes the transition a row-level compare-and-set:
// every losing caller sees zero affected rows.
func (s *Store) Start(ctx context.Context, t *task.Task) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE delayq_tasks SET
			state = $2, started_at = $3, updated_at = NOW()
		WHERE id = $1 AND state = $4`,
		t.ID.String(), string(task.StateRunning), t.StartedAt, string(task.StateReady),
	)
	if err != nil {
		return 0, fmt.Errorf("delayq/postgres: start task: %w", err)
	}
	return tag.RowsAffected(), nil
}

// End writes the terminal state, result, and EndedAt unconditionally.
func (s *Store) End(ctx context.Context, t *task.Task) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE delayq_tasks SET
			state = $2, result = $3, ended_at = $4, updated_at = NOW()
		WHERE id = $1`,
		t.ID.String(), string(t.State), t.Result, t.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("delayq/postgres: end task: %w", err)
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

	tag, err := s.pool.Exec(ctx, `
		UPDATE delayq_tasks SET
			state = $2, result = $3, ended_at = NOW(), updated_at = NOW()
		WHERE id = ANY($1) AND state = $4`,
		ids, string(task.StateCancelled), reason, string(task.StateReady),
	)
	if err != nil {
		return 0, fmt.Errorf("delayq/postgres: cancel tasks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListReady returns all tasks currently in ready state, ascending by
// run time.
func (s *Store) ListReady(ctx context.Context) ([]*task.Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM delayq_tasks
		WHERE state = $1
		ORDER BY run_at ASC`,
		string(task.StateReady),
	)
	if err != nil {
		return nil, fmt.Errorf("delayq/postgres: list ready: %w", err)
	}
	defer rows.Close()

	var tasks []*task.Task
	for rows.Next() {
		t, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("delayq/postgres: list ready scan: %w", scanErr)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delayq/postgres: list ready rows: %w", err)
	}
	return tasks, nil
}

// scanTask reads one task row from a pgx row scanner.
func scanTask(row pgx.Row) (*task.Task, error) {
	var (
		t         task.Task
		idStr     string
		state     string
		timeoutNs int64
	)
	err := row.Scan(
		&idStr, &t.Name, &t.Service, &t.Params, &state,
		&t.RunAt, &timeoutNs, &t.Result,
		&t.StartedAt, &t.EndedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tid, err := id.ParseTaskID(idStr)
	if err != nil {
		return nil, err
	}
	t.ID = tid
	t.State = task.State(state)
	t.Timeout = time.Duration(timeoutNs)
	return &t, nil
}
