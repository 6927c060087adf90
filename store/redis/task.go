package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/delayq"
	"github.com/xraph/delayq/id"
	"github.com/xraph/delayq/task"
)

// startScript is the conditional ready→running transition. Redis runs
// scripts atomically, so exactly one concurrent caller observes the
// ready state and flips it.
//
// KEYS[1] = task hash key
// ARGV[1] = started_at, ARGV[2] = updated_at
var startScript = goredis.NewScript(`
if redis.call("HGET", KEYS[1], "state") == "ready" then
	redis.call("HSET", KEYS[1], "state", "running", "started_at", ARGV[1], "updated_at", ARGV[2])
	return 1
end
return 0
`)

// cancelScript conditionally cancels one ready task, recording the
// reason as its result.
//
// KEYS[1] = task hash key
// ARGV[1] = reason, ARGV[2] = ended_at/updated_at
var cancelScript = goredis.NewScript(`
if redis.call("HGET", KEYS[1], "state") == "ready" then
	redis.call("HSET", KEYS[1], "state", "cancelled", "result", ARGV[1], "ended_at", ARGV[2], "updated_at", ARGV[2])
	return 1
end
return 0
`)

// Add stores the task as a Hash and tracks its ID in the enumeration Set.
func (s *Store) Add(ctx context.Context, t *task.Task) error {
	tID := t.ID.String()
	key := taskKey(tID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("delayq/redis: add check exists: %w", err)
	}
	if exists > 0 {
		return delayq.ErrTaskAlreadyExists
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, taskToMap(t))
	pipe.SAdd(ctx, taskIDsKey, tID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delayq/redis: add task: %w", err)
	}
	return nil
}

// AddBatch stores a batch of tasks in one pipeline.
func (s *Store) AddBatch(ctx context.Context, ts []*task.Task) error {
	if len(ts) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	for _, t := range ts {
		tID := t.ID.String()
		pipe.HSet(ctx, taskKey(tID), taskToMap(t))
		pipe.SAdd(ctx, taskIDsKey, tID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delayq/redis: add batch: %w", err)
	}
	return nil
}

// Find retrieves a task by ID.
func (s *Store) Find(ctx context.Context, taskID id.TaskID) (*task.Task, error) {
	vals, err := s.client.HGetAll(ctx, taskKey(taskID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("delayq/redis: find task: %w", err)
	}
	if len(vals) == 0 {
		return nil, delayq.ErrTaskNotFound
	}
	return mapToTask(vals)
}

// Start conditionally transitions the task to running via a Lua script.
func (s *Store) Start(ctx context.Context, t *task.Task) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	startedAt := now
	if t.StartedAt != nil {
		startedAt = t.StartedAt.Format(time.RFC3339Nano)
	}

	n, err := startScript.Run(ctx, s.client, []string{taskKey(t.ID.String())}, startedAt, now).Int64()
	if err != nil {
		return 0, fmt.Errorf("delayq/redis: start task: %w", err)
	}
	return n, nil
}

// End writes the terminal state, result, and EndedAt unconditionally.
func (s *Store) End(ctx context.Context, t *task.Task) error {
	key := taskKey(t.ID.String())

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("delayq/redis: end check exists: %w", err)
	}
	if exists == 0 {
		return delayq.ErrTaskNotFound
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	fields := map[string]interface{}{
		"state":      string(t.State),
		"result":     t.Result,
		"updated_at": now,
	}
	if t.EndedAt != nil {
		fields["ended_at"] = t.EndedAt.Format(time.RFC3339Nano)
	} else {
		fields["ended_at"] = now
	}

	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("delayq/redis: end task: %w", err)
	}
	return nil
}

// Cancel transitions matching ready tasks to cancelled. Each task runs
// through the conditional script, so cancellation never clobbers a
// record another dispatcher already started.
func (s *Store) Cancel(ctx context.Context, reason string, taskIDs ...id.TaskID) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var affected int64
	for _, tid := range taskIDs {
		n, err := cancelScript.Run(ctx, s.client, []string{taskKey(tid.String())}, reason, now).Int64()
		if err != nil {
			return affected, fmt.Errorf("delayq/redis: cancel %s: %w", tid, err)
		}
		affected += n
	}
	return affected, nil
}

// ListReady returns all tasks currently in ready state.
func (s *Store) ListReady(ctx context.Context) ([]*task.Task, error) {
	ids, err := s.client.SMembers(ctx, taskIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("delayq/redis: list ready smembers: %w", err)
	}

	var ready []*task.Task
	for _, tID := range ids {
		vals, getErr := s.client.HGetAll(ctx, taskKey(tID)).Result()
		if getErr != nil || len(vals) == 0 {
			continue // skip missing
		}
		t, convErr := mapToTask(vals)
		if convErr != nil {
			continue
		}
		if t.State != task.StateReady {
			continue
		}
		ready = append(ready, t)
	}
	return ready, nil
}

// ── helpers ──

func taskToMap(t *task.Task) map[string]interface{} {
	m := map[string]interface{}{
		"id":         t.ID.String(),
		"name":       t.Name,
		"service":    t.Service,
		"params":     string(t.Params),
		"state":      string(t.State),
		"run_at":     t.RunAt.Format(time.RFC3339Nano),
		"timeout":    strconv.FormatInt(int64(t.Timeout), 10),
		"result":     t.Result,
		"created_at": t.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": t.UpdatedAt.Format(time.RFC3339Nano),
	}
	if t.StartedAt != nil {
		m["started_at"] = t.StartedAt.Format(time.RFC3339Nano)
	}
	if t.EndedAt != nil {
		m["ended_at"] = t.EndedAt.Format(time.RFC3339Nano)
	}
	return m
}

func mapToTask(m map[string]string) (*task.Task, error) {
	tID, err := id.ParseTaskID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("delayq/redis: parse task id: %w", err)
	}

	timeout, _ := strconv.ParseInt(m["timeout"], 10, 64) //nolint:errcheck // best-effort parse from trusted Redis data

	runAt, _ := time.Parse(time.RFC3339Nano, m["run_at"])         //nolint:errcheck // best-effort parse from trusted Redis data
	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"]) //nolint:errcheck // best-effort parse from trusted Redis data
	updatedAt, _ := time.Parse(time.RFC3339Nano, m["updated_at"]) //nolint:errcheck // best-effort parse from trusted Redis data

	t := &task.Task{
		Entity: delayq.Entity{
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		},
		ID:      tID,
		Name:    m["name"],
		Service: m["service"],
		Params:  []byte(m["params"]),
		State:   task.State(m["state"]),
		RunAt:   runAt,
		Timeout: time.Duration(timeout),
		Result:  m["result"],
	}

	if v := m["started_at"]; v != "" {
		st, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
		t.StartedAt = &st
	}
	if v := m["ended_at"]; v != "" {
		et, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
		t.EndedAt = &et
	}

	return t, nil
}
