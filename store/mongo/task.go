package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/delayq"
	"github.com/xraph/delayq/id"
	"github.com/xraph/delayq/task"
)

// Add persists a new task.
func (s *Store) Add(ctx context.Context, t *task.Task) error {
	m := toTaskModel(t)
	_, err := s.db.Collection(colTasks).InsertOne(ctx, m)
	if err != nil {
		if isDuplicateKey(err) {
			return delayq.ErrTaskAlreadyExists
		}
		return fmt.Errorf("delayq/mongo: add task: %w", err)
	}
	return nil
}

// AddBatch persists a batch of tasks in one insert.
func (s *Store) AddBatch(ctx context.Context, ts []*task.Task) error {
	if len(ts) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(ts))
	for _, t := range ts {
		docs = append(docs, toTaskModel(t))
	}

	_, err := s.db.Collection(colTasks).InsertMany(ctx, docs)
	if err != nil {
		if isDuplicateKey(err) {
			return delayq.ErrTaskAlreadyExists
		}
		return fmt.Errorf("delayq/mongo: add batch: %w", err)
	}
	return nil
}

// Find retrieves a task by ID.
func (s *Store) Find(ctx context.Context, taskID id.TaskID) (*task.Task, error) {
	var m taskModel
	err := s.db.Collection(colTasks).FindOne(ctx, bson.M{"_id": taskID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, delayq.ErrTaskNotFound
		}
		return nil, fmt.Errorf("delayq/mongo: find task: %w", err)
	}
	return fromTaskModel(&m)
}

// Start conditionally transitions the task to running. The filter pins
// the stored state to ready, so concurrent dispatchers racing on the
// same task see at most one ModifiedCount of 1.
func (s *Store) Start(ctx context.Context, t *task.Task) (int64, error) {
	startedAt := now()
	if t.StartedAt != nil {
		startedAt = *t.StartedAt
	}

	filter := bson.M{
		"_id":   t.ID.String(),
		"state": string(task.StateReady),
	}
	update := bson.M{
		"$set": bson.M{
			"state":      string(task.StateRunning),
			"started_at": startedAt,
			"updated_at": now(),
		},
	}

	res, err := s.db.Collection(colTasks).UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("delayq/mongo: start task: %w", err)
	}
	return res.ModifiedCount, nil
}

// End writes the terminal state, result, and EndedAt.
func (s *Store) End(ctx context.Context, t *task.Task) error {
	t2 := now()
	endedAt := t2
	if t.EndedAt != nil {
		endedAt = *t.EndedAt
	}

	update := bson.M{
		"$set": bson.M{
			"state":      string(t.State),
			"result":     t.Result,
			"ended_at":   endedAt,
			"updated_at": t2,
		},
	}

	res, err := s.db.Collection(colTasks).UpdateOne(ctx, bson.M{"_id": t.ID.String()}, update)
	if err != nil {
		return fmt.Errorf("delayq/mongo: end task: %w", err)
	}
	if res.MatchedCount == 0 {
		return delayq.ErrTaskNotFound
	}
	return nil
}

// Cancel transitions matching ready tasks to cancelled, recording the
// reason as their result. Returns the number of tasks cancelled.
func (s *Store) Cancel(ctx context.Context, reason string, taskIDs ...id.TaskID) (int64, error) {
	if len(taskIDs) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(taskIDs))
	for _, tid := range taskIDs {
		ids = append(ids, tid.String())
	}

	t := now()
	filter := bson.M{
		"_id":   bson.M{"$in": ids},
		"state": string(task.StateReady),
	}
	update := bson.M{
		"$set": bson.M{
			"state":      string(task.StateCancelled),
			"result":     reason,
			"ended_at":   t,
			"updated_at": t,
		},
	}

	res, err := s.db.Collection(colTasks).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("delayq/mongo: cancel tasks: %w", err)
	}
	return res.ModifiedCount, nil
}

// ListReady returns all tasks currently in ready state.
func (s *Store) ListReady(ctx context.Context) ([]*task.Task, error) {
	cur, err := s.db.Collection(colTasks).Find(ctx, bson.M{"state": string(task.StateReady)})
	if err != nil {
		return nil, fmt.Errorf("delayq/mongo: list ready: %w", err)
	}
	defer cur.Close(ctx) //nolint:errcheck // read-only cursor

	var ready []*task.Task
	for cur.Next(ctx) {
		var m taskModel
		if decErr := cur.Decode(&m); decErr != nil {
			return nil, fmt.Errorf("delayq/mongo: list ready decode: %w", decErr)
		}
		t, convErr := fromTaskModel(&m)
		if convErr != nil {
			return nil, convErr
		}
		ready = append(ready, t)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("delayq/mongo: list ready cursor: %w", err)
	}
	return ready, nil
}
