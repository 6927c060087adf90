package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/delayq/id"
)

// Memory is a fully in-memory Queue. Safe for concurrent access.
// Intended for unit testing and development.
type Memory struct {
	mu     sync.Mutex
	scores map[string]float64
}

var _ Queue = (*Memory)(nil)

// NewMemory returns a new empty Memory queue.
func NewMemory() *Memory {
	return &Memory{scores: make(map[string]float64)}
}

// Enqueue upserts the task ID with its run-time score.
func (q *Memory) Enqueue(_ context.Context, taskID id.TaskID, runAt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.scores[taskID.String()] = Score(runAt)
	return nil
}

// EnqueueBatch upserts all entries.
func (q *Memory) EnqueueBatch(_ context.Context, entries []Entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range entries {
		q.scores[e.TaskID.String()] = Score(e.RunAt)
	}
	return nil
}

// Claim removes the task ID under the queue lock, so exactly one
// concurrent caller observes the removal.
func (q *Memory) Claim(_ context.Context, taskID id.TaskID) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := taskID.String()
	if _, ok := q.scores[key]; !ok {
		return false, nil
	}
	delete(q.scores, key)
	return true, nil
}

// Remove deletes the given IDs, returning how many were present.
func (q *Memory) Remove(_ context.Context, taskIDs ...id.TaskID) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var removed int64
	for _, tid := range taskIDs {
		key := tid.String()
		if _, ok := q.scores[key]; ok {
			delete(q.scores, key)
			removed++
		}
	}
	return removed, nil
}

// NextDue returns up to limit due task IDs ascending by score.
func (q *Memory) NextDue(_ context.Context, before time.Time, offset, limit int64) ([]id.TaskID, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	max := Score(before)

	type member struct {
		key   string
		score float64
	}
	due := make([]member, 0, len(q.scores))
	for key, score := range q.scores {
		if score <= max {
			due = append(due, member{key: key, score: score})
		}
	}

	sort.Slice(due, func(i, k int) bool {
		if due[i].score != due[k].score {
			return due[i].score < due[k].score
		}
		return due[i].key < due[k].key
	})

	if offset >= int64(len(due)) {
		return nil, nil
	}
	due = due[offset:]
	if limit > 0 && int64(len(due)) > limit {
		due = due[:limit]
	}

	ids := make([]id.TaskID, 0, len(due))
	for _, m := range due {
		tid, err := id.ParseTaskID(m.key)
		if err != nil {
			continue
		}
		ids = append(ids, tid)
	}
	return ids, nil
}

// Len returns the number of entries currently in the queue.
func (q *Memory) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.scores)
}

// Contains reports whether the task ID is currently in the queue.
func (q *Memory) Contains(taskID id.TaskID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.scores[taskID.String()]
	return ok
}

// ScoreOf returns the stored score for the task ID, and whether it exists.
func (q *Memory) ScoreOf(taskID id.TaskID) (float64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, ok := q.scores[taskID.String()]
	return s, ok
}
