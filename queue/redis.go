package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/delayq/id"
)

// DefaultKey is the Sorted Set key used when none is configured.
const DefaultKey = "delayq:queue"

// RedisOption configures a Redis queue.
type RedisOption func(*Redis)

// WithKey overrides the Sorted Set key. Dispatchers sharing work must
// use the same key.
func WithKey(key string) RedisOption {
	return func(q *Redis) { q.key = key }
}

// Redis implements Queue on a Redis Sorted Set. Members are task ID
// strings, scores are due times in epoch milliseconds. ZREM provides the
// atomic claim; ZRANGEBYSCORE provides the due-order page.
type Redis struct {
	client goredis.Cmdable
	key    string
}

var _ Queue = (*Redis)(nil)

// NewRedis creates a Redis-backed claim queue. The caller owns the Redis
// client lifecycle.
func NewRedis(client goredis.Cmdable, opts ...RedisOption) *Redis {
	q := &Redis{client: client, key: DefaultKey}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Key returns the Sorted Set key this queue operates on.
func (q *Redis) Key() string { return q.key }

// Enqueue upserts the task ID with its run-time score.
func (q *Redis) Enqueue(ctx context.Context, taskID id.TaskID, runAt time.Time) error {
	err := q.client.ZAdd(ctx, q.key, goredis.Z{
		Score:  Score(runAt),
		Member: taskID.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("delayq/queue: enqueue %s: %w", taskID, err)
	}
	return nil
}

// EnqueueBatch upserts all entries with a single ZADD.
func (q *Redis) EnqueueBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	members := make([]goredis.Z, len(entries))
	for i, e := range entries {
		members[i] = goredis.Z{Score: Score(e.RunAt), Member: e.TaskID.String()}
	}

	if err := q.client.ZAdd(ctx, q.key, members...).Err(); err != nil {
		return fmt.Errorf("delayq/queue: enqueue batch of %d: %w", len(entries), err)
	}
	return nil
}

// Claim atomically removes the task ID via ZREM. Redis executes each
// command atomically, so exactly one concurrent caller sees a removal
// count of 1.
func (q *Redis) Claim(ctx context.Context, taskID id.TaskID) (bool, error) {
	removed, err := q.client.ZRem(ctx, q.key, taskID.String()).Result()
	if err != nil {
		return false, fmt.Errorf("delayq/queue: claim %s: %w", taskID, err)
	}
	return removed > 0, nil
}

// Remove deletes the given IDs with a single ZREM.
func (q *Redis) Remove(ctx context.Context, taskIDs ...id.TaskID) (int64, error) {
	if len(taskIDs) == 0 {
		return 0, nil
	}

	members := make([]interface{}, len(taskIDs))
	for i, tid := range taskIDs {
		members[i] = tid.String()
	}

	removed, err := q.client.ZRem(ctx, q.key, members...).Result()
	if err != nil {
		return 0, fmt.Errorf("delayq/queue: remove %d ids: %w", len(taskIDs), err)
	}
	return removed, nil
}

// NextDue pages task IDs with score <= before, ascending, via
// ZRANGEBYSCORE with an offset/count window.
func (q *Redis) NextDue(ctx context.Context, before time.Time, offset, limit int64) ([]id.TaskID, error) {
	members, err := q.client.ZRangeByScore(ctx, q.key, &goredis.ZRangeBy{
		Min:    "0",
		Max:    strconv.FormatInt(before.UnixMilli(), 10),
		Offset: offset,
		Count:  limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("delayq/queue: next due: %w", err)
	}

	ids := make([]id.TaskID, 0, len(members))
	for _, m := range members {
		tid, parseErr := id.ParseTaskID(m)
		if parseErr != nil {
			// Foreign member in the set; skip rather than stall the queue.
			continue
		}
		ids = append(ids, tid)
	}
	return ids, nil
}
