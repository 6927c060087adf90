// Package backoff provides idle-poll sleep strategies for the dispatcher
// loop. A strategy decides how long to sleep when no task is due.
package backoff

import (
	"math/rand/v2"
	"time"
)

// Strategy computes the next idle sleep interval.
type Strategy interface {
	// Next returns how long to sleep before the next poll.
	Next() time.Duration
}

// ──────────────────────────────────────────────────
// Constant
// ──────────────────────────────────────────────────

// Constant always returns the same interval.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Next returns the fixed interval.
func (c *Constant) Next() time.Duration {
	return c.Interval
}

// ──────────────────────────────────────────────────
// Uniform (jittered)
// ──────────────────────────────────────────────────

// Uniform returns a uniformly distributed interval in [Min, Max). The
// jitter desynchronizes idle polling across competing dispatcher
// instances, avoiding a thundering herd against the shared queue.
//
// Each Uniform owns its random generator, so behavior is deterministic
// under a seeded source and independent of process-wide rand state.
// Not safe for concurrent use; give each dispatcher its own instance.
type Uniform struct {
	Min time.Duration
	Max time.Duration
	rng *rand.Rand
}

// NewUniform creates a jittered backoff strategy over [min, max) with a
// randomly seeded per-instance generator.
func NewUniform(min, max time.Duration) *Uniform {
	return NewUniformSeeded(min, max, rand.Uint64(), rand.Uint64())
}

// NewUniformSeeded creates a jittered backoff strategy with a
// deterministic seed, for reproducible tests.
func NewUniformSeeded(min, max time.Duration, seed1, seed2 uint64) *Uniform {
	return &Uniform{
		Min: min,
		Max: max,
		rng: rand.New(rand.NewPCG(seed1, seed2)),
	}
}

// Next returns a random duration in [Min, Max).
func (u *Uniform) Next() time.Duration {
	if u.Max <= u.Min {
		return u.Min
	}
	return u.Min + time.Duration(u.rng.Int64N(int64(u.Max-u.Min)))
}

// ──────────────────────────────────────────────────
// Default
// ──────────────────────────────────────────────────

// Default returns the dispatcher's default idle backoff:
// Uniform over [500ms, 1500ms).
func Default() Strategy {
	return NewUniform(500*time.Millisecond, 1500*time.Millisecond)
}
