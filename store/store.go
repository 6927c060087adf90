// Package store defines the aggregate persistence interface for task
// records. The composite Store combines the task contract with backend
// lifecycle operations. Backends: Postgres (pgx), Bun, Redis, MongoDB,
// and Memory.
package store

import (
	"context"

	"github.com/xraph/delayq/task"
)

// Store is the aggregate persistence interface. A single backend
// implements the task contract plus its own lifecycle.
type Store interface {
	task.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
