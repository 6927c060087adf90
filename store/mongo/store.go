package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/delayq/task"
)

// colTasks is the collection holding task documents.
const colTasks = "delayq_tasks"

var _ task.Store = (*Store)(nil)

// Store is a MongoDB implementation of task.Store. The caller owns the
// *mongo.Client lifecycle; Store never closes it.
type Store struct {
	db     *mongod.Database
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a new MongoDB store over the given database handle. The
// caller owns the client lifecycle -- the Store will not close it on
// Close().
func New(db *mongod.Database, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Database returns the underlying *mongo.Database for advanced usage.
func (s *Store) Database() *mongod.Database {
	return s.db
}

// Migrate creates the task collection indexes.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := []mongod.IndexModel{
		// State index backing the ready-only scans.
		{Keys: bson.D{{Key: "state", Value: 1}}},
		// Claim index: state + run_at.
		{Keys: bson.D{
			{Key: "state", Value: 1},
			{Key: "run_at", Value: 1},
		}},
		// Service lookup.
		{Keys: bson.D{{Key: "service", Value: 1}}},
	}

	_, err := s.db.Collection(colTasks).Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("delayq/mongo: migrate %s indexes: %w", colTasks, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
}

// Close is a no-op because the caller owns the client lifecycle.
func (s *Store) Close() error {
	return nil
}

// ── helpers ──────────────────────────────────────────────────────

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments returns true when err indicates no MongoDB documents found.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// isDuplicateKey checks if a MongoDB error is a duplicate key violation.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "duplicate key") ||
		strings.Contains(err.Error(), "E11000")
}
