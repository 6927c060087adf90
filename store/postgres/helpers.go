package postgres

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL error code raised when an insert
// collides with the delayq_tasks primary key.
const uniqueViolation = "23505"

// isNoRows reports whether err means the task row does not exist. pgx
// returns its own sentinel from QueryRow; both spellings are matched so
// the mapping to delayq.ErrTaskNotFound holds on every scan path.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

// isDuplicateKey reports whether err is a unique_violation, which the
// store surfaces as delayq.ErrTaskAlreadyExists.
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
