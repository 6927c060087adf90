package bunstore

import (
	"database/sql"
	"errors"

	"github.com/uptrace/bun/driver/pgdriver"
)

// uniqueViolation is the PostgreSQL error code raised when an insert
// collides with the delayq_tasks primary key.
const uniqueViolation = "23505"

// isNoRows reports whether err means the task row does not exist. Bun
// runs on database/sql, so the stdlib sentinel is the only spelling.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isDuplicateKey reports whether err is a unique_violation, which the
// store surfaces as delayq.ErrTaskAlreadyExists. pgdriver exposes the
// server error fields positionally; 'C' is the SQLSTATE code.
func isDuplicateKey(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == uniqueViolation
	}
	return false
}
