package storage

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const overlapConstraint = "no_overlapping_appointments"

// IsOverlapConflict reports whether err is the appointments table's exclusion
// constraint rejecting a double booking. SQLSTATE 23P01 is exclusion_violation;
// the constraint name is matched as well so a wrapped or re-raised error from a
// trigger still classifies correctly.
func IsOverlapConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code == "23P01" {
		return true
	}
	return strings.Contains(pgErr.ConstraintName, overlapConstraint) ||
		strings.Contains(pgErr.Message, overlapConstraint)
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
