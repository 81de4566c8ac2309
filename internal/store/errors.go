package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrUserNotFound is returned when a write references a user that no longer
// exists. It matches ErrNotFound.
var ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

// ErrConflict is returned when an insert would violate a uniqueness constraint.
var ErrConflict = errors.New("conflict")

const (
	pqUniqueViolation     = pq.ErrorCode("23505")
	pqForeignKeyViolation = pq.ErrorCode("23503")

	paymentsUserFKey = "payments_user_id_fkey"
)

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

func pqConstraint(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}
