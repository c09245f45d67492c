package repository

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// Store errors
var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicate   = errors.New("duplicate record")
	ErrAlreadyPaid = errors.New("schedule entry already paid")
)

// Unique constraints the services translate into conflicts.
const (
	ConstraintNationalID = "uq_loan_applications_national_id"
	ConstraintActiveUser = "uq_loan_applications_active_user"
)

const uniqueViolation = "23505"

// DuplicateError reports a unique constraint violation.
type DuplicateError struct {
	Constraint string
}

func (e *DuplicateError) Error() string {
	return "duplicate record: " + e.Constraint
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// mapError translates driver errors into store errors and adds the operation
// as context.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return &DuplicateError{Constraint: pqErr.Constraint}
	}

	return errors.Wrap(err, op)
}
