package store

import (
	"errors"
	"fmt"
)

// ErrConstraint matches every ConstraintError through errors.Is.
var ErrConstraint = errors.New("constraint violation")

// ConstraintError reports a uniqueness or foreign key violation. The importer
// never issues a conflicting insert, so one of these means the key cache and
// the database disagree.
type ConstraintError struct {
	Table string
	Err   error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Table, ErrConstraint, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrConstraint.
func (e *ConstraintError) Is(target error) bool {
	return target == ErrConstraint
}

// ErrUnknownBackend is returned by Open when no registered backend accepts
// the DSN.
var ErrUnknownBackend = errors.New("unknown database backend")
