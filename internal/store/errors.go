package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrUniqueViolation is returned by repositories when an insert or update hits a unique constraint.
var ErrUniqueViolation = errors.New("unique constraint violated")

// UniqueConstraint reports the violated constraint name when err is a Postgres unique violation.
func UniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// Translate maps driver errors onto store sentinels. Other errors pass through unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if name, ok := UniqueConstraint(err); ok {
		return &ConstraintError{Constraint: name, Err: err}
	}
	return err
}

// ConstraintError carries the violated constraint and matches ErrUniqueViolation.
type ConstraintError struct {
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string { return "unique constraint " + e.Constraint + ": " + e.Err.Error() }

func (e *ConstraintError) Unwrap() error { return e.Err }

func (e *ConstraintError) Is(target error) bool { return target == ErrUniqueViolation }
