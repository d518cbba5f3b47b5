package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestTranslateUniqueViolation(t *testing.T) {
	raw := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: ConstraintAttendanceKey})

	err := Translate(raw)
	if !errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("expected ErrUniqueViolation, got %v", err)
	}
	var ce *ConstraintError
	if !errors.As(err, &ce) || ce.Constraint != ConstraintAttendanceKey {
		t.Fatalf("constraint not carried: %+v", ce)
	}
}

func TestTranslatePassesOtherErrors(t *testing.T) {
	fk := &pgconn.PgError{Code: "23503"}
	if err := Translate(fk); errors.Is(err, ErrUniqueViolation) {
		t.Fatal("foreign key violation must not look like a unique violation")
	}
	if Translate(nil) != nil {
		t.Fatal("nil stays nil")
	}
}
