package memstore

import (
	"context"
	"errors"
	"testing"

	"academy/internal/attendance"
	"academy/internal/dbtime"
	"academy/internal/identity"
	"academy/internal/roster"
	"academy/internal/store"
)

func TestUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	m := New()

	if err := m.CreateUser(ctx, &identity.User{Username: "a", Email: "a@x"}); err != nil {
		t.Fatal(err)
	}
	if err := m.CreateUser(ctx, &identity.User{Username: "a", Email: "b@x"}); !errors.Is(err, identity.ErrDuplicateUsername) {
		t.Fatalf("username: %v", err)
	}
	if err := m.CreateUser(ctx, &identity.User{Username: "b", Email: "a@x"}); !errors.Is(err, identity.ErrDuplicateEmail) {
		t.Fatalf("email: %v", err)
	}

	if err := m.CreateEnrollment(ctx, &roster.Enrollment{StudentID: 1, ClassID: 2}); err != nil {
		t.Fatal(err)
	}
	if err := m.CreateEnrollment(ctx, &roster.Enrollment{StudentID: 1, ClassID: 2}); !errors.Is(err, store.ErrUniqueViolation) {
		t.Fatalf("active enrollment: %v", err)
	}

	day := dbtime.NewDate(2024, 1, 8)
	if err := m.InsertRecord(ctx, &attendance.Record{StudentID: 1, ClassID: 2, Date: day}); err != nil {
		t.Fatal(err)
	}
	err := m.InsertRecord(ctx, &attendance.Record{StudentID: 1, ClassID: 2, Date: day})
	var ce *store.ConstraintError
	if !errors.As(err, &ce) || ce.Constraint != store.ConstraintAttendanceKey {
		t.Fatalf("attendance key: %v", err)
	}
}

func TestInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	m := New()
	boom := errors.New("boom")

	err := m.InTx(ctx, func(tx attendance.Store) error {
		if err := tx.InsertRecord(ctx, &attendance.Record{StudentID: 1, ClassID: 1, Date: dbtime.NewDate(2024, 1, 1)}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
	recs, _ := m.ListRecords(ctx, attendance.Filter{})
	if len(recs) != 0 {
		t.Fatalf("rollback left %d records", len(recs))
	}

	if err := m.InTx(ctx, func(tx attendance.Store) error {
		return tx.InsertRecord(ctx, &attendance.Record{StudentID: 1, ClassID: 1, Date: dbtime.NewDate(2024, 1, 1)})
	}); err != nil {
		t.Fatal(err)
	}
	recs, _ = m.ListRecords(ctx, attendance.Filter{})
	if len(recs) != 1 {
		t.Fatalf("commit kept %d records", len(recs))
	}
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	m := New()
	s := &roster.Student{Name: "Original"}
	if err := m.CreateStudent(ctx, s); err != nil {
		t.Fatal(err)
	}
	got, _ := m.GetStudent(ctx, s.ID)
	got.Name = "Changed"
	again, _ := m.GetStudent(ctx, s.ID)
	if again.Name != "Original" {
		t.Fatal("caller mutation leaked into the store")
	}
}
