package attendance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"academy/internal/attendance"
	"academy/internal/dbtime"
	"academy/internal/memstore"
	"academy/internal/roster"
)

type fixture struct {
	ms     *memstore.Store
	roster *roster.Service
	svc    *attendance.Service
	class  *roster.Class
	day    dbtime.Date
}

func ptr[T any](v T) *T { return &v }

func setup(t *testing.T) *fixture {
	t.Helper()
	ms := memstore.New()
	rs := roster.NewService(ms, time.UTC)
	start, _ := dbtime.ParseTod("09:00")
	end, _ := dbtime.ParseTod("10:00")
	c, err := rs.CreateClass(context.Background(), roster.ClassFields{
		Name: ptr("Adultos"), DayOfWeek: ptr(0), StartTime: &start, EndTime: &end,
	})
	if err != nil {
		t.Fatal(err)
	}
	svc := attendance.NewService(ms, rs, zerolog.Nop())
	svc.SetClock(func() time.Time { return time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC) })
	return &fixture{ms: ms, roster: rs, svc: svc, class: c, day: dbtime.NewDate(2024, 3, 4)}
}

func (f *fixture) student(t *testing.T, name string, enroll bool) int64 {
	t.Helper()
	s, err := f.roster.CreateStudent(context.Background(), roster.StudentFields{Name: ptr(name)})
	if err != nil {
		t.Fatal(err)
	}
	if enroll {
		if _, err := f.roster.Enroll(context.Background(), f.class.ID, s.ID); err != nil {
			t.Fatal(err)
		}
	}
	return s.ID
}

func TestUpsertTwiceKeepsOneRecord(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sid := f.student(t, "Rita", true)

	rec, outcome, err := f.svc.Upsert(ctx, attendance.Mark{StudentID: sid, ClassID: f.class.ID, Date: f.day, Present: true}, 7)
	if err != nil || outcome != attendance.Created {
		t.Fatalf("first upsert: %v %v", outcome, err)
	}
	note := "chegou atrasado"
	again, outcome, err := f.svc.Upsert(ctx, attendance.Mark{StudentID: sid, ClassID: f.class.ID, Date: f.day, Present: false, Notes: &note}, 8)
	if err != nil || outcome != attendance.Updated {
		t.Fatalf("second upsert: %v %v", outcome, err)
	}
	if again.ID != rec.ID || again.Present || *again.RecordedBy != 8 {
		t.Fatalf("record not overwritten: %+v", again)
	}

	all, err := f.svc.List(ctx, attendance.Filter{})
	if err != nil || len(all) != 1 || all[0].Present {
		t.Fatalf("expected a single absent record, got %+v", all)
	}
}

func TestUpsertValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	notEnrolled := f.student(t, "Caio", false)

	cases := []struct {
		name string
		mark attendance.Mark
		want error
	}{
		{"student", attendance.Mark{StudentID: 999, ClassID: f.class.ID, Date: f.day}, roster.ErrStudentNotFound},
		{"class", attendance.Mark{StudentID: notEnrolled, ClassID: 999, Date: f.day}, roster.ErrClassNotFound},
		{"enrollment", attendance.Mark{StudentID: notEnrolled, ClassID: f.class.ID, Date: f.day}, attendance.ErrNotEnrolled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := f.svc.Upsert(ctx, tc.mark, 1); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestBulkMixedResults(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ok := f.student(t, "Bia", true)
	outsider := f.student(t, "Edu", false)

	results, err := f.svc.BulkUpsert(ctx, f.class.ID, f.day, []attendance.Entry{
		{StudentID: 999, Present: true},
		{StudentID: 0, Present: true},
		{StudentID: ok, Present: true},
		{StudentID: outsider, Present: false},
	}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("entries without a student id are skipped, got %d results", len(results))
	}
	if results[0].Error != "Student not found" {
		t.Errorf("invalid id result: %+v", results[0])
	}
	if results[1].Status != attendance.Created || results[1].Attendance == nil {
		t.Errorf("valid id result: %+v", results[1])
	}
	if results[2].Error != "Student not enrolled in this class" {
		t.Errorf("not enrolled result: %+v", results[2])
	}

	stored, err := f.svc.List(ctx, attendance.Filter{StudentID: &ok})
	if err != nil || len(stored) != 1 {
		t.Fatalf("valid entry not persisted: %+v %v", stored, err)
	}

	results, err = f.svc.BulkUpsert(ctx, f.class.ID, f.day, []attendance.Entry{{StudentID: ok, Present: false}}, 1)
	if err != nil || results[0].Status != attendance.Updated {
		t.Fatalf("second bulk should update: %+v %v", results, err)
	}
}

func TestBulkUnknownClass(t *testing.T) {
	f := setup(t)
	if _, err := f.svc.BulkUpsert(context.Background(), 999, f.day, nil, 1); !errors.Is(err, roster.ErrClassNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestBulkCommitFailureRollsBackEverything(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.student(t, "A", true)
	b := f.student(t, "B", true)
	f.ms.BeforeCommit = func() error { return errors.New("disk full") }

	if _, err := f.svc.BulkUpsert(ctx, f.class.ID, f.day, []attendance.Entry{{StudentID: a, Present: true}, {StudentID: b, Present: true}}, 1); err == nil {
		t.Fatal("commit failure must surface")
	}
	all, _ := f.svc.List(ctx, attendance.Filter{})
	if len(all) != 0 {
		t.Fatalf("rolled back batch left %d records", len(all))
	}
}

func TestUpdateDeleteAndFilters(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sid := f.student(t, "Gil", true)
	var ids []int64
	for _, d := range []dbtime.Date{dbtime.NewDate(2024, 3, 1), dbtime.NewDate(2024, 3, 4), dbtime.NewDate(2024, 2, 20)} {
		rec, _, err := f.svc.Upsert(ctx, attendance.Mark{StudentID: sid, ClassID: f.class.ID, Date: d, Present: true}, 1)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, rec.ID)
	}

	all, _ := f.svc.List(ctx, attendance.Filter{})
	if all[0].Date != dbtime.NewDate(2024, 3, 4) || all[2].Date != dbtime.NewDate(2024, 2, 20) {
		t.Fatalf("list must be newest first: %+v", all)
	}
	from, to := dbtime.NewDate(2024, 3, 1), dbtime.NewDate(2024, 3, 31)
	ranged, _ := f.svc.List(ctx, attendance.Filter{From: &from, To: &to})
	if len(ranged) != 2 {
		t.Fatalf("range filter: %d", len(ranged))
	}
	halfOpen, _ := f.svc.List(ctx, attendance.Filter{From: &from})
	if len(halfOpen) != 3 {
		t.Fatalf("a lone start date is ignored: %d", len(halfOpen))
	}

	updated, err := f.svc.Update(ctx, ids[0], ptr(false), nil, 5)
	if err != nil || updated.Present || *updated.RecordedBy != 5 {
		t.Fatalf("update: %+v %v", updated, err)
	}
	if err := f.svc.Delete(ctx, ids[0]); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Get(ctx, ids[0]); !errors.Is(err, attendance.ErrNotFound) {
		t.Fatalf("hard delete: %v", err)
	}
}

func TestSheet(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	marked := f.student(t, "Marcado", true)
	f.student(t, "Sem registro", true)
	f.student(t, "Fora da turma", false)
	if _, _, err := f.svc.Upsert(ctx, attendance.Mark{StudentID: marked, ClassID: f.class.ID, Date: f.day, Present: true}, 1); err != nil {
		t.Fatal(err)
	}

	sheet, err := f.svc.Sheet(ctx, f.class.ID, f.day)
	if err != nil {
		t.Fatal(err)
	}
	if len(sheet) != 2 {
		t.Fatalf("sheet lists enrolled students only, got %d", len(sheet))
	}
	if sheet[0].Attendance == nil || sheet[1].Attendance != nil {
		t.Fatalf("attendance pairing wrong: %+v", sheet)
	}
	empty, err := f.svc.Sheet(ctx, 999, f.day)
	if err != nil || len(empty) != 0 {
		t.Fatalf("unknown class: %+v %v", empty, err)
	}
}
