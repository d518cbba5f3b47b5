package reports

import (
	"errors"
	"testing"
	"time"

	"academy/internal/attendance"
	"academy/internal/dbtime"
	"academy/internal/roster"
)

func mark(student, class int64, date dbtime.Date, present bool) attendance.Record {
	return attendance.Record{StudentID: student, ClassID: class, Date: date, Present: present}
}

func TestRate(t *testing.T) {
	cases := []struct {
		present, total int
		want           float64
	}{
		{0, 0, 0},
		{0, 3, 0},
		{3, 3, 100},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{1, 32, 3.12},
		{5, 32, 15.62},
		{1, 160, 0.62},
		{1, 800, 0.12},
	}
	for _, tc := range cases {
		got := Rate(tc.present, tc.total)
		if got != tc.want {
			t.Errorf("Rate(%d, %d) = %v, want %v", tc.present, tc.total, got, tc.want)
		}
		if got < 0 || got > 100 {
			t.Errorf("Rate out of range: %v", got)
		}
	}
}

func TestResolveWindow(t *testing.T) {
	today := dbtime.NewDate(2024, 3, 15)

	w, err := ResolveWindow("", "2024-03-01", today)
	if err != nil {
		t.Fatal(err)
	}
	if w.End != today || w.Start != dbtime.NewDate(2024, 2, 14) {
		t.Fatalf("default window = %+v", w)
	}
	if !w.Contains(today) || !w.Contains(w.Start) {
		t.Fatal("window bounds are inclusive")
	}

	w, err = ResolveWindow("2024-01-01", "2024-01-31", today)
	if err != nil || w.Start != dbtime.NewDate(2024, 1, 1) || w.End != dbtime.NewDate(2024, 1, 31) {
		t.Fatalf("explicit window = %+v, %v", w, err)
	}

	if _, err := ResolveWindow("2024-13-01", "2024-01-31", today); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("bad month: %v", err)
	}
}

func TestSummarizeAndMonthly(t *testing.T) {
	recs := []attendance.Record{
		mark(1, 1, dbtime.NewDate(2024, 2, 27), true),
		mark(1, 1, dbtime.NewDate(2024, 3, 5), false),
		mark(1, 1, dbtime.NewDate(2024, 3, 1), true),
		mark(1, 1, dbtime.NewDate(2024, 1, 30), true),
	}
	sum := Summarize(recs)
	if sum.TotalClasses != 4 || sum.PresentCount != 3 || sum.AbsentCount != 1 || sum.FrequencyRate != 75 {
		t.Fatalf("summary = %+v", sum)
	}

	months := Monthly(recs)
	want := []MonthBucket{
		{Month: "2024-01", Present: 1, Total: 1},
		{Month: "2024-02", Present: 1, Total: 1},
		{Month: "2024-03", Present: 1, Absent: 1, Total: 2},
	}
	if len(months) != len(want) {
		t.Fatalf("months = %+v", months)
	}
	for i := range want {
		if months[i] != want[i] {
			t.Errorf("month %d = %+v, want %+v", i, months[i], want[i])
		}
	}

	if empty := Summarize(nil); empty.FrequencyRate != 0 || empty.TotalClasses != 0 {
		t.Fatalf("empty summary = %+v", empty)
	}
}

func TestAgeBuckets(t *testing.T) {
	today := dbtime.NewDate(2024, 6, 15)
	at := func(y int, m time.Month, d int) *dbtime.Date {
		date := dbtime.NewDate(y, m, d)
		return &date
	}
	students := []roster.Student{
		{ID: 1, BirthDate: at(2012, 6, 15)}, // 12
		{ID: 2, BirthDate: at(2011, 6, 15)}, // 13
		{ID: 3, BirthDate: at(2006, 6, 16)}, // 17
		{ID: 4, BirthDate: at(2006, 6, 15)}, // 18
		{ID: 5},
	}
	got := AgeBuckets(students, today)
	want := AgeDistribution{Children: 1, Teens: 2, Adults: 1, Unknown: 1}
	if got != want {
		t.Fatalf("AgeBuckets = %+v, want %+v", got, want)
	}
}

func TestTopStudentsExcludesUnmarkedAndIsStable(t *testing.T) {
	day := dbtime.NewDate(2024, 3, 4)
	students := make([]roster.Student, 8)
	for i := range students {
		students[i] = roster.Student{ID: int64(i + 1)}
	}
	recs := []attendance.Record{
		mark(2, 1, day, true),
		mark(3, 1, day, false),
		mark(4, 1, day, true),
		mark(5, 1, day, true),
		mark(5, 1, day.AddDays(1), false),
		mark(6, 1, day, true),
		mark(7, 1, day, true),
		mark(8, 1, day, true),
	}
	top := TopStudents(students, recs, TopStudentsLimit)
	if len(top) != TopStudentsLimit {
		t.Fatalf("len = %d", len(top))
	}
	wantIDs := []int64{2, 4, 6, 7, 8}
	for i, id := range wantIDs {
		if top[i].Student.ID != id {
			t.Fatalf("rank %d = student %d, want %d", i, top[i].Student.ID, id)
		}
	}
	for _, line := range top {
		if line.Student.ID == 1 {
			t.Fatal("student without marks ranked")
		}
	}
}

func TestClassFrequenciesKeepClassOrder(t *testing.T) {
	day := dbtime.NewDate(2024, 3, 4)
	classes := []roster.Class{{ID: 1}, {ID: 2}, {ID: 3}}
	recs := []attendance.Record{
		mark(1, 3, day, true),
		mark(1, 1, day, false),
		mark(2, 1, day, true),
	}
	got := ClassFrequencies(classes, recs)
	if len(got) != 2 || got[0].Class.ID != 1 || got[1].Class.ID != 3 {
		t.Fatalf("class order = %+v", got)
	}
	if got[0].FrequencyRate != 50 || got[0].TotalAttendances != 2 || got[1].FrequencyRate != 100 {
		t.Fatalf("class rates = %+v", got)
	}
}

func TestWeekdayDistributionAlwaysSeven(t *testing.T) {
	empty := WeekdayDistribution(nil)
	if len(empty) != 7 || empty[0].Day != "Segunda" || empty[6].Day != "Domingo" {
		t.Fatalf("empty distribution = %+v", empty)
	}

	monday := dbtime.NewDate(2024, 3, 4)
	got := WeekdayDistribution([]attendance.Record{
		mark(1, 1, monday, true),
		mark(1, 1, monday.AddDays(6), false),
		mark(2, 1, monday.AddDays(7), true),
	})
	if got[0].Present != 2 || got[0].Total != 2 {
		t.Errorf("monday = %+v", got[0])
	}
	if got[6].Absent != 1 || got[6].Total != 1 {
		t.Errorf("sunday = %+v", got[6])
	}
	for i := 1; i < 6; i++ {
		if got[i].Total != 0 {
			t.Errorf("day %d should be empty: %+v", i, got[i])
		}
	}
}
