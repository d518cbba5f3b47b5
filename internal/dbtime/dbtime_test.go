package dbtime

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d != (Date{Year: 2024, Month: time.February, Day: 29}) {
		t.Fatalf("got %+v", d)
	}
	if d, err := ParseDate("2024-3-5"); err != nil || d != NewDate(2024, time.March, 5) {
		t.Fatalf("unpadded date = %+v, %v", d, err)
	}
	for _, bad := range []string{"", "2024-2-3x", "29/02/2024", "2023-02-29"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) should fail", bad)
		}
	}
}

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2024, time.March, 1)
	if got := d.AddDays(-1).String(); got != "2024-02-29" {
		t.Fatalf("AddDays(-1) = %s", got)
	}
	if got := d.AddDays(-30).String(); got != "2024-01-31" {
		t.Fatalf("AddDays(-30) = %s", got)
	}
	if d.MonthKey() != "2024-03" {
		t.Fatalf("MonthKey = %s", d.MonthKey())
	}
	if !d.Between(d, d) || d.Between(d.AddDays(1), d.AddDays(2)) {
		t.Fatal("Between is inclusive on both ends")
	}
}

func TestWeekdayIndexIsMondayFirst(t *testing.T) {
	// 2024-01-01 was a Monday.
	start := NewDate(2024, time.January, 1)
	for i := 0; i < 7; i++ {
		if got := start.AddDays(i).WeekdayIndex(); got != i {
			t.Errorf("day %d: WeekdayIndex = %d", i, got)
		}
	}
}

func TestDateScanAndJSON(t *testing.T) {
	var d Date
	if err := d.Scan(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	if d.String() != "2024-05-06" {
		t.Fatalf("scan time.Time: %s", d)
	}
	if err := d.Scan("2024-05-07T00:00:00Z"); err != nil || d.String() != "2024-05-07" {
		t.Fatalf("scan string: %s %v", d, err)
	}
	b, _ := json.Marshal(d)
	if string(b) != `"2024-05-07"` {
		t.Fatalf("json = %s", b)
	}
}

func TestTod(t *testing.T) {
	start, err := ParseTod("18:30")
	if err != nil {
		t.Fatal(err)
	}
	end, _ := ParseTod("20:00")
	if !start.Before(end) || end.Before(start) || start.Before(start) {
		t.Fatal("Before ordering is wrong")
	}
	if _, err := ParseTod("25:00"); err == nil {
		t.Fatal("hour 25 should be rejected")
	}

	var scanned Tod
	if err := scanned.Scan("07:05:00"); err != nil || scanned.String() != "07:05" {
		t.Fatalf("scan: %s %v", scanned, err)
	}
	v, _ := scanned.Value()
	if v != "07:05:00" {
		t.Fatalf("value = %v", v)
	}
}
