package dbtime

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and database format for calendar dates.
const DateLayout = "2006-01-02"

// parseLayout also accepts months and days without zero padding.
const parseLayout = "2006-1-2"

// Date is a calendar day without time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalizes overflowing components the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current calendar day in loc.
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return DateOf(now.In(loc))
}

// ParseDate accepts "YYYY-MM-DD"; "YYYY-M-D" works too.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(parseLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) IsZero() bool { return d.Year == 0 && d.Month == 0 && d.Day == 0 }

func (d Date) String() string { return d.midnight().Format(DateLayout) }

// MonthKey formats the month as "YYYY-MM".
func (d Date) MonthKey() string { return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month)) }

func (d Date) AddDays(n int) Date { return DateOf(d.midnight().AddDate(0, 0, n)) }

// WeekdayIndex is Monday=0 .. Sunday=6.
func (d Date) WeekdayIndex() int {
	return (int(d.midnight().Weekday()) + 6) % 7
}

func (d Date) Before(o Date) bool { return d.midnight().Before(o.midnight()) }

func (d Date) After(o Date) bool { return d.midnight().After(o.midnight()) }

// Between reports from <= d <= to.
func (d Date) Between(from, to Date) bool { return !d.Before(from) && !d.After(to) }

func (d *Date) Scan(v any) error {
	switch x := v.(type) {
	case time.Time:
		*d = DateOf(x)
		return nil
	case string:
		return d.parse(x)
	case []byte:
		return d.parse(string(x))
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("date: unsupported Scan type %T", v)
	}
}

func (d *Date) parse(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
