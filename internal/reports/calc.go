package reports

import (
	"errors"
	"sort"
	"strconv"

	"academy/internal/attendance"
	"academy/internal/dbtime"
	"academy/internal/roster"
)

// DefaultSpanDays is how far back the default window reaches from today.
const DefaultSpanDays = 30

// TopStudentsLimit caps the student ranking.
const TopStudentsLimit = 5

// ErrInvalidDate is returned for window bounds not in YYYY-MM-DD form.
var ErrInvalidDate = errors.New("invalid date format, use YYYY-MM-DD")

// WeekdayNames are display labels, Monday first.
var WeekdayNames = [7]string{"Segunda", "Terça", "Quarta", "Quinta", "Sexta", "Sábado", "Domingo"}

// Window is an inclusive date range.
type Window struct {
	Start dbtime.Date `json:"start_date"`
	End   dbtime.Date `json:"end_date"`
}

// Contains reports Start <= d <= End.
func (w Window) Contains(d dbtime.Date) bool { return d.Between(w.Start, w.End) }

// DefaultWindow covers the trailing DefaultSpanDays days ending today, both ends inclusive.
func DefaultWindow(today dbtime.Date) Window {
	return Window{Start: today.AddDays(-DefaultSpanDays), End: today}
}

// ResolveWindow parses explicit bounds. When either bound is missing the default window applies.
func ResolveWindow(start, end string, today dbtime.Date) (Window, error) {
	if start == "" || end == "" {
		return DefaultWindow(today), nil
	}
	s, err := dbtime.ParseDate(start)
	if err != nil {
		return Window{}, ErrInvalidDate
	}
	e, err := dbtime.ParseDate(end)
	if err != nil {
		return Window{}, ErrInvalidDate
	}
	return Window{Start: s, End: e}, nil
}

// Rate is present/total as a percentage rounded to two decimals; zero when total is zero.
func Rate(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(present) / float64(total) * 100)
}

// round2 rounds to two decimals on the exact binary value, so exact halves go to even.
func round2(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return r
}

// Summary counts marks in a window.
type Summary struct {
	TotalClasses  int     `json:"total_classes"`
	PresentCount  int     `json:"present_count"`
	AbsentCount   int     `json:"absent_count"`
	FrequencyRate float64 `json:"frequency_rate"`
}

func countPresent(recs []attendance.Record) int {
	n := 0
	for _, r := range recs {
		if r.Present {
			n++
		}
	}
	return n
}

// Summarize totals recs.
func Summarize(recs []attendance.Record) Summary {
	present := countPresent(recs)
	return Summary{
		TotalClasses:  len(recs),
		PresentCount:  present,
		AbsentCount:   len(recs) - present,
		FrequencyRate: Rate(present, len(recs)),
	}
}

// MonthBucket holds marks of one calendar month.
type MonthBucket struct {
	Month   string `json:"month"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
	Total   int    `json:"total"`
}

// Monthly buckets recs by YYYY-MM, ascending by month.
func Monthly(recs []attendance.Record) []MonthBucket {
	byMonth := map[string]*MonthBucket{}
	for _, r := range recs {
		key := r.Date.MonthKey()
		b, ok := byMonth[key]
		if !ok {
			b = &MonthBucket{Month: key}
			byMonth[key] = b
		}
		if r.Present {
			b.Present++
		} else {
			b.Absent++
		}
		b.Total++
	}
	out := make([]MonthBucket, 0, len(byMonth))
	for _, b := range byMonth {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// AgeDistribution buckets students by derived age.
type AgeDistribution struct {
	Children int `json:"children"`
	Teens    int `json:"teens"`
	Adults   int `json:"adults"`
	Unknown  int `json:"unknown"`
}

// AgeBuckets classifies students: children up to 12, teens 13 to 17, adults 18 and over,
// unknown without a birth date.
func AgeBuckets(students []roster.Student, today dbtime.Date) AgeDistribution {
	var d AgeDistribution
	for _, s := range students {
		if s.BirthDate == nil || s.BirthDate.IsZero() {
			d.Unknown++
			continue
		}
		switch age := roster.AgeOn(*s.BirthDate, today); {
		case age <= 12:
			d.Children++
		case age < roster.AdultAge:
			d.Teens++
		default:
			d.Adults++
		}
	}
	return d
}

// StudentFrequency is one ranking line.
type StudentFrequency struct {
	Student       roster.Student `json:"student"`
	FrequencyRate float64        `json:"frequency_rate"`
	TotalClasses  int            `json:"total_classes"`
	PresentCount  int            `json:"present_count"`
}

// TopStudents ranks students with at least one mark in recs by rate, highest first. Ties keep
// the order of students. At most limit lines are returned.
func TopStudents(students []roster.Student, recs []attendance.Record, limit int) []StudentFrequency {
	byStudent := map[int64][]attendance.Record{}
	for _, r := range recs {
		byStudent[r.StudentID] = append(byStudent[r.StudentID], r)
	}
	out := []StudentFrequency{}
	for _, s := range students {
		mine := byStudent[s.ID]
		if len(mine) == 0 {
			continue
		}
		present := countPresent(mine)
		out = append(out, StudentFrequency{
			Student:       s,
			FrequencyRate: Rate(present, len(mine)),
			TotalClasses:  len(mine),
			PresentCount:  present,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FrequencyRate > out[j].FrequencyRate })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ClassFrequency is one class line.
type ClassFrequency struct {
	Class            roster.Class `json:"class"`
	FrequencyRate    float64      `json:"frequency_rate"`
	TotalAttendances int          `json:"total_attendances"`
	PresentCount     int          `json:"present_count"`
}

// ClassFrequencies reports every class with at least one mark in recs, in the order of classes.
func ClassFrequencies(classes []roster.Class, recs []attendance.Record) []ClassFrequency {
	byClass := map[int64][]attendance.Record{}
	for _, r := range recs {
		byClass[r.ClassID] = append(byClass[r.ClassID], r)
	}
	out := []ClassFrequency{}
	for _, c := range classes {
		mine := byClass[c.ID]
		if len(mine) == 0 {
			continue
		}
		present := countPresent(mine)
		out = append(out, ClassFrequency{
			Class:            c,
			FrequencyRate:    Rate(present, len(mine)),
			TotalAttendances: len(mine),
			PresentCount:     present,
		})
	}
	return out
}

// WeekdayBucket holds marks falling on one weekday.
type WeekdayBucket struct {
	Day     string `json:"day"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
	Total   int    `json:"total"`
}

// WeekdayDistribution always returns seven buckets, Monday through Sunday.
func WeekdayDistribution(recs []attendance.Record) []WeekdayBucket {
	out := make([]WeekdayBucket, len(WeekdayNames))
	for i, name := range WeekdayNames {
		out[i].Day = name
	}
	for _, r := range recs {
		b := &out[r.Date.WeekdayIndex()]
		if r.Present {
			b.Present++
		} else {
			b.Absent++
		}
		b.Total++
	}
	return out
}
