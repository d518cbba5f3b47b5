package attendance

import (
	"errors"
	"time"

	"academy/internal/dbtime"
	"academy/internal/roster"
)

// Record is one attendance mark, unique per (student, class, date).
type Record struct {
	ID         int64       `json:"id"`
	StudentID  int64       `json:"student_id"`
	ClassID    int64       `json:"class_id"`
	Date       dbtime.Date `json:"date"`
	Present    bool        `json:"present"`
	Notes      *string     `json:"notes"`
	RecordedBy *int64      `json:"recorded_by"`
	RecordedAt time.Time   `json:"recorded_at"`
}

// Filter narrows a record listing. From and To apply only when both are set.
type Filter struct {
	StudentID *int64
	ClassID   *int64
	Date      *dbtime.Date
	From      *dbtime.Date
	To        *dbtime.Date
}

// Ranged reports whether the date range applies.
func (f Filter) Ranged() bool { return f.From != nil && f.To != nil }

// Match reports whether r passes every set criterion.
func (f Filter) Match(r Record) bool {
	if f.StudentID != nil && r.StudentID != *f.StudentID {
		return false
	}
	if f.ClassID != nil && r.ClassID != *f.ClassID {
		return false
	}
	if f.Date != nil && r.Date != *f.Date {
		return false
	}
	if f.Ranged() && !r.Date.Between(*f.From, *f.To) {
		return false
	}
	return true
}

// Outcome tells whether an upsert inserted or overwrote a record.
type Outcome string

const (
	Created Outcome = "created"
	Updated Outcome = "updated"
)

// Mark is the input of a single upsert.
type Mark struct {
	StudentID int64
	ClassID   int64
	Date      dbtime.Date
	Present   bool
	Notes     *string
}

// Entry is one line of a bulk upsert. StudentID zero means the line is skipped.
type Entry struct {
	StudentID int64
	Present   bool
	Notes     *string
}

// BulkResult reports what happened to one bulk entry.
type BulkResult struct {
	StudentID  int64   `json:"student_id"`
	Status     Outcome `json:"status,omitempty"`
	Error      string  `json:"error,omitempty"`
	Attendance *Record `json:"attendance,omitempty"`
}

// SheetEntry is an enrolled student with their mark for one class date, if any.
type SheetEntry struct {
	roster.Student
	Attendance *Record `json:"attendance"`
}

var (
	ErrNotFound    = errors.New("attendance record not found")
	ErrNotEnrolled = errors.New("student is not enrolled in this class")
)

// Bulk result messages.
const (
	msgStudentNotFound = "Student not found"
	msgNotEnrolled     = "Student not enrolled in this class"
)
