package roster

import (
	"errors"
	"time"

	"academy/internal/dbtime"
)

// AdultAge is the age at which a student stops being a minor.
const AdultAge = 18

// Student is an academy member. Age and IsMinor are derived, never stored.
type Student struct {
	ID                   int64        `json:"id"`
	Name                 string       `json:"name"`
	BirthDate            *dbtime.Date `json:"birth_date"`
	Age                  *int         `json:"age"`
	Phone                *string      `json:"phone"`
	Email                *string      `json:"email"`
	Address              *string      `json:"address"`
	CordLevel            *string      `json:"cord_level"`
	RegistrationDate     time.Time    `json:"registration_date"`
	Active               bool         `json:"active"`
	IsMinor              bool         `json:"is_minor"`
	GuardianName         *string      `json:"guardian_name"`
	GuardianEmail        *string      `json:"guardian_email"`
	GuardianPhone        *string      `json:"guardian_phone"`
	GuardianCPF          *string      `json:"guardian_cpf"`
	GuardianAddress      *string      `json:"guardian_address"`
	GuardianRelationship *string      `json:"guardian_relationship"`
}

// AgeOn returns completed years between birth and today. The year only counts once today's
// month/day reaches the birthday.
func AgeOn(birth, today dbtime.Date) int {
	age := today.Year - birth.Year
	if today.Month < birth.Month || (today.Month == birth.Month && today.Day < birth.Day) {
		age--
	}
	return age
}

// Derive fills Age and IsMinor relative to today.
func (s *Student) Derive(today dbtime.Date) {
	if s.BirthDate == nil || s.BirthDate.IsZero() {
		s.Age = nil
		s.IsMinor = false
		return
	}
	age := AgeOn(*s.BirthDate, today)
	s.Age = &age
	s.IsMinor = age < AdultAge
}

// Class is a weekly schedule slot.
type Class struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	DayOfWeek   int        `json:"day_of_week"`
	StartTime   dbtime.Tod `json:"start_time"`
	EndTime     dbtime.Tod `json:"end_time"`
	Instructor  *string    `json:"instructor"`
	Location    *string    `json:"location"`
	MaxStudents *int       `json:"max_students"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_date"`
}

// Limited reports whether the class has a capacity. Zero means unlimited, like null.
func (c Class) Limited() bool { return c.MaxStudents != nil && *c.MaxStudents > 0 }

// Enrollment links a student to a class. Removal flips Active; re-enrolling adds a new row.
type Enrollment struct {
	ID             int64     `json:"id"`
	StudentID      int64     `json:"student_id"`
	ClassID        int64     `json:"class_id"`
	EnrollmentDate time.Time `json:"enrollment_date"`
	Active         bool      `json:"active"`
}

// EnrolledStudent is a class roster line.
type EnrolledStudent struct {
	Student
	EnrollmentDate time.Time `json:"enrollment_date"`
}

// EnrolledClass is a student schedule line.
type EnrolledClass struct {
	Class
	EnrollmentDate time.Time `json:"enrollment_date"`
}

var (
	ErrStudentNotFound    = errors.New("student not found")
	ErrClassNotFound      = errors.New("class not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrAlreadyEnrolled    = errors.New("student already enrolled in this class")
	ErrClassFull          = errors.New("class is full")
	ErrInvalidSchedule    = errors.New("start time must be before end time")
)

// ValidationError reports a malformed or missing input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
