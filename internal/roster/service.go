package roster

import (
	"context"
	"errors"
	"strings"
	"time"

	"academy/internal/dbtime"
	"academy/internal/store"
)

// Store is the persistence surface the roster service needs.
type Store interface {
	ListStudents(ctx context.Context, activeOnly bool) ([]Student, error)
	GetStudent(ctx context.Context, id int64) (*Student, error)
	CreateStudent(ctx context.Context, s *Student) error
	UpdateStudent(ctx context.Context, s *Student) error

	ListClasses(ctx context.Context, activeOnly bool) ([]Class, error)
	GetClass(ctx context.Context, id int64) (*Class, error)
	CreateClass(ctx context.Context, c *Class) error
	UpdateClass(ctx context.Context, c *Class) error

	ActiveEnrollment(ctx context.Context, studentID, classID int64) (*Enrollment, error)
	CountActiveEnrollments(ctx context.Context, classID int64) (int, error)
	CreateEnrollment(ctx context.Context, e *Enrollment) error
	DeactivateEnrollment(ctx context.Context, id int64) error
	ClassRoster(ctx context.Context, classID int64) ([]EnrolledStudent, error)
	StudentClasses(ctx context.Context, studentID int64) ([]EnrolledClass, error)
}

// Service manages students, classes and enrollments.
type Service struct {
	store Store
	now   func() time.Time
	loc   *time.Location
}

// NewService creates a roster service. Ages are derived against today's date in loc.
func NewService(store Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, now: time.Now, loc: loc}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) today() dbtime.Date { return dbtime.Today(s.now(), s.loc) }

// StudentFields carries optional student attributes. For updates nil means unchanged.
type StudentFields struct {
	Name                 *string
	BirthDate            *dbtime.Date
	Phone                *string
	Email                *string
	Address              *string
	CordLevel            *string
	GuardianName         *string
	GuardianEmail        *string
	GuardianPhone        *string
	GuardianCPF          *string
	GuardianAddress      *string
	GuardianRelationship *string
}

func (f StudentFields) apply(st *Student) {
	set := func(dst **string, v *string) {
		if v != nil {
			*dst = v
		}
	}
	if f.Name != nil {
		st.Name = *f.Name
	}
	if f.BirthDate != nil {
		st.BirthDate = f.BirthDate
	}
	set(&st.Phone, f.Phone)
	set(&st.Email, f.Email)
	set(&st.Address, f.Address)
	set(&st.CordLevel, f.CordLevel)
	set(&st.GuardianName, f.GuardianName)
	set(&st.GuardianEmail, f.GuardianEmail)
	set(&st.GuardianPhone, f.GuardianPhone)
	set(&st.GuardianCPF, f.GuardianCPF)
	set(&st.GuardianAddress, f.GuardianAddress)
	set(&st.GuardianRelationship, f.GuardianRelationship)
}

func requireName(name *string) error {
	if name == nil || strings.TrimSpace(*name) == "" {
		return &ValidationError{Field: "name", Message: "Name is required"}
	}
	return nil
}

// ListStudents returns active students.
func (s *Service) ListStudents(ctx context.Context) ([]Student, error) {
	students, err := s.store.ListStudents(ctx, true)
	if err != nil {
		return nil, err
	}
	today := s.today()
	for i := range students {
		students[i].Derive(today)
	}
	if students == nil {
		students = []Student{}
	}
	return students, nil
}

// CreateStudent requires a name.
func (s *Service) CreateStudent(ctx context.Context, in StudentFields) (*Student, error) {
	if err := requireName(in.Name); err != nil {
		return nil, err
	}
	st := &Student{}
	in.apply(st)
	if err := s.store.CreateStudent(ctx, st); err != nil {
		return nil, err
	}
	st.Derive(s.today())
	return st, nil
}

// GetStudent returns ErrStudentNotFound for unknown ids.
func (s *Service) GetStudent(ctx context.Context, id int64) (*Student, error) {
	st, err := s.store.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrStudentNotFound
	}
	st.Derive(s.today())
	return st, nil
}

// UpdateStudent applies a partial update. An empty name is rejected.
func (s *Service) UpdateStudent(ctx context.Context, id int64, in StudentFields) (*Student, error) {
	st, err := s.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if err := requireName(in.Name); err != nil {
			return nil, err
		}
	}
	in.apply(st)
	if err := s.store.UpdateStudent(ctx, st); err != nil {
		return nil, err
	}
	st.Derive(s.today())
	return st, nil
}

// DeactivateStudent soft-deletes a student.
func (s *Service) DeactivateStudent(ctx context.Context, id int64) error {
	st, err := s.GetStudent(ctx, id)
	if err != nil {
		return err
	}
	st.Active = false
	return s.store.UpdateStudent(ctx, st)
}

// StudentClasses lists the classes a student is actively enrolled in.
func (s *Service) StudentClasses(ctx context.Context, studentID int64) ([]EnrolledClass, error) {
	if _, err := s.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	classes, err := s.store.StudentClasses(ctx, studentID)
	if classes == nil {
		classes = []EnrolledClass{}
	}
	return classes, err
}

// ClassFields carries optional class attributes. For updates nil means unchanged.
type ClassFields struct {
	Name        *string
	Description *string
	DayOfWeek   *int
	StartTime   *dbtime.Tod
	EndTime     *dbtime.Tod
	Instructor  *string
	Location    *string
	MaxStudents *int
}

func (f ClassFields) apply(c *Class) {
	if f.Name != nil {
		c.Name = *f.Name
	}
	if f.Description != nil {
		c.Description = f.Description
	}
	if f.DayOfWeek != nil {
		c.DayOfWeek = *f.DayOfWeek
	}
	if f.StartTime != nil {
		c.StartTime = *f.StartTime
	}
	if f.EndTime != nil {
		c.EndTime = *f.EndTime
	}
	if f.Instructor != nil {
		c.Instructor = f.Instructor
	}
	if f.Location != nil {
		c.Location = f.Location
	}
	if f.MaxStudents != nil {
		c.MaxStudents = f.MaxStudents
	}
}

func validWeekday(d *int) error {
	if d == nil || *d < 0 || *d > 6 {
		return &ValidationError{Field: "day_of_week", Message: "day_of_week must be between 0 (Monday) and 6 (Sunday)"}
	}
	return nil
}

// ListClasses returns active classes ordered by id.
func (s *Service) ListClasses(ctx context.Context) ([]Class, error) {
	classes, err := s.store.ListClasses(ctx, true)
	if classes == nil {
		classes = []Class{}
	}
	return classes, err
}

// CreateClass requires a name, both times, a weekday in 0..6 and start before end.
func (s *Service) CreateClass(ctx context.Context, in ClassFields) (*Class, error) {
	if err := requireName(in.Name); err != nil {
		return nil, err
	}
	if in.StartTime == nil || in.EndTime == nil {
		return nil, &ValidationError{Field: "start_time", Message: "Invalid time format. Use HH:MM"}
	}
	if err := validWeekday(in.DayOfWeek); err != nil {
		return nil, err
	}
	if !in.StartTime.Before(*in.EndTime) {
		return nil, ErrInvalidSchedule
	}
	c := &Class{}
	in.apply(c)
	if err := s.store.CreateClass(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetClass returns ErrClassNotFound for unknown ids.
func (s *Service) GetClass(ctx context.Context, id int64) (*Class, error) {
	c, err := s.store.GetClass(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrClassNotFound
	}
	return c, nil
}

// UpdateClass applies a partial update and re-checks weekday range and time order.
func (s *Service) UpdateClass(ctx context.Context, id int64, in ClassFields) (*Class, error) {
	c, err := s.GetClass(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.DayOfWeek != nil {
		if err := validWeekday(in.DayOfWeek); err != nil {
			return nil, err
		}
	}
	if in.Name != nil {
		if err := requireName(in.Name); err != nil {
			return nil, err
		}
	}
	in.apply(c)
	if !c.StartTime.Before(c.EndTime) {
		return nil, ErrInvalidSchedule
	}
	if err := s.store.UpdateClass(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeactivateClass soft-deletes a class.
func (s *Service) DeactivateClass(ctx context.Context, id int64) error {
	c, err := s.GetClass(ctx, id)
	if err != nil {
		return err
	}
	c.Active = false
	return s.store.UpdateClass(ctx, c)
}

// ClassStudents lists students actively enrolled in the class.
func (s *Service) ClassStudents(ctx context.Context, classID int64) ([]EnrolledStudent, error) {
	if _, err := s.GetClass(ctx, classID); err != nil {
		return nil, err
	}
	return s.Roster(ctx, classID)
}

// Roster lists active enrollments of a class without checking that the class exists.
func (s *Service) Roster(ctx context.Context, classID int64) ([]EnrolledStudent, error) {
	students, err := s.store.ClassRoster(ctx, classID)
	if err != nil {
		return nil, err
	}
	today := s.today()
	for i := range students {
		students[i].Derive(today)
	}
	if students == nil {
		students = []EnrolledStudent{}
	}
	return students, nil
}

// Enroll adds a student to a class. The duplicate and capacity checks read before writing,
// so concurrent requests may race; the partial unique index turns a lost duplicate race into
// ErrAlreadyEnrolled, while capacity may be overshot.
func (s *Service) Enroll(ctx context.Context, classID, studentID int64) (*Enrollment, error) {
	c, err := s.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	existing, err := s.store.ActiveEnrollment(ctx, studentID, classID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyEnrolled
	}
	if c.Limited() {
		n, err := s.store.CountActiveEnrollments(ctx, classID)
		if err != nil {
			return nil, err
		}
		if n >= *c.MaxStudents {
			return nil, ErrClassFull
		}
	}
	e := &Enrollment{StudentID: studentID, ClassID: classID}
	if err := s.store.CreateEnrollment(ctx, e); err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, err
	}
	return e, nil
}

// Unenroll deactivates the active enrollment of the pair.
func (s *Service) Unenroll(ctx context.Context, classID, studentID int64) error {
	e, err := s.store.ActiveEnrollment(ctx, studentID, classID)
	if err != nil {
		return err
	}
	if e == nil {
		return ErrEnrollmentNotFound
	}
	return s.store.DeactivateEnrollment(ctx, e.ID)
}
