package reports

import (
	"context"
	"time"

	"academy/internal/attendance"
	"academy/internal/dbtime"
	"academy/internal/metrics"
	"academy/internal/roster"
)

// Roster reads students and classes.
type Roster interface {
	ListStudents(ctx context.Context, activeOnly bool) ([]roster.Student, error)
	GetStudent(ctx context.Context, id int64) (*roster.Student, error)
	ListClasses(ctx context.Context, activeOnly bool) ([]roster.Class, error)
}

// Ledger reads attendance marks.
type Ledger interface {
	ListRecords(ctx context.Context, f attendance.Filter) ([]attendance.Record, error)
	CountPresentOn(ctx context.Context, day dbtime.Date) (int, error)
}

// Accounts counts recently active users.
type Accounts interface {
	CountActiveSince(ctx context.Context, since time.Time) (int, error)
}

// Service builds read-only statistics over the roster and the ledger.
type Service struct {
	roster   Roster
	ledger   Ledger
	accounts Accounts
	now      func() time.Time
	loc      *time.Location
}

// NewService wires report sources. "Today" is evaluated in loc.
func NewService(r Roster, l Ledger, a Accounts, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{roster: r, ledger: l, accounts: a, now: time.Now, loc: loc}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Today is the current server-local date.
func (s *Service) Today() dbtime.Date { return dbtime.Today(s.now(), s.loc) }

// Window resolves optional query bounds against today.
func (s *Service) Window(start, end string) (Window, error) {
	return ResolveWindow(start, end, s.Today())
}

func (s *Service) records(ctx context.Context, w Window, studentID *int64) ([]attendance.Record, error) {
	f := attendance.Filter{StudentID: studentID, From: &w.Start, To: &w.End}
	recs, err := s.ledger.ListRecords(ctx, f)
	if recs == nil {
		recs = []attendance.Record{}
	}
	return recs, err
}

// FrequencyReport is a single student's attendance over a window.
type FrequencyReport struct {
	Student            roster.Student      `json:"student"`
	Period             Window              `json:"period"`
	Summary            Summary             `json:"summary"`
	MonthlyData        []MonthBucket       `json:"monthly_data"`
	DetailedAttendance []attendance.Record `json:"detailed_attendance"`
}

// Frequency reports one student. Inactive students are still reported.
func (s *Service) Frequency(ctx context.Context, studentID int64, w Window) (*FrequencyReport, error) {
	defer metrics.ObserveReport("frequency", time.Now())

	st, err := s.roster.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, roster.ErrStudentNotFound
	}
	st.Derive(s.Today())

	recs, err := s.records(ctx, w, &studentID)
	if err != nil {
		return nil, err
	}
	return &FrequencyReport{
		Student:            *st,
		Period:             w,
		Summary:            Summarize(recs),
		MonthlyData:        Monthly(recs),
		DetailedAttendance: recs,
	}, nil
}

// Overview holds system-wide counters for a window.
type Overview struct {
	TotalStudents    int     `json:"total_students"`
	TotalClasses     int     `json:"total_classes"`
	TotalAttendances int     `json:"total_attendances"`
	PresentCount     int     `json:"present_count"`
	AbsentCount      int     `json:"absent_count"`
	OverallFrequency float64 `json:"overall_frequency"`
}

// GeneralStats is the system-wide report.
type GeneralStats struct {
	Period              Window             `json:"period"`
	Overview            Overview           `json:"overview"`
	AgeDistribution     AgeDistribution    `json:"age_distribution"`
	TopStudents         []StudentFrequency `json:"top_students"`
	ClassFrequencies    []ClassFrequency   `json:"class_frequencies"`
	WeekdayDistribution []WeekdayBucket    `json:"weekday_distribution"`
}

// General aggregates every mark in the window. Rankings consider active students and classes only.
func (s *Service) General(ctx context.Context, w Window) (*GeneralStats, error) {
	defer metrics.ObserveReport("general", time.Now())

	today := s.Today()
	students, err := s.roster.ListStudents(ctx, true)
	if err != nil {
		return nil, err
	}
	for i := range students {
		students[i].Derive(today)
	}
	classes, err := s.roster.ListClasses(ctx, true)
	if err != nil {
		return nil, err
	}
	recs, err := s.records(ctx, w, nil)
	if err != nil {
		return nil, err
	}

	sum := Summarize(recs)
	return &GeneralStats{
		Period: w,
		Overview: Overview{
			TotalStudents:    len(students),
			TotalClasses:     len(classes),
			TotalAttendances: sum.TotalClasses,
			PresentCount:     sum.PresentCount,
			AbsentCount:      sum.AbsentCount,
			OverallFrequency: sum.FrequencyRate,
		},
		AgeDistribution:     AgeBuckets(students, today),
		TopStudents:         TopStudents(students, recs, TopStudentsLimit),
		ClassFrequencies:    ClassFrequencies(classes, recs),
		WeekdayDistribution: WeekdayDistribution(recs),
	}, nil
}

// Dashboard is a windowless snapshot.
type Dashboard struct {
	TotalStudents   int `json:"total_students"`
	TotalClasses    int `json:"total_classes"`
	TodayAttendance int `json:"today_attendance"`
	ActiveUsers     int `json:"active_users"`
}

// ActiveUserSpan is how recent a login must be for a user to count as active.
const ActiveUserSpan = DefaultSpanDays * 24 * time.Hour

// Dashboard counts active students and classes, present marks dated today and users who logged in
// during the last thirty days.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	defer metrics.ObserveReport("dashboard", time.Now())

	students, err := s.roster.ListStudents(ctx, true)
	if err != nil {
		return nil, err
	}
	classes, err := s.roster.ListClasses(ctx, true)
	if err != nil {
		return nil, err
	}
	present, err := s.ledger.CountPresentOn(ctx, s.Today())
	if err != nil {
		return nil, err
	}
	active, err := s.accounts.CountActiveSince(ctx, s.now().Add(-ActiveUserSpan))
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		TotalStudents:   len(students),
		TotalClasses:    len(classes),
		TodayAttendance: present,
		ActiveUsers:     active,
	}, nil
}
