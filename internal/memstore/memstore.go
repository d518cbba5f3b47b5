// Package memstore keeps every record in process memory. It backs tests and the
// STORE_BACKEND=memory development mode; nothing survives a restart.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"academy/internal/attendance"
	"academy/internal/dbtime"
	"academy/internal/identity"
	"academy/internal/roster"
	"academy/internal/store"
)

type state struct {
	users       map[int64]identity.User
	students    map[int64]roster.Student
	classes     map[int64]roster.Class
	enrollments map[int64]roster.Enrollment
	records     map[int64]attendance.Record
	seq         int64
}

func newState() state {
	return state{
		users:       map[int64]identity.User{},
		students:    map[int64]roster.Student{},
		classes:     map[int64]roster.Class{},
		enrollments: map[int64]roster.Enrollment{},
		records:     map[int64]attendance.Record{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s state) clone() state {
	return state{
		users:       cloneMap(s.users),
		students:    cloneMap(s.students),
		classes:     cloneMap(s.classes),
		enrollments: cloneMap(s.enrollments),
		records:     cloneMap(s.records),
		seq:         s.seq,
	}
}

// Store implements the identity, roster, attendance and reports store interfaces.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	st   state

	// Now stamps created_at style columns.
	Now func() time.Time
	// BeforeCommit, when set, runs at the end of InTx; an error rolls the transaction back.
	BeforeCommit func() error
}

// New returns an empty store.
func New() *Store {
	return &Store{st: newState(), Now: time.Now}
}

func (m *Store) nextID() int64 {
	m.st.seq++
	return m.st.seq
}

func uniqueErr(constraint string) error {
	return &store.ConstraintError{Constraint: constraint, Err: errors.New("duplicate key value")}
}

func sortedValues[V any](m map[int64]V, keep func(V) bool) []V {
	ids := make([]int64, 0, len(m))
	for id, v := range m {
		if keep == nil || keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]V, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

// InTx runs fn against the store and restores the previous contents when fn or BeforeCommit
// fails. Transactions are serialized; writes made outside a transaction while one is open are
// lost if it rolls back.
func (m *Store) InTx(ctx context.Context, fn func(attendance.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.st.clone()
	m.mu.Unlock()

	err := fn(m)
	if err == nil && m.BeforeCommit != nil {
		err = m.BeforeCommit()
	}
	if err != nil {
		m.mu.Lock()
		m.st = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

// Users

func (m *Store) CountUsers(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.users), nil
}

func (m *Store) checkUser(u *identity.User) error {
	for _, other := range m.st.users {
		if other.ID == u.ID {
			continue
		}
		if other.Username == u.Username {
			return identity.ErrDuplicateUsername
		}
		if other.Email == u.Email {
			return identity.ErrDuplicateEmail
		}
	}
	return nil
}

func (m *Store) CreateUser(ctx context.Context, u *identity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUser(u); err != nil {
		return err
	}
	u.ID = m.nextID()
	u.CreatedAt = m.Now().UTC()
	m.st.users[u.ID] = *u
	return nil
}

func (m *Store) findUser(match func(identity.User) bool) *identity.User {
	for _, u := range m.st.users {
		if match(u) {
			cp := u
			return &cp
		}
	}
	return nil
}

func (m *Store) GetUser(ctx context.Context, id int64) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findUser(func(u identity.User) bool { return u.ID == id }), nil
}

func (m *Store) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findUser(func(u identity.User) bool { return u.Username == username }), nil
}

func (m *Store) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findUser(func(u identity.User) bool { return u.Email == email }), nil
}

func (m *Store) ListUsers(ctx context.Context) ([]identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.st.users, nil), nil
}

func (m *Store) UpdateUser(ctx context.Context, u *identity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.users[u.ID]; !ok {
		return nil
	}
	if err := m.checkUser(u); err != nil {
		return err
	}
	m.st.users[u.ID] = *u
	return nil
}

func (m *Store) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.st.users[id]; ok {
		u.LastLogin = &at
		m.st.users[id] = u
	}
	return nil
}

func (m *Store) DeleteUser(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.st.users, id)
	for rid, r := range m.st.records {
		if r.RecordedBy != nil && *r.RecordedBy == id {
			r.RecordedBy = nil
			m.st.records[rid] = r
		}
	}
	return nil
}

func (m *Store) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.st.users {
		if u.Active && u.LastLogin != nil && !u.LastLogin.Before(since) {
			n++
		}
	}
	return n, nil
}

// Students and classes

func (m *Store) ListStudents(ctx context.Context, activeOnly bool) ([]roster.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.st.students, func(s roster.Student) bool { return !activeOnly || s.Active }), nil
}

func (m *Store) GetStudent(ctx context.Context, id int64) (*roster.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.st.students[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Store) CreateStudent(ctx context.Context, s *roster.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.nextID()
	s.RegistrationDate = m.Now().UTC()
	s.Active = true
	m.st.students[s.ID] = *s
	return nil
}

func (m *Store) UpdateStudent(ctx context.Context, s *roster.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.students[s.ID]; ok {
		m.st.students[s.ID] = *s
	}
	return nil
}

func (m *Store) ListClasses(ctx context.Context, activeOnly bool) ([]roster.Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.st.classes, func(c roster.Class) bool { return !activeOnly || c.Active }), nil
}

func (m *Store) GetClass(ctx context.Context, id int64) (*roster.Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.st.classes[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Store) CreateClass(ctx context.Context, c *roster.Class) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.nextID()
	c.CreatedAt = m.Now().UTC()
	c.Active = true
	m.st.classes[c.ID] = *c
	return nil
}

func (m *Store) UpdateClass(ctx context.Context, c *roster.Class) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.classes[c.ID]; ok {
		m.st.classes[c.ID] = *c
	}
	return nil
}

// Enrollments

func (m *Store) activeEnrollment(studentID, classID int64) *roster.Enrollment {
	for _, e := range sortedValues(m.st.enrollments, nil) {
		if e.Active && e.StudentID == studentID && e.ClassID == classID {
			return &e
		}
	}
	return nil
}

func (m *Store) ActiveEnrollment(ctx context.Context, studentID, classID int64) (*roster.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeEnrollment(studentID, classID), nil
}

func (m *Store) CountActiveEnrollments(ctx context.Context, classID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.st.enrollments {
		if e.Active && e.ClassID == classID {
			n++
		}
	}
	return n, nil
}

func (m *Store) CreateEnrollment(ctx context.Context, e *roster.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeEnrollment(e.StudentID, e.ClassID) != nil {
		return uniqueErr(store.ConstraintActiveEnrollment)
	}
	e.ID = m.nextID()
	e.EnrollmentDate = m.Now().UTC()
	e.Active = true
	m.st.enrollments[e.ID] = *e
	return nil
}

func (m *Store) DeactivateEnrollment(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.st.enrollments[id]; ok {
		e.Active = false
		m.st.enrollments[id] = e
	}
	return nil
}

func (m *Store) ClassRoster(ctx context.Context, classID int64) ([]roster.EnrolledStudent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []roster.EnrolledStudent
	for _, e := range sortedValues(m.st.enrollments, nil) {
		if !e.Active || e.ClassID != classID {
			continue
		}
		if s, ok := m.st.students[e.StudentID]; ok {
			out = append(out, roster.EnrolledStudent{Student: s, EnrollmentDate: e.EnrollmentDate})
		}
	}
	return out, nil
}

func (m *Store) StudentClasses(ctx context.Context, studentID int64) ([]roster.EnrolledClass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []roster.EnrolledClass
	for _, e := range sortedValues(m.st.enrollments, nil) {
		if !e.Active || e.StudentID != studentID {
			continue
		}
		if c, ok := m.st.classes[e.ClassID]; ok {
			out = append(out, roster.EnrolledClass{Class: c, EnrollmentDate: e.EnrollmentDate})
		}
	}
	return out, nil
}

// Attendance

func (m *Store) StudentExists(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.st.students[id]
	return ok, nil
}

func (m *Store) ClassExists(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.st.classes[id]
	return ok, nil
}

func (m *Store) IsEnrolled(ctx context.Context, studentID, classID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeEnrollment(studentID, classID) != nil, nil
}

func (m *Store) findRecord(studentID, classID int64, date dbtime.Date) *attendance.Record {
	for _, r := range m.st.records {
		if r.StudentID == studentID && r.ClassID == classID && r.Date == date {
			cp := r
			return &cp
		}
	}
	return nil
}

func (m *Store) FindByKey(ctx context.Context, studentID, classID int64, date dbtime.Date) (*attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findRecord(studentID, classID, date), nil
}

func (m *Store) GetRecord(ctx context.Context, id int64) (*attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.st.records[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *Store) InsertRecord(ctx context.Context, rec *attendance.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findRecord(rec.StudentID, rec.ClassID, rec.Date) != nil {
		return uniqueErr(store.ConstraintAttendanceKey)
	}
	rec.ID = m.nextID()
	m.st.records[rec.ID] = *rec
	return nil
}

func (m *Store) UpdateRecord(ctx context.Context, rec *attendance.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.records[rec.ID]; ok {
		m.st.records[rec.ID] = *rec
	}
	return nil
}

func (m *Store) DeleteRecord(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.st.records, id)
	return nil
}

// ListRecords orders by date descending, then id.
func (m *Store) ListRecords(ctx context.Context, f attendance.Filter) ([]attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := sortedValues(m.st.records, f.Match)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *Store) CountPresentOn(ctx context.Context, day dbtime.Date) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.st.records {
		if r.Present && r.Date == day {
			n++
		}
	}
	return n, nil
}
