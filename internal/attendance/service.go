package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"academy/internal/dbtime"
	"academy/internal/metrics"
	"academy/internal/roster"
	"academy/internal/store"
)

// Store is the persistence surface of the ledger.
type Store interface {
	StudentExists(ctx context.Context, id int64) (bool, error)
	ClassExists(ctx context.Context, id int64) (bool, error)
	IsEnrolled(ctx context.Context, studentID, classID int64) (bool, error)
	FindByKey(ctx context.Context, studentID, classID int64, date dbtime.Date) (*Record, error)
	GetRecord(ctx context.Context, id int64) (*Record, error)
	InsertRecord(ctx context.Context, rec *Record) error
	UpdateRecord(ctx context.Context, rec *Record) error
	DeleteRecord(ctx context.Context, id int64) error
	ListRecords(ctx context.Context, f Filter) ([]Record, error)
	InTx(ctx context.Context, fn func(Store) error) error
}

// RosterReader lists a class's active enrollments.
type RosterReader interface {
	Roster(ctx context.Context, classID int64) ([]roster.EnrolledStudent, error)
}

// Service coordinates attendance upserts and lookups.
type Service struct {
	store  Store
	roster RosterReader
	now    func() time.Time
	log    zerolog.Logger
}

// NewService creates a service backed by a store.
func NewService(store Store, rr RosterReader, log zerolog.Logger) *Service {
	return &Service{store: store, roster: rr, now: time.Now, log: log}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) stamp(rec *Record, recorder int64) {
	rec.RecordedBy = &recorder
	rec.RecordedAt = s.now().UTC()
}

// write inserts or overwrites the record keyed by (student, class, date).
func (s *Service) write(ctx context.Context, st Store, m Mark, recorder int64) (Record, Outcome, error) {
	existing, err := st.FindByKey(ctx, m.StudentID, m.ClassID, m.Date)
	if err != nil {
		return Record{}, "", err
	}
	if existing != nil {
		existing.Present = m.Present
		existing.Notes = m.Notes
		s.stamp(existing, recorder)
		if err := st.UpdateRecord(ctx, existing); err != nil {
			return Record{}, "", err
		}
		return *existing, Updated, nil
	}
	rec := Record{StudentID: m.StudentID, ClassID: m.ClassID, Date: m.Date, Present: m.Present, Notes: m.Notes}
	s.stamp(&rec, recorder)
	if err := st.InsertRecord(ctx, &rec); err != nil {
		return Record{}, "", err
	}
	return rec, Created, nil
}

// Upsert validates the student, class and enrollment, then writes the mark. When a concurrent
// writer inserts the same key first, the unique index rejects the insert and the write is
// retried once as an update.
func (s *Service) Upsert(ctx context.Context, m Mark, recorder int64) (Record, Outcome, error) {
	ok, err := s.store.StudentExists(ctx, m.StudentID)
	if err != nil {
		return Record{}, "", err
	}
	if !ok {
		return Record{}, "", roster.ErrStudentNotFound
	}
	if ok, err = s.store.ClassExists(ctx, m.ClassID); err != nil {
		return Record{}, "", err
	} else if !ok {
		return Record{}, "", roster.ErrClassNotFound
	}
	if ok, err = s.store.IsEnrolled(ctx, m.StudentID, m.ClassID); err != nil {
		return Record{}, "", err
	} else if !ok {
		metrics.AttendanceWrites.WithLabelValues("rejected").Inc()
		return Record{}, "", ErrNotEnrolled
	}

	rec, outcome, err := s.write(ctx, s.store, m, recorder)
	if errors.Is(err, store.ErrUniqueViolation) {
		s.log.Warn().Int64("student_id", m.StudentID).Int64("class_id", m.ClassID).
			Str("date", m.Date.String()).Msg("attendance insert lost race, retrying as update")
		rec, outcome, err = s.write(ctx, s.store, m, recorder)
	}
	if err != nil {
		return Record{}, "", fmt.Errorf("upsert attendance: %w", err)
	}
	metrics.AttendanceWrites.WithLabelValues(string(outcome)).Inc()
	return rec, outcome, nil
}

// BulkUpsert marks many students of one class on one date. Invalid entries are reported inline
// and do not stop the batch. All writes commit together: a storage failure rolls back every
// entry, including ones already reported as created or updated.
func (s *Service) BulkUpsert(ctx context.Context, classID int64, date dbtime.Date, entries []Entry, recorder int64) ([]BulkResult, error) {
	ok, err := s.store.ClassExists(ctx, classID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, roster.ErrClassNotFound
	}

	var results []BulkResult
	err = s.store.InTx(ctx, func(tx Store) error {
		results = results[:0]
		for _, e := range entries {
			if e.StudentID == 0 {
				continue
			}
			res, err := s.bulkEntry(ctx, tx, classID, date, e, recorder)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bulk attendance: %w", err)
	}

	for _, r := range results {
		if r.Status != "" {
			metrics.AttendanceWrites.WithLabelValues(string(r.Status)).Inc()
		} else {
			metrics.AttendanceWrites.WithLabelValues("rejected").Inc()
		}
	}
	if results == nil {
		results = []BulkResult{}
	}
	return results, nil
}

func (s *Service) bulkEntry(ctx context.Context, tx Store, classID int64, date dbtime.Date, e Entry, recorder int64) (BulkResult, error) {
	res := BulkResult{StudentID: e.StudentID}
	ok, err := tx.StudentExists(ctx, e.StudentID)
	if err != nil {
		return res, err
	}
	if !ok {
		res.Error = msgStudentNotFound
		return res, nil
	}
	if ok, err = tx.IsEnrolled(ctx, e.StudentID, classID); err != nil {
		return res, err
	} else if !ok {
		res.Error = msgNotEnrolled
		return res, nil
	}
	rec, outcome, err := s.write(ctx, tx, Mark{StudentID: e.StudentID, ClassID: classID, Date: date, Present: e.Present, Notes: e.Notes}, recorder)
	if err != nil {
		return res, err
	}
	res.Status = outcome
	res.Attendance = &rec
	return res, nil
}

// Get returns ErrNotFound for unknown ids.
func (s *Service) Get(ctx context.Context, id int64) (*Record, error) {
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Update changes presence and notes when given and always re-stamps the recorder.
func (s *Service) Update(ctx context.Context, id int64, present *bool, notes *string, recorder int64) (*Record, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if present != nil {
		rec.Present = *present
	}
	if notes != nil {
		rec.Notes = notes
	}
	s.stamp(rec, recorder)
	if err := s.store.UpdateRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete hard-deletes a record.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteRecord(ctx, id)
}

// List returns records matching f, newest date first.
func (s *Service) List(ctx context.Context, f Filter) ([]Record, error) {
	recs, err := s.store.ListRecords(ctx, f)
	if recs == nil {
		recs = []Record{}
	}
	return recs, err
}

// Sheet lists every student actively enrolled in the class with their mark for date, or nil.
// Unknown classes yield an empty sheet.
func (s *Service) Sheet(ctx context.Context, classID int64, date dbtime.Date) ([]SheetEntry, error) {
	enrolled, err := s.roster.Roster(ctx, classID)
	if err != nil {
		return nil, err
	}
	sheet := make([]SheetEntry, 0, len(enrolled))
	for _, es := range enrolled {
		rec, err := s.store.FindByKey(ctx, es.ID, classID, date)
		if err != nil {
			return nil, err
		}
		sheet = append(sheet, SheetEntry{Student: es.Student, Attendance: rec})
	}
	return sheet, nil
}
