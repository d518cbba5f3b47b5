package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"academy/internal/dbtime"
	"academy/internal/store"
)

// Repository persists attendance records in Postgres.
type Repository struct {
	db   store.DBTX
	pool *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, pool: db}
}

const recordColumns = `id, student_id, class_id, date, present, notes, recorded_by, recorded_at`

func scanRecord(row interface{ Scan(...any) error }) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.StudentID, &rec.ClassID, &rec.Date, &rec.Present, &rec.Notes, &rec.RecordedBy, &rec.RecordedAt)
	return rec, err
}

// InTx runs fn against a repository bound to one transaction. Nested calls reuse the open transaction.
func (r *Repository) InTx(ctx context.Context, fn func(Store) error) error {
	if r.pool == nil {
		return fn(r)
	}
	return store.WithTx(ctx, r.pool, func(tx *sql.Tx) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&ok)
	return ok, err
}

// StudentExists ignores the active flag.
func (r *Repository) StudentExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM students WHERE id = $1)`, id)
}

// ClassExists ignores the active flag.
func (r *Repository) ClassExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM classes WHERE id = $1)`, id)
}

// IsEnrolled reports an active enrollment for the pair.
func (r *Repository) IsEnrolled(ctx context.Context, studentID, classID int64) (bool, error) {
	return r.exists(ctx, `
		SELECT EXISTS (SELECT 1 FROM student_classes WHERE student_id = $1 AND class_id = $2 AND active = TRUE)
	`, studentID, classID)
}

func (r *Repository) getOne(ctx context.Context, query string, args ...any) (*Record, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// FindByKey returns the record for (student, class, date), or nil.
func (r *Repository) FindByKey(ctx context.Context, studentID, classID int64, date dbtime.Date) (*Record, error) {
	return r.getOne(ctx, `
		SELECT `+recordColumns+` FROM attendances
		WHERE student_id = $1 AND class_id = $2 AND date = $3
	`, studentID, classID, date)
}

// GetRecord returns nil when the id is unknown.
func (r *Repository) GetRecord(ctx context.Context, id int64) (*Record, error) {
	return r.getOne(ctx, `SELECT `+recordColumns+` FROM attendances WHERE id = $1`, id)
}

// InsertRecord writes rec and fills its id. A duplicate key surfaces as store.ErrUniqueViolation.
func (r *Repository) InsertRecord(ctx context.Context, rec *Record) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO attendances (student_id, class_id, date, present, notes, recorded_by, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`, rec.StudentID, rec.ClassID, rec.Date, rec.Present, rec.Notes, rec.RecordedBy, rec.RecordedAt).Scan(&rec.ID)
	return store.Translate(err)
}

// UpdateRecord overwrites presence, notes and recorder of rec.
func (r *Repository) UpdateRecord(ctx context.Context, rec *Record) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attendances
		SET present = $2, notes = $3, recorded_by = $4, recorded_at = $5
		WHERE id = $1
	`, rec.ID, rec.Present, rec.Notes, rec.RecordedBy, rec.RecordedAt)
	return err
}

// DeleteRecord removes the row.
func (r *Repository) DeleteRecord(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM attendances WHERE id = $1`, id)
	return err
}

// ListRecords returns records matching f, newest date first.
func (r *Repository) ListRecords(ctx context.Context, f Filter) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM attendances`
	args := []any{}
	clauses := []string{}
	add := func(clause string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.StudentID != nil {
		add("student_id = $%d", *f.StudentID)
	}
	if f.ClassID != nil {
		add("class_id = $%d", *f.ClassID)
	}
	if f.Date != nil {
		add("date = $%d", *f.Date)
	}
	if f.Ranged() {
		add("date >= $%d", *f.From)
		add("date <= $%d", *f.To)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY date DESC, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// CountPresentOn counts present marks dated day.
func (r *Repository) CountPresentOn(ctx context.Context, day dbtime.Date) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attendances WHERE date = $1 AND present = TRUE
	`, day).Scan(&n)
	return n, err
}
