package roster

import (
	"context"
	"database/sql"
	"errors"

	"academy/internal/store"
)

// Repository persists students, classes and enrollments in Postgres.
type Repository struct {
	db store.DBTX
}

// NewRepository creates a repo.
func NewRepository(db store.DBTX) *Repository {
	return &Repository{db: db}
}

const studentColumns = `s.id, s.name, s.birth_date, s.phone, s.email, s.address, s.cord_level, s.registration_date,
	s.active, s.guardian_name, s.guardian_email, s.guardian_phone, s.guardian_cpf, s.guardian_address,
	s.guardian_relationship`

const classColumns = `c.id, c.name, c.description, c.day_of_week, c.start_time, c.end_time, c.instructor,
	c.location, c.max_students, c.active, c.created_at`

func studentDest(s *Student) []any {
	return []any{&s.ID, &s.Name, &s.BirthDate, &s.Phone, &s.Email, &s.Address, &s.CordLevel, &s.RegistrationDate,
		&s.Active, &s.GuardianName, &s.GuardianEmail, &s.GuardianPhone, &s.GuardianCPF, &s.GuardianAddress,
		&s.GuardianRelationship}
}

func classDest(c *Class) []any {
	return []any{&c.ID, &c.Name, &c.Description, &c.DayOfWeek, &c.StartTime, &c.EndTime, &c.Instructor,
		&c.Location, &c.MaxStudents, &c.Active, &c.CreatedAt}
}

// ListStudents returns students ordered by id, optionally only active ones.
func (r *Repository) ListStudents(ctx context.Context, activeOnly bool) ([]Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students s`
	if activeOnly {
		query += ` WHERE s.active = TRUE`
	}
	rows, err := r.db.QueryContext(ctx, query+` ORDER BY s.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(studentDest(&s)...); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// GetStudent returns nil when the id is unknown. Inactive students are returned.
func (r *Repository) GetStudent(ctx context.Context, id int64) (*Student, error) {
	var s Student
	err := r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students s WHERE s.id = $1`, id).
		Scan(studentDest(&s)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// CreateStudent inserts s and fills id, registration date and active flag.
func (r *Repository) CreateStudent(ctx context.Context, s *Student) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO students (name, birth_date, phone, email, address, cord_level, guardian_name, guardian_email,
			guardian_phone, guardian_cpf, guardian_address, guardian_relationship)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id, registration_date, active
	`, s.Name, s.BirthDate, s.Phone, s.Email, s.Address, s.CordLevel, s.GuardianName, s.GuardianEmail,
		s.GuardianPhone, s.GuardianCPF, s.GuardianAddress, s.GuardianRelationship,
	).Scan(&s.ID, &s.RegistrationDate, &s.Active)
}

// UpdateStudent writes every mutable column of s, including the active flag.
func (r *Repository) UpdateStudent(ctx context.Context, s *Student) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE students
		SET name = $2, birth_date = $3, phone = $4, email = $5, address = $6, cord_level = $7, active = $8,
			guardian_name = $9, guardian_email = $10, guardian_phone = $11, guardian_cpf = $12,
			guardian_address = $13, guardian_relationship = $14
		WHERE id = $1
	`, s.ID, s.Name, s.BirthDate, s.Phone, s.Email, s.Address, s.CordLevel, s.Active, s.GuardianName,
		s.GuardianEmail, s.GuardianPhone, s.GuardianCPF, s.GuardianAddress, s.GuardianRelationship)
	return err
}

// ListClasses returns classes ordered by id, optionally only active ones.
func (r *Repository) ListClasses(ctx context.Context, activeOnly bool) ([]Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes c`
	if activeOnly {
		query += ` WHERE c.active = TRUE`
	}
	rows, err := r.db.QueryContext(ctx, query+` ORDER BY c.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []Class
	for rows.Next() {
		var c Class
		if err := rows.Scan(classDest(&c)...); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// GetClass returns nil when the id is unknown. Inactive classes are returned.
func (r *Repository) GetClass(ctx context.Context, id int64) (*Class, error) {
	var c Class
	err := r.db.QueryRowContext(ctx, `SELECT `+classColumns+` FROM classes c WHERE c.id = $1`, id).
		Scan(classDest(&c)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// CreateClass inserts c and fills id, created_at and active flag.
func (r *Repository) CreateClass(ctx context.Context, c *Class) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO classes (name, description, day_of_week, start_time, end_time, instructor, location, max_students)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, created_at, active
	`, c.Name, c.Description, c.DayOfWeek, c.StartTime, c.EndTime, c.Instructor, c.Location, c.MaxStudents,
	).Scan(&c.ID, &c.CreatedAt, &c.Active)
}

// UpdateClass writes every mutable column of c.
func (r *Repository) UpdateClass(ctx context.Context, c *Class) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE classes
		SET name = $2, description = $3, day_of_week = $4, start_time = $5, end_time = $6, instructor = $7,
			location = $8, max_students = $9, active = $10
		WHERE id = $1
	`, c.ID, c.Name, c.Description, c.DayOfWeek, c.StartTime, c.EndTime, c.Instructor, c.Location,
		c.MaxStudents, c.Active)
	return err
}

// ActiveEnrollment returns the active enrollment for the pair, or nil.
func (r *Repository) ActiveEnrollment(ctx context.Context, studentID, classID int64) (*Enrollment, error) {
	var e Enrollment
	err := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, class_id, enrollment_date, active
		FROM student_classes
		WHERE student_id = $1 AND class_id = $2 AND active = TRUE
		ORDER BY id LIMIT 1
	`, studentID, classID).Scan(&e.ID, &e.StudentID, &e.ClassID, &e.EnrollmentDate, &e.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// CountActiveEnrollments counts active enrollments in a class.
func (r *Repository) CountActiveEnrollments(ctx context.Context, classID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM student_classes WHERE class_id = $1 AND active = TRUE
	`, classID).Scan(&n)
	return n, err
}

// CreateEnrollment inserts a new active enrollment row.
func (r *Repository) CreateEnrollment(ctx context.Context, e *Enrollment) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO student_classes (student_id, class_id)
		VALUES ($1, $2)
		RETURNING id, enrollment_date, active
	`, e.StudentID, e.ClassID).Scan(&e.ID, &e.EnrollmentDate, &e.Active)
	return store.Translate(err)
}

// DeactivateEnrollment flips an enrollment to inactive.
func (r *Repository) DeactivateEnrollment(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE student_classes SET active = FALSE WHERE id = $1`, id)
	return err
}

// ClassRoster lists students with an active enrollment in the class, in enrollment order.
func (r *Repository) ClassRoster(ctx context.Context, classID int64) ([]EnrolledStudent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+studentColumns+`, sc.enrollment_date
		FROM student_classes sc
		JOIN students s ON s.id = sc.student_id
		WHERE sc.class_id = $1 AND sc.active = TRUE
		ORDER BY sc.id
	`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EnrolledStudent
	for rows.Next() {
		var es EnrolledStudent
		if err := rows.Scan(append(studentDest(&es.Student), &es.EnrollmentDate)...); err != nil {
			return nil, err
		}
		out = append(out, es)
	}
	return out, rows.Err()
}

// StudentClasses lists classes the student is actively enrolled in, in enrollment order.
func (r *Repository) StudentClasses(ctx context.Context, studentID int64) ([]EnrolledClass, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+classColumns+`, sc.enrollment_date
		FROM student_classes sc
		JOIN classes c ON c.id = sc.class_id
		WHERE sc.student_id = $1 AND sc.active = TRUE
		ORDER BY sc.id
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EnrolledClass
	for rows.Next() {
		var ec EnrolledClass
		if err := rows.Scan(append(classDest(&ec.Class), &ec.EnrollmentDate)...); err != nil {
			return nil, err
		}
		out = append(out, ec)
	}
	return out, rows.Err()
}
