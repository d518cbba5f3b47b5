package store

import "context"

// Constraint names referenced by repositories when translating unique violations.
const (
	ConstraintUsersUsername    = "users_username_key"
	ConstraintUsersEmail       = "users_email_key"
	ConstraintActiveEnrollment = "uq_student_classes_active"
	ConstraintAttendanceKey    = "uq_attendances_student_class_date"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      VARCHAR(80)  NOT NULL CONSTRAINT users_username_key UNIQUE,
	email         VARCHAR(120) NOT NULL CONSTRAINT users_email_key UNIQUE,
	password_hash TEXT         NOT NULL,
	full_name     VARCHAR(120),
	role          VARCHAR(20)  NOT NULL DEFAULT 'user',
	active        BOOLEAN      NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
	last_login    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS students (
	id                    BIGSERIAL PRIMARY KEY,
	name                  VARCHAR(100) NOT NULL,
	birth_date            DATE,
	phone                 VARCHAR(20),
	email                 VARCHAR(120),
	address               TEXT,
	cord_level            VARCHAR(50),
	registration_date     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	active                BOOLEAN     NOT NULL DEFAULT TRUE,
	guardian_name         VARCHAR(100),
	guardian_email        VARCHAR(120),
	guardian_phone        VARCHAR(20),
	guardian_cpf          VARCHAR(14),
	guardian_address      TEXT,
	guardian_relationship VARCHAR(50)
);

CREATE TABLE IF NOT EXISTS classes (
	id           BIGSERIAL PRIMARY KEY,
	name         VARCHAR(100) NOT NULL,
	description  TEXT,
	day_of_week  SMALLINT     NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
	start_time   TIME         NOT NULL,
	end_time     TIME         NOT NULL,
	instructor   VARCHAR(100),
	location     VARCHAR(200),
	max_students INTEGER,
	active       BOOLEAN      NOT NULL DEFAULT TRUE,
	created_at   TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
	CHECK (start_time < end_time)
);

CREATE TABLE IF NOT EXISTS student_classes (
	id              BIGSERIAL PRIMARY KEY,
	student_id      BIGINT      NOT NULL REFERENCES students(id) ON DELETE CASCADE,
	class_id        BIGINT      NOT NULL REFERENCES classes(id) ON DELETE CASCADE,
	enrollment_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	active          BOOLEAN     NOT NULL DEFAULT TRUE
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_student_classes_active
	ON student_classes(student_id, class_id) WHERE active;

CREATE TABLE IF NOT EXISTS attendances (
	id          BIGSERIAL PRIMARY KEY,
	student_id  BIGINT      NOT NULL REFERENCES students(id) ON DELETE CASCADE,
	class_id    BIGINT      NOT NULL REFERENCES classes(id) ON DELETE CASCADE,
	date        DATE        NOT NULL,
	present     BOOLEAN     NOT NULL DEFAULT TRUE,
	notes       TEXT,
	recorded_by BIGINT      REFERENCES users(id) ON DELETE SET NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT uq_attendances_student_class_date UNIQUE (student_id, class_id, date)
);

CREATE INDEX IF NOT EXISTS idx_attendances_date  ON attendances(date);
CREATE INDEX IF NOT EXISTS idx_attendances_class ON attendances(class_id);
`

// Migrate creates the schema when it does not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.Client.ExecContext(ctx, schema)
	return err
}
