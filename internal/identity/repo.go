package identity

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"academy/internal/store"
)

// Repository persists users in Postgres.
type Repository struct {
	db store.DBTX
}

// NewRepository creates a repo.
func NewRepository(db store.DBTX) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, username, email, full_name, role, active, password_hash, created_at, last_login`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &role, &u.Active, &u.PasswordHash, &u.CreatedAt, &u.LastLogin)
	u.Role = Role(role)
	return u, err
}

func (r *Repository) getOne(ctx context.Context, query string, arg any) (*User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// CountUsers returns the number of accounts.
func (r *Repository) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// CreateUser inserts u and fills its id and created_at.
func (r *Repository) CreateUser(ctx context.Context, u *User) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, full_name, role, active, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, u.Username, u.Email, u.FullName, string(u.Role), u.Active, u.PasswordHash)
	return translate(row.Scan(&u.ID, &u.CreatedAt))
}

// GetUser returns nil when no user has the id.
func (r *Repository) GetUser(ctx context.Context, id int64) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByUsername returns nil when the username is unknown.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// FindByEmail returns nil when the email is unknown.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// ListUsers returns all accounts ordered by id.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser writes every mutable column of u.
func (r *Repository) UpdateUser(ctx context.Context, u *User) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET username = $2, email = $3, full_name = $4, role = $5, active = $6, password_hash = $7
		WHERE id = $1
	`, u.ID, u.Username, u.Email, u.FullName, string(u.Role), u.Active, u.PasswordHash)
	return translate(err)
}

// TouchLastLogin stamps a successful login.
func (r *Repository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	return err
}

// DeleteUser removes the account row.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

// CountActiveSince counts active accounts whose last login is at or after since.
func (r *Repository) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users WHERE active = TRUE AND last_login >= $1
	`, since).Scan(&n)
	return n, err
}

func translate(err error) error {
	if name, ok := store.UniqueConstraint(err); ok {
		switch name {
		case store.ConstraintUsersUsername:
			return ErrDuplicateUsername
		case store.ConstraintUsersEmail:
			return ErrDuplicateEmail
		}
	}
	return store.Translate(err)
}
