package identity

import (
	"errors"
	"time"
)

// Role is the authorization level of an account.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

// User is an operator account.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FullName     *string    `json:"full_name"`
	Role         Role       `json:"role"`
	Active       bool       `json:"active"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

var (
	ErrNotFound           = errors.New("user not found")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrSamePassword       = errors.New("new password must be different from the current password")
	ErrSelfDelete         = errors.New("cannot delete your own account")
	ErrInvalidRole        = errors.New("role must be admin or user")
)
