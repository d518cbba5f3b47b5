package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Store is the persistence surface the service needs.
type Store interface {
	CountUsers(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id int64) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, u *User) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	DeleteUser(ctx context.Context, id int64) error
	CountActiveSince(ctx context.Context, since time.Time) (int, error)
}

// Service owns account lifecycle and credential checks.
type Service struct {
	store    Store
	now      func() time.Time
	hashCost int
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHashCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// NewService creates a service backed by a store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now, hashCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewUser is the input for Register and Create.
type NewUser struct {
	Username string
	Email    string
	Password string
	FullName *string
	Role     Role
}

// Changes is a partial update; nil fields are left untouched.
type Changes struct {
	Username *string
	Email    *string
	FullName *string
	Role     *Role
	Active   *bool
	Password *string
}

// Authenticate verifies credentials against an active account and stamps the login time.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.store.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if u == nil || !u.Active || !checkPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	now := s.now().UTC()
	if err := s.store.TouchLastLogin(ctx, u.ID, now); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	u.LastLogin = &now
	return u, nil
}

// Register creates an account after uniqueness and password policy checks.
func (s *Service) Register(ctx context.Context, in NewUser) (*User, error) {
	if in.Role == "" {
		in.Role = RoleUser
	}
	if !in.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if err := s.ensureUnique(ctx, 0, in.Username, in.Email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password, s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		Role:         in.Role,
		Active:       true,
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) ensureUnique(ctx context.Context, selfID int64, username, email string) error {
	if username != "" {
		existing, err := s.store.FindByUsername(ctx, username)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != selfID {
			return ErrDuplicateUsername
		}
	}
	if email != "" {
		existing, err := s.store.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != selfID {
			return ErrDuplicateEmail
		}
	}
	return nil
}

// Get returns ErrNotFound when the id is unknown.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	users, err := s.store.ListUsers(ctx)
	if users == nil {
		users = []User{}
	}
	return users, err
}

// Update applies a partial change set. A supplied password replaces the current one after the policy check.
func (s *Service) Update(ctx context.Context, id int64, ch Changes) (*User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var username, email string
	if ch.Username != nil && *ch.Username != u.Username {
		username = *ch.Username
	}
	if ch.Email != nil && *ch.Email != u.Email {
		email = *ch.Email
	}
	if err := s.ensureUnique(ctx, u.ID, username, email); err != nil {
		return nil, err
	}
	if username != "" {
		u.Username = username
	}
	if email != "" {
		u.Email = email
	}
	if ch.FullName != nil {
		u.FullName = ch.FullName
	}
	if ch.Role != nil {
		if !ch.Role.Valid() {
			return nil, ErrInvalidRole
		}
		u.Role = *ch.Role
	}
	if ch.Active != nil {
		u.Active = *ch.Active
	}
	if ch.Password != nil && *ch.Password != "" {
		if err := ValidatePassword(*ch.Password); err != nil {
			return nil, err
		}
		hash, err := hashPassword(*ch.Password, s.hashCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	}
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Delete removes an account. actorID is the caller, who may not delete themselves.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if u.ID == actorID {
		return ErrSelfDelete
	}
	return s.store.DeleteUser(ctx, u.ID)
}

// ChangePassword checks the current password, the policy, and that the new one differs.
func (s *Service) ChangePassword(ctx context.Context, id int64, current, next string) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !checkPassword(u.PasswordHash, current) {
		return ErrWrongPassword
	}
	if err := ValidatePassword(next); err != nil {
		return err
	}
	if checkPassword(u.PasswordHash, next) {
		return ErrSamePassword
	}
	hash, err := hashPassword(next, s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	return s.store.UpdateUser(ctx, u)
}

// CountActiveSince counts active accounts that logged in at or after since.
func (s *Service) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	return s.store.CountActiveSince(ctx, since)
}

// EnsureDefaultAdmin seeds an admin account when there are no users at all.
// The seed password bypasses the policy so operators can pick a short bootstrap secret.
func (s *Service) EnsureDefaultAdmin(ctx context.Context, password string) (bool, error) {
	n, err := s.store.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	hash, err := hashPassword(password, s.hashCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	name := "Administrador"
	u := &User{
		Username:     "admin",
		Email:        "admin@academy.local",
		FullName:     &name,
		Role:         RoleAdmin,
		Active:       true,
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return false, err
	}
	return true, nil
}
