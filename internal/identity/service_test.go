package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"academy/internal/identity"
	"academy/internal/memstore"
)

func newService(t *testing.T) (*identity.Service, *memstore.Store) {
	t.Helper()
	ms := memstore.New()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	return identity.NewService(ms, identity.WithHashCost(bcrypt.MinCost), identity.WithClock(func() time.Time { return now })), ms
}

func register(t *testing.T, svc *identity.Service, username, email string) *identity.User {
	t.Helper()
	u, err := svc.Register(context.Background(), identity.NewUser{Username: username, Email: email, Password: "secret123"})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	u := register(t, svc, "maria", "maria@example.com")
	if u.Role != identity.RoleUser || !u.Active {
		t.Fatalf("unexpected defaults: %+v", u)
	}

	got, err := svc.Authenticate(ctx, " maria ", "secret123")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.LastLogin == nil {
		t.Fatal("last login not stamped")
	}
	if _, err := svc.Authenticate(ctx, "maria", "wrong-pass1"); !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody", "secret123"); !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Fatalf("unknown user: %v", err)
	}
}

func TestAuthenticateRejectsInactive(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	u := register(t, svc, "joao", "joao@example.com")
	inactive := false
	if _, err := svc.Update(ctx, u.ID, identity.Changes{Active: &inactive}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Authenticate(ctx, "joao", "secret123"); !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Fatalf("inactive user should not log in: %v", err)
	}
}

func TestRegisterDuplicatesAndPolicy(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	register(t, svc, "ana", "ana@example.com")

	cases := []struct {
		name string
		in   identity.NewUser
		want error
	}{
		{"username", identity.NewUser{Username: "ana", Email: "x@example.com", Password: "secret123"}, identity.ErrDuplicateUsername},
		{"email", identity.NewUser{Username: "ana2", Email: "ana@example.com", Password: "secret123"}, identity.ErrDuplicateEmail},
		{"short", identity.NewUser{Username: "b", Email: "b@example.com", Password: "a1"}, identity.ErrPasswordTooShort},
		{"no digit", identity.NewUser{Username: "c", Email: "c@example.com", Password: "abcdefgh"}, identity.ErrPasswordNoDigit},
		{"no letter", identity.NewUser{Username: "d", Email: "d@example.com", Password: "12345678"}, identity.ErrPasswordNoLetter},
		{"role", identity.NewUser{Username: "e", Email: "e@example.com", Password: "secret123", Role: "root"}, identity.ErrInvalidRole},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestUpdateUniquenessExcludesSelf(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	a := register(t, svc, "a", "a@example.com")
	register(t, svc, "b", "b@example.com")

	same := "a"
	if _, err := svc.Update(ctx, a.ID, identity.Changes{Username: &same}); err != nil {
		t.Fatalf("keeping own username: %v", err)
	}
	taken := "b@example.com"
	if _, err := svc.Update(ctx, a.ID, identity.Changes{Email: &taken}); !errors.Is(err, identity.ErrDuplicateEmail) {
		t.Fatalf("taken email: %v", err)
	}
	pw := "newpass99"
	if _, err := svc.Update(ctx, a.ID, identity.Changes{Password: &pw}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Authenticate(ctx, "a", pw); err != nil {
		t.Fatalf("reset password should work: %v", err)
	}
}

func TestChangePasswordOrder(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	u := register(t, svc, "carla", "carla@example.com")

	if err := svc.ChangePassword(ctx, u.ID, "bad-current1", "x"); !errors.Is(err, identity.ErrWrongPassword) {
		t.Fatalf("current password is checked first: %v", err)
	}
	if err := svc.ChangePassword(ctx, u.ID, "secret123", "short1"); !errors.Is(err, identity.ErrPasswordTooShort) {
		t.Fatalf("policy: %v", err)
	}
	if err := svc.ChangePassword(ctx, u.ID, "secret123", "secret123"); !errors.Is(err, identity.ErrSamePassword) {
		t.Fatalf("same password: %v", err)
	}
	if err := svc.ChangePassword(ctx, u.ID, "secret123", "another42"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Authenticate(ctx, "carla", "another42"); err != nil {
		t.Fatalf("new password: %v", err)
	}
}

func TestDeleteRefusesSelf(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	a := register(t, svc, "a", "a@example.com")
	b := register(t, svc, "b", "b@example.com")

	if err := svc.Delete(ctx, a.ID, a.ID); !errors.Is(err, identity.ErrSelfDelete) {
		t.Fatalf("self delete: %v", err)
	}
	if err := svc.Delete(ctx, a.ID, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, b.ID); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("deleted user still there: %v", err)
	}
	if err := svc.Delete(ctx, a.ID, 999); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("unknown id: %v", err)
	}
}

func TestEnsureDefaultAdminOnlyWhenEmpty(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.EnsureDefaultAdmin(ctx, "admin123")
	if err != nil || !created {
		t.Fatalf("first seed: created=%v err=%v", created, err)
	}
	admin, err := svc.Authenticate(ctx, "admin", "admin123")
	if err != nil {
		t.Fatal(err)
	}
	if !admin.IsAdmin() {
		t.Fatal("seeded account must be admin")
	}
	created, err = svc.EnsureDefaultAdmin(ctx, "admin123")
	if err != nil || created {
		t.Fatalf("second seed: created=%v err=%v", created, err)
	}
}

func TestCountActiveSince(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	register(t, svc, "a", "a@example.com")
	register(t, svc, "b", "b@example.com")
	if _, err := svc.Authenticate(ctx, "a", "secret123"); err != nil {
		t.Fatal(err)
	}
	n, err := svc.CountActiveSince(ctx, time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC))
	if err != nil || n != 1 {
		t.Fatalf("active users = %d, err %v", n, err)
	}
}
