package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LOGIN_MAX_FAILURES", "")
	t.Setenv("LOGIN_FAILURE_WINDOW", "")

	cfg := Load()
	if cfg.LoginMaxFailures != 5 {
		t.Errorf("LoginMaxFailures = %d", cfg.LoginMaxFailures)
	}
	if cfg.LoginFailureWindow != 15*time.Minute {
		t.Errorf("LoginFailureWindow = %s", cfg.LoginFailureWindow)
	}
}

func TestLoadOverridesAndFallbacks(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("RATE_LIMIT_PER_MIN", "not-a-number")
	t.Setenv("ACCESS_TTL", "90m")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("SESSION_SECURE", "true")

	cfg := Load()
	if !cfg.Production() {
		t.Error("APP_ENV=production should be production")
	}
	if cfg.RateLimitPerMin != 120 {
		t.Errorf("bad int should fall back, got %d", cfg.RateLimitPerMin)
	}
	if cfg.AccessTTL != 90*time.Minute {
		t.Errorf("AccessTTL = %s", cfg.AccessTTL)
	}
	if !cfg.SessionSecure {
		t.Error("SESSION_SECURE=true should enable secure cookies")
	}
	if cfg.Location() != time.UTC {
		t.Errorf("Location = %s", cfg.Location())
	}
}
