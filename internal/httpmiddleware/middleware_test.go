package httpmiddleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func init() { gin.SetMode(gin.TestMode) }

func TestTokenBucketRefill(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	l := NewTokenBucket(2, 60)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if l.Allow("a") {
		t.Fatal("third request should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("keys are independent")
	}
	now = now.Add(time.Minute)
	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("bucket should refill after a minute")
	}
	if l.Allow("a") {
		t.Fatal("refill is capped at capacity")
	}
}

func TestTokenBucketMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(NewTokenBucket(1, 1).GinMiddleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 2)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}

func TestMemoryAttemptsSlidingWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	m := NewMemoryAttempts(3, 15*time.Minute)
	m.SetClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		if blocked, _ := m.Blocked(ctx, "ip"); blocked {
			t.Fatalf("blocked after %d failures", i)
		}
		_ = m.RecordFailure(ctx, "ip")
		now = now.Add(time.Minute)
	}
	if blocked, _ := m.Blocked(ctx, "ip"); !blocked {
		t.Fatal("should be blocked after 3 failures")
	}
	if blocked, _ := m.Blocked(ctx, "other"); blocked {
		t.Fatal("other key must not be blocked")
	}

	// first failure was at 10:00; at 10:15 it leaves the window
	now = time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC)
	if blocked, _ := m.Blocked(ctx, "ip"); blocked {
		t.Fatal("oldest failure should have expired")
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/x", func(c *gin.Context) { seen = GetRequestID(c) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)
	if seen != "abc-123" || w.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("propagated id = %q / %q", seen, w.Header().Get(RequestIDHeader))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if len(seen) != 36 || w.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("generated id = %q", seen)
	}
}

func TestAccessLogSkipsPaths(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(AccessLog(zerolog.New(&buf), "/healthz"))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/x", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if buf.Len() != 0 {
		t.Fatalf("health check logged: %s", buf.String())
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/x", nil))
	line := buf.String()
	if !strings.Contains(line, `"level":"warn"`) || !strings.Contains(line, `"status":404`) || !strings.Contains(line, `"path":"/api/x"`) {
		t.Fatalf("access line = %s", line)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS(), SecurityHeaders())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("origin = %q", w.Header().Get("Access-Control-Allow-Origin"))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Header().Get("X-Frame-Options") != "DENY" || w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("security headers = %v", w.Header())
	}
}
