package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T, max int, window time.Duration) (*RateLimiter, *time.Time) {
	t.Helper()
	rl := NewRateLimiter(max, window)
	t.Cleanup(rl.Stop)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiter_Allow(t *testing.T) {
	rl, now := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("1.2.3.4"), "attempt %d", i+1)
	}
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "other keys are counted separately")

	assert.Equal(t, time.Minute, rl.TimeUntilReset("1.2.3.4"))

	*now = now.Add(time.Minute + time.Second)
	assert.True(t, rl.Allow("1.2.3.4"), "window expired")
	assert.Equal(t, time.Duration(0), rl.TimeUntilReset("unknown"))
}

func TestRateLimiter_Reset(t *testing.T) {
	rl, _ := newTestLimiter(t, 1, time.Minute)

	assert.True(t, rl.Allow("k"))
	assert.False(t, rl.Allow("k"))
	rl.Reset("k")
	assert.True(t, rl.Allow("k"))
}

func TestRateLimiter_StopTwice(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}

func TestRateLimitMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 2, 15*time.Minute)
	mw := NewRateLimitMiddleware(rl, testLogger())
	h := mw.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(path, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", path, nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("/auth/login", "203.0.113.9").Code)
	assert.Equal(t, http.StatusOK, do("/auth/login", "203.0.113.9").Code)

	rec := do("/auth/login", "203.0.113.9")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "900", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"code":"rate_limit"`)

	assert.Equal(t, http.StatusOK, do("/auth/register", "203.0.113.9").Code, "routes are limited separately")
	assert.Equal(t, http.StatusOK, do("/auth/login", "198.51.100.7").Code, "clients are limited separately")
}

func TestRateLimitMiddleware_ResetFor(t *testing.T) {
	rl, _ := newTestLimiter(t, 1, 15*time.Minute)
	mw := NewRateLimitMiddleware(rl, testLogger())
	h := mw.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mw.ResetFor(r)
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/auth/login", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "attempt %d", i+1)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		realIP string
		remote string
		wantIP string
	}{
		{"forwarded chain", "203.0.113.1, 10.0.0.1", "", "10.0.0.2:1234", "203.0.113.1"},
		{"real ip", "", " 198.51.100.3 ", "10.0.0.2:1234", "198.51.100.3"},
		{"remote addr", "", "", "192.0.2.10:5555", "192.0.2.10"},
		{"remote without port", "", "", "192.0.2.11", "192.0.2.11"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.wantIP, getClientIP(req))
		})
	}
}
