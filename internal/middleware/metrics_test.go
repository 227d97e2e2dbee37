package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		user, pass string
		setAuth    bool
		reqUser    string
		reqPass    string
		wantStatus int
	}{
		{"valid credentials", "admin", "secret123", true, "admin", "secret123", http.StatusOK},
		{"no credentials", "admin", "secret123", false, "", "", http.StatusUnauthorized},
		{"wrong username", "admin", "secret123", true, "root", "secret123", http.StatusUnauthorized},
		{"wrong password", "admin", "secret123", true, "admin", "nope", http.StatusUnauthorized},
		{"empty credentials", "admin", "secret123", true, "", "", http.StatusUnauthorized},
		{"disabled", "", "", false, "", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewMetricsAuthMiddleware(tt.user, tt.pass, testLogger())
			h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("metrics data"))
			}))

			req := httptest.NewRequest("GET", "/metrics", nil)
			if tt.setAuth {
				req.SetBasicAuth(tt.reqUser, tt.reqPass)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="metrics"`, rec.Header().Get("WWW-Authenticate"))
				assert.NotContains(t, rec.Body.String(), "metrics data")
			}
		})
	}
}
