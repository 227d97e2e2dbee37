package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/podcaster/internal/auth"
	"github.com/DukeRupert/podcaster/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockAuthenticator accepts exactly one token.
type mockAuthenticator struct {
	validToken string
	identity   *domain.Identity
	calls      int
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, token string) (*domain.Identity, error) {
	m.calls++
	if token != m.validToken {
		return nil, domain.Unauthorized("AccountService.Authenticate", "Invalid or expired token")
	}
	return m.identity, nil
}

func TestRequireAccount(t *testing.T) {
	identity := &domain.Identity{AccountID: uuid.New(), Email: "a@b.pl", Plan: "FREE"}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCalls  int
	}{
		{"valid token", "Bearer good", http.StatusOK, 1},
		{"lowercase scheme", "bearer good", http.StatusOK, 1},
		{"missing header", "", http.StatusUnauthorized, 0},
		{"wrong scheme", "Basic Z29vZA==", http.StatusUnauthorized, 0},
		{"empty token", "Bearer ", http.StatusUnauthorized, 0},
		{"invalid token", "Bearer forged", http.StatusUnauthorized, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authn := &mockAuthenticator{validToken: "good", identity: identity}
			mw := NewAuthMiddleware(authn, testLogger())

			var seen *domain.Identity
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = auth.GetIdentityFromRequest(r)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			mw.RequireAccount(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalls, authn.calls)
			if tt.wantStatus == http.StatusOK {
				require.NotNil(t, seen)
				assert.Equal(t, identity.AccountID, seen.AccountID)
			} else {
				assert.Nil(t, seen)
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestStack_Order(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Stack(mark("outer"), mark("inner"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
