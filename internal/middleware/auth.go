// Package middleware contains HTTP middleware for the podcast API.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler.
// They are designed to be composed using a middleware stack approach.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/DukeRupert/podcaster/internal/auth"
	"github.com/DukeRupert/podcaster/internal/domain"
	"github.com/DukeRupert/podcaster/internal/handler"
)

// Authenticator verifies a bearer token. service.AccountService satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Identity, error)
}

// =============================================================================
// Auth Middleware Configuration
// =============================================================================

// AuthMiddleware provides bearer-token authentication.
type AuthMiddleware struct {
	accounts Authenticator
	logger   *slog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(accounts Authenticator, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		accounts: accounts,
		logger:   logger,
	}
}

// =============================================================================
// RequireAccount Middleware
// =============================================================================

// RequireAccount rejects requests without a valid "Authorization: Bearer"
// token with 401. On success the verified identity is stored in the request
// context, where handlers read it with auth.GetIdentityFromRequest.
//
// Flow:
//
//	Request -> RequireAccount -> Handler
//	           |
//	           +-> Read Authorization header
//	           +-> Verify token (no database access)
//	           +-> If invalid: 401 JSON
//	           +-> Set identity in context, call next handler
func (m *AuthMiddleware) RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			handler.ErrorResponse(w, r, m.logger, domain.Unauthorized("middleware.RequireAccount", "Missing bearer token"))
			return
		}

		identity, err := m.accounts.Authenticate(r.Context(), token)
		if err != nil {
			m.logger.Debug("rejected bearer token", "error", err, "path", r.URL.Path)
			handler.ErrorResponse(w, r, m.logger, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.SetIdentity(r.Context(), identity)))
	})
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// =============================================================================
// Middleware Stack Helpers
// =============================================================================

// Stack composes multiple middleware functions into a single middleware.
//
// Middleware is applied in the order provided, meaning the first middleware
// in the slice is the outermost (runs first on request, last on response).
//
// Example:
//
//	stack := Stack(securityHeaders, requestLogging)
//	server.Handler = stack(mux)
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

var _ func(http.Handler) http.Handler = (&AuthMiddleware{}).RequireAccount
