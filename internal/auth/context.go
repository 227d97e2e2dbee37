// Package auth provides authentication context helpers.
//
// This package is designed to be imported by both middleware and handler
// packages without causing import cycles.
package auth

import (
	"context"
	"net/http"

	"github.com/DukeRupert/podcaster/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// identityContextKey is the key used to store the caller's identity in context.
	identityContextKey contextKey = "identity"
)

// GetIdentity retrieves the authenticated caller from the context.
//
// Returns nil if the request carried no valid bearer token.
//
// Usage:
//
//	id := auth.GetIdentity(r.Context())
//	if id == nil {
//	    // Handle unauthenticated request
//	}
func GetIdentity(ctx context.Context) *domain.Identity {
	id, ok := ctx.Value(identityContextKey).(*domain.Identity)
	if !ok {
		return nil
	}
	return id
}

// GetIdentityFromRequest retrieves the authenticated caller from the request context.
func GetIdentityFromRequest(r *http.Request) *domain.Identity {
	return GetIdentity(r.Context())
}

// SetIdentity stores the caller's identity in the context.
//
// This is called by the bearer authentication middleware after verifying
// a session token.
func SetIdentity(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}
