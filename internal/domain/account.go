// Package domain contains core business types and interfaces.
//
// This file defines the Account domain type and related types for
// authentication. These types are separate from the repository models to
// decouple the domain layer from the database layer.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account is a registered podcaster.
//
// StorageUsed is the authoritative byte counter: the sum of cover and audio
// bytes over every episode the account currently owns. It is maintained
// incrementally and never derived at read time.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose this in API responses
	Plan         string    `json:"plan"`
	StorageUsed  int64     `json:"storage_used"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is what a verified session token says about its bearer.
type Identity struct {
	AccountID uuid.UUID
	Email     string
	Plan      string
}

// RegisterParams contains the parameters for account registration.
type RegisterParams struct {
	Email    string
	Password string // Raw password, hashed by the service
	Plan     string // Optional; defaults to the registry's default plan
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token   string   `json:"token"`
	Account *Account `json:"user"`
}

// Profile is the /me view of an account.
type Profile struct {
	Account    *Account
	Episodes   int64
	PlanLimits PlanLimits
}
