// Package handler contains the JSON HTTP handlers of the podcast API.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/podcaster/internal/auth"
	"github.com/DukeRupert/podcaster/internal/domain"
	"github.com/DukeRupert/podcaster/internal/service"
)

// =============================================================================
// Handler Configuration
// =============================================================================

// LoginAttempts clears a client's failed-login count.
type LoginAttempts interface {
	ResetFor(r *http.Request)
}

// AuthHandler handles registration, login and the caller's profile.
type AuthHandler struct {
	accounts service.AccountService
	attempts LoginAttempts
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. attempts may be nil.
func NewAuthHandler(accounts service.AccountService, attempts LoginAttempts, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		attempts: attempts,
		logger:   logger,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers the auth routes with the provided mux.
//
// Routes:
// - POST /auth/register -> Register (rate limited)
// - POST /auth/login    -> Login (rate limited)
// - GET  /me            -> Me (bearer)
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, requireAccount, rateLimit func(http.Handler) http.Handler) {
	mux.Handle("POST /auth/register", rateLimit(http.HandlerFunc(h.Register)))
	mux.Handle("POST /auth/login", rateLimit(http.HandlerFunc(h.Login)))
	mux.Handle("GET /me", requireAccount(http.HandlerFunc(h.Me)))
}

// =============================================================================
// Request / Response Types
// =============================================================================

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Plan     string `json:"plan"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// meUser is the account as /me reports it, with its episode count.
type meUser struct {
	*domain.Account
	Episodes int64 `json:"episodes"`
}

type meResponse struct {
	User       meUser            `json:"user"`
	PlanLimits domain.PlanLimits `json:"planLimits"`
}

// =============================================================================
// POST /auth/register
// =============================================================================

// Register creates an account and returns {token, user} with 201.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	const op = "handler.Register"

	var req registerRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	res, err := h.accounts.Register(r.Context(), domain.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
		Plan:     req.Plan,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// =============================================================================
// POST /auth/login
// =============================================================================

// Login returns {token, user} for valid credentials and clears the
// client's login attempt count.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "handler.Login"

	var req loginRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if h.attempts != nil {
		h.attempts.ResetFor(r)
	}

	writeJSON(w, http.StatusOK, res)
}

// =============================================================================
// GET /me
// =============================================================================

// Me returns the caller's account, episode count and plan limits.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	profile, err := h.accounts.Profile(r.Context(), identity.AccountID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		User:       meUser{Account: profile.Account, Episodes: profile.Episodes},
		PlanLimits: profile.PlanLimits,
	})
}
