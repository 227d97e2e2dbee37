// Package service contains the business logic layer.
//
// Services orchestrate interactions between the repository, the blob store
// gateway and domain logic. They are responsible for:
// - Input validation
// - Plan limit enforcement
// - Transaction coordination
// - Error translation (database errors -> domain errors)
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/DukeRupert/podcaster/internal/domain"
	"github.com/DukeRupert/podcaster/internal/metrics"
	"github.com/DukeRupert/podcaster/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	BcryptCost = 12

	// MaxPasswordLength is the bcrypt input limit.
	MaxPasswordLength = 72
)

// dummyHash is compared against when an email is unknown so that login
// takes the same time either way.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// =============================================================================
// Interface Definition
// =============================================================================

// AccountService registers and authenticates podcasters.
type AccountService interface {
	// Register creates an account and signs a session token for it.
	// Returns domain.ECONFLICT if the email is taken and domain.EINVALID for
	// missing fields or an unknown plan.
	Register(ctx context.Context, params domain.RegisterParams) (*domain.AuthResult, error)

	// Login checks credentials and signs a session token.
	// Returns domain.EUNAUTHORIZED for any credential mismatch.
	Login(ctx context.Context, email, password string) (*domain.AuthResult, error)

	// Authenticate resolves a bearer token to the caller's identity.
	// Returns domain.EUNAUTHORIZED for missing, invalid or expired tokens.
	Authenticate(ctx context.Context, token string) (*domain.Identity, error)

	// GetByID returns an account. Returns domain.ENOTFOUND if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// Profile returns the account with its episode count and plan limits.
	Profile(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
}

// =============================================================================
// Implementation
// =============================================================================

type accountService struct {
	queries  repository.Querier
	tokens   *TokenIssuer
	plans    *domain.PlanRegistry
	logger   *slog.Logger
	hashCost int
}

// NewAccountService creates a new AccountService.
func NewAccountService(queries repository.Querier, tokens *TokenIssuer, plans *domain.PlanRegistry, logger *slog.Logger) AccountService {
	return &accountService{
		queries:  queries,
		tokens:   tokens,
		plans:    plans,
		logger:   logger,
		hashCost: BcryptCost,
	}
}

// Register creates a new account.
//
// Emails are trimmed and lower-cased, passwords trimmed. The plan name is
// upper-cased; an unknown plan is a request error rather than a fallback.
func (s *accountService) Register(ctx context.Context, params domain.RegisterParams) (*domain.AuthResult, error) {
	const op = "AccountService.Register"

	email := strings.ToLower(strings.TrimSpace(params.Email))
	password := strings.TrimSpace(params.Password)

	if email == "" || password == "" {
		return nil, domain.Invalid(op, "Email and password are required")
	}
	if len(password) > MaxPasswordLength {
		return nil, domain.Invalid(op, "Password must be 72 characters or less")
	}

	plan, ok := s.plans.Lookup(params.Plan)
	if !ok {
		return nil, domain.Invalid(op, "Unknown plan: "+params.Plan)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to hash password")
	}

	row, err := s.queries.CreateUser(ctx, repository.CreateUserParams{
		Email:        email,
		PasswordHash: string(hash),
		Plan:         plan,
	})
	if err != nil {
		if repository.IsUniqueViolation(err, repository.UsersEmailKey) {
			return nil, domain.Conflict(op, "Email already registered")
		}
		s.logger.Error("failed to create account", "error", err, "op", op)
		return nil, domain.Internal(err, op, "Failed to create account")
	}

	account := repoUserToDomain(row)
	token, err := s.tokens.Issue(account)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to issue session token")
	}

	metrics.AccountsRegistered.WithLabelValues(plan).Inc()
	s.logger.Info("account registered", "user_id", account.ID, "plan", plan)

	account.PasswordHash = ""
	return &domain.AuthResult{Token: token, Account: account}, nil
}

// Login authenticates by email and password.
func (s *accountService) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	const op = "AccountService.Login"

	email = strings.ToLower(strings.TrimSpace(email))
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return nil, domain.Invalid(op, "Email and password are required")
	}

	row, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, domain.Unauthorized(op, "Invalid email or password")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve account")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized(op, "Invalid email or password")
	}

	account := repoUserToDomain(row)
	token, err := s.tokens.Issue(account)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to issue session token")
	}

	s.logger.Info("account logged in", "user_id", account.ID)

	account.PasswordHash = ""
	return &domain.AuthResult{Token: token, Account: account}, nil
}

// Authenticate verifies a session token. It does not touch the database;
// operations that need the account row load it themselves.
func (s *accountService) Authenticate(ctx context.Context, token string) (*domain.Identity, error) {
	const op = "AccountService.Authenticate"

	if token == "" {
		return nil, domain.Unauthorized(op, "Missing bearer token")
	}

	identity, err := s.tokens.Verify(token)
	if err != nil {
		return nil, domain.Wrap(err, domain.EUNAUTHORIZED, op, "Invalid or expired token")
	}
	return identity, nil
}

// GetByID retrieves an account by its ID.
func (s *accountService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	const op = "AccountService.GetByID"

	row, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve account")
	}

	account := repoUserToDomain(row)
	account.PasswordHash = ""
	return account, nil
}

// Profile assembles the /me view.
func (s *accountService) Profile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	const op = "AccountService.Profile"

	account, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	episodes, err := s.queries.CountEpisodesByUser(ctx, id)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to count episodes")
	}

	return &domain.Profile{
		Account:    account,
		Episodes:   episodes,
		PlanLimits: s.plans.LimitsFor(account.Plan),
	}, nil
}
