package service

import (
	"context"
	"strings"
	"testing"

	"github.com/DukeRupert/podcaster/internal/domain"
	"github.com/DukeRupert/podcaster/internal/repository/repotest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAccountService(t *testing.T) (*accountService, *repotest.Store) {
	t.Helper()
	store := repotest.NewStore()
	svc := NewAccountService(store, NewTokenIssuer("test-secret", 0), domain.NewDefaultPlanRegistry(), testLogger()).(*accountService)
	svc.hashCost = bcrypt.MinCost
	return svc, store
}

// =============================================================================
// Register / Login
// =============================================================================

func TestRegister(t *testing.T) {
	svc, _ := newTestAccountService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, domain.RegisterParams{
		Email:    "  Host@Example.COM ",
		Password: " password123 ",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "host@example.com", res.Account.Email)
	assert.Equal(t, domain.PlanFree, res.Account.Plan)
	assert.Equal(t, int64(0), res.Account.StorageUsed)
	assert.Empty(t, res.Account.PasswordHash)

	// The trimmed password is what was hashed.
	_, err = svc.Login(ctx, "host@example.com", "password123")
	assert.NoError(t, err)
}

func TestRegister_Errors(t *testing.T) {
	tests := []struct {
		name     string
		params   domain.RegisterParams
		wantCode string
	}{
		{"missing email", domain.RegisterParams{Password: "password123"}, domain.EINVALID},
		{"missing password", domain.RegisterParams{Email: "a@b.co"}, domain.EINVALID},
		{"blank password", domain.RegisterParams{Email: "a@b.co", Password: "    "}, domain.EINVALID},
		{"over bcrypt limit", domain.RegisterParams{Email: "a@b.co", Password: strings.Repeat("a", 73)}, domain.EINVALID},
		{"unknown plan", domain.RegisterParams{Email: "a@b.co", Password: "password123", Plan: "GOLD"}, domain.EINVALID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestAccountService(t)
			_, err := svc.Register(context.Background(), tt.params)
			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
		})
	}
}

func TestRegister_AcceptsAnyNonBlankInput(t *testing.T) {
	tests := []struct {
		name   string
		params domain.RegisterParams
	}{
		{"short password", domain.RegisterParams{Email: "host@example.com", Password: "abc123"}},
		{"single-label domain", domain.RegisterParams{Email: "host@localhost", Password: "password123"}},
		{"bcrypt limit", domain.RegisterParams{Email: "max@example.com", Password: strings.Repeat("a", 72)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestAccountService(t)
			res, err := svc.Register(context.Background(), tt.params)
			require.NoError(t, err)
			assert.NotEmpty(t, res.Token)
		})
	}
}

func TestRegister_PlanNormalized(t *testing.T) {
	svc, _ := newTestAccountService(t)

	res, err := svc.Register(context.Background(), domain.RegisterParams{
		Email: "pro@example.com", Password: "password123", Plan: " pro ",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PlanPro, res.Account.Plan)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestAccountService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, domain.RegisterParams{Email: "dup@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, domain.RegisterParams{Email: "DUP@example.com", Password: "password456"})
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	assert.Equal(t, "Email already registered", domain.ErrorMessage(err))
}

func TestLogin(t *testing.T) {
	svc, _ := newTestAccountService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, domain.RegisterParams{Email: "host@example.com", Password: "password123"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantCode string
	}{
		{"valid", "HOST@example.com", "password123", ""},
		{"wrong password", "host@example.com", "password124", domain.EUNAUTHORIZED},
		{"unknown email", "ghost@example.com", "password123", domain.EUNAUTHORIZED},
		{"missing fields", "", "", domain.EINVALID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Login(ctx, tt.email, tt.password)
			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
			if tt.wantCode == "" {
				require.NotNil(t, res)
				assert.NotEmpty(t, res.Token)
			}
		})
	}
}

// =============================================================================
// Authenticate / Profile
// =============================================================================

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestAccountService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, domain.RegisterParams{Email: "host@example.com", Password: "password123", Plan: "starter"})
	require.NoError(t, err)

	identity, err := svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Account.ID, identity.AccountID)
	assert.Equal(t, "host@example.com", identity.Email)
	assert.Equal(t, domain.PlanStarter, identity.Plan)

	_, err = svc.Authenticate(ctx, "")
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))

	_, err = svc.Authenticate(ctx, "not.a.token")
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
}

func TestProfile(t *testing.T) {
	svc, store := newTestAccountService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, domain.RegisterParams{Email: "host@example.com", Password: "password123"})
	require.NoError(t, err)
	store.SetStorageUsed(res.Account.ID, 42)

	profile, err := svc.Profile(ctx, res.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), profile.Account.StorageUsed)
	assert.Equal(t, int64(0), profile.Episodes)
	require.NotNil(t, profile.PlanLimits.MaxStorageMB)
	assert.Equal(t, int64(200), *profile.PlanLimits.MaxStorageMB)
	assert.Empty(t, profile.Account.PasswordHash)

	_, err = svc.Profile(ctx, uuid.New())
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}
