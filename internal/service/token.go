package service

import (
	"errors"
	"time"

	"github.com/DukeRupert/podcaster/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is how long a session token stays valid when the
// configuration does not say otherwise.
const DefaultTokenTTL = 7 * 24 * time.Hour

// ErrInvalidToken is returned for tokens that are malformed, expired or
// signed with another key.
var ErrInvalidToken = errors.New("invalid session token")

// sessionClaims is the JWT payload: the account id, email and plan at the
// time of issue.
type sessionClaims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Plan  string `json:"plan"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. A non-positive ttl uses DefaultTokenTTL.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a signed token for account.
func (t *TokenIssuer) Issue(account *domain.Account) (string, error) {
	now := t.now()
	claims := sessionClaims{
		UID:   account.ID.String(),
		Email: account.Email,
		Plan:  account.Plan,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify parses a token and returns the identity it carries.
func (t *TokenIssuer) Verify(token string) (*domain.Identity, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (interface{}, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	id, err := uuid.Parse(claims.UID)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	return &domain.Identity{
		AccountID: id,
		Email:     claims.Email,
		Plan:      claims.Plan,
	}, nil
}
