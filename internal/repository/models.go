// Package repository provides Postgres data access for accounts, feeds and
// episodes.
//
// Row types here mirror the schema in internal/migrations and are converted
// to domain types by the service layer.
package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User is a row of the users table.
type User struct {
	ID           uuid.UUID `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Plan         string    `db:"plan"`
	StorageUsed  int64     `db:"storage_used"`
	CreatedAt    time.Time `db:"created_at"`
}

// Feed is a row of the feeds table.
type Feed struct {
	ID          uuid.UUID      `db:"id"`
	UserID      uuid.UUID      `db:"user_id"`
	Title       string         `db:"title"`
	Slug        sql.NullString `db:"slug"`
	Description sql.NullString `db:"description"`
	CoverURL    sql.NullString `db:"cover_url"`
	CreatedAt   time.Time      `db:"created_at"`
}

// Episode is a row of the episodes table.
type Episode struct {
	ID            uuid.UUID      `db:"id"`
	UserID        uuid.UUID      `db:"user_id"`
	FeedID        uuid.UUID      `db:"feed_id"`
	Title         string         `db:"title"`
	Description   string         `db:"description"`
	CoverURL      sql.NullString `db:"cover_url"`
	AudioURL      sql.NullString `db:"audio_url"`
	CoverPublicID sql.NullString `db:"cover_public_id"`
	AudioPublicID sql.NullString `db:"audio_public_id"`
	CoverBytes    int64          `db:"cover_bytes"`
	AudioBytes    int64          `db:"audio_bytes"`
	CreatedAt     time.Time      `db:"created_at"`
}

// =============================================================================
// Parameter Types
// =============================================================================

type CreateUserParams struct {
	Email        string
	PasswordHash string
	Plan         string
}

type CreateFeedParams struct {
	UserID      uuid.UUID
	Title       string
	Slug        sql.NullString
	Description sql.NullString
}

// CreateEpisodeParams inserts an episode with its byte snapshots but no
// asset references; those are attached by UpdateEpisodeAssets once the
// uploads have returned.
type CreateEpisodeParams struct {
	UserID      uuid.UUID
	FeedID      uuid.UUID
	Title       string
	Description string
	CoverBytes  int64
	AudioBytes  int64
}

type UpdateEpisodeAssetsParams struct {
	ID            uuid.UUID
	CoverURL      sql.NullString
	AudioURL      sql.NullString
	CoverPublicID sql.NullString
	AudioPublicID sql.NullString
}

// NullString converts an empty string to an invalid sql.NullString.
func NullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
