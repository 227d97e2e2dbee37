package domain

import (
	"time"

	"github.com/google/uuid"
)

// Feed is a podcast channel owned by exactly one account.
type Feed struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	Slug        *string   `json:"slug"`
	Description *string   `json:"description"`
	CoverURL    *string   `json:"cover_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateFeedParams contains the caller-supplied fields of a new feed.
type CreateFeedParams struct {
	Title       string
	Slug        string // Optional
	Description string // Optional
}

// FeedDeleteResult reports how many bytes a feed deletion released.
type FeedDeleteResult struct {
	OK         bool  `json:"ok"`
	FreedBytes int64 `json:"freedBytes"`
}
