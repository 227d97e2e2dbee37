package repository

import (
	"context"

	"github.com/google/uuid"
)

// Querier is the full set of statements the services run. It is satisfied
// by Queries bound to either the pool or an open transaction, so the same
// code path works inside and outside ExecTx.
type Querier interface {
	// Users
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	AddStorageUsed(ctx context.Context, id uuid.UUID, delta int64) error
	ReleaseStorageUsed(ctx context.Context, id uuid.UUID, delta int64) error

	// Feeds
	CreateFeed(ctx context.Context, arg CreateFeedParams) (Feed, error)
	GetFeedByIDAndUser(ctx context.Context, id, userID uuid.UUID) (Feed, error)
	ListFeeds(ctx context.Context) ([]Feed, error)
	ListFeedsByUser(ctx context.Context, userID uuid.UUID) ([]Feed, error)
	CountFeedsByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteFeedByIDAndUser(ctx context.Context, id, userID uuid.UUID) (int64, error)

	// Episodes
	CreateEpisode(ctx context.Context, arg CreateEpisodeParams) (Episode, error)
	UpdateEpisodeAssets(ctx context.Context, arg UpdateEpisodeAssetsParams) (Episode, error)
	GetEpisodeByID(ctx context.Context, id uuid.UUID) (Episode, error)
	ListEpisodes(ctx context.Context) ([]Episode, error)
	ListEpisodesByFeed(ctx context.Context, feedID uuid.UUID) ([]Episode, error)
	ListEpisodesByUser(ctx context.Context, userID uuid.UUID) ([]Episode, error)
	CountEpisodesByFeed(ctx context.Context, userID, feedID uuid.UUID) (int64, error)
	CountEpisodesByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	SumEpisodeBytesByFeed(ctx context.Context, feedID uuid.UUID) (int64, error)
	DeleteEpisodeByIDAndUser(ctx context.Context, id, userID uuid.UUID) (int64, error)
}

// Store is a Querier that can also run a function inside a transaction.
//
// ExecTx commits when fn returns nil and rolls back otherwise; the Querier
// passed to fn must be used for every statement that belongs to the
// transaction.
type Store interface {
	Querier
	ExecTx(ctx context.Context, fn func(q Querier) error) error
}
