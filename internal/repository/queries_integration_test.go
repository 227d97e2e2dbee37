//go:build integration

package repository_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/podcaster/internal"
	"github.com/DukeRupert/podcaster/internal/repository"
)

// Run with: TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/repository/
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, internal.RunMigrations(db.DB, slog.New(slog.NewTextHandler(io.Discard, nil))))
	return db
}

func createTestUser(t *testing.T, q *repository.Queries) repository.User {
	t.Helper()

	u, err := q.CreateUser(context.Background(), repository.CreateUserParams{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Plan:         "FREE",
	})
	require.NoError(t, err)
	return u
}

func TestStorageCounter_Postgres(t *testing.T) {
	db := openTestDB(t)
	q := repository.New(db)
	ctx := context.Background()

	u := createTestUser(t, q)
	assert.Equal(t, int64(0), u.StorageUsed)

	require.NoError(t, q.AddStorageUsed(ctx, u.ID, 1500))
	require.NoError(t, q.AddStorageUsed(ctx, u.ID, 500))
	got, err := q.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.StorageUsed)

	require.NoError(t, q.ReleaseStorageUsed(ctx, u.ID, 700))
	got, err = q.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1300), got.StorageUsed)

	// Releasing more than is held floors at zero.
	require.NoError(t, q.ReleaseStorageUsed(ctx, u.ID, 10_000))
	got, err = q.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.StorageUsed)
}

func TestSumEpisodeBytesByFeed_Postgres(t *testing.T) {
	db := openTestDB(t)
	q := repository.New(db)
	ctx := context.Background()

	u := createTestUser(t, q)
	feed, err := q.CreateFeed(ctx, repository.CreateFeedParams{UserID: u.ID, Title: "Show"})
	require.NoError(t, err)

	sum, err := q.SumEpisodeBytesByFeed(ctx, feed.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum, "empty feed sums to zero, not NULL")

	for _, sizes := range [][2]int64{{100, 4000}, {0, 2500}, {50, 0}} {
		_, err := q.CreateEpisode(ctx, repository.CreateEpisodeParams{
			UserID:      u.ID,
			FeedID:      feed.ID,
			Title:       "Episode",
			Description: "d",
			CoverBytes:  sizes[0],
			AudioBytes:  sizes[1],
		})
		require.NoError(t, err)
	}

	sum, err = q.SumEpisodeBytesByFeed(ctx, feed.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6650), sum)
}
