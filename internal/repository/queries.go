package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Queries runs statements against a pool or a transaction.
type Queries struct {
	db sqlx.ExtContext
}

// New returns Queries bound to db, which may be a *sqlx.DB or *sqlx.Tx.
func New(db sqlx.ExtContext) *Queries {
	return &Queries{db: db}
}

// =============================================================================
// Users
// =============================================================================

const userColumns = `id, email, password_hash, plan, storage_used, created_at`

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	var u User
	err := sqlx.GetContext(ctx, q.db, &u, `
		INSERT INTO users (email, password_hash, plan)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		arg.Email, arg.PasswordHash, arg.Plan)
	return u, err
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	var u User
	err := sqlx.GetContext(ctx, q.db, &u,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return u, err
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := sqlx.GetContext(ctx, q.db, &u,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return u, err
}

// AddStorageUsed increments the storage counter in a single statement so
// concurrent increments never lose an update.
func (q *Queries) AddStorageUsed(ctx context.Context, id uuid.UUID, delta int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET storage_used = storage_used + $1 WHERE id = $2`,
		delta, id)
	return err
}

// ReleaseStorageUsed decrements the storage counter, floored at zero.
func (q *Queries) ReleaseStorageUsed(ctx context.Context, id uuid.UUID, delta int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET storage_used = GREATEST(storage_used - $1, 0) WHERE id = $2`,
		delta, id)
	return err
}

// =============================================================================
// Feeds
// =============================================================================

const feedColumns = `id, user_id, title, slug, description, cover_url, created_at`

func (q *Queries) CreateFeed(ctx context.Context, arg CreateFeedParams) (Feed, error) {
	var f Feed
	err := sqlx.GetContext(ctx, q.db, &f, `
		INSERT INTO feeds (user_id, title, slug, description, cover_url)
		VALUES ($1, $2, $3, $4, NULL)
		RETURNING `+feedColumns,
		arg.UserID, arg.Title, arg.Slug, arg.Description)
	return f, err
}

// GetFeedByIDAndUser returns sql.ErrNoRows both when the feed is missing and
// when it belongs to someone else.
func (q *Queries) GetFeedByIDAndUser(ctx context.Context, id, userID uuid.UUID) (Feed, error) {
	var f Feed
	err := sqlx.GetContext(ctx, q.db, &f,
		`SELECT `+feedColumns+` FROM feeds WHERE id = $1 AND user_id = $2`, id, userID)
	return f, err
}

func (q *Queries) ListFeeds(ctx context.Context) ([]Feed, error) {
	feeds := []Feed{}
	err := sqlx.SelectContext(ctx, q.db, &feeds,
		`SELECT `+feedColumns+` FROM feeds ORDER BY created_at DESC`)
	return feeds, err
}

func (q *Queries) ListFeedsByUser(ctx context.Context, userID uuid.UUID) ([]Feed, error) {
	feeds := []Feed{}
	err := sqlx.SelectContext(ctx, q.db, &feeds,
		`SELECT `+feedColumns+` FROM feeds WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	return feeds, err
}

func (q *Queries) CountFeedsByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := sqlx.GetContext(ctx, q.db, &n,
		`SELECT COUNT(*) FROM feeds WHERE user_id = $1`, userID)
	return n, err
}

// DeleteFeedByIDAndUser deletes the feed; episodes go with it through the
// ON DELETE CASCADE foreign key. Returns the number of feed rows removed.
func (q *Queries) DeleteFeedByIDAndUser(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM feeds WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// =============================================================================
// Episodes
// =============================================================================

const episodeColumns = `id, user_id, feed_id, title, description,
	cover_url, audio_url, cover_public_id, audio_public_id,
	cover_bytes, audio_bytes, created_at`

func (q *Queries) CreateEpisode(ctx context.Context, arg CreateEpisodeParams) (Episode, error) {
	var e Episode
	err := sqlx.GetContext(ctx, q.db, &e, `
		INSERT INTO episodes (user_id, feed_id, title, description, cover_bytes, audio_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+episodeColumns,
		arg.UserID, arg.FeedID, arg.Title, arg.Description, arg.CoverBytes, arg.AudioBytes)
	return e, err
}

func (q *Queries) UpdateEpisodeAssets(ctx context.Context, arg UpdateEpisodeAssetsParams) (Episode, error) {
	var e Episode
	err := sqlx.GetContext(ctx, q.db, &e, `
		UPDATE episodes
		   SET cover_url = $1, audio_url = $2,
		       cover_public_id = $3, audio_public_id = $4
		 WHERE id = $5
		RETURNING `+episodeColumns,
		arg.CoverURL, arg.AudioURL, arg.CoverPublicID, arg.AudioPublicID, arg.ID)
	return e, err
}

func (q *Queries) GetEpisodeByID(ctx context.Context, id uuid.UUID) (Episode, error) {
	var e Episode
	err := sqlx.GetContext(ctx, q.db, &e,
		`SELECT `+episodeColumns+` FROM episodes WHERE id = $1`, id)
	return e, err
}

func (q *Queries) ListEpisodes(ctx context.Context) ([]Episode, error) {
	episodes := []Episode{}
	err := sqlx.SelectContext(ctx, q.db, &episodes,
		`SELECT `+episodeColumns+` FROM episodes ORDER BY created_at DESC`)
	return episodes, err
}

func (q *Queries) ListEpisodesByFeed(ctx context.Context, feedID uuid.UUID) ([]Episode, error) {
	episodes := []Episode{}
	err := sqlx.SelectContext(ctx, q.db, &episodes,
		`SELECT `+episodeColumns+` FROM episodes WHERE feed_id = $1 ORDER BY created_at DESC`, feedID)
	return episodes, err
}

func (q *Queries) ListEpisodesByUser(ctx context.Context, userID uuid.UUID) ([]Episode, error) {
	episodes := []Episode{}
	err := sqlx.SelectContext(ctx, q.db, &episodes,
		`SELECT `+episodeColumns+` FROM episodes WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	return episodes, err
}

func (q *Queries) CountEpisodesByFeed(ctx context.Context, userID, feedID uuid.UUID) (int64, error) {
	var n int64
	err := sqlx.GetContext(ctx, q.db, &n,
		`SELECT COUNT(*) FROM episodes WHERE user_id = $1 AND feed_id = $2`, userID, feedID)
	return n, err
}

func (q *Queries) CountEpisodesByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := sqlx.GetContext(ctx, q.db, &n,
		`SELECT COUNT(*) FROM episodes WHERE user_id = $1`, userID)
	return n, err
}

func (q *Queries) SumEpisodeBytesByFeed(ctx context.Context, feedID uuid.UUID) (int64, error) {
	var n int64
	err := sqlx.GetContext(ctx, q.db, &n,
		`SELECT COALESCE(SUM(cover_bytes + audio_bytes), 0)::BIGINT FROM episodes WHERE feed_id = $1`, feedID)
	return n, err
}

func (q *Queries) DeleteEpisodeByIDAndUser(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM episodes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ Querier = (*Queries)(nil)
