package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DukeRupert/podcaster/internal/domain"
	"github.com/DukeRupert/podcaster/internal/repository"
	"github.com/DukeRupert/podcaster/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Create
// =============================================================================

func TestEpisodeCreate(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, domain.PlanFree)
	feed := env.createFeed(t, user)

	ep := env.createEpisode(t, user, feed, 2*domain.MB, 30*domain.MB)

	assert.Equal(t, feed, ep.FeedID)
	assert.Equal(t, user, ep.AccountID)
	assert.Equal(t, 32*domain.MB, ep.TotalBytes())
	assert.Equal(t, 32*domain.MB, env.storageUsed(t, user))

	wantCover := storage.AssetKey("podcaster", user, feed, ep.ID, domain.AssetCover)
	wantAudio := storage.AssetKey("podcaster", user, feed, ep.ID, domain.AssetAudio)
	assert.Equal(t, wantCover, ep.CoverAssetID)
	assert.Equal(t, wantAudio, ep.AudioAssetID)
	require.NotNil(t, ep.CoverURL)
	require.NotNil(t, ep.AudioURL)
	assert.Equal(t, fakeBlobURL+wantCover, *ep.CoverURL)
	assert.Equal(t, fakeBlobURL+wantAudio, *ep.AudioURL)
}

func TestEpisodeCreate_WithoutAssets(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, domain.PlanFree)
	feed := env.createFeed(t, user)

	ep := env.createEpisode(t, user, feed, 0, 0)

	assert.Nil(t, ep.CoverURL)
	assert.Nil(t, ep.AudioURL)
	assert.Equal(t, int64(0), env.storageUsed(t, user))
	assert.Equal(t, 0, env.gateway.uploadCount())
}

func TestEpisodeCreate_Validation(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, domain.PlanFree)
	feed := env.createFeed(t, user)

	pdf := episodeParams(feed, 0, 0)
	pdf.Cover = &domain.Upload{Body: strings.NewReader("%PDF"), Size: 4, Filename: "cover.pdf", ContentType: "application/pdf"}

	image := episodeParams(feed, 0, 0)
	image.Audio = &domain.Upload{Body: strings.NewReader("png"), Size: 3, Filename: "audio.png"}

	noTitle := episodeParams(feed, 0, domain.MB)
	noTitle.Title = " "

	noDescription := episodeParams(feed, 0, domain.MB)
	noDescription.Description = ""

	tests := []struct {
		name   string
		params domain.CreateEpisodeParams
	}{
		{"missing title", noTitle},
		{"missing description", noDescription},
		{"cover is not an image", pdf},
		{"audio is not audio", image},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.episodes.Create(context.Background(), user, tt.params)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
		})
	}

	assert.Equal(t, 0, env.gateway.uploadCount())
	assert.Equal(t, 0, env.store.EpisodeCount(feed))
}

func TestEpisodeCreate_FeedNotOwned(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, domain.PlanFree)
	other := env.createUser(t, domain.PlanFree)
	feed := env.createFeed(t, owner)

	_, err := env.episodes.Create(context.Background(), other, episodeParams(feed, 0, domain.MB))
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	assert.Equal(t, 0, env.gateway.uploadCount())
}

func TestEpisodeCreate_QuotaCheckedBeforeUpload(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, domain.PlanFree)
	feed := env.createFeed(t, user)
	env.store.SetStorageUsed(user, 190*domain.MB)

	_, err := env.episodes.Create(context.Background(), user, episodeParams(feed, domain.MB, 10*domain.MB))
	qe, ok := domain.AsQuotaError(err)
	require.True(t, ok)
	assert.Equal(t, domain.QuotaStorage, qe.Kind)

	assert.Equal(t, 0, env.gateway.uploadCount())
	assert.Equal(t, 0, env.store.EpisodeCount(feed))
	assert.Equal(t, 190*domain.MB, env.storageUsed(t, user))
}

func TestEpisodeCreate_UploadFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, domain.PlanFree)
	feed := env.createFeed(t, user)

	// The cover goes through, the audio fails.
	env.gateway.uploadErr = errBlobStore
	env.gateway.failKind = domain.AssetAudio

	_, err := env.episodes.Create(context.Background(), user, episodeParams(feed, domain.MB, 5*domain.MB))
	assert.Equal(t, domain.EBADGATEWAY, domain.ErrorCode(err))
	assert.ErrorIs(t, err, errBlobStore)

	assert.Equal(t, 0, env.store.EpisodeCount(feed))
	assert.Equal(t, int64(0), env.storageUsed(t, user))
	assert.Equal(t, 0, env.gateway.stored(), "uploaded cover is cleaned up")
}

func TestEpisodeCreate_UploadTooLarge(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, domain.PlanFree)
	feed := env.createFeed(t, user)
	env.gateway.uploadErr = &storage.StorageError{Op: "Put", Key: "k", Err: storage.ErrTooLarge}

	_, err := env.episodes.Create(context.Background(), user, episodeParams(feed, 0, domain.MB))
	assert.Equal(t, domain.ETOOLARGE, domain.ErrorCode(err))
}

func TestEpisodeCreate_DatabaseFailureRollsBack(t *testing.T) {
	for _, method := range []string{"CreateEpisode", "UpdateEpisodeAssets", "AddStorageUsed"} {
		t.Run(method, func(t *testing.T) {
			env := newTestEnv(t)
			user := env.createUser(t, domain.PlanFree)
			feed := env.createFeed(t, user)
			env.store.FailOn(method, errors.New("connection reset"))

			_, err := env.episodes.Create(context.Background(), user, episodeParams(feed, domain.MB, domain.MB))
			assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))

			assert.Equal(t, 0, env.store.EpisodeCount(feed))
			assert.Equal(t, int64(0), env.storageUsed(t, user))
			assert.Equal(t, 0, env.gateway.stored())
		})
	}
}

// =============================================================================
// Delete
// =============================================================================

func TestEpisodeDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, domain.PlanFree)
	feed := env.createFeed(t, user)
	keep := env.createEpisode(t, user, feed, 0, 2*domain.MB)
	drop := env.createEpisode(t, user, feed, domain.MB, 3*domain.MB)

	require.NoError(t, env.episodes.Delete(ctx, drop.ID, user))

	assert.Equal(t, keep.TotalBytes(), env.storageUsed(t, user))
	assert.Equal(t, 1, env.store.EpisodeCount(feed))
	assert.Equal(t, 1, env.gateway.stored())
}

func TestEpisodeDelete_Twice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, domain.PlanFree)
	feed := env.createFeed(t, user)
	env.createEpisode(t, user, feed, 0, 2*domain.MB)
	ep := env.createEpisode(t, user, feed, 0, 3*domain.MB)

	require.NoError(t, env.episodes.Delete(ctx, ep.ID, user))
	require.Equal(t, 2*domain.MB, env.storageUsed(t, user))

	err := env.episodes.Delete(ctx, ep.ID, user)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	assert.Equal(t, 2*domain.MB, env.storageUsed(t, user))
}

func TestEpisodeDelete_Ownership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, domain.PlanFree)
	other := env.createUser(t, domain.PlanFree)
	feed := env.createFeed(t, owner)
	ep := env.createEpisode(t, owner, feed, 0, domain.MB)

	notMine := env.episodes.Delete(ctx, ep.ID, other)
	missing := env.episodes.Delete(ctx, uuid.New(), other)

	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(notMine))
	assert.Equal(t, domain.ErrorMessage(missing), domain.ErrorMessage(notMine))
	assert.Equal(t, domain.MB, env.storageUsed(t, owner))
	assert.Equal(t, 1, env.gateway.stored(), "assets of a foreign episode are untouched")
}

func TestEpisodeDelete_BlobFailureIsBestEffort(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, domain.PlanFree)
	feed := env.createFeed(t, user)
	ep := env.createEpisode(t, user, feed, domain.MB, domain.MB)

	env.gateway.deleteErr = errBlobStore

	require.NoError(t, env.episodes.Delete(ctx, ep.ID, user))
	assert.Equal(t, int64(0), env.storageUsed(t, user))
	assert.Equal(t, 0, env.store.EpisodeCount(feed))
}

func TestEpisodeDelete_LegacyRowWithoutAssetIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, domain.PlanFree)
	feed := env.createFeed(t, user)

	row, err := env.store.CreateEpisode(ctx, repository.CreateEpisodeParams{
		UserID: user, FeedID: feed, Title: "old", Description: "d", AudioBytes: 100, CoverBytes: 10,
	})
	require.NoError(t, err)
	_, err = env.store.UpdateEpisodeAssets(ctx, repository.UpdateEpisodeAssetsParams{
		ID:       row.ID,
		AudioURL: repository.NullString(fakeBlobURL + "legacy/audio"),
		CoverURL: repository.NullString("https://elsewhere.test/cover.png"),
	})
	require.NoError(t, err)
	env.store.SetStorageUsed(user, 110)

	require.NoError(t, env.episodes.Delete(ctx, row.ID, user))

	// The audio id was recovered from its URL; the cover URL could not be
	// parsed and was skipped without failing the delete.
	assert.Equal(t, []string{"legacy/audio"}, env.gateway.deletes)
	assert.Equal(t, int64(0), env.storageUsed(t, user))
}

func TestEpisodeDelete_DatabaseFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, domain.PlanFree)
	feed := env.createFeed(t, user)
	ep := env.createEpisode(t, user, feed, 0, 4*domain.MB)

	env.store.FailOn("ReleaseStorageUsed", errors.New("connection reset"))

	err := env.episodes.Delete(ctx, ep.ID, user)
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
	assert.Equal(t, 1, env.store.EpisodeCount(feed))
	assert.Equal(t, 4*domain.MB, env.storageUsed(t, user))
}

// =============================================================================
// Lists
// =============================================================================

func TestEpisodeLists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.createUser(t, domain.PlanFree)
	b := env.createUser(t, domain.PlanFree)
	fa := env.createFeed(t, a)
	fb := env.createFeed(t, b)
	first := env.createEpisode(t, a, fa, 0, 0)
	second := env.createEpisode(t, a, fa, 0, 0)
	env.createEpisode(t, b, fb, 0, 0)

	byFeed, err := env.episodes.ListByFeed(ctx, fa)
	require.NoError(t, err)
	require.Len(t, byFeed, 2)
	assert.Equal(t, second.ID, byFeed[0].ID, "newest first")
	assert.Equal(t, first.ID, byFeed[1].ID)

	mine, err := env.episodes.ListByAccount(ctx, b)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := env.episodes.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := env.episodes.ListByFeed(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}
