package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/DukeRupert/podcaster/internal/domain"
	"github.com/DukeRupert/podcaster/internal/repository"
	"github.com/DukeRupert/podcaster/internal/repository/repotest"
	"github.com/DukeRupert/podcaster/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// Fake blob store
// =============================================================================

const fakeBlobURL = "https://blobs.test/"

var errBlobStore = errors.New("blob store unavailable")

type fakeGateway struct {
	mu sync.Mutex

	assets  map[string]domain.AssetKind
	uploads []string
	deletes []string

	// uploadErr fails uploads of failKind (or of every kind if failKind is empty).
	uploadErr error
	failKind  domain.AssetKind
	deleteErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{assets: map[string]domain.AssetKind{}}
}

func (g *fakeGateway) Upload(ctx context.Context, body io.Reader, opts storage.UploadOptions) (domain.Asset, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.uploadErr != nil && (g.failKind == "" || g.failKind == opts.Kind) {
		return domain.Asset{}, g.uploadErr
	}
	g.uploads = append(g.uploads, opts.Key)
	g.assets[opts.Key] = opts.Kind
	return domain.Asset{ID: opts.Key, URL: fakeBlobURL + opts.Key}, nil
}

func (g *fakeGateway) Delete(ctx context.Context, assetID string, kind domain.AssetKind) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.deletes = append(g.deletes, assetID)
	if g.deleteErr != nil {
		return g.deleteErr
	}
	delete(g.assets, assetID)
	return nil
}

func (g *fakeGateway) AssetIDFromURL(url string) (string, bool) {
	id, ok := strings.CutPrefix(url, fakeBlobURL)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func (g *fakeGateway) stored() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.assets)
}

func (g *fakeGateway) uploadCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.uploads)
}

// =============================================================================
// Test environment
// =============================================================================

type testEnv struct {
	store    *repotest.Store
	gateway  *fakeGateway
	plans    *domain.PlanRegistry
	quota    QuotaService
	feeds    FeedService
	episodes EpisodeService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithPlans(t, domain.NewDefaultPlanRegistry())
}

func newTestEnvWithPlans(t *testing.T, plans *domain.PlanRegistry) *testEnv {
	t.Helper()

	store := repotest.NewStore()
	gateway := newFakeGateway()
	logger := testLogger()
	quota := NewQuotaService(store, plans, logger)

	return &testEnv{
		store:    store,
		gateway:  gateway,
		plans:    plans,
		quota:    quota,
		feeds:    NewFeedService(store, quota, gateway, logger),
		episodes: NewEpisodeService(store, quota, gateway, EpisodeConfig{StorageRoot: "podcaster"}, logger),
	}
}

func (e *testEnv) createUser(t *testing.T, plan string) uuid.UUID {
	t.Helper()
	u, err := e.store.CreateUser(context.Background(), repository.CreateUserParams{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Plan:         plan,
	})
	require.NoError(t, err)
	return u.ID
}

func (e *testEnv) createFeed(t *testing.T, accountID uuid.UUID) uuid.UUID {
	t.Helper()
	feed, err := e.feeds.Create(context.Background(), accountID, domain.CreateFeedParams{Title: "Show"})
	require.NoError(t, err)
	return feed.ID
}

func (e *testEnv) createEpisode(t *testing.T, accountID, feedID uuid.UUID, coverBytes, audioBytes int64) *domain.Episode {
	t.Helper()
	ep, err := e.episodes.Create(context.Background(), accountID, episodeParams(feedID, coverBytes, audioBytes))
	require.NoError(t, err)
	return ep
}

func (e *testEnv) storageUsed(t *testing.T, accountID uuid.UUID) int64 {
	t.Helper()
	u, err := e.store.GetUserByID(context.Background(), accountID)
	require.NoError(t, err)
	return u.StorageUsed
}

// episodeParams builds a create request. A size of zero omits that asset.
// Bodies are placeholders; accounting uses the declared sizes.
func episodeParams(feedID uuid.UUID, coverBytes, audioBytes int64) domain.CreateEpisodeParams {
	p := domain.CreateEpisodeParams{
		FeedID:      feedID,
		Title:       "Episode",
		Description: "Notes",
	}
	if coverBytes > 0 {
		p.Cover = &domain.Upload{Body: strings.NewReader("png"), Size: coverBytes, Filename: "cover.png", ContentType: "image/png"}
	}
	if audioBytes > 0 {
		p.Audio = &domain.Upload{Body: strings.NewReader("mp3"), Size: audioBytes, Filename: "episode.mp3", ContentType: "audio/mpeg"}
	}
	return p
}
