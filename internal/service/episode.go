package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/DukeRupert/podcaster/internal/domain"
	"github.com/DukeRupert/podcaster/internal/metrics"
	"github.com/DukeRupert/podcaster/internal/repository"
	"github.com/DukeRupert/podcaster/internal/storage"
	"github.com/google/uuid"
)

// EpisodeService defines the interface for episode-related operations.
type EpisodeService interface {
	// Create adds an episode with optional cover and audio to a feed the
	// caller owns. Quota is checked before anything is uploaded.
	Create(ctx context.Context, accountID uuid.UUID, params domain.CreateEpisodeParams) (*domain.Episode, error)

	// ListByFeed returns a feed's episodes, newest first.
	ListByFeed(ctx context.Context, feedID uuid.UUID) ([]domain.Episode, error)

	// ListByAccount returns every episode the caller owns, newest first.
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Episode, error)

	// ListAll returns every episode, newest first.
	ListAll(ctx context.Context) ([]domain.Episode, error)

	// Delete removes an episode and releases its bytes. An episode owned by
	// someone else is reported as not found.
	Delete(ctx context.Context, id, accountID uuid.UUID) error
}

// EpisodeConfig holds episode service settings.
type EpisodeConfig struct {
	// StorageRoot prefixes every asset key, see storage.AssetKey.
	StorageRoot string
}

// episodeService implements EpisodeService.
type episodeService struct {
	store   repository.Store
	quota   QuotaService
	gateway storage.Gateway
	cleaner *assetCleaner
	cfg     EpisodeConfig
	logger  *slog.Logger
}

// NewEpisodeService creates a new EpisodeService.
func NewEpisodeService(store repository.Store, quota QuotaService, gateway storage.Gateway, cfg EpisodeConfig, logger *slog.Logger) EpisodeService {
	return &episodeService{
		store:   store,
		quota:   quota,
		gateway: gateway,
		cleaner: newAssetCleaner(gateway, logger),
		cfg:     cfg,
		logger:  logger,
	}
}

// Create creates an episode.
//
// Sequence inside one transaction: insert the row without assets to obtain
// its id, upload the assets under keys namespaced by that id, attach the
// returned references, then increment the storage counter. Any failure
// rolls back the row; blobs that were already uploaded are deleted on a
// best-effort basis.
func (s *episodeService) Create(ctx context.Context, accountID uuid.UUID, params domain.CreateEpisodeParams) (*domain.Episode, error) {
	const op = "EpisodeService.Create"

	title := strings.TrimSpace(params.Title)
	description := strings.TrimSpace(params.Description)
	if title == "" || description == "" {
		return nil, domain.Invalid(op, "Title and description are required")
	}
	if err := validateUpload(op, domain.AssetCover, params.Cover); err != nil {
		return nil, err
	}
	if err := validateUpload(op, domain.AssetAudio, params.Audio); err != nil {
		return nil, err
	}

	if _, err := s.store.GetFeedByIDAndUser(ctx, params.FeedID, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "feed")
		}
		s.logger.Error("failed to get feed", "error", err, "op", op, "feed_id", params.FeedID)
		return nil, domain.Internal(err, op, "Failed to retrieve feed")
	}

	coverBytes, audioBytes := params.IncomingBytes()
	if err := s.quota.AdmitEpisodeCreate(ctx, accountID, params.FeedID, coverBytes, audioBytes); err != nil {
		return nil, err
	}

	var (
		row      repository.Episode
		uploaded = map[domain.AssetKind]domain.Asset{}
	)
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		row, err = q.CreateEpisode(ctx, repository.CreateEpisodeParams{
			UserID:      accountID,
			FeedID:      params.FeedID,
			Title:       title,
			Description: description,
			CoverBytes:  coverBytes,
			AudioBytes:  audioBytes,
		})
		if err != nil {
			return domain.Internal(err, op, "Failed to create episode")
		}

		assets := repository.UpdateEpisodeAssetsParams{ID: row.ID}
		for _, u := range []struct {
			kind   domain.AssetKind
			upload *domain.Upload
			url    *sql.NullString
			id     *sql.NullString
		}{
			{domain.AssetCover, params.Cover, &assets.CoverURL, &assets.CoverPublicID},
			{domain.AssetAudio, params.Audio, &assets.AudioURL, &assets.AudioPublicID},
		} {
			if u.upload == nil {
				continue
			}
			asset, err := s.upload(ctx, op, accountID, params.FeedID, row.ID, u.kind, u.upload)
			if err != nil {
				return err
			}
			uploaded[u.kind] = asset
			*u.url = repository.NullString(asset.URL)
			*u.id = repository.NullString(asset.ID)
		}

		if len(uploaded) > 0 {
			updated, err := q.UpdateEpisodeAssets(ctx, assets)
			if err != nil {
				return domain.Internal(err, op, "Failed to attach episode assets")
			}
			row = updated
		}

		return s.quota.RecordIngest(ctx, q, accountID, coverBytes+audioBytes)
	})
	if err != nil {
		if len(uploaded) > 0 {
			s.cleaner.removeAssets(ctx, row.ID.String(), uploaded)
		}
		if domain.ErrorCode(err) == domain.EINTERNAL {
			s.logger.Error("episode create rolled back", "error", err, "op", op, "feed_id", params.FeedID)
		}
		return nil, err
	}

	episode := repoEpisodeToDomain(row)
	metrics.EpisodesCreated.Inc()
	s.logger.Info("episode created",
		"episode_id", episode.ID,
		"feed_id", episode.FeedID,
		"user_id", accountID,
		"bytes", episode.TotalBytes(),
	)

	return &episode, nil
}

// upload sends one asset to the blob store.
func (s *episodeService) upload(ctx context.Context, op string, accountID, feedID, episodeID uuid.UUID, kind domain.AssetKind, u *domain.Upload) (domain.Asset, error) {
	start := time.Now()

	asset, err := s.gateway.Upload(ctx, u.Body, storage.UploadOptions{
		Key:         storage.AssetKey(s.cfg.StorageRoot, accountID, feedID, episodeID, kind),
		Kind:        kind,
		Filename:    u.Filename,
		ContentType: u.ContentType,
		Size:        u.Size,
	})
	if err != nil {
		metrics.UploadFailed(string(kind))
		s.logger.Error("asset upload failed", "error", err, "op", op, "episode_id", episodeID, "kind", kind)

		switch {
		case storage.IsTooLarge(err):
			return domain.Asset{}, domain.Wrap(err, domain.ETOOLARGE, op, "Uploaded "+string(kind)+" is too large")
		case errors.Is(err, storage.ErrUnsupportedType):
			return domain.Asset{}, domain.Wrap(err, domain.EINVALID, op, "Unsupported "+string(kind)+" file type")
		default:
			return domain.Asset{}, domain.BadGateway(err, op, "Failed to upload "+string(kind))
		}
	}

	metrics.UploadCompleted(string(kind), time.Since(start))
	return asset, nil
}

// validateUpload rejects uploads of the wrong media type before any I/O.
func validateUpload(op string, kind domain.AssetKind, u *domain.Upload) error {
	if u == nil {
		return nil
	}
	if u.Body == nil || u.Size < 0 {
		return domain.Invalid(op, "Invalid "+string(kind)+" upload")
	}
	if !storage.IsAllowedAssetType(kind, storage.DetectContentType(u.ContentType, u.Filename)) {
		if kind == domain.AssetCover {
			return domain.Invalid(op, "Cover must be an image")
		}
		return domain.Invalid(op, "Audio must be an audio file")
	}
	return nil
}

// ListByFeed lists a feed's episodes.
func (s *episodeService) ListByFeed(ctx context.Context, feedID uuid.UUID) ([]domain.Episode, error) {
	const op = "EpisodeService.ListByFeed"

	rows, err := s.store.ListEpisodesByFeed(ctx, feedID)
	if err != nil {
		s.logger.Error("failed to list episodes", "error", err, "op", op, "feed_id", feedID)
		return nil, domain.Internal(err, op, "Failed to list episodes")
	}
	return repoEpisodesToDomain(rows), nil
}

// ListByAccount lists the caller's episodes.
func (s *episodeService) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Episode, error) {
	const op = "EpisodeService.ListByAccount"

	rows, err := s.store.ListEpisodesByUser(ctx, accountID)
	if err != nil {
		s.logger.Error("failed to list episodes", "error", err, "op", op, "user_id", accountID)
		return nil, domain.Internal(err, op, "Failed to list episodes")
	}
	return repoEpisodesToDomain(rows), nil
}

// ListAll lists every episode.
func (s *episodeService) ListAll(ctx context.Context) ([]domain.Episode, error) {
	const op = "EpisodeService.ListAll"

	rows, err := s.store.ListEpisodes(ctx)
	if err != nil {
		s.logger.Error("failed to list episodes", "error", err, "op", op)
		return nil, domain.Internal(err, op, "Failed to list episodes")
	}
	return repoEpisodesToDomain(rows), nil
}

// Delete deletes an episode: best-effort blob deletion, then the row delete
// and storage decrement in one transaction.
func (s *episodeService) Delete(ctx context.Context, id, accountID uuid.UUID) error {
	const op = "EpisodeService.Delete"

	row, err := s.store.GetEpisodeByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "episode")
		}
		s.logger.Error("failed to get episode for delete", "error", err, "op", op, "episode_id", id)
		return domain.Internal(err, op, "Failed to retrieve episode")
	}
	if row.UserID != accountID {
		return domain.NotFound(op, "episode")
	}

	episode := repoEpisodeToDomain(row)
	s.cleaner.removeEpisodeAssets(ctx, episode)

	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		n, err := q.DeleteEpisodeByIDAndUser(ctx, id, accountID)
		if err != nil {
			return domain.Internal(err, op, "Failed to delete episode")
		}
		if n == 0 {
			// A concurrent delete won; do not release the bytes twice.
			return domain.NotFound(op, "episode")
		}
		return s.quota.RecordRelease(ctx, q, accountID, episode.TotalBytes())
	})
	if err != nil {
		if domain.ErrorCode(err) == domain.EINTERNAL {
			s.logger.Error("episode delete rolled back", "error", err, "op", op, "episode_id", id)
		}
		return err
	}

	metrics.EpisodesDeleted.Inc()
	s.logger.Info("episode deleted",
		"episode_id", id,
		"user_id", accountID,
		"freed_bytes", episode.TotalBytes(),
	)

	return nil
}
