package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/DukeRupert/podcaster/internal/domain"
	"github.com/DukeRupert/podcaster/internal/metrics"
	"github.com/DukeRupert/podcaster/internal/repository"
	"github.com/DukeRupert/podcaster/internal/storage"
	"github.com/google/uuid"
)

// FeedService defines the interface for feed-related operations.
type FeedService interface {
	// Create creates a feed owned by accountID, subject to the plan's feed cap.
	Create(ctx context.Context, accountID uuid.UUID, params domain.CreateFeedParams) (*domain.Feed, error)

	// List returns every feed, newest first.
	List(ctx context.Context) ([]domain.Feed, error)

	// ListByAccount returns the feeds owned by accountID, newest first.
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Feed, error)

	// Delete removes a feed with all of its episodes and releases their bytes.
	// A feed owned by someone else is reported as not found.
	Delete(ctx context.Context, id, accountID uuid.UUID) (*domain.FeedDeleteResult, error)
}

// feedService implements FeedService.
type feedService struct {
	store   repository.Store
	quota   QuotaService
	cleaner *assetCleaner
	logger  *slog.Logger
}

// NewFeedService creates a new FeedService.
func NewFeedService(store repository.Store, quota QuotaService, gateway storage.Gateway, logger *slog.Logger) FeedService {
	return &feedService{
		store:   store,
		quota:   quota,
		cleaner: newAssetCleaner(gateway, logger),
		logger:  logger,
	}
}

// Create creates a new feed.
func (s *feedService) Create(ctx context.Context, accountID uuid.UUID, params domain.CreateFeedParams) (*domain.Feed, error) {
	const op = "FeedService.Create"

	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, domain.Invalid(op, "Title is required")
	}

	if err := s.quota.AdmitFeedCreate(ctx, accountID); err != nil {
		return nil, err
	}

	row, err := s.store.CreateFeed(ctx, repository.CreateFeedParams{
		UserID:      accountID,
		Title:       title,
		Slug:        repository.NullString(strings.TrimSpace(params.Slug)),
		Description: repository.NullString(strings.TrimSpace(params.Description)),
	})
	if err != nil {
		if repository.IsUniqueViolation(err, repository.FeedsSlugKey) {
			return nil, domain.Conflict(op, "Slug already in use")
		}
		s.logger.Error("failed to create feed", "error", err, "op", op)
		return nil, domain.Internal(err, op, "Failed to create feed")
	}

	feed := repoFeedToDomain(row)
	metrics.FeedsCreated.Inc()
	s.logger.Info("feed created", "feed_id", feed.ID, "user_id", accountID)

	return &feed, nil
}

// List retrieves all feeds.
func (s *feedService) List(ctx context.Context) ([]domain.Feed, error) {
	const op = "FeedService.List"

	rows, err := s.store.ListFeeds(ctx)
	if err != nil {
		s.logger.Error("failed to list feeds", "error", err, "op", op)
		return nil, domain.Internal(err, op, "Failed to list feeds")
	}
	return repoFeedsToDomain(rows), nil
}

// ListByAccount retrieves the caller's feeds.
func (s *feedService) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Feed, error) {
	const op = "FeedService.ListByAccount"

	rows, err := s.store.ListFeedsByUser(ctx, accountID)
	if err != nil {
		s.logger.Error("failed to list feeds", "error", err, "op", op, "user_id", accountID)
		return nil, domain.Internal(err, op, "Failed to list feeds")
	}
	return repoFeedsToDomain(rows), nil
}

// Delete deletes a feed.
//
// Blob deletions run first and are best-effort. The feed row (cascading to
// its episodes) and the storage decrement then commit in one transaction;
// the decrement is summed from episode snapshots inside that transaction.
func (s *feedService) Delete(ctx context.Context, id, accountID uuid.UUID) (*domain.FeedDeleteResult, error) {
	const op = "FeedService.Delete"

	if _, err := s.store.GetFeedByIDAndUser(ctx, id, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "feed")
		}
		s.logger.Error("failed to get feed for delete", "error", err, "op", op, "feed_id", id)
		return nil, domain.Internal(err, op, "Failed to retrieve feed")
	}

	rows, err := s.store.ListEpisodesByFeed(ctx, id)
	if err != nil {
		s.logger.Error("failed to list episodes for delete", "error", err, "op", op, "feed_id", id)
		return nil, domain.Internal(err, op, "Failed to list episodes")
	}
	for _, row := range rows {
		s.cleaner.removeEpisodeAssets(ctx, repoEpisodeToDomain(row))
	}

	var freed int64
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		sum, err := q.SumEpisodeBytesByFeed(ctx, id)
		if err != nil {
			return domain.Internal(err, op, "Failed to sum episode bytes")
		}

		n, err := q.DeleteFeedByIDAndUser(ctx, id, accountID)
		if err != nil {
			return domain.Internal(err, op, "Failed to delete feed")
		}
		if n == 0 {
			// Deleted by a concurrent request after the ownership check.
			return domain.NotFound(op, "feed")
		}

		if err := s.quota.RecordRelease(ctx, q, accountID, sum); err != nil {
			return err
		}
		freed = sum
		return nil
	})
	if err != nil {
		if domain.ErrorCode(err) == domain.EINTERNAL {
			s.logger.Error("feed delete rolled back", "error", err, "op", op, "feed_id", id)
		}
		return nil, err
	}

	metrics.FeedsDeleted.Inc()
	metrics.EpisodesDeleted.Add(float64(len(rows)))
	s.logger.Info("feed deleted",
		"feed_id", id,
		"user_id", accountID,
		"episodes", len(rows),
		"freed_bytes", freed,
	)

	return &domain.FeedDeleteResult{OK: true, FreedBytes: freed}, nil
}
