// This file implements the Quota Accountant: plan-limit admission for
// feeds, episodes and storage bytes, and the running storage counter.

package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/DukeRupert/podcaster/internal/domain"
	"github.com/DukeRupert/podcaster/internal/metrics"
	"github.com/DukeRupert/podcaster/internal/repository"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// QuotaService gates writes against plan limits and maintains the per-account
// storage counter.
//
// Admission reads the counter without locking the account row, so two
// concurrent creates from one account can both be admitted and push it past
// its ceiling. Admission never under-admits.
type QuotaService interface {
	// AdmitFeedCreate returns a feeds QuotaError when the account already
	// owns as many feeds as its plan allows.
	AdmitFeedCreate(ctx context.Context, accountID uuid.UUID) error

	// AdmitEpisodeCreate returns an episodes QuotaError when the feed is at
	// its episode cap, and a storage QuotaError when the incoming bytes would
	// take the account past its storage ceiling. Zero incoming bytes never
	// trip the storage check.
	AdmitEpisodeCreate(ctx context.Context, accountID, feedID uuid.UUID, coverBytes, audioBytes int64) error

	// RecordIngest adds n bytes to the account's counter using q, which must
	// be the transaction that created the contributing rows.
	RecordIngest(ctx context.Context, q repository.Querier, accountID uuid.UUID, n int64) error

	// RecordRelease subtracts n bytes from the account's counter using q,
	// flooring at zero.
	RecordRelease(ctx context.Context, q repository.Querier, accountID uuid.UUID, n int64) error

	// Limits returns the limits in force for a plan name.
	Limits(plan string) domain.PlanLimits
}

// =============================================================================
// Implementation
// =============================================================================

type quotaService struct {
	queries repository.Querier
	plans   *domain.PlanRegistry
	logger  *slog.Logger
}

// NewQuotaService creates a new QuotaService over the given plan table.
func NewQuotaService(queries repository.Querier, plans *domain.PlanRegistry, logger *slog.Logger) QuotaService {
	return &quotaService{
		queries: queries,
		plans:   plans,
		logger:  logger,
	}
}

func (s *quotaService) Limits(plan string) domain.PlanLimits {
	return s.plans.LimitsFor(plan)
}

// AdmitFeedCreate checks the feed cap.
func (s *quotaService) AdmitFeedCreate(ctx context.Context, accountID uuid.UUID) error {
	const op = "quota.admit_feed"

	user, err := s.loadAccount(ctx, op, accountID)
	if err != nil {
		return err
	}

	limits := s.plans.LimitsFor(user.Plan)
	if limits.MaxFeeds == nil {
		return nil
	}

	count, err := s.queries.CountFeedsByUser(ctx, accountID)
	if err != nil {
		return domain.Internal(err, op, "Failed to count feeds")
	}

	if count >= *limits.MaxFeeds {
		return s.reject(op, domain.QuotaFeeds, user, count, *limits.MaxFeeds)
	}
	return nil
}

// AdmitEpisodeCreate checks the per-feed episode cap, then the storage ceiling.
func (s *quotaService) AdmitEpisodeCreate(ctx context.Context, accountID, feedID uuid.UUID, coverBytes, audioBytes int64) error {
	const op = "quota.admit_episode"

	if coverBytes < 0 || audioBytes < 0 {
		return domain.Invalid(op, "Asset sizes must not be negative")
	}

	user, err := s.loadAccount(ctx, op, accountID)
	if err != nil {
		return err
	}

	limits := s.plans.LimitsFor(user.Plan)

	if limits.MaxEpisodesPerFeed != nil {
		count, err := s.queries.CountEpisodesByFeed(ctx, accountID, feedID)
		if err != nil {
			return domain.Internal(err, op, "Failed to count episodes")
		}
		if count >= *limits.MaxEpisodesPerFeed {
			return s.reject(op, domain.QuotaEpisodes, user, count, *limits.MaxEpisodesPerFeed)
		}
	}

	incoming := coverBytes + audioBytes
	if incoming == 0 {
		return nil
	}

	maxBytes, capped := limits.MaxStorageBytes()
	// Written as a subtraction so a huge incoming size cannot overflow.
	if capped && incoming > maxBytes-user.StorageUsed {
		return s.reject(op, domain.QuotaStorage, user, user.StorageUsed+incoming, *limits.MaxStorageMB)
	}
	return nil
}

// RecordIngest increments the storage counter.
func (s *quotaService) RecordIngest(ctx context.Context, q repository.Querier, accountID uuid.UUID, n int64) error {
	const op = "quota.record_ingest"

	if n <= 0 {
		return nil
	}
	if err := q.AddStorageUsed(ctx, accountID, n); err != nil {
		return domain.Internal(err, op, "Failed to update storage usage")
	}

	metrics.BytesIngested(n)
	return nil
}

// RecordRelease decrements the storage counter, floored at zero.
func (s *quotaService) RecordRelease(ctx context.Context, q repository.Querier, accountID uuid.UUID, n int64) error {
	const op = "quota.record_release"

	if n <= 0 {
		return nil
	}
	if err := q.ReleaseStorageUsed(ctx, accountID, n); err != nil {
		return domain.Internal(err, op, "Failed to update storage usage")
	}

	metrics.BytesReleased(n)
	return nil
}

func (s *quotaService) loadAccount(ctx context.Context, op string, id uuid.UUID) (repository.User, error) {
	user, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.User{}, domain.NotFound(op, "user")
		}
		return repository.User{}, domain.Internal(err, op, "Failed to load account")
	}
	return user, nil
}

// reject logs and counts a quota rejection. used is the count (or, for
// storage, the byte total) the write would have produced or already has.
func (s *quotaService) reject(op string, kind domain.QuotaKind, user repository.User, used, limit int64) error {
	s.logger.Info("quota exceeded",
		"user_id", user.ID,
		"plan", user.Plan,
		"kind", kind,
		"used", used,
		"limit", limit,
	)
	metrics.QuotaRejected(string(kind))
	return domain.QuotaExceeded(op, kind, domain.NormalizePlan(user.Plan), limit)
}
