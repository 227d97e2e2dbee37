package service

import (
	"database/sql"

	"github.com/DukeRupert/podcaster/internal/domain"
	"github.com/DukeRupert/podcaster/internal/repository"
)

// =============================================================================
// Repository -> domain conversion
// =============================================================================

func repoUserToDomain(u repository.User) *domain.Account {
	return &domain.Account{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Plan:         u.Plan,
		StorageUsed:  u.StorageUsed,
		CreatedAt:    u.CreatedAt,
	}
}

func repoFeedToDomain(f repository.Feed) domain.Feed {
	return domain.Feed{
		ID:          f.ID,
		AccountID:   f.UserID,
		Title:       f.Title,
		Slug:        nullStringPtr(f.Slug),
		Description: nullStringPtr(f.Description),
		CoverURL:    nullStringPtr(f.CoverURL),
		CreatedAt:   f.CreatedAt,
	}
}

func repoFeedsToDomain(rows []repository.Feed) []domain.Feed {
	feeds := make([]domain.Feed, len(rows))
	for i, f := range rows {
		feeds[i] = repoFeedToDomain(f)
	}
	return feeds
}

func repoEpisodeToDomain(e repository.Episode) domain.Episode {
	return domain.Episode{
		ID:           e.ID,
		AccountID:    e.UserID,
		FeedID:       e.FeedID,
		Title:        e.Title,
		Description:  e.Description,
		CoverURL:     nullStringPtr(e.CoverURL),
		AudioURL:     nullStringPtr(e.AudioURL),
		CoverAssetID: e.CoverPublicID.String,
		AudioAssetID: e.AudioPublicID.String,
		CoverBytes:   e.CoverBytes,
		AudioBytes:   e.AudioBytes,
		CreatedAt:    e.CreatedAt,
	}
}

func repoEpisodesToDomain(rows []repository.Episode) []domain.Episode {
	episodes := make([]domain.Episode, len(rows))
	for i, e := range rows {
		episodes[i] = repoEpisodeToDomain(e)
	}
	return episodes
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
