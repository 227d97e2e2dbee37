package service

import (
	"context"
	"log/slog"

	"github.com/DukeRupert/podcaster/internal/domain"
	"github.com/DukeRupert/podcaster/internal/metrics"
	"github.com/DukeRupert/podcaster/internal/storage"
)

// assetCleaner deletes episode assets from the blob store. Every failure is
// logged and swallowed: an orphaned blob never blocks a delete.
type assetCleaner struct {
	gateway storage.Gateway
	logger  *slog.Logger
}

func newAssetCleaner(gateway storage.Gateway, logger *slog.Logger) *assetCleaner {
	return &assetCleaner{gateway: gateway, logger: logger}
}

// removeEpisodeAssets deletes the cover and audio of ep, if any.
func (c *assetCleaner) removeEpisodeAssets(ctx context.Context, ep domain.Episode) {
	c.remove(ctx, ep.ID.String(), domain.AssetCover, ep.CoverAssetID, ep.CoverURL)
	c.remove(ctx, ep.ID.String(), domain.AssetAudio, ep.AudioAssetID, ep.AudioURL)
}

// removeAssets deletes assets uploaded by a create that did not commit.
func (c *assetCleaner) removeAssets(ctx context.Context, episodeID string, assets map[domain.AssetKind]domain.Asset) {
	for kind, asset := range assets {
		url := asset.URL
		c.remove(ctx, episodeID, kind, asset.ID, &url)
	}
}

func (c *assetCleaner) remove(ctx context.Context, episodeID string, kind domain.AssetKind, assetID string, url *string) {
	if assetID == "" {
		if url == nil || *url == "" {
			return
		}
		// Rows written before identifiers were recorded only have a URL.
		id, ok := c.gateway.AssetIDFromURL(*url)
		if !ok {
			c.logger.Warn("could not resolve asset id from url",
				"episode_id", episodeID,
				"kind", kind,
				"url", *url,
			)
			metrics.AssetDeleted(string(kind), "skipped")
			return
		}
		assetID = id
	}

	if err := c.gateway.Delete(ctx, assetID, kind); err != nil {
		c.logger.Warn("failed to delete asset",
			"error", err,
			"episode_id", episodeID,
			"kind", kind,
			"asset_id", assetID,
		)
		metrics.AssetDeleted(string(kind), "failed")
		return
	}

	metrics.AssetDeleted(string(kind), "deleted")
}
