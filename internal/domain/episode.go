package domain

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// AssetKind distinguishes the two binary assets an episode can carry.
type AssetKind string

const (
	AssetCover AssetKind = "cover"
	AssetAudio AssetKind = "audio"
)

// Asset is a blob store reference: an opaque identifier and a retrievable URL.
type Asset struct {
	ID  string
	URL string
}

// Episode is one item in a feed.
//
// CoverBytes and AudioBytes are snapshots taken at upload time. Storage
// accounting reads these, never the blob store.
type Episode struct {
	ID           uuid.UUID `json:"id"`
	AccountID    uuid.UUID `json:"user_id"`
	FeedID       uuid.UUID `json:"feed_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	CoverURL     *string   `json:"coverUrl"`
	AudioURL     *string   `json:"audioUrl"`
	CoverAssetID string    `json:"-"`
	AudioAssetID string    `json:"-"`
	CoverBytes   int64     `json:"-"`
	AudioBytes   int64     `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// TotalBytes returns the bytes this episode contributes to its owner's usage.
func (e *Episode) TotalBytes() int64 {
	return e.CoverBytes + e.AudioBytes
}

// Upload is one incoming asset of an episode create request.
type Upload struct {
	Body        io.Reader
	Size        int64
	Filename    string
	ContentType string
}

// CreateEpisodeParams contains the fields of a new episode.
// Cover and Audio are optional.
type CreateEpisodeParams struct {
	FeedID      uuid.UUID
	Title       string
	Description string
	Cover       *Upload
	Audio       *Upload
}

// IncomingBytes returns the combined size of the uploads.
func (p CreateEpisodeParams) IncomingBytes() (cover, audio int64) {
	if p.Cover != nil {
		cover = p.Cover.Size
	}
	if p.Audio != nil {
		audio = p.Audio.Size
	}
	return cover, audio
}
