// Package storage is the blob store gateway for episode assets.
//
// Two layers live here. Storage is a plain key/value object store with
// implementations for:
// - LocalStorage: File system storage for development
// - R2Storage: Cloudflare R2 (S3-compatible) storage for production
//
// Gateway is what the services talk to: it uploads a cover or audio file
// under a path key and returns an asset reference (identifier + URL), and
// deletes assets by identifier. ObjectGateway adapts any Storage to it;
// CloudinaryGateway talks to Cloudinary directly.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/DukeRupert/podcaster/internal/domain"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definitions
// =============================================================================

// Storage defines the interface for object storage operations.
type Storage interface {
	// Put stores data at the specified key, replacing any existing object.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Delete removes the object at the specified key.
	// This operation is idempotent - no error is returned if the key doesn't exist.
	Delete(ctx context.Context, key string) error

	// URL returns the permanent public URL of the object at key.
	URL(key string) string
}

// Gateway uploads and deletes episode assets.
type Gateway interface {
	// Upload stores body under opts.Key and returns the asset reference.
	Upload(ctx context.Context, body io.Reader, opts UploadOptions) (domain.Asset, error)

	// Delete removes an asset by identifier. Callers treat failures as
	// best-effort and never let them abort a delete.
	Delete(ctx context.Context, assetID string, kind domain.AssetKind) error

	// AssetIDFromURL recovers an asset identifier from a stored URL for rows
	// that predate recorded identifiers. The mapping is lossy; ok is false
	// when the URL cannot be parsed back.
	AssetIDFromURL(url string) (id string, ok bool)
}

// =============================================================================
// Data Types
// =============================================================================

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType specifies the MIME type of the object.
	ContentType string

	// MaxSize specifies the maximum allowed size in bytes.
	// If the data exceeds this size, ErrTooLarge is returned.
	// A value of 0 means no limit.
	MaxSize int64
}

// UploadOptions describes one asset upload.
type UploadOptions struct {
	// Key is the extension-less path the asset is namespaced under,
	// see AssetKey.
	Key string

	Kind        domain.AssetKind
	Filename    string
	ContentType string
	Size        int64
}

// =============================================================================
// Configuration Types
// =============================================================================

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory where files are stored.
	// Example: "./storage" or "/var/lib/podcaster/files"
	BasePath string

	// BaseURL is the public URL prefix for accessing files.
	// Example: "http://localhost:3000/files"
	BaseURL string
}

// R2Config holds configuration for Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// PublicURL is the public URL for the bucket. Asset URLs are persisted,
	// so expiring presigned URLs are not an option here.
	// Example: "https://media.example.com"
	PublicURL string

	// Region defaults to "auto".
	Region string
}

// CloudinaryConfig holds Cloudinary API credentials.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

// =============================================================================
// Provider Constants
// =============================================================================

const (
	ProviderLocal      = "local"
	ProviderR2         = "r2"
	ProviderCloudinary = "cloudinary"
)

// =============================================================================
// Key Generation
// =============================================================================

// AssetKey returns the path an episode asset is stored under.
// Format: {root}/users/{userID}/feeds/{feedID}/episodes/{episodeID}/{kind}
//
// Example: "podcaster/users/5f0c.../feeds/91ab.../episodes/77de.../audio"
func AssetKey(root string, userID, feedID, episodeID uuid.UUID, kind domain.AssetKind) string {
	key := fmt.Sprintf("users/%s/feeds/%s/episodes/%s/%s", userID, feedID, episodeID, kind)
	if root == "" {
		return key
	}
	return root + "/" + key
}
