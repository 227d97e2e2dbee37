package storage

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/DukeRupert/podcaster/internal/domain"
)

// =============================================================================
// ObjectGateway
// =============================================================================

// ObjectGateway adapts a key/value Storage to the Gateway interface. The
// asset identifier is the object key, which carries a file extension so the
// object can be served with the right type.
type ObjectGateway struct {
	store   Storage
	maxSize int64
}

// NewObjectGateway wraps store. maxSize caps a single asset (0 = no cap).
func NewObjectGateway(store Storage, maxSize int64) *ObjectGateway {
	return &ObjectGateway{store: store, maxSize: maxSize}
}

// Upload stores body and returns its key and public URL.
func (g *ObjectGateway) Upload(ctx context.Context, body io.Reader, opts UploadOptions) (domain.Asset, error) {
	contentType := DetectContentType(opts.ContentType, opts.Filename)
	if !IsAllowedAssetType(opts.Kind, contentType) {
		return domain.Asset{}, &StorageError{Op: "Upload", Key: opts.Key, Err: ErrUnsupportedType}
	}

	key := opts.Key + extensionForContentType(contentType)
	if err := g.store.Put(ctx, key, body, PutOptions{
		ContentType: contentType,
		MaxSize:     g.maxSize,
	}); err != nil {
		return domain.Asset{}, err
	}

	return domain.Asset{ID: key, URL: g.store.URL(key)}, nil
}

// Delete removes the object whose key is assetID.
func (g *ObjectGateway) Delete(ctx context.Context, assetID string, kind domain.AssetKind) error {
	return g.store.Delete(ctx, assetID)
}

// AssetIDFromURL strips the store's public URL prefix to recover the key.
func (g *ObjectGateway) AssetIDFromURL(rawURL string) (string, bool) {
	prefix := g.store.URL("")
	if rawURL == "" || !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(rawURL, prefix)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	if key == "" || validateKey(key) != nil {
		return "", false
	}
	if unescaped, err := url.PathUnescape(key); err == nil {
		key = unescaped
	}
	return key, true
}

var _ Gateway = (*ObjectGateway)(nil)
