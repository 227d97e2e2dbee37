package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/DukeRupert/podcaster/internal/domain"
)

// cloudinaryUploader is the subset of the Cloudinary upload API in use.
type cloudinaryUploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// CloudinaryGateway stores assets in Cloudinary. The asset identifier is
// the Cloudinary public ID, which equals the upload key.
type CloudinaryGateway struct {
	api    cloudinaryUploader
	logger *slog.Logger
}

// NewCloudinaryGateway creates a gateway from API credentials.
func NewCloudinaryGateway(cfg CloudinaryConfig, logger *slog.Logger) (*CloudinaryGateway, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}

	logger.Info("initialized cloudinary storage", "cloud_name", cfg.CloudName)

	return &CloudinaryGateway{api: &cld.Upload, logger: logger}, nil
}

// resourceType maps an asset kind to Cloudinary's resource class.
// Cloudinary files audio under "video".
func resourceType(kind domain.AssetKind) string {
	if kind == domain.AssetAudio {
		return "video"
	}
	return "image"
}

// Upload stores body under opts.Key, overwriting any previous upload there.
func (g *CloudinaryGateway) Upload(ctx context.Context, body io.Reader, opts UploadOptions) (domain.Asset, error) {
	contentType := DetectContentType(opts.ContentType, opts.Filename)
	if !IsAllowedAssetType(opts.Kind, contentType) {
		return domain.Asset{}, &StorageError{Op: "Upload", Key: opts.Key, Err: ErrUnsupportedType}
	}

	res, err := g.api.Upload(ctx, body, uploader.UploadParams{
		PublicID:       opts.Key,
		Overwrite:      api.Bool(true),
		UniqueFilename: api.Bool(false),
		ResourceType:   resourceType(opts.Kind),
	})
	if err != nil {
		return domain.Asset{}, &StorageError{Op: "Upload", Key: opts.Key, Err: err}
	}
	if res.Error.Message != "" {
		return domain.Asset{}, &StorageError{Op: "Upload", Key: opts.Key, Err: errors.New(res.Error.Message)}
	}

	g.logger.Debug("uploaded asset to cloudinary",
		"public_id", res.PublicID,
		"kind", opts.Kind,
		"bytes", res.Bytes,
	)

	return domain.Asset{ID: res.PublicID, URL: res.SecureURL}, nil
}

// Delete destroys the asset with public ID assetID. An asset Cloudinary
// does not know about is treated as already deleted.
func (g *CloudinaryGateway) Delete(ctx context.Context, assetID string, kind domain.AssetKind) error {
	res, err := g.api.Destroy(ctx, uploader.DestroyParams{
		PublicID:     assetID,
		ResourceType: resourceType(kind),
	})
	if err != nil {
		return &StorageError{Op: "Delete", Key: assetID, Err: err}
	}
	if res.Error.Message != "" {
		return &StorageError{Op: "Delete", Key: assetID, Err: errors.New(res.Error.Message)}
	}
	if res.Result != "ok" && res.Result != "not found" {
		return &StorageError{Op: "Delete", Key: assetID, Err: fmt.Errorf("unexpected result %q", res.Result)}
	}
	return nil
}

var versionSegment = regexp.MustCompile(`^v\d+$`)

// AssetIDFromURL parses a Cloudinary delivery URL back into a public ID:
//
//	https://res.cloudinary.com/demo/video/upload/v1712/podcaster/users/1/audio.mp3
//	-> podcaster/users/1/audio
//
// Transformation segments between "upload" and the public ID are not
// recognized, which is why this is only a fallback.
func (g *CloudinaryGateway) AssetIDFromURL(rawURL string) (string, bool) {
	return cloudinaryPublicID(rawURL)
}

func cloudinaryPublicID(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "", false
	}

	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}

	uploadIdx := -1
	for i, p := range parts {
		if p == "upload" {
			uploadIdx = i
			break
		}
	}
	if uploadIdx < 0 {
		return "", false
	}

	var path []string
	for _, p := range parts[uploadIdx+1:] {
		if !versionSegment.MatchString(p) {
			path = append(path, p)
		}
	}
	if len(path) == 0 {
		return "", false
	}

	last := path[len(path)-1]
	if i := strings.LastIndex(last, "."); i > 0 {
		last = last[:i]
	}
	path[len(path)-1] = last

	return strings.Join(path, "/"), true
}

var _ Gateway = (*CloudinaryGateway)(nil)
