package storage

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/DukeRupert/podcaster/internal/domain"
)

// octetStream is what browsers and multipart writers send when they do not
// know the type; it is treated as "not provided".
const octetStream = "application/octet-stream"

// extensionTypes covers formats the stdlib mime table may not know about,
// notably audio.
var extensionTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/opus",
	".flac": "audio/flac",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// DetectContentType determines the MIME type of an upload.
//
// Detection priority:
// 1. providedType, unless empty or application/octet-stream
// 2. the known extension table
// 3. mime.TypeByExtension
// 4. application/octet-stream
func DetectContentType(providedType, filename string) string {
	if base := baseType(providedType); base != "" && base != octetStream {
		return providedType
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := extensionTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}

	return octetStream
}

// IsAllowedAssetType reports whether contentType is acceptable for kind.
// Covers must be images; audio accepts audio/* and video/* containers
// (an .mp4 podcast is common).
func IsAllowedAssetType(kind domain.AssetKind, contentType string) bool {
	base := baseType(contentType)
	switch kind {
	case domain.AssetCover:
		return strings.HasPrefix(base, "image/")
	case domain.AssetAudio:
		return strings.HasPrefix(base, "audio/") || strings.HasPrefix(base, "video/")
	default:
		return false
	}
}

// extensionForContentType returns a file extension for a MIME type, used to
// give object-store keys a servable suffix.
func extensionForContentType(contentType string) string {
	base := baseType(contentType)

	extensions := map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
		"image/gif":  ".gif",
		"audio/mpeg": ".mp3",
		"audio/mp4":  ".m4a",
		"audio/aac":  ".aac",
		"audio/wav":  ".wav",
		"audio/ogg":  ".ogg",
		"audio/flac": ".flac",
		"video/mp4":  ".mp4",
	}
	if ext, ok := extensions[base]; ok {
		return ext
	}

	exts, err := mime.ExtensionsByType(base)
	if err == nil && len(exts) > 0 {
		return exts[0]
	}

	return ".bin"
}

func baseType(contentType string) string {
	return strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
}
