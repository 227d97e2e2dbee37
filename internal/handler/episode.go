package handler

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/DukeRupert/podcaster/internal/auth"
	"github.com/DukeRupert/podcaster/internal/domain"
	"github.com/DukeRupert/podcaster/internal/service"
)

// DefaultMaxUploadBytes caps an episode create request when no cap is configured.
const DefaultMaxUploadBytes = 512 << 20

// multipartMemory is how much of a multipart body is held in memory before
// parts spill to temporary files.
const multipartMemory = 32 << 20

// EpisodeHandler handles episode HTTP requests.
type EpisodeHandler struct {
	episodes       service.EpisodeService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewEpisodeHandler creates a new EpisodeHandler. maxUploadBytes caps the
// whole multipart request body; 0 means DefaultMaxUploadBytes.
func NewEpisodeHandler(episodes service.EpisodeService, maxUploadBytes int64, logger *slog.Logger) *EpisodeHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &EpisodeHandler{
		episodes:       episodes,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// RegisterRoutes registers episode routes.
//
// Routes:
// - GET    /api/feeds/{id}/episodes -> ListByFeed (public)
// - POST   /api/feeds/{id}/episodes -> Create (bearer, owner)
// - GET    /api/my-episodes         -> ListMine (bearer)
// - GET    /api/podcasts            -> ListAll (public)
// - DELETE /api/episodes/{id}       -> Delete (bearer, owner)
func (h *EpisodeHandler) RegisterRoutes(mux *http.ServeMux, requireAccount func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /api/feeds/{id}/episodes", h.ListByFeed)
	mux.Handle("POST /api/feeds/{id}/episodes", requireAccount(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/my-episodes", requireAccount(http.HandlerFunc(h.ListMine)))
	mux.HandleFunc("GET /api/podcasts", h.ListAll)
	mux.Handle("DELETE /api/episodes/{id}", requireAccount(http.HandlerFunc(h.Delete)))
}

// =============================================================================
// Listing
// =============================================================================

// ListByFeed returns a feed's episodes, newest first.
func (h *EpisodeHandler) ListByFeed(w http.ResponseWriter, r *http.Request) {
	const op = "handler.ListFeedEpisodes"

	feedID, err := pathID(r, op, "feed")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	episodes, err := h.episodes.ListByFeed(r.Context(), feedID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, episodes)
}

// ListMine returns the caller's episodes across all feeds.
func (h *EpisodeHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	episodes, err := h.episodes.ListByAccount(r.Context(), identity.AccountID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, episodes)
}

// ListAll returns every episode.
func (h *EpisodeHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	episodes, err := h.episodes.ListAll(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, episodes)
}

// =============================================================================
// POST /api/feeds/{id}/episodes
// =============================================================================

// Create parses a multipart episode upload and hands it to the service.
// Asset sizes come from the part headers, so quota admission happens before
// any byte reaches storage.
func (h *EpisodeHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handler.CreateEpisode"

	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	feedID, err := pathID(r, op, "feed")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(w, r, h.logger, domain.Wrap(err, domain.ETOOLARGE, op, "Upload too large"))
			return
		}
		ErrorResponse(w, r, h.logger, domain.Wrap(err, domain.EINVALID, op, "Expected a multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	params := domain.CreateEpisodeParams{
		FeedID:      feedID,
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}

	cover, closeCover, err := formUpload(r, op, "cover")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	defer closeCover()
	params.Cover = cover

	audio, closeAudio, err := formUpload(r, op, "audio")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	defer closeAudio()
	params.Audio = audio

	episode, err := h.episodes.Create(r.Context(), identity.AccountID, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, episode)
}

// formUpload opens the named file part. A missing part yields a nil upload.
func formUpload(r *http.Request, op, field string) (*domain.Upload, func(), error) {
	noop := func() {}

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, noop, nil
		}
		return nil, noop, domain.Wrap(err, domain.EINVALID, op, "Could not read "+field+" file")
	}

	return uploadFromPart(file, header), func() { _ = file.Close() }, nil
}

func uploadFromPart(file multipart.File, header *multipart.FileHeader) *domain.Upload {
	return &domain.Upload{
		Body:        file,
		Size:        header.Size,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}
}

// =============================================================================
// DELETE /api/episodes/{id}
// =============================================================================

// Delete removes one of the caller's episodes.
func (h *EpisodeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "handler.DeleteEpisode"

	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	id, err := pathID(r, op, "episode")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.episodes.Delete(r.Context(), id, identity.AccountID); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
