package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/podcaster/internal/auth"
	"github.com/DukeRupert/podcaster/internal/domain"
	"github.com/DukeRupert/podcaster/internal/service"
)

// FeedHandler handles feed HTTP requests.
type FeedHandler struct {
	feeds  service.FeedService
	logger *slog.Logger
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(feeds service.FeedService, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{
		feeds:  feeds,
		logger: logger,
	}
}

// RegisterRoutes registers feed routes.
//
// Routes:
// - GET    /api/feeds      -> List (public)
// - POST   /api/feeds      -> Create (bearer)
// - GET    /api/my-feeds   -> ListMine (bearer)
// - DELETE /api/feeds/{id} -> Delete (bearer, owner)
func (h *FeedHandler) RegisterRoutes(mux *http.ServeMux, requireAccount func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /api/feeds", h.List)
	mux.Handle("POST /api/feeds", requireAccount(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/my-feeds", requireAccount(http.HandlerFunc(h.ListMine)))
	mux.Handle("DELETE /api/feeds/{id}", requireAccount(http.HandlerFunc(h.Delete)))
}

type createFeedRequest struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// List returns every feed, newest first.
func (h *FeedHandler) List(w http.ResponseWriter, r *http.Request) {
	feeds, err := h.feeds.List(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, feeds)
}

// ListMine returns the caller's feeds.
func (h *FeedHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	feeds, err := h.feeds.ListByAccount(r.Context(), identity.AccountID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, feeds)
}

// Create creates a feed owned by the caller.
func (h *FeedHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handler.CreateFeed"

	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req createFeedRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	feed, err := h.feeds.Create(r.Context(), identity.AccountID, domain.CreateFeedParams{
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, feed)
}

// Delete deletes one of the caller's feeds and reports the bytes freed.
func (h *FeedHandler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "handler.DeleteFeed"

	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	id, err := pathID(r, op, "feed")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	res, err := h.feeds.Delete(r.Context(), id, identity.AccountID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
