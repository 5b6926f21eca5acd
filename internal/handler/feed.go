package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/image-feed/internal/model"
)

// FeedResponse is the body of GET /api/photos and POST /api/photos/next.
type FeedResponse struct {
	Photos         []model.Photo `json:"photos"`
	LastLoadedPage int           `json:"lastLoadedPage"` // 0 before the first page
}

type FeedHandler struct {
	feed   Feed
	logger *slog.Logger
}

func NewFeedHandler(feed Feed, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{
		feed:   feed,
		logger: logger,
	}
}

// HandleList returns the collection as loaded so far.
//
// HTTP: GET /api/photos
func (h *FeedHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.snapshot())
}

// HandleNext loads the next page and returns the whole collection. When a
// fetch is already running it returns the collection without waiting.
//
// HTTP: POST /api/photos/next
func (h *FeedHandler) HandleNext(w http.ResponseWriter, r *http.Request) {
	if err := h.feed.FetchNextPage(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.snapshot())
}

// HandleLike and HandleUnlike set the like flag of one photo and return the
// updated photo, or 204 when it is not part of the collection.
//
// HTTP: POST   /api/photos/{id}/like
// HTTP: DELETE /api/photos/{id}/like
func (h *FeedHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, true)
}

func (h *FeedHandler) HandleUnlike(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, false)
}

func (h *FeedHandler) toggle(w http.ResponseWriter, r *http.Request, liked bool) {
	id := chi.URLParam(r, "id")
	if err := h.feed.ToggleLike(r.Context(), id, liked); err != nil {
		writeError(w, err)
		return
	}

	photo, ok := h.feed.Photo(id)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, photo)
}

func (h *FeedHandler) snapshot() FeedResponse {
	photos := h.feed.Photos()
	if photos == nil {
		photos = []model.Photo{}
	}
	page, _ := h.feed.LastLoadedPage()
	return FeedResponse{Photos: photos, LastLoadedPage: page}
}
