package service

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/sakif/image-feed/internal/apperror"
	"github.com/sakif/image-feed/internal/dispatch"
	"github.com/sakif/image-feed/internal/executor"
	"github.com/sakif/image-feed/internal/model"
)

// DefaultPerPage is the feed page size when none is configured.
const DefaultPerPage = 10

// FeedService holds the paginated photo collection.
//
// COLLECTION INVARIANTS:
//   - ids are unique; a photo already present is never appended again, even
//     if the server delivers it twice (pages shift when new photos arrive)
//   - the collection only grows at the tail, in server order, until Reset
//   - lastPage advances by exactly one per successful fetch
//   - at most one page fetch is outstanding
//
// Photos are values. A like toggle replaces the photo at its index with a
// copy; it never mutates one in place.
type FeedService struct {
	api     *APIClient
	perPage int
	changes *dispatch.Emitter[model.FeedChange]
	logger  *slog.Logger

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc // non-nil while a page fetch is pending
	photos   []model.Photo
	ids      map[string]struct{}
	lastPage int // 0 until the first page loads
}

// NewFeedService creates a FeedService. perPage <= 0 means DefaultPerPage.
func NewFeedService(api *APIClient, perPage int, queue *dispatch.Queue, logger *slog.Logger) *FeedService {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return &FeedService{
		api:     api,
		perPage: perPage,
		changes: dispatch.NewEmitter[model.FeedChange](queue),
		logger:  logger,
		ids:     make(map[string]struct{}),
	}
}

// Changes publishes one FeedChange per state change, in order.
func (s *FeedService) Changes() *dispatch.Emitter[model.FeedChange] {
	return s.changes
}

// FetchNextPage loads page lastPage+1 and appends the photos not already in
// the collection. It returns nil without doing anything if a fetch is
// already pending.
//
// On failure the collection and page counter are left as they were.
func (s *FeedService) FetchNextPage(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	next := s.lastPage + 1
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.mu.Unlock()

	results, err := s.fetchPage(reqCtx, next)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		// Reset ran while the page was loading; the page belongs to the old feed.
		s.logger.Debug("feed: discarding page fetched before reset", slog.Int("page", next))
		if err != nil {
			return err
		}
		return apperror.Transport(context.Canceled)
	}
	s.cancel = nil

	if err != nil {
		s.logger.Warn("feed: page fetch failed", slog.Int("page", next), slog.String("error", err.Error()))
		return err
	}

	appended := 0
	for _, r := range results {
		photo := r.Photo()
		if _, seen := s.ids[photo.ID]; seen {
			continue
		}
		s.ids[photo.ID] = struct{}{}
		s.photos = append(s.photos, photo)
		appended++
	}
	s.lastPage = next

	s.logger.Debug("feed: page loaded",
		slog.Int("page", next),
		slog.Int("received", len(results)),
		slog.Int("appended", appended),
		slog.Int("total", len(s.photos)),
	)
	s.changes.Publish(model.FeedChange{Appended: appended, Index: model.NoIndex})
	return nil
}

func (s *FeedService) fetchPage(ctx context.Context, page int) ([]model.PhotoResult, error) {
	query := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(s.perPage)},
	}
	req, err := s.api.newRequest(ctx, http.MethodGet, "/photos", query)
	if err != nil {
		return nil, err
	}
	return executor.DoJSON[[]model.PhotoResult](s.api.exec, req)
}

// ToggleLike likes (liked=true) or unlikes a photo. Local state changes only
// after the server confirms; a photo that is no longer in the collection is
// still liked on the server but nothing changes locally.
func (s *FeedService) ToggleLike(ctx context.Context, photoID string, liked bool) error {
	if photoID == "" {
		return apperror.InvalidRequest("id", "must not be empty")
	}

	method := http.MethodPost
	if !liked {
		method = http.MethodDelete
	}
	req, err := s.api.newRequest(ctx, method, "/photos/"+url.PathEscape(photoID)+"/like", nil)
	if err != nil {
		return err
	}
	if _, err := s.api.exec.Do(req); err != nil {
		s.logger.Warn("feed: like toggle failed",
			slog.String("photoID", photoID),
			slog.Bool("liked", liked),
			slog.String("error", err.Error()),
		)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.photos {
		if p.ID == photoID {
			s.photos[i] = p.WithLiked(liked)
			s.changes.Publish(model.FeedChange{Index: i})
			return nil
		}
	}
	return nil
}

// Photos returns a copy of the collection.
func (s *FeedService) Photos() []model.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Photo, len(s.photos))
	copy(out, s.photos)
	return out
}

// Photo returns the photo with id, if present.
func (s *FeedService) Photo(id string) (model.Photo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.photos {
		if p.ID == id {
			return p, true
		}
	}
	return model.Photo{}, false
}

// LastLoadedPage returns the last page loaded, and false before the first.
func (s *FeedService) LastLoadedPage() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPage, s.lastPage > 0
}

// Len returns the number of photos in the collection.
func (s *FeedService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.photos)
}

// Fetching reports whether a page fetch is pending.
func (s *FeedService) Fetching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Reset cancels a pending fetch and empties the collection. The next
// FetchNextPage starts over at page 1.
func (s *FeedService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.photos = nil
	s.ids = make(map[string]struct{})
	s.lastPage = 0
	s.changes.Publish(model.FeedChange{Index: model.NoIndex, Cleared: true})
}
