package handler_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/sakif/image-feed/internal/dispatch"
	"github.com/sakif/image-feed/internal/model"
)

// =========================================================================
// FAKES
// =========================================================================

type fakeSession struct {
	authed    bool
	authErr   error
	profile   model.Profile
	loginErr  error
	logoutErr error

	gotCode string
	logouts int
}

func (f *fakeSession) Login(_ context.Context, code string) (model.Profile, error) {
	f.gotCode = code
	if f.loginErr != nil {
		return model.Profile{}, f.loginErr
	}
	f.authed = true
	return f.profile, nil
}

func (f *fakeSession) Logout(context.Context) error {
	f.logouts++
	if f.logoutErr != nil {
		return f.logoutErr
	}
	f.authed = false
	return nil
}

func (f *fakeSession) Authenticated(context.Context) (bool, error) {
	return f.authed, f.authErr
}

type fakeFeed struct {
	mu      sync.Mutex
	photos  []model.Photo
	page    int
	nextErr error
	likeErr error

	nextCalls int
	toggles   []string // "id:true"
	changes   *dispatch.Emitter[model.FeedChange]
}

func (f *fakeFeed) FetchNextPage(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextCalls++
	if f.nextErr != nil {
		return f.nextErr
	}
	f.page++
	return nil
}

func (f *fakeFeed) ToggleLike(_ context.Context, id string, liked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if liked {
		f.toggles = append(f.toggles, id+":true")
	} else {
		f.toggles = append(f.toggles, id+":false")
	}
	if f.likeErr != nil {
		return f.likeErr
	}
	for i, p := range f.photos {
		if p.ID == id {
			f.photos[i] = p.WithLiked(liked)
		}
	}
	return nil
}

func (f *fakeFeed) Photos() []model.Photo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Photo(nil), f.photos...)
}

func (f *fakeFeed) Photo(id string) (model.Photo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.photos {
		if p.ID == id {
			return p, true
		}
	}
	return model.Photo{}, false
}

func (f *fakeFeed) LastLoadedPage() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.page, f.page > 0
}

func (f *fakeFeed) Changes() *dispatch.Emitter[model.FeedChange] { return f.changes }

type fakeProfiles struct {
	profile    model.Profile
	loaded     bool
	fetched    model.Profile
	fetchErr   error
	fetchCalls int
}

func (f *fakeProfiles) FetchProfile(context.Context) (model.Profile, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return model.Profile{}, f.fetchErr
	}
	f.profile, f.loaded = f.fetched, true
	return f.fetched, nil
}

func (f *fakeProfiles) Profile() (model.Profile, bool) { return f.profile, f.loaded }

type fakeAvatars struct {
	url     string
	changes *dispatch.Emitter[model.AvatarChange]
}

func (f *fakeAvatars) AvatarURL() string { return f.url }
func (f *fakeAvatars) Changes() *dispatch.Emitter[model.AvatarChange] { return f.changes }

// =========================================================================
// HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestQueue(t *testing.T) *dispatch.Queue {
	t.Helper()
	q := dispatch.NewQueue(testLogger())
	q.Start()
	t.Cleanup(q.Stop)
	return q
}

func newFakeFeed(q *dispatch.Queue, photos ...model.Photo) *fakeFeed {
	return &fakeFeed{photos: photos, changes: dispatch.NewEmitter[model.FeedChange](q)}
}

func newFakeAvatars(q *dispatch.Queue, url string) *fakeAvatars {
	return &fakeAvatars{url: url, changes: dispatch.NewEmitter[model.AvatarChange](q)}
}

func testPhoto(id string) model.Photo {
	return model.Photo{
		ID:       id,
		Size:     model.Size{Width: 400, Height: 300},
		ThumbURL: "https://images.example/" + id + "-thumb.jpg",
		FullURL:  "https://images.example/" + id + "-full.jpg",
	}
}
