package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/sakif/image-feed/internal/apperror"
	"github.com/sakif/image-feed/internal/dispatch"
	"github.com/sakif/image-feed/internal/executor"
	"github.com/sakif/image-feed/internal/model"
)

// AvatarService resolves the small profile image URL of a user.
//
// Requests for the same user are joined: a caller arriving while the lookup
// is in flight waits for that lookup instead of restarting it. A request for
// a different user cancels the one in flight. Requests are never queued.
type AvatarService struct {
	api     *APIClient
	changes *dispatch.Emitter[model.AvatarChange]
	logger  *slog.Logger

	flights singleflight.Group

	mu     sync.Mutex
	gen    uint64
	target string             // path of the lookup in flight
	cancel context.CancelFunc // non-nil while a lookup is in flight
	url    string
}

func NewAvatarService(api *APIClient, queue *dispatch.Queue, logger *slog.Logger) *AvatarService {
	return &AvatarService{
		api:     api,
		changes: dispatch.NewEmitter[model.AvatarChange](queue),
		logger:  logger,
	}
}

// Changes publishes the new URL every time a lookup succeeds, and an empty
// URL when the avatar is cleared.
func (s *AvatarService) Changes() *dispatch.Emitter[model.AvatarChange] {
	return s.changes
}

// AvatarURL returns the last resolved URL, or "" if none.
func (s *AvatarService) AvatarURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// FetchAvatarURL looks up username and stores the result as the current
// avatar. Returning early because ctx is done does not stop a lookup other
// callers may be waiting on.
func (s *AvatarService) FetchAvatarURL(ctx context.Context, username string) (string, error) {
	if username == "" {
		return "", apperror.InvalidRequest("username", "must not be empty")
	}
	ok, err := s.api.hasCredential(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperror.Unauthenticated()
	}

	path := "/users/" + url.PathEscape(username)
	ch := s.flights.DoChan(path, func() (any, error) {
		return s.lookup(context.WithoutCancel(ctx), path)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", apperror.Transport(ctx.Err())
	}
}

// lookup runs once per flight.
func (s *AvatarService) lookup(parent context.Context, path string) (string, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	req, err := s.api.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.cancel != nil && s.target != path {
		s.logger.Debug("avatar: superseding lookup", slog.String("previous", s.target), slog.String("next", path))
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.target = path
	s.cancel = cancel
	s.mu.Unlock()

	user, err := executor.DoJSON[model.UserResult](s.api.exec, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.gen == gen
	if current {
		s.target = ""
		s.cancel = nil
	}

	if err != nil {
		s.logger.Warn("avatar: lookup failed", slog.String("path", path), slog.String("error", err.Error()))
		return "", err
	}
	avatar := user.ProfileImage.Small
	if avatar == "" {
		return "", apperror.Decode(errors.New("profile_image.small is empty"))
	}

	if current {
		s.url = avatar
		s.changes.Publish(model.AvatarChange{URL: avatar})
	}
	return avatar, nil
}

// Clear cancels any lookup in flight and forgets the current URL.
func (s *AvatarService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.target = ""
	s.url = ""
	s.changes.Publish(model.AvatarChange{})
}
