package service

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/sakif/image-feed/internal/executor"
	"github.com/sakif/image-feed/internal/model"
)

// ProfileService fetches and retains the signed-in user's profile.
//
// A new fetch cancels the previous one. Each successful fetch also kicks off
// avatar resolution for the username in the background; its outcome only
// reaches the avatar service's observers.
type ProfileService struct {
	api     *APIClient
	avatars *AvatarService
	logger  *slog.Logger

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	profile model.Profile
	loaded  bool
}

// NewProfileService creates a ProfileService. avatars may be nil.
func NewProfileService(api *APIClient, avatars *AvatarService, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		api:     api,
		avatars: avatars,
		logger:  logger,
	}
}

// FetchProfile loads GET /me and makes it the current profile.
func (s *ProfileService) FetchProfile(ctx context.Context) (model.Profile, error) {
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.mu.Unlock()

	profile, err := s.fetch(reqCtx)

	s.mu.Lock()
	current := s.gen == gen
	if current {
		s.cancel = nil
		if err == nil {
			s.profile = profile
			s.loaded = true
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("profile: fetch failed", slog.String("error", err.Error()))
		return model.Profile{}, err
	}

	if current && s.avatars != nil && profile.Username != "" {
		go s.resolveAvatar(context.WithoutCancel(ctx), profile.Username)
	}
	return profile, nil
}

func (s *ProfileService) fetch(ctx context.Context) (model.Profile, error) {
	req, err := s.api.newRequest(ctx, http.MethodGet, "/me", nil)
	if err != nil {
		return model.Profile{}, err
	}
	res, err := executor.DoJSON[model.ProfileResult](s.api.exec, req)
	if err != nil {
		return model.Profile{}, err
	}
	return model.NewProfile(res), nil
}

func (s *ProfileService) resolveAvatar(ctx context.Context, username string) {
	if _, err := s.avatars.FetchAvatarURL(ctx, username); err != nil {
		s.logger.Warn("profile: avatar resolution failed",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
	}
}

// Profile returns the current profile and whether one has been loaded.
func (s *ProfileService) Profile() (model.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile, s.loaded
}

// Clear cancels a fetch in flight and forgets the current profile.
func (s *ProfileService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.profile = model.Profile{}
	s.loaded = false
}
