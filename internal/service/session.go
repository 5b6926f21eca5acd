package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/image-feed/internal/credential"
	"github.com/sakif/image-feed/internal/model"
)

// SessionService drives the login, launch and logout sequences across the
// other services. It holds no state of its own.
type SessionService struct {
	oauth    *OAuthService
	profiles *ProfileService
	avatars  *AvatarService
	feed     *FeedService
	creds    credential.Store
	logger   *slog.Logger
}

func NewSessionService(
	oauth *OAuthService,
	profiles *ProfileService,
	avatars *AvatarService,
	feed *FeedService,
	creds credential.Store,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		oauth:    oauth,
		profiles: profiles,
		avatars:  avatars,
		feed:     feed,
		creds:    creds,
		logger:   logger,
	}
}

// Login exchanges code for a token, then loads the profile and the first
// feed page. A failing feed page does not fail the login.
func (s *SessionService) Login(ctx context.Context, code string) (model.Profile, error) {
	if _, err := s.oauth.Exchange(ctx, code); err != nil {
		return model.Profile{}, err
	}

	profile, err := s.profiles.FetchProfile(ctx)
	if err != nil {
		return model.Profile{}, err
	}

	// A previous account's photos must not leak into this one.
	s.feed.Reset()
	if err := s.feed.FetchNextPage(ctx); err != nil {
		s.logger.Warn("session: first page failed after login", slog.String("error", err.Error()))
	}

	s.logger.Info("session: logged in", slog.String("username", profile.Username))
	return profile, nil
}

// Restore resumes a session from a stored credential. It reports false when
// there is nothing to resume.
func (s *SessionService) Restore(ctx context.Context) (model.Profile, bool, error) {
	ok, err := s.Authenticated(ctx)
	if err != nil || !ok {
		return model.Profile{}, false, err
	}

	profile, err := s.profiles.FetchProfile(ctx)
	if err != nil {
		return model.Profile{}, true, err
	}

	if _, loaded := s.feed.LastLoadedPage(); !loaded {
		if err := s.feed.FetchNextPage(ctx); err != nil {
			s.logger.Warn("session: first page failed on restore", slog.String("error", err.Error()))
		}
	}
	return profile, true, nil
}

// Logout forgets the credential and every piece of per-user state.
func (s *SessionService) Logout(ctx context.Context) error {
	if err := s.creds.Clear(ctx); err != nil {
		return fmt.Errorf("service/session: clearing credential: %w", err)
	}
	s.feed.Reset()
	s.profiles.Clear()
	s.avatars.Clear()

	s.logger.Info("session: logged out")
	return nil
}

// Authenticated reports whether a credential is stored.
func (s *SessionService) Authenticated(ctx context.Context) (bool, error) {
	_, ok, err := s.creds.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("service/session: reading credential: %w", err)
	}
	return ok, nil
}
