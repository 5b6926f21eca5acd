// Package handler exposes the session core over HTTP for a UI running in a
// browser or web view.
//
// Handlers only translate: they parse the request, call one service method
// and write the result. Every rule about single-flight requests, duplicate
// photos or credentials lives in the service package.
//
// Handlers depend on the narrow interfaces below rather than on concrete
// services, so tests can substitute fakes.
package handler

import (
	"context"

	"github.com/sakif/image-feed/internal/dispatch"
	"github.com/sakif/image-feed/internal/model"
)

// Session is the login/logout orchestration.
type Session interface {
	Login(ctx context.Context, code string) (model.Profile, error)
	Logout(ctx context.Context) error
	Authenticated(ctx context.Context) (bool, error)
}

// Feed is the paginated photo collection.
type Feed interface {
	FetchNextPage(ctx context.Context) error
	ToggleLike(ctx context.Context, photoID string, liked bool) error
	Photos() []model.Photo
	Photo(id string) (model.Photo, bool)
	LastLoadedPage() (int, bool)
	Changes() *dispatch.Emitter[model.FeedChange]
}

// Profiles is the signed-in user's profile.
type Profiles interface {
	FetchProfile(ctx context.Context) (model.Profile, error)
	Profile() (model.Profile, bool)
}

// Avatars is the resolved avatar URL.
type Avatars interface {
	AvatarURL() string
	Changes() *dispatch.Emitter[model.AvatarChange]
}
