package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/image-feed/internal/model"
)

// ProfileResponse is the body of GET /api/profile.
type ProfileResponse struct {
	Profile   model.Profile `json:"profile"`
	AvatarURL string        `json:"avatarUrl,omitempty"`
}

type ProfileHandler struct {
	profiles Profiles
	avatars  Avatars
	logger   *slog.Logger
}

func NewProfileHandler(profiles Profiles, avatars Avatars, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		avatars:  avatars,
		logger:   logger,
	}
}

// HandleGet returns the current profile, fetching it if none is loaded or
// ?refresh=true is given. The avatar URL may be absent while it resolves;
// the "avatar" event announces it.
//
// HTTP: GET /api/profile
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profiles.Profile()
	if !ok || r.URL.Query().Get("refresh") == "true" {
		var err error
		profile, err = h.profiles.FetchProfile(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, ProfileResponse{
		Profile:   profile,
		AvatarURL: h.avatars.AvatarURL(),
	})
}
