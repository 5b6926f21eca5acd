package handler

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/sakif/image-feed/internal/auth"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageHandler serves the minimal HTML front end: a login link when signed
// out, the photo grid when signed in. Templates are parsed once.
type PageHandler struct {
	templates *template.Template
	session   Session
	feed      Feed
	profiles  Profiles
	avatars   Avatars
	tokens    *auth.TokenService // nil when session cookies are disabled
	logger    *slog.Logger
}

func NewPageHandler(session Session, feed Feed, profiles Profiles, avatars Avatars, tokens *auth.TokenService, logger *slog.Logger) (*PageHandler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/feed.html")
	if err != nil {
		return nil, err
	}
	return &PageHandler{
		templates: tmpl,
		session:   session,
		feed:      feed,
		profiles:  profiles,
		avatars:   avatars,
		tokens:    tokens,
		logger:    logger,
	}, nil
}

// HandleFeed renders the home page. Account data is only rendered for a
// browser holding a valid session cookie; everyone else gets the login link.
//
// HTTP: GET /
func (h *PageHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	authed := false
	if auth.HasSession(h.tokens, r) {
		var err error
		authed, err = h.session.Authenticated(r.Context())
		if err != nil {
			h.logger.Error("page: reading credential", slog.String("error", err.Error()))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	data := map[string]any{
		"Title":         "Image Feed",
		"Authenticated": authed,
	}
	if authed {
		profile, _ := h.profiles.Profile()
		page, _ := h.feed.LastLoadedPage()
		data["Profile"] = profile
		data["AvatarURL"] = h.avatars.AvatarURL()
		data["Photos"] = h.feed.Photos()
		data["Page"] = page
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
