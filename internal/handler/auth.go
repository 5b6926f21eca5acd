package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/rs/xid"

	"github.com/sakif/image-feed/internal/apperror"
	"github.com/sakif/image-feed/internal/auth"
)

// AuthHandler drives login and logout.
//
// LOGIN FLOW:
//  1. GET  /auth/login      → 302 to the photo service's login page
//  2. the web view navigates; the UI watches each URL it visits
//  3. POST /auth/callback   → the UI posts the URL that carried ?code=...
//  4. the server exchanges the code, loads the profile and first page,
//     and sets the session cookie
//
// If the browser already holds a valid session cookie and a credential is
// stored, step 1 resumes the session directly. A stored credential alone
// never hands out a cookie.
type AuthHandler struct {
	provider *auth.Provider
	session  Session
	tokens   *auth.TokenService // nil when session cookies are disabled
	logger   *slog.Logger
}

func NewAuthHandler(provider *auth.Provider, session Session, tokens *auth.TokenService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		session:  session,
		tokens:   tokens,
		logger:   logger,
	}
}

// HandleLogin redirects to the authorization page, or home if this browser
// is signed in and a credential is stored.
//
// HTTP: GET /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !auth.HasSession(h.tokens, r) {
		http.Redirect(w, r, h.provider.AuthURL(), http.StatusFound)
		return
	}

	authed, err := h.session.Authenticated(r.Context())
	if err != nil {
		h.logger.Error("auth login: reading credential", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	if authed {
		if !h.setSessionCookie(w) {
			http.Error(w, "session could not be started", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	http.Redirect(w, r, h.provider.AuthURL(), http.StatusFound)
}

// CallbackRequest carries the URL the login page navigated to.
type CallbackRequest struct {
	URL string `json:"url"`
}

// HandleCallback completes login from a navigated URL.
//
// HTTP: POST /auth/callback   {"url": "https://unsplash.com/oauth/authorize/native?code=..."}
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	var req CallbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		writeError(w, apperror.InvalidRequest("url", "not a URL"))
		return
	}
	code, ok := h.provider.CodeFromCallback(u)
	if !ok {
		writeError(w, apperror.InvalidRequest("url", "not an authorization callback"))
		return
	}

	profile, err := h.session.Login(r.Context(), code)
	if err != nil {
		h.logger.Warn("auth callback: login failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	if !h.setSessionCookie(w) {
		http.Error(w, "session could not be started", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleLogout forgets the credential and clears the session cookie.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Logout(r.Context()); err != nil {
		h.logger.Error("auth logout failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	// The HTML page logs out with a plain form post.
	if r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setSessionCookie issues a fresh session. It reports false if signing
// failed; with cookies disabled it is a no-op.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter) bool {
	if h.tokens == nil {
		return true
	}

	sessionID := xid.New().String()
	token, err := h.tokens.Generate(sessionID)
	if err != nil {
		h.logger.Error("auth: issuing session token", slog.String("error", err.Error()))
		return false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	h.logger.Debug("auth: session started", slog.String("sessionID", sessionID))
	return true
}
