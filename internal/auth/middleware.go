package auth

import (
	"context"
	"net/http"
)

// CookieName is the cookie the session token travels in.
const CookieName = "session"

// contextKey is unexported so no other package can read or shadow the value.
type contextKey string

const sessionIDKey contextKey = "sessionID"

// RequireAuth rejects requests without a valid session cookie and stores the
// session id in the request context for the ones it lets through.
//
// A nil TokenService disables the check. That is how the server runs when
// no JWT secret is configured, e.g. bound to localhost for a single UI.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if tokens == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, ok := sessionFromCookie(tokens, r)
			if !ok {
				unauthorized(w)
				return
			}
			ctx := WithSessionID(r.Context(), sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// HasSession reports whether r carries a valid session cookie. With a nil
// TokenService every request counts, matching RequireAuth.
func HasSession(tokens *TokenService, r *http.Request) bool {
	if tokens == nil {
		return true
	}
	_, ok := sessionFromCookie(tokens, r)
	return ok
}

func sessionFromCookie(tokens *TokenService, r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	sessionID, err := tokens.Validate(cookie.Value)
	if err != nil {
		return "", false
	}
	return sessionID, true
}

// WithSessionID returns a copy of ctx carrying sessionID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// SessionIDFromContext returns the session id RequireAuth stored, if any.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized","message":"valid session required"}` + "\n"))
}
