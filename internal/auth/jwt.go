// Package auth covers both sides of authentication: the OAuth Authorization
// Code flow against the photo service (oauth.go), and the session cookie the
// companion server hands to its own UI (this file and middleware.go).
//
// SESSION COOKIE:
// The photo service's bearer token never leaves the process. The UI instead
// receives a short JWT whose subject is an opaque session id:
//
//	HEADER.PAYLOAD.SIGNATURE
//	payload → {"iss":"image-feed","sub":"cv37rs3pp9olc6atsptg","exp":...}
//
// Holding the cookie proves the browser completed login through this
// server. It says nothing about the bearer token, which lives in the
// credential store.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "image-feed"

// DefaultSessionTTL is how long a session cookie stays valid.
const DefaultSessionTTL = 24 * time.Hour

// TokenService signs and verifies session tokens with an HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. A zero ttl means DefaultSessionTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the lifetime of tokens from Generate, for cookie MaxAge.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Generate signs a session token for sessionID with the configured lifetime.
func (s *TokenService) Generate(sessionID string) (string, error) {
	return s.GenerateWithDuration(sessionID, s.ttl)
}

// GenerateWithDuration signs a session token expiring after d.
func (s *TokenService) GenerateWithDuration(sessionID string, d time.Duration) (string, error) {
	now := time.Now()

	c := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    issuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session token: %w", err)
	}
	return signed, nil
}

// Validate verifies tokenStr and returns its session id.
//
// Only HS256 tokens from this issuer with an expiry are accepted; pinning
// the method keeps "alg":"none" tokens out.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.New("auth: session expired")
		}
		return "", fmt.Errorf("auth: invalid session token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("auth: invalid session token")
	}
	if c.Subject == "" {
		return "", errors.New("auth: session token has no subject")
	}
	return c.Subject, nil
}
