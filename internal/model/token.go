package model

import (
	"time"

	"golang.org/x/oauth2"
)

// OAuthTokenResponse is the token endpoint's answer to an authorization-code
// exchange.
type OAuthTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	CreatedAt   int64  `json:"created_at"` // unix seconds
}

// Token converts the response into an *oauth2.Token so that request signing
// goes through oauth2's SetAuthHeader. The token never expires on its own.
func (r OAuthTokenResponse) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken: r.AccessToken,
		TokenType:   r.TokenType,
	}
	return tok.WithExtra(map[string]any{
		"scope":      r.Scope,
		"created_at": time.Unix(r.CreatedAt, 0).UTC(),
	})
}
