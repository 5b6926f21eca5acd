// Package service contains the session and data-sync logic.
//
// THE LAYERS:
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → owns state, enforces single-flight rules, publishes changes
//	Executor        → sends a request, classifies the outcome
//
// Each service owns its own mutable state behind its own mutex. Network calls
// run on the caller's goroutine with no lock held; completions take the lock
// again before touching state. A generation counter per service tells a
// completing request whether it is still the one the service is waiting
// for, so a superseded or cancelled request can never overwrite (or clear)
// the state of the request that replaced it.
//
// Change notifications go out through dispatch.Emitter, delivered in order
// on the dispatch queue.
package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/sakif/image-feed/internal/apperror"
	"github.com/sakif/image-feed/internal/credential"
	"github.com/sakif/image-feed/internal/executor"
)

// APIClient builds authenticated requests against the photo API.
// It is shared by the profile, avatar and feed services.
type APIClient struct {
	baseURL string
	exec    *executor.Executor
	creds   credential.Store
}

// NewAPIClient creates an APIClient rooted at baseURL (no trailing slash).
func NewAPIClient(baseURL string, exec *executor.Executor, creds credential.Store) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		exec:    exec,
		creds:   creds,
	}
}

// endpoint resolves path against the base URL. A base URL that does not
// parse into an absolute URL is an InvalidRequest; nothing is sent.
func (c *APIClient) endpoint(path string, query url.Values) (string, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return "", apperror.InvalidRequest("url", err.Error())
	}
	if u.Scheme == "" || u.Host == "" {
		return "", apperror.InvalidRequest("url", fmt.Sprintf("%q is not an absolute URL", u.String()))
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// newRequest builds a request for path carrying the stored bearer token.
// It fails with Unauthenticated when no token is stored.
func (c *APIClient) newRequest(ctx context.Context, method, path string, query url.Values) (*http.Request, error) {
	token, ok, err := c.creds.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: reading credential: %w", err)
	}
	if !ok {
		return nil, apperror.Unauthenticated()
	}

	target, err := c.endpoint(path, query)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, apperror.InvalidRequest("url", err.Error())
	}
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Version", "v1")
	return req, nil
}

// hasCredential reports whether a bearer token is stored.
func (c *APIClient) hasCredential(ctx context.Context) (bool, error) {
	_, ok, err := c.creds.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("service: reading credential: %w", err)
	}
	return ok, nil
}
