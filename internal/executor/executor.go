// Package executor runs HTTP requests against the photo API and turns every
// outcome into either a body or a categorised apperror.
//
// OUTCOME CLASSIFICATION:
//
//	transport error (DNS, refused, cancelled) → apperror.Transport(cause)
//	no response / no body                     → apperror.NoResponse()
//	status outside 200..299                   → apperror.HTTPStatus(code)
//	2xx body that is not valid JSON (DoJSON)  → apperror.Decode(cause)
//
// Callers never inspect *http.Response themselves; they switch on the
// category with errors.Is.
package executor

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/image-feed/internal/apperror"
)

// maxErrorBody caps how much of a non-2xx body is kept for the log line.
const maxErrorBody = 512

// Doer is the transport the Executor wraps. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Executor classifies request outcomes. It holds no per-request state and is
// safe for concurrent use.
type Executor struct {
	client Doer
	logger *slog.Logger
}

// New creates an Executor. A nil client means http.DefaultClient.
func New(client Doer, logger *slog.Logger) *Executor {
	if client == nil {
		client = http.DefaultClient
	}
	return &Executor{
		client: client,
		logger: logger,
	}
}

// NewHTTPClient returns the *http.Client the Executor is normally built on.
// The timeout is the only deadline applied to upstream calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Do sends req and returns the body of a 2xx response.
// Cancellation comes from req.Context().
func (e *Executor) Do(req *http.Request) ([]byte, error) {
	start := time.Now()

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Warn("executor: request failed",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Transport(err)
	}
	if resp == nil || resp.Body == nil {
		e.logger.Warn("executor: no response",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
		)
		return nil, apperror.NoResponse()
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_, _ = io.Copy(io.Discard, resp.Body)
		e.logger.Warn("executor: upstream returned error status",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(snippet)),
		)
		return nil, apperror.HTTPStatus(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.Transport(fmt.Errorf("reading body: %w", err))
	}

	e.logger.Debug("executor: request completed",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)
	return body, nil
}

// DoJSON sends req and decodes the 2xx body into a T.
//
// It is a function rather than a method because Go methods cannot declare
// their own type parameters.
func DoJSON[T any](e *Executor, req *http.Request) (T, error) {
	var out T

	body, err := e.Do(req)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, apperror.Decode(err)
	}
	return out, nil
}
