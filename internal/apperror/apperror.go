// Package apperror defines the error taxonomy shared by every layer.
//
// Each category is a sentinel (ErrTransport, ErrHTTPStatus, ...). Constructors
// wrap the sentinel in an *AppError carrying a human-readable message and,
// where it exists, the underlying cause. Because Unwrap returns both, callers
// can ask either question with errors.Is:
//
//	errors.Is(err, apperror.ErrTransport)   // what kind of failure?
//	errors.Is(err, context.Canceled)        // what actually happened?
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")

	// Request could not be built (bad URL, empty parameter). Never sent.
	ErrInvalidRequest = errors.New("invalid request")
	// No bearer token is stored.
	ErrUnauthenticated = errors.New("unauthenticated")
	// A token exchange for a different code is already in flight.
	ErrCancelledByAnotherRequest = errors.New("cancelled by another request")
	// Upstream answered with a non-2xx status.
	ErrHTTPStatus = errors.New("http status")
	// The request never produced a response (network failure, cancellation).
	ErrTransport = errors.New("transport error")
	// Neither a response nor an error came back.
	ErrNoResponse = errors.New("no response")
	// A 2xx body could not be decoded.
	ErrDecode = errors.New("decode error")
)

type AppError struct {
	Err        error  // category sentinel
	Message    string // Human-readable error message
	Field      string // Optional: field causing the error
	StatusCode int    // Optional: upstream HTTP status (ErrHTTPStatus only)
	Cause      error  // Optional: underlying error
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the category and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// InvalidRequest reports a request that could not be constructed.
func InvalidRequest(field, message string) *AppError {
	return &AppError{
		Err:     ErrInvalidRequest,
		Message: message,
		Field:   field,
	}
}

func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "no bearer token stored",
	}
}

// CancelledByAnotherRequest is returned to a token exchange while an exchange
// for a different code is still pending.
func CancelledByAnotherRequest() *AppError {
	return &AppError{
		Err:     ErrCancelledByAnotherRequest,
		Message: "another token exchange is in progress",
		Field:   "code",
	}
}

func HTTPStatus(code int) *AppError {
	return &AppError{
		Err:        ErrHTTPStatus,
		Message:    fmt.Sprintf("upstream returned HTTP status %d", code),
		StatusCode: code,
	}
}

func Transport(cause error) *AppError {
	return &AppError{
		Err:     ErrTransport,
		Message: fmt.Sprintf("request failed: %v", cause),
		Cause:   cause,
	}
}

func NoResponse() *AppError {
	return &AppError{
		Err:     ErrNoResponse,
		Message: "neither a response nor an error was received",
	}
}

func Decode(cause error) *AppError {
	return &AppError{
		Err:     ErrDecode,
		Message: fmt.Sprintf("decoding response: %v", cause),
		Cause:   cause,
	}
}

// StatusCode returns the upstream HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && errors.Is(appErr.Err, ErrHTTPStatus) {
		return appErr.StatusCode, true
	}
	return 0, false
}
