package handler

// RESPONSE HELPERS:
// Every error response has the same shape, whatever the cause:
//
//	{"error": "upstream_error", "message": "upstream returned HTTP status 404"}
//
// so the UI can branch on "error" without knowing which call failed.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/image-feed/internal/apperror"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind, e.g. "unauthenticated"
	Message string `json:"message"` // human-readable description
}

// maxBodyBytes bounds request bodies; the largest one is a callback URL.
const maxBodyBytes = 16 << 10

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON: "+err.Error())
	}
	return nil
}

// writeError maps a service error onto an HTTP status.
//
// ERROR MAPPING:
//
//	InvalidRequest, Validation        → 400
//	Unauthenticated                   → 401
//	NotFound                          → 404
//	CancelledByAnotherRequest         → 409
//	HTTPStatus, Decode, NoResponse    → 502 (the photo API misbehaved)
//	Transport                         → 504 (the photo API was unreachable)
//	anything else                     → 500, details withheld
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status := http.StatusInternalServerError
	kind := "internal_error"

	switch {
	case errors.Is(err, apperror.ErrInvalidRequest):
		status, kind = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, apperror.ErrValidation):
		status, kind = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthenticated):
		status, kind = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, apperror.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrCancelledByAnotherRequest):
		status, kind = http.StatusConflict, "cancelled_by_another_request"
	case errors.Is(err, apperror.ErrHTTPStatus):
		status, kind = http.StatusBadGateway, "upstream_error"
	case errors.Is(err, apperror.ErrDecode), errors.Is(err, apperror.ErrNoResponse):
		status, kind = http.StatusBadGateway, "upstream_error"
	case errors.Is(err, apperror.ErrTransport):
		status, kind = http.StatusGatewayTimeout, "upstream_unavailable"
	}

	writeJSON(w, status, ErrorResponse{Error: kind, Message: appErr.Message})
}
