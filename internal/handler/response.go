package handler

// RESPONSE HELPERS:
// Every response body carries a boolean "success". Errors always look like
//
//	{"success": false, "error": "<message>", "details": [...]}
//
// where details is present only for validation failures.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/meal-planner/internal/apperror"
)

// maxBodyBytes caps request bodies; preference lists are small.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Success bool                 `json:"success"`
	Error   string               `json:"error"`
	Details []apperror.Violation `json:"details,omitempty"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set before the body is written; once Encode
// writes, header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation),
		errors.Is(err, apperror.ErrDuplicateEmail):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrInvalidCredentials),
		errors.Is(err, apperror.ErrAuthRequired),
		errors.Is(err, apperror.ErrInvalidToken),
		errors.Is(err, apperror.ErrUserNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// writeError maps a service error to a status and body.
//
// Client-facing kinds carry their own message. Generation failures and
// anything unclassified are logged with full detail and answered with the
// route's generic fallback message, so provider output, SQL and file paths
// never reach the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	var appErr *apperror.AppError
	status := statusFor(err)

	switch {
	case errors.Is(err, apperror.ErrGenerationFailed):
		cause := err
		if errors.As(err, &appErr) {
			cause = appErr.Err
		}
		logger.Error(fallback, slog.String("error", err.Error()), slog.String("cause", cause.Error()))
		writeFailure(w, status, fallback)

	case errors.As(err, &appErr):
		if status == http.StatusInternalServerError {
			logger.Error(fallback, slog.String("error", err.Error()))
		}
		writeJSON(w, status, ErrorResponse{Error: appErr.Message, Details: appErr.Details})

	default:
		logger.Error(fallback, slog.String("error", err.Error()))
		writeFailure(w, http.StatusInternalServerError, fallback)
	}
}
