// Package apperror defines the application's error taxonomy.
//
// Every failure the HTTP surface can report is an *AppError wrapping one of
// the sentinel errors below. Lower layers wrap with fmt.Errorf("...: %w", err)
// and handlers classify with errors.Is / errors.As, so the service layer never
// needs to know about status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrValidation            = errors.New("validation error")
	ErrDuplicateEmail        = errors.New("duplicate email")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAuthRequired          = errors.New("authentication required")
	ErrInvalidToken          = errors.New("invalid token")
	ErrUserNotFound          = errors.New("user not found")
	ErrNotFound              = errors.New("not found")
	ErrGenerationFailed      = errors.New("generation failed")
	ErrProviderMisconfigured = errors.New("provider misconfigured")
	ErrRateLimited           = errors.New("rate limited")
)

// Violation describes one field that failed validation.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Err     error       // sentinel kind
	Message string      // Human-readable error message
	Field   string      // Optional: field causing the error
	Details []Violation // Optional: every violation, first one mirrored in Message/Field
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound returns an absence signal for the given resource and key.
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
		Details: []Violation{{Field: field, Message: message}},
	}
}

// Invalid builds a validation error from a non-empty violation list.
// The first violation becomes the headline message.
func Invalid(violations []Violation) *AppError {
	if len(violations) == 0 {
		return &AppError{Err: ErrValidation, Message: "Invalid input"}
	}
	return &AppError{
		Err:     ErrValidation,
		Message: violations[0].Message,
		Field:   violations[0].Field,
		Details: violations,
	}
}

func DuplicateEmail() *AppError {
	return &AppError{Err: ErrDuplicateEmail, Message: "Email already registered"}
}

// InvalidCredentials is deliberately identical for unknown email and wrong password.
func InvalidCredentials() *AppError {
	return &AppError{Err: ErrInvalidCredentials, Message: "Invalid email or password"}
}

func AuthRequired() *AppError {
	return &AppError{Err: ErrAuthRequired, Message: "Authentication required"}
}

func InvalidToken() *AppError {
	return &AppError{Err: ErrInvalidToken, Message: "Invalid or expired token"}
}

func UserNotFound() *AppError {
	return &AppError{Err: ErrUserNotFound, Message: "User not found"}
}

// GenerationFailed keeps the provider-side cause in the chain for logging;
// only Message ever reaches the client.
func GenerationFailed(message string, cause error) *AppError {
	err := ErrGenerationFailed
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrGenerationFailed, cause)
	}
	return &AppError{Err: err, Message: message}
}

func ProviderMisconfigured(message string) *AppError {
	return &AppError{Err: ErrProviderMisconfigured, Message: message}
}

func RateLimited() *AppError {
	return &AppError{Err: ErrRateLimited, Message: "Too many requests"}
}
