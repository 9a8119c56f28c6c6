package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// NotFoundMessage is returned when a requested record does not exist.
	NotFoundMessage = "resource not found"
	// InvalidInputMessage describes requests rejected by validation.
	InvalidInputMessage = "invalid request"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// StorageErrorMessage describes durable store failures (SQLite, MongoDB).
	StorageErrorMessage = "storage operation failed"
	// UpstreamErrorMessage describes failures of third-party APIs (LLM, maps).
	UpstreamErrorMessage = "upstream service failed"
)

// ErrNotFound is the sentinel every store maps its "no rows" condition to.
var ErrNotFound = errors.New("not found")

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// NotFound builds a 404 AppError that also matches ErrNotFound.
func NotFound(what string) *AppError {
	return New(fmt.Errorf("%s: %w", what, ErrNotFound), http.StatusNotFound, NotFoundMessage)
}

// Invalid builds a 422 AppError for rejected input.
func Invalid(err error) *AppError {
	return New(err, http.StatusUnprocessableEntity, InvalidInputMessage)
}

// Upstream wraps a failure of an external API.
func Upstream(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, UpstreamErrorMessage)
}

// IsNotFound reports whether err carries ErrNotFound anywhere in its chain.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StatusOf returns the HTTP status attached to err, or 500 when there is none.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the safe message attached to err, or SystemErrorMessage.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return SystemErrorMessage
}
