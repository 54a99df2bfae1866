package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInternal      = errors.New("internal error")

	// Auth lifecycle sentinels.
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrTokenInvalidated       = errors.New("token invalidated")
	ErrMissingDelegatedAccess = errors.New("missing delegated access")
	ErrConsentDenied          = errors.New("consent denied")

	// Upstream and infrastructure sentinels.
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrValidation      = errors.New("validation failure")
	ErrStorageFailure  = errors.New("storage failure")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthenticated creates a 401 error for a missing or unresolvable
// session/credential.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHENTICATED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthenticated,
	}
}

// TokenInvalidated creates a 401 error for a credential that has been revoked
// before its natural expiry. Distinct from UNAUTHENTICATED so the client can
// tell a killed token from a missing one.
func TokenInvalidated() *AppError {
	return &AppError{
		Code:    "TOKEN_INVALIDATED",
		Message: "token has been invalidated",
		Status:  http.StatusUnauthorized,
		Err:     ErrTokenInvalidated,
	}
}

// MissingDelegatedAccess creates a 403 error for an authenticated user without
// an upstream access credential on file.
func MissingDelegatedAccess() *AppError {
	return &AppError{
		Code:    "MISSING_DELEGATED_ACCESS",
		Message: "no delegated access credential available for this account",
		Status:  http.StatusForbidden,
		Err:     ErrMissingDelegatedAccess,
	}
}

// ConsentDenied creates a 403 error for a user who declined the external
// authorization consent screen. Must never collapse into the generic failure path.
func ConsentDenied(message string) *AppError {
	return &AppError{
		Code:    "CONSENT_DENIED",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrConsentDenied,
	}
}

// Upstream creates a 502 error for an external identity or content API
// failure. The underlying error is kept for logs but never exposed.
func Upstream(service string, err error) *AppError {
	return &AppError{
		Code:    "UPSTREAM_FAILURE",
		Message: fmt.Sprintf("%s request failed", service),
		Status:  http.StatusBadGateway,
		Err:     fmt.Errorf("%w: %w", ErrUpstreamFailure, err),
	}
}

// Validation creates a 400 error for a bad payload (wrong type, oversize).
func Validation(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_FAILURE",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrValidation,
	}
}

// Storage creates a 503 error for a persistent store that is unavailable.
// The underlying error is kept for logs but never exposed.
func Storage(err error) *AppError {
	return &AppError{
		Code:    "STORAGE_FAILURE",
		Message: "persistent store unavailable",
		Status:  http.StatusServiceUnavailable,
		Err:     fmt.Errorf("%w: %w", ErrStorageFailure, err),
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrTokenInvalidated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrMissingDelegatedAccess), errors.Is(err, ErrConsentDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrUpstreamFailure):
		return http.StatusBadGateway
	case errors.Is(err, ErrStorageFailure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
