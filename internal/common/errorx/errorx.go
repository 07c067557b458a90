package errorx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Category classifies a domain error for propagation and HTTP mapping.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryAuth       Category = "authentication"
	CategoryForbidden  Category = "authorization"
	CategoryNotFound   Category = "not_found"
	CategoryConflict   Category = "conflict"
	CategoryRateLimit  Category = "rate_limit"
	CategoryInternal   Category = "internal"
)

// APIError is the structured error returned by the domain managers and
// rendered by the HTTP layer.
type APIError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Category   Category       `json:"category"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Category, e.Message)
}

// JSON returns the error as a JSON string.
func (e *APIError) JSON() string {
	out, _ := json.Marshal(e)
	return string(out)
}

// WithMessage returns a copy of the error with the message replaced.
func (e *APIError) WithMessage(format string, args ...any) *APIError {
	clone := *e
	clone.Message = fmt.Sprintf(format, args...)
	return &clone
}

// WithDetail returns a copy of the error with an extra detail attached.
func (e *APIError) WithDetail(key string, value any) *APIError {
	clone := *e
	clone.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	clone.Details[key] = value
	return &clone
}

// Is makes errors.Is match any APIError carrying the same code, so a
// decorated copy still matches its sentinel.
func (e *APIError) Is(target error) bool {
	var other *APIError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

var (
	// ErrInvalidInput covers malformed tokens, bad date ranges and
	// out-of-range ttl/max_uses values.
	ErrInvalidInput = &APIError{
		Code:       "E1001",
		Message:    "invalid input",
		Category:   CategoryValidation,
		HTTPStatus: http.StatusBadRequest,
	}

	// ErrUnauthorized means the request carries no valid identity.
	ErrUnauthorized = &APIError{
		Code:       "E2001",
		Message:    "unauthorized",
		Category:   CategoryAuth,
		HTTPStatus: http.StatusUnauthorized,
	}

	// ErrForbidden means the caller is authenticated but holds no role at
	// or above the target scope.
	ErrForbidden = &APIError{
		Code:       "E3001",
		Message:    "insufficient permissions",
		Category:   CategoryForbidden,
		HTTPStatus: http.StatusForbidden,
	}

	// ErrNotFound means the target resource does not exist. Existence is
	// checked before authorization so unauthorized callers cannot probe it.
	ErrNotFound = &APIError{
		Code:       "E4001",
		Message:    "resource not found",
		Category:   CategoryNotFound,
		HTTPStatus: http.StatusNotFound,
	}

	// ErrConflict covers duplicate residency, duplicate ownership and
	// exhausted invites, including constraint-violation races surfaced by
	// the storage layer.
	ErrConflict = &APIError{
		Code:       "E5001",
		Message:    "conflict with current state",
		Category:   CategoryConflict,
		HTTPStatus: http.StatusConflict,
	}

	// ErrRateLimited is returned when the abuse guard rejects the caller.
	ErrRateLimited = &APIError{
		Code:       "E6001",
		Message:    "too many requests",
		Category:   CategoryRateLimit,
		HTTPStatus: http.StatusTooManyRequests,
	}

	// ErrInternal wraps unexpected storage or transport failures.
	ErrInternal = &APIError{
		Code:       "E9001",
		Message:    "internal error",
		Category:   CategoryInternal,
		HTTPStatus: http.StatusInternalServerError,
	}
)

// Internal wraps an unexpected failure, keeping the cause in the details.
func Internal(err error) *APIError {
	return ErrInternal.WithDetail("cause", err.Error())
}

// IsCategory reports whether err is an APIError of the given category.
func IsCategory(err error, cat Category) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Category == cat
}

// HTTPStatus returns the mapped status code for err, defaulting to 500.
func HTTPStatus(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
