package apperror

import (
	"errors"
	"net/http"
)

// Kind groups errors by where they came from so callers can tell a bad
// input apart from a broken connection or a failure reported by the backend.
type Kind string

const (
	KindValidation Kind = "validation"
	KindTransport  Kind = "transport"
	KindBackend    Kind = "backend"
	KindInternal   Kind = "internal"
)

type AppError struct {
	Code    int      `json:"code"`
	Kind    Kind     `json:"kind"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
	Err     error    `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code int, message string, err error) *AppError {
	kind := KindBackend
	if code >= http.StatusInternalServerError {
		kind = KindInternal
	}
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

func BadRequest(message string) *AppError {
	e := New(http.StatusBadRequest, message, nil)
	e.Kind = KindValidation
	return e
}

// Validation carries the per-field messages produced by the validation package.
func Validation(message string, details []string) *AppError {
	e := BadRequest(message)
	e.Details = details
	return e
}

func Unauthorized(message string) *AppError {
	return New(http.StatusUnauthorized, message, nil)
}

func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, message, nil)
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, message, nil)
}

func Conflict(message string) *AppError {
	return New(http.StatusConflict, message, nil)
}

func TooManyRequests(message string) *AppError {
	return New(http.StatusTooManyRequests, message, nil)
}

// Transport wraps a failure to reach the backend at all.
func Transport(err error) *AppError {
	return &AppError{
		Code:    http.StatusBadGateway,
		Kind:    KindTransport,
		Message: "Unable to reach the analysis service. Please try again.",
		Err:     err,
	}
}

// Backend wraps a non-2xx answer from the backend, keeping its status code.
func Backend(status int, message string) *AppError {
	if message == "" {
		message = http.StatusText(status)
	}
	if status < http.StatusBadRequest {
		status = http.StatusBadGateway
	}
	return &AppError{Code: status, Kind: KindBackend, Message: message}
}

func Internal(err error) *AppError {
	e := New(http.StatusInternalServerError, "Internal Server Error", err)
	e.Kind = KindInternal
	return e
}

// As extracts an *AppError from err, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err is an *AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
