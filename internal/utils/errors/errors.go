package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error classes. Every AppError wraps one of these unless it carries its own cause.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrConflict       = errors.New("resource conflict")
	ErrUnprocessable  = errors.New("unprocessable request")
	ErrServiceUnavail = errors.New("service unavailable")
)

// AppError is an error with an HTTP status and a stable machine-readable code.
type AppError struct {
	Code       string         `json:"error"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	StatusCode int            `json:"-"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another AppError by code, or the wrapped error.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Err, target)
}

// WithDetails attaches details to the error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func newAppError(code, message string, statusCode int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

func NotFound(code, message string) *AppError {
	return newAppError(code, message, http.StatusNotFound, ErrNotFound)
}

func Unauthorized(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return newAppError("unauthorized", message, http.StatusUnauthorized, ErrUnauthorized)
}

func BadRequest(code, message string) *AppError {
	return newAppError(code, message, http.StatusBadRequest, ErrBadRequest)
}

func Conflict(code, message string) *AppError {
	return newAppError(code, message, http.StatusConflict, ErrConflict)
}

// Unprocessable is a well-formed request the current state does not allow.
func Unprocessable(code, message string) *AppError {
	return newAppError(code, message, http.StatusUnprocessableEntity, ErrUnprocessable)
}

func ServiceUnavailable(code, message string) *AppError {
	if message == "" {
		message = "service temporarily unavailable"
	}
	return newAppError(code, message, http.StatusServiceUnavailable, ErrServiceUnavail)
}

// Internal hides err behind a generic message.
func Internal(err error) *AppError {
	return newAppError("internal_error", "Internal server error", http.StatusInternalServerError, err)
}

// As returns err as an AppError, wrapping unknown errors as internal.
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
