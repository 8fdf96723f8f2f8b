// Package errors defines the failure kinds an invocation can end in and maps
// each kind to the status code reported in the outcome envelope.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusFailedDependency is reported when the upstream API is degraded.
const StatusFailedDependency = http.StatusFailedDependency

var (
	// ErrClientInput marks a malformed invocation event or a query the
	// upstream API rejected as invalid.
	ErrClientInput = errors.New("client input error")
	// ErrUpstreamDegraded marks an upstream 5xx or otherwise unexpected status.
	ErrUpstreamDegraded = errors.New("upstream degraded")
	// ErrInternal marks credential, transport, payload-shape and publish failures.
	ErrInternal = errors.New("internal error")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Err.Error(), e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap attaches cause to a new AppError of the given kind.
func Wrap(sentinel error, statusCode int, message string, cause error) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// ClientInput builds a 400-class error whose message is shown to the caller.
func ClientInput(message string) *AppError {
	return New(ErrClientInput, http.StatusBadRequest, message)
}

// UpstreamDegraded builds a 424-class error whose message is shown to the caller.
func UpstreamDegraded(message string) *AppError {
	return New(ErrUpstreamDegraded, StatusFailedDependency, message)
}

// Internal builds a 500-class error. The message names the stage that failed
// and is only logged.
func Internal(stage string, cause error) *AppError {
	return Wrap(ErrInternal, http.StatusInternalServerError, stage, cause)
}

func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrClientInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstreamDegraded):
		return StatusFailedDependency
	default:
		return http.StatusInternalServerError
	}
}

// Kind returns the kind sentinel carried by err, defaulting to ErrInternal.
func Kind(err error) error {
	switch {
	case errors.Is(err, ErrClientInput):
		return ErrClientInput
	case errors.Is(err, ErrUpstreamDegraded):
		return ErrUpstreamDegraded
	default:
		return ErrInternal
	}
}
