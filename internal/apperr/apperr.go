// Package apperr defines the machine-readable error codes surfaced by the
// service and maps them to HTTP status codes.
package apperr

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown Code = "UNKNOWN"

	// Malformed request: missing fields, wrong shapes, bad indices.
	CodeValidation Code = "VALIDATION_ERROR"
	// A single media URL could not be fetched. Recorded per item, never fatal.
	CodeMediaFetch Code = "MEDIA_FETCH_ERROR"
	// Every media fetch failed; nothing to export.
	CodeExportFatal Code = "EXPORT_FATAL"
	// The archive could not be assembled.
	CodePackaging Code = "PACKAGING_ERROR"
	// The persistence collaborator failed during a script mutation.
	CodeUpstream Code = "UPSTREAM_SERVICE_ERROR"

	CodeNotFound     Code = "NOT_FOUND"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// HTTPStatus maps a code to the status returned by the API.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeExportFatal, CodeMediaFetch:
		return http.StatusUnprocessableEntity
	case CodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error carrying a code, a user-facing message and an
// optional cause.
type Error struct {
	Code    Code
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code to err. An empty message keeps the cause's text as
// the user-facing message.
func Wrap(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// WithDetails returns a copy of e with details set.
func (e *Error) WithDetails(details string) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// GetCode extracts the code from any error, or CodeUnknown.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode reports whether err carries code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}
