package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies every failure surfaced by the API adapters.
type ErrorCode string

const (
	ErrUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrForbidden        ErrorCode = "FORBIDDEN"
	ErrNotFound         ErrorCode = "NOT_FOUND"
	ErrPayloadTooLarge  ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrUnsupportedMedia ErrorCode = "UNSUPPORTED_MEDIA"
	ErrServer           ErrorCode = "SERVER_ERROR"
	ErrNetwork          ErrorCode = "NETWORK_ERROR"
	ErrValidation       ErrorCode = "VALIDATION_ERROR"
)

// APIError is the single error type returned by every network-facing
// operation. Code is always one of the ErrorCode constants; Message is
// human-readable and safe to show to the user.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Status  int       `json:"status,omitempty"` // HTTP status, 0 for local and transport errors
	Err     error     `json:"-"`                // underlying transport error, if any
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a local VALIDATION_ERROR. Validation errors are
// raised before any network call and never wrap a transport error.
func NewValidationError(format string, args ...any) *APIError {
	return &APIError{Code: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// NewNetworkError wraps a transport failure (timeout, DNS, connection
// refused) where the request never reached a server.
func NewNetworkError(err error) *APIError {
	return &APIError{Code: ErrNetwork, Message: err.Error(), Err: err}
}

// errorBody matches the structured error shapes the backends are known to
// use. The content backend sends {code, message, data:{status}}; the report
// services send {detail} or {error}.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
	Error   string `json:"error"`
}

// ErrorFromResponse normalizes a non-2xx HTTP response into an APIError.
// The message is derived from, in priority order: a structured message or
// detail field, a structured error code, and finally the raw status line.
func ErrorFromResponse(status int, statusLine string, body []byte) *APIError {
	msg := statusLine
	if len(body) > 0 {
		var eb errorBody
		if err := json.Unmarshal(body, &eb); err == nil {
			switch {
			case eb.Message != "":
				msg = eb.Message
			case eb.Detail != "":
				msg = eb.Detail
			case eb.Error != "":
				msg = eb.Error
			case eb.Code != "":
				msg = eb.Code
			}
		}
	}
	return &APIError{Code: codeForStatus(status), Message: msg, Status: status}
}

// codeForStatus maps an HTTP status to the taxonomy.
func codeForStatus(status int) ErrorCode {
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusRequestEntityTooLarge:
		return ErrPayloadTooLarge
	case http.StatusUnsupportedMediaType:
		return ErrUnsupportedMedia
	default:
		// Unmapped statuses, 4xx included, land in the server bucket.
		return ErrServer
	}
}

// InvalidTransitionError is returned when an upload state transition is invalid.
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s state transition: %s -> %s (entity %s)", e.Entity, e.From, e.To, e.ID)
}

// IsAuthError returns true if the error is a 401 from an authorized call.
func IsAuthError(err error) bool {
	var e *APIError
	return errors.As(err, &e) && e.Code == ErrUnauthorized
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	var e *APIError
	return errors.As(err, &e) && e.Code == ErrNotFound
}

// IsValidation returns true if the error was raised locally before any
// network call.
func IsValidation(err error) bool {
	var e *APIError
	return errors.As(err, &e) && e.Code == ErrValidation
}
