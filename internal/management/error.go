// Package management is a client for the users endpoints of the
// identity-management API.
package management

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/authlink/usersapi/internal/request"
)

// Error codes assigned by the client when the server gives none.
const (
	CodeUnknown      = "usersapi.internal_error.unknown"
	CodePlainBody    = "usersapi.internal_error.plain"
	CodeNetworkError = "usersapi.network_error"
	CodeBadResponse  = "usersapi.internal_error.bad_response"
	CodeInvalidInput = "usersapi.invalid_input"
)

// ErrNetwork is the cause of errors produced by transport failures.
var ErrNetwork = errors.New("failed to execute the network request")

// Error describes a failed management operation.
type Error struct {
	Code        string
	Description string
	StatusCode  int
	Values      map[string]any

	cause error
}

// NewError creates an Error with the given code and description.
func NewError(code, description string) *Error {
	return &Error{Code: code, Description: description}
}

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("management request failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " with status %d", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, ": %s", e.Code)
	}
	if e.Description != "" {
		fmt.Fprintf(&b, ": %s", e.Description)
	}
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Value returns a raw value from the error body.
func (e *Error) Value(key string) (any, bool) {
	v, ok := e.Values[key]
	return v, ok
}

// IsNetworkError returns true if the request never got a response.
func (e *Error) IsNetworkError() bool {
	return errors.Is(e.cause, ErrNetwork)
}

// IsNotFound returns true for 404 responses.
func (e *Error) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized returns true for 401 responses.
func (e *Error) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsRateLimited returns true for 429 responses.
func (e *Error) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// errorAdapter builds *Error values for the request package.
type errorAdapter struct{}

// FromRawResponse keeps a non-JSON body as the description.
func (errorAdapter) FromRawResponse(statusCode int, body string, headers http.Header) *Error {
	return &Error{
		Code:        CodePlainBody,
		Description: strings.TrimSpace(body),
		StatusCode:  statusCode,
	}
}

// FromJSONResponse reads the error shapes the API returns:
// {"error", "error_description"}, {"code", "description"} and
// {"statusCode", "error", "message", "errorCode"}.
func (errorAdapter) FromJSONResponse(statusCode int, values map[string]any) *Error {
	e := &Error{
		Code:       CodeUnknown,
		StatusCode: statusCode,
		Values:     values,
	}

	if code := firstString(values, "errorCode", "code", "error"); code != "" {
		e.Code = code
	}
	e.Description = firstString(values, "error_description", "description", "message")

	if sc, ok := values["statusCode"].(float64); ok && e.StatusCode == 0 {
		e.StatusCode = int(sc)
	}
	return e
}

// FromException wraps transport and decoding failures.
func (errorAdapter) FromException(err error) *Error {
	var me *Error
	if errors.As(err, &me) {
		return me
	}
	if errors.Is(err, ErrEmptySegment) {
		return &Error{
			Code:        CodeInvalidInput,
			Description: "Request arguments are invalid",
			cause:       err,
		}
	}
	if errors.Is(err, request.ErrInvalidResponse) {
		return &Error{
			Code:        CodeBadResponse,
			Description: "Failed to parse the server response",
			cause:       err,
		}
	}
	return &Error{
		Code:        CodeNetworkError,
		Description: "Failed to execute the network request",
		cause:       fmt.Errorf("%w: %w", ErrNetwork, err),
	}
}

func firstString(values map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := values[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
