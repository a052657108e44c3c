package transport

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// contextKey is a type for context keys to avoid collisions.
type contextKey string

// RequestIDKey is the context key for a caller-chosen request ID.
const RequestIDKey contextKey = "request_id"

// RequestIDHeader is the HTTP header for request ID.
const RequestIDHeader = "X-Request-ID"

// WithRequestID returns a context whose outbound request uses id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// RequestID stamps each outbound request with an X-Request-ID header.
// An ID already on the request or in its context wins; otherwise a new
// UUID is generated. The ID is stored in the request context for the
// middlewares that follow.
func RequestID(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		requestID := req.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = GetRequestID(req.Context())
		}
		if requestID == "" {
			requestID = uuid.New().String()
		}

		// RoundTrippers must not modify the caller's request.
		out := req.Clone(WithRequestID(req.Context(), requestID))
		out.Header.Set(RequestIDHeader, requestID)

		return next.RoundTrip(out)
	})
}
