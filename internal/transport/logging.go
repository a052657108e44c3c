package transport

import (
	"log/slog"
	"net/http"
	"time"
)

// Logger returns a middleware that logs outbound HTTP requests.
// Uses structured logging with slog. Headers are never logged.
func Logger(logger *slog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()

			resp, err := next.RoundTrip(req)

			duration := time.Since(start)

			attrs := []slog.Attr{
				slog.String("request_id", GetRequestID(req.Context())),
				slog.String("method", req.Method),
				slog.String("host", req.URL.Host),
				slog.String("path", req.URL.Path),
				slog.Float64("duration_ms", float64(duration.Microseconds())/1000),
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(req.Context(), slog.LevelError, "http request failed", attrs...)
				return nil, err
			}

			attrs = append(attrs, slog.Int("status_code", resp.StatusCode))

			// Log at appropriate level based on status code
			level := slog.LevelInfo
			if resp.StatusCode >= 500 {
				level = slog.LevelError
			} else if resp.StatusCode >= 400 {
				level = slog.LevelWarn
			}

			logger.LogAttrs(req.Context(), level, "http request", attrs...)
			return resp, nil
		})
	}
}
