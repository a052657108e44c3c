package transport

import (
	"net/http"
	"time"

	"github.com/authlink/usersapi/internal/metrics"
)

// Metrics returns a middleware that records request counts and durations.
func Metrics(recorder metrics.Recorder) Middleware {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)
			recorder.ObserveRequestDuration(req.Method, time.Since(start))

			switch {
			case err != nil:
				recorder.IncRequest(req.Method, metrics.OutcomeNetworkError)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				recorder.IncRequest(req.Method, metrics.OutcomeSuccess)
			default:
				recorder.IncRequest(req.Method, metrics.OutcomeHTTPError)
			}
			return resp, err
		})
	}
}
