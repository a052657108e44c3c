// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Request outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeFailure      = "failure"
	OutcomeHTTPError    = "http_error"
	OutcomeNetworkError = "network_error"
)

// Recorder captures metric events for the client.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Transport metrics
	IncRequest(method, outcome string)
	ObserveRequestDuration(method string, duration time.Duration)

	// Callback delivery metrics
	IncCallbackDelivered(outcome string) // OutcomeSuccess or OutcomeFailure
}
