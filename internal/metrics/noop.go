package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncRequest is a no-op.
func (n *NoopRecorder) IncRequest(method, outcome string) {}

// ObserveRequestDuration is a no-op.
func (n *NoopRecorder) ObserveRequestDuration(method string, duration time.Duration) {}

// IncCallbackDelivered is a no-op.
func (n *NoopRecorder) IncCallbackDelivered(outcome string) {}
