package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Requests               map[string]uint64 // keyed by "METHOD outcome"
	RequestDurationCount   uint64
	RequestDurationTotalNs int64
	CallbacksSucceeded     uint64
	CallbacksFailed        uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu                     sync.Mutex
	requests               map[string]uint64
	requestDurationCount   uint64
	requestDurationTotalNs int64
	callbacksSucceeded     uint64
	callbacksFailed        uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{requests: make(map[string]uint64)}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	requests := make(map[string]uint64, len(m.requests))
	for k, v := range m.requests {
		requests[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		Requests:               requests,
		RequestDurationCount:   atomic.LoadUint64(&m.requestDurationCount),
		RequestDurationTotalNs: atomic.LoadInt64(&m.requestDurationTotalNs),
		CallbacksSucceeded:     atomic.LoadUint64(&m.callbacksSucceeded),
		CallbacksFailed:        atomic.LoadUint64(&m.callbacksFailed),
	}
}

// IncRequest increments the request counter for method and outcome.
func (m *InMemoryRecorder) IncRequest(method, outcome string) {
	m.mu.Lock()
	m.requests[method+" "+outcome]++
	m.mu.Unlock()
}

// ObserveRequestDuration records request duration.
func (m *InMemoryRecorder) ObserveRequestDuration(method string, duration time.Duration) {
	atomic.AddUint64(&m.requestDurationCount, 1)
	atomic.AddInt64(&m.requestDurationTotalNs, duration.Nanoseconds())
}

// IncCallbackDelivered increments the callback counter for outcome.
func (m *InMemoryRecorder) IncCallbackDelivered(outcome string) {
	if outcome == OutcomeSuccess {
		atomic.AddUint64(&m.callbacksSucceeded, 1)
		return
	}
	atomic.AddUint64(&m.callbacksFailed, 1)
}
