package request

import (
	"context"
	"sync"

	"github.com/authlink/usersapi/internal/metrics"
	"github.com/authlink/usersapi/internal/telemetry"
)

// Factory builds requests that share headers, a networking client, an
// error adapter and a thread switcher.
type Factory[E error] struct {
	client       NetworkingClient
	errorAdapter ErrorAdapter[E]

	mu       sync.RWMutex
	headers  map[string]string
	switcher *ThreadSwitcher
	metrics  metrics.Recorder
}

// NewFactory creates a Factory.
func NewFactory[E error](client NetworkingClient, errorAdapter ErrorAdapter[E]) *Factory[E] {
	return &Factory[E]{
		client:       client,
		errorAdapter: errorAdapter,
		headers:      make(map[string]string),
		switcher:     DefaultThreadSwitcher(),
		metrics:      metrics.NewNoop(),
	}
}

// SetHeader sets a header sent with every request created afterwards.
func (f *Factory[E]) SetHeader(name, value string) {
	f.mu.Lock()
	f.headers[name] = value
	f.mu.Unlock()
}

// SetAuth0ClientInfo sets the telemetry header value.
func (f *Factory[E]) SetAuth0ClientInfo(value string) {
	f.SetHeader(telemetry.HeaderName, value)
}

// SetThreadSwitcher replaces the executors used by Start.
func (f *Factory[E]) SetThreadSwitcher(switcher *ThreadSwitcher) {
	if switcher == nil {
		return
	}
	f.mu.Lock()
	f.switcher = switcher
	f.mu.Unlock()
}

// SetMetrics sets the recorder for callback deliveries.
func (f *Factory[E]) SetMetrics(recorder metrics.Recorder) {
	if recorder == nil {
		return
	}
	f.mu.Lock()
	f.metrics = recorder
	f.mu.Unlock()
}

// Headers returns a copy of the shared headers.
func (f *Factory[E]) Headers() map[string]string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]string, len(f.headers))
	for k, v := range f.headers {
		out[k] = v
	}
	return out
}

// Get creates a GET request.
func Get[T any, E error](f *Factory[E], url string, adapter JSONAdapter[T]) Request[T, E] {
	return create(f, MethodGet, url, adapter)
}

// Post creates a POST request.
func Post[T any, E error](f *Factory[E], url string, adapter JSONAdapter[T]) Request[T, E] {
	return create(f, MethodPost, url, adapter)
}

// Patch creates a PATCH request.
func Patch[T any, E error](f *Factory[E], url string, adapter JSONAdapter[T]) Request[T, E] {
	return create(f, MethodPatch, url, adapter)
}

// Delete creates a DELETE request.
func Delete[T any, E error](f *Factory[E], url string, adapter JSONAdapter[T]) Request[T, E] {
	return create(f, MethodDelete, url, adapter)
}

// Fail creates a request that never reaches the network and reports err
// through the error adapter's FromException, on both Start and Execute.
func Fail[T any, E error](f *Factory[E], method Method, url string, err error) Request[T, E] {
	r := create(f, method, url, DecodeJSON[T]())
	r.client = failingClient{err: err}
	return r
}

// failingClient is a NetworkingClient that always returns err.
type failingClient struct {
	err error
}

func (c failingClient) Load(context.Context, string, Options) (*ServerResponse, error) {
	return nil, c.err
}

func create[T any, E error](f *Factory[E], method Method, url string, adapter JSONAdapter[T]) *BaseRequest[T, E] {
	f.mu.RLock()
	switcher, recorder := f.switcher, f.metrics
	f.mu.RUnlock()

	r := NewRequest(method, url, f.client, adapter, f.errorAdapter, switcher)
	r.metrics = recorder
	for k, v := range f.Headers() {
		r.options.Headers[k] = v
	}
	return r
}
