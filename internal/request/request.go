package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync"

	"github.com/authlink/usersapi/internal/metrics"
)

// maxErrorBodySize bounds how much of a failed response is read.
const maxErrorBodySize = 64 * 1024

// Request errors.
var (
	// ErrInvalidResponse wraps failures to decode a successful response.
	ErrInvalidResponse = errors.New("invalid response body")
	// ErrNilResponse is reported when a NetworkingClient returns neither
	// a response nor an error.
	ErrNilResponse = errors.New("networking client returned no response")
)

// Callback receives the outcome of an asynchronous request.
type Callback[T any, E error] interface {
	OnSuccess(result T)
	OnFailure(err E)
}

// CallbackFuncs adapts a pair of functions to Callback. Nil functions are skipped.
type CallbackFuncs[T any, E error] struct {
	Success func(result T)
	Failure func(err E)
}

// OnSuccess calls c.Success.
func (c CallbackFuncs[T, E]) OnSuccess(result T) {
	if c.Success != nil {
		c.Success(result)
	}
}

// OnFailure calls c.Failure.
func (c CallbackFuncs[T, E]) OnFailure(err E) {
	if c.Failure != nil {
		c.Failure(err)
	}
}

// Request is a prepared API call that can run blocking or with a callback.
type Request[T any, E error] interface {
	// AddParameter adds a body (or query, for GET) parameter.
	AddParameter(name string, value any) Request[T, E]
	// AddHeader adds a header sent with this request only.
	AddHeader(name, value string) Request[T, E]
	// Start runs the request on the background executor and delivers the
	// outcome to callback on the main executor. It returns immediately.
	Start(ctx context.Context, callback Callback[T, E])
	// Execute runs the request on the calling goroutine. A non-nil error
	// is always of type E.
	Execute(ctx context.Context) (T, error)
}

// BaseRequest is the Request implementation built by Factory.
type BaseRequest[T any, E error] struct {
	url           string
	client        NetworkingClient
	resultAdapter JSONAdapter[T]
	errorAdapter  ErrorAdapter[E]
	switcher      *ThreadSwitcher
	metrics       metrics.Recorder

	mu      sync.Mutex
	options Options
}

// NewRequest creates a BaseRequest. A nil switcher uses DefaultThreadSwitcher.
func NewRequest[T any, E error](
	method Method,
	url string,
	client NetworkingClient,
	resultAdapter JSONAdapter[T],
	errorAdapter ErrorAdapter[E],
	switcher *ThreadSwitcher,
) *BaseRequest[T, E] {
	if switcher == nil {
		switcher = DefaultThreadSwitcher()
	}
	return &BaseRequest[T, E]{
		url:           url,
		client:        client,
		resultAdapter: resultAdapter,
		errorAdapter:  errorAdapter,
		switcher:      switcher,
		metrics:       metrics.NewNoop(),
		options:       NewOptions(method),
	}
}

// URL returns the target URL.
func (r *BaseRequest[T, E]) URL() string {
	return r.url
}

// Options returns a copy of the options the next run would send.
func (r *BaseRequest[T, E]) Options() Options {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.options.clone()
}

// AddParameter adds a parameter.
func (r *BaseRequest[T, E]) AddParameter(name string, value any) Request[T, E] {
	r.mu.Lock()
	r.options.Parameters[name] = value
	r.mu.Unlock()
	return r
}

// AddHeader adds a header.
func (r *BaseRequest[T, E]) AddHeader(name, value string) Request[T, E] {
	r.mu.Lock()
	r.options.Headers[name] = value
	r.mu.Unlock()
	return r
}

// Start runs the request asynchronously.
func (r *BaseRequest[T, E]) Start(ctx context.Context, callback Callback[T, E]) {
	r.switcher.Background.Post(func() {
		result, failure, ok := r.run(ctx)
		r.switcher.Main.Post(func() {
			if !ok {
				r.metrics.IncCallbackDelivered(metrics.OutcomeFailure)
				callback.OnFailure(failure)
				return
			}
			r.metrics.IncCallbackDelivered(metrics.OutcomeSuccess)
			callback.OnSuccess(result)
		})
	})
}

// Execute runs the request synchronously.
func (r *BaseRequest[T, E]) Execute(ctx context.Context) (T, error) {
	result, failure, ok := r.run(ctx)
	if !ok {
		var zero T
		return zero, failure
	}
	return result, nil
}

// run performs the exchange. ok is false when failure holds the error.
func (r *BaseRequest[T, E]) run(ctx context.Context) (result T, failure E, ok bool) {
	resp, err := r.client.Load(ctx, r.url, r.Options())
	if err != nil {
		return result, r.errorAdapter.FromException(err), false
	}
	if resp == nil {
		return result, r.errorAdapter.FromException(ErrNilResponse), false
	}
	if resp.Body == nil {
		resp.Body = http.NoBody
	}
	defer resp.Body.Close()

	if !resp.IsSuccess() {
		return result, r.parseFailure(resp), false
	}

	result, err = r.resultAdapter(resp.Body)
	if err != nil {
		return result, r.errorAdapter.FromException(fmt.Errorf("%w: %w", ErrInvalidResponse, err)), false
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
	return result, failure, true
}

func (r *BaseRequest[T, E]) parseFailure(resp *ServerResponse) E {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return r.errorAdapter.FromException(fmt.Errorf("read error body: %w", err))
	}

	if isJSON(resp.Headers.Get("Content-Type")) {
		var values map[string]any
		if err := json.Unmarshal(body, &values); err == nil && values != nil {
			return r.errorAdapter.FromJSONResponse(resp.StatusCode, values)
		}
	}

	return r.errorAdapter.FromRawResponse(resp.StatusCode, string(body), resp.Headers)
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}
