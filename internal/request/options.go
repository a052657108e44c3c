// Package request executes management API calls over a pluggable
// networking client, either blocking or with a callback.
package request

import (
	"io"
	"net/http"
)

// Method is an HTTP method supported by the networking client.
type Method string

// Supported methods.
const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPatch  Method = http.MethodPatch
	MethodDelete Method = http.MethodDelete
)

// HasBody reports whether parameters travel in a JSON body rather than
// the query string.
func (m Method) HasBody() bool {
	return m != MethodGet
}

// Options describes a single request handed to a NetworkingClient.
type Options struct {
	Method     Method
	Parameters map[string]any
	Headers    map[string]string
}

// NewOptions returns empty Options for method.
func NewOptions(method Method) Options {
	return Options{
		Method:     method,
		Parameters: make(map[string]any),
		Headers:    make(map[string]string),
	}
}

// clone returns a copy whose maps can be mutated independently.
func (o Options) clone() Options {
	out := NewOptions(o.Method)
	for k, v := range o.Parameters {
		out.Parameters[k] = v
	}
	for k, v := range o.Headers {
		out.Headers[k] = v
	}
	return out
}

// ServerResponse is the raw outcome of a NetworkingClient load.
// The caller owns Body and must close it.
type ServerResponse struct {
	StatusCode int
	Body       io.ReadCloser
	Headers    http.Header
}

// IsSuccess returns true for 2xx status codes.
func (r *ServerResponse) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
