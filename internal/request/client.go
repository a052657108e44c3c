package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/authlink/usersapi/internal/metrics"
	"github.com/authlink/usersapi/internal/transport"
)

const (
	// DefaultConnectTimeout is the connection timeout.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultReadTimeout is time to wait for response headers.
	DefaultReadTimeout = 10 * time.Second
)

// ErrUnsupportedMethod is returned for methods outside the Method constants.
var ErrUnsupportedMethod = errors.New("unsupported HTTP method")

// NetworkingClient performs the HTTP exchange for a request.
// Implementations own TLS, pooling and any retry policy.
type NetworkingClient interface {
	Load(ctx context.Context, url string, options Options) (*ServerResponse, error)
}

// ClientConfig configures DefaultClient. A nil Logger disables request
// logging; Transport overrides the base RoundTripper.
type ClientConfig struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Logger         *slog.Logger
	Metrics        metrics.Recorder
	Transport      http.RoundTripper
}

// DefaultClient is the net/http backed NetworkingClient.
type DefaultClient struct {
	client *http.Client
}

// NewDefaultClient creates a client with explicit timeouts that does
// not follow redirects.
func NewDefaultClient(cfg ClientConfig) *DefaultClient {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	base := cfg.Transport
	if base == nil {
		base = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   cfg.ConnectTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   cfg.ConnectTimeout,
			ResponseHeaderTimeout: cfg.ReadTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		}
	}

	middlewares := []transport.Middleware{transport.RequestID}
	if cfg.Logger != nil {
		middlewares = append(middlewares, transport.Logger(cfg.Logger.With("component", "request.client")))
	}
	middlewares = append(middlewares, transport.Metrics(cfg.Metrics))

	return &DefaultClient{
		client: &http.Client{
			Timeout:   cfg.ConnectTimeout + cfg.ReadTimeout,
			Transport: transport.Chain(base, middlewares...),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Load sends the request described by options to rawURL.
func (c *DefaultClient) Load(ctx context.Context, rawURL string, options Options) (*ServerResponse, error) {
	req, err := prepareRequest(ctx, rawURL, options)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	return &ServerResponse{
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		Headers:    resp.Header,
	}, nil
}

// prepareRequest builds the http.Request. GET parameters go in the query
// string; every other method sends them as a JSON object, "{}" when empty.
func prepareRequest(ctx context.Context, rawURL string, options Options) (*http.Request, error) {
	switch options.Method {
	case MethodGet, MethodPost, MethodPatch, MethodDelete:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, options.Method)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	var body io.Reader
	if options.Method.HasBody() {
		params := options.Parameters
		if params == nil {
			params = map[string]any{}
		}
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal parameters: %w", err)
		}
		body = bytes.NewReader(data)
	} else if len(options.Parameters) > 0 {
		query := u.Query()
		for k, v := range options.Parameters {
			query.Set(k, fmt.Sprint(v))
		}
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, string(options.Method), u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range options.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}
