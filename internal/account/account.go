// Package account holds the tenant coordinates and shared collaborators
// used by API clients.
package account

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/authlink/usersapi/internal/config"
	"github.com/authlink/usersapi/internal/metrics"
	"github.com/authlink/usersapi/internal/request"
	"github.com/authlink/usersapi/internal/telemetry"
)

// Account errors.
var (
	ErrMissingClientID = errors.New("client id is required")
	ErrMissingDomain   = errors.New("domain is required")
	ErrInvalidDomain   = errors.New("invalid domain")
)

// Account identifies a tenant application.
type Account struct {
	clientID string
	baseURL  *url.URL

	mu               sync.Mutex
	networkingClient request.NetworkingClient
	userAgent        *telemetry.UserAgent
	connectTimeout   time.Duration
	readTimeout      time.Duration
	logger           *slog.Logger
	metrics          metrics.Recorder
}

// New creates an Account. domain may omit the scheme, in which case
// https is assumed.
func New(clientID, domain string) (*Account, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, ErrMissingClientID
	}

	baseURL, err := normalizeDomain(domain)
	if err != nil {
		return nil, err
	}

	return &Account{
		clientID:       clientID,
		baseURL:        baseURL,
		userAgent:      telemetry.Default(),
		connectTimeout: request.DefaultConnectTimeout,
		readTimeout:    request.DefaultReadTimeout,
		metrics:        metrics.NewNoop(),
	}, nil
}

// FromConfig creates an Account from environment configuration.
func FromConfig(cfg *config.Config, logger *slog.Logger) (*Account, error) {
	a, err := New(cfg.ClientID, cfg.Domain)
	if err != nil {
		return nil, err
	}

	a.SetTimeouts(cfg.ConnectTimeout, cfg.ReadTimeout)
	if cfg.HTTPLogging {
		a.SetLogger(logger)
	}
	return a, nil
}

func normalizeDomain(domain string) (*url.URL, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return nil, ErrMissingDomain
	}

	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}

	u, err := url.Parse(domain)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDomain, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidDomain, domain)
	}

	u.RawQuery = ""
	u.Fragment = ""
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

// ClientID returns the application client id.
func (a *Account) ClientID() string {
	return a.clientID
}

// Domain returns the tenant host, including the port if any.
func (a *Account) Domain() string {
	return a.baseURL.Host
}

// BaseURL returns the tenant URL, always ending in "/".
func (a *Account) BaseURL() string {
	return a.baseURL.String()
}

// SetTimeouts overrides the default client timeouts. Zero keeps the
// current value. Takes effect for clients resolved afterwards.
func (a *Account) SetTimeouts(connect, read time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if connect > 0 {
		a.connectTimeout = connect
	}
	if read > 0 {
		a.readTimeout = read
	}
}

// SetLogger enables HTTP request logging on the default client.
func (a *Account) SetLogger(logger *slog.Logger) {
	a.mu.Lock()
	a.logger = logger
	a.mu.Unlock()
}

// SetMetrics sets the recorder used by the default client.
func (a *Account) SetMetrics(recorder metrics.Recorder) {
	if recorder == nil {
		return
	}
	a.mu.Lock()
	a.metrics = recorder
	a.mu.Unlock()
}

// Metrics returns the configured recorder.
func (a *Account) Metrics() metrics.Recorder {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.metrics
}

// SetNetworkingClient replaces the client used for every request.
func (a *Account) SetNetworkingClient(client request.NetworkingClient) {
	a.mu.Lock()
	a.networkingClient = client
	a.mu.Unlock()
}

// NetworkingClient returns the custom client or lazily builds the default one.
func (a *Account) NetworkingClient() request.NetworkingClient {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.networkingClient == nil {
		a.networkingClient = request.NewDefaultClient(request.ClientConfig{
			ConnectTimeout: a.connectTimeout,
			ReadTimeout:    a.readTimeout,
			Logger:         a.logger,
			Metrics:        a.metrics,
		})
	}
	return a.networkingClient
}

// SetUserAgent replaces the telemetry sent with each request. nil disables it.
func (a *Account) SetUserAgent(ua *telemetry.UserAgent) {
	a.mu.Lock()
	a.userAgent = ua
	a.mu.Unlock()
}

// UserAgent returns the telemetry sent with each request.
func (a *Account) UserAgent() *telemetry.UserAgent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.userAgent
}
