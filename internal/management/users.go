package management

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/authlink/usersapi/internal/account"
	"github.com/authlink/usersapi/internal/request"
	"github.com/authlink/usersapi/internal/result"
)

// Path segments and body keys of the users endpoints.
const (
	apiPath         = "api"
	v2Path          = "v2"
	usersPath       = "users"
	identitiesPath  = "identities"
	keyLinkWith     = "link_with"
	keyUserMetadata = "user_metadata"

	headerAuthorization = "Authorization"
	bearerPrefix        = "Bearer "
)

// ErrEmptySegment is reported when a user id, provider or secondary id is empty.
var ErrEmptySegment = errors.New("path segment must not be empty")

// Option configures a UsersAPIClient.
type Option func(*options)

type options struct {
	factory  *request.Factory[*Error]
	logger   *slog.Logger
	switcher *request.ThreadSwitcher
}

// WithFactory uses a prebuilt request factory. Telemetry and the bearer
// token are still applied to it.
func WithFactory(factory *request.Factory[*Error]) Option {
	return func(o *options) {
		o.factory = factory
	}
}

// WithLogger sets the logger for client-level events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithThreadSwitcher sets where Start runs requests and delivers callbacks.
func WithThreadSwitcher(switcher *request.ThreadSwitcher) Option {
	return func(o *options) {
		o.switcher = switcher
	}
}

// UsersAPIClient calls the users endpoints of the management API.
// A client is safe for concurrent use; each call builds an independent request.
type UsersAPIClient struct {
	account *account.Account
	factory *request.Factory[*Error]
	logger  *slog.Logger
}

// NewUsersAPIClient creates a client authorized with token.
func NewUsersAPIClient(acct *account.Account, token string, opts ...Option) *UsersAPIClient {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	factory := o.factory
	if factory == nil {
		factory = NewRequestFactory(acct)
	}
	if ua := acct.UserAgent(); ua != nil {
		factory.SetAuth0ClientInfo(ua.Value())
	}
	factory.SetHeader(headerAuthorization, bearerPrefix+token)
	factory.SetThreadSwitcher(o.switcher)

	return &UsersAPIClient{
		account: acct,
		factory: factory,
		logger:  logger.With("component", "management.users"),
	}
}

// NewRequestFactory returns a factory wired to the account's networking
// client and metrics, producing *Error failures.
func NewRequestFactory(acct *account.Account) *request.Factory[*Error] {
	factory := request.NewFactory[*Error](acct.NetworkingClient(), errorAdapter{})
	factory.SetMetrics(acct.Metrics())
	return factory
}

// ClientID returns the account client id.
func (c *UsersAPIClient) ClientID() string {
	return c.account.ClientID()
}

// BaseURL returns the account base URL.
func (c *UsersAPIClient) BaseURL() string {
	return c.account.BaseURL()
}

// Link attaches the identity behind secondaryToken to primaryUserID.
// The result is the primary user's identities after linking.
//
//	POST /api/v2/users/{primaryUserID}/identities {"link_with": secondaryToken}
func (c *UsersAPIClient) Link(primaryUserID, secondaryToken string) request.Request[[]result.UserIdentity, *Error] {
	u, err := c.usersURL(primaryUserID, identitiesPath)
	if err != nil {
		return request.Fail[[]result.UserIdentity](c.factory, request.MethodPost, u, err)
	}
	c.logger.Debug("link identity", "user_id", primaryUserID)

	return request.Post[[]result.UserIdentity](c.factory, u, request.DecodeJSON[[]result.UserIdentity]()).
		AddParameter(keyLinkWith, secondaryToken)
}

// Unlink detaches the identity (provider, secondaryUserID) from primaryUserID.
// The result is the primary user's remaining identities.
//
//	DELETE /api/v2/users/{primaryUserID}/identities/{provider}/{secondaryUserID}
func (c *UsersAPIClient) Unlink(primaryUserID, secondaryUserID, provider string) request.Request[[]result.UserIdentity, *Error] {
	u, err := c.usersURL(primaryUserID, identitiesPath, provider, secondaryUserID)
	if err != nil {
		return request.Fail[[]result.UserIdentity](c.factory, request.MethodDelete, u, err)
	}
	c.logger.Debug("unlink identity", "user_id", primaryUserID, "provider", provider)

	return request.Delete[[]result.UserIdentity](c.factory, u, request.DecodeJSON[[]result.UserIdentity]())
}

// UpdateMetadata merges userMetadata into the user's metadata.
//
//	PATCH /api/v2/users/{userID} {"user_metadata": userMetadata}
func (c *UsersAPIClient) UpdateMetadata(userID string, userMetadata map[string]any) request.Request[*result.UserProfile, *Error] {
	u, err := c.usersURL(userID)
	if err != nil {
		return request.Fail[*result.UserProfile](c.factory, request.MethodPatch, u, err)
	}
	c.logger.Debug("update user metadata", "user_id", userID, "keys", len(userMetadata))

	return request.Patch[*result.UserProfile](c.factory, u, request.DecodeJSON[*result.UserProfile]()).
		AddParameter(keyUserMetadata, userMetadata)
}

// GetProfile fetches the full user profile.
//
//	GET /api/v2/users/{userID}
func (c *UsersAPIClient) GetProfile(userID string) request.Request[*result.UserProfile, *Error] {
	u, err := c.usersURL(userID)
	if err != nil {
		return request.Fail[*result.UserProfile](c.factory, request.MethodGet, u, err)
	}
	c.logger.Debug("get user profile", "user_id", userID)

	return request.Get[*result.UserProfile](c.factory, u, request.DecodeJSON[*result.UserProfile]())
}

// usersURL joins escaped segments under /api/v2/users/. An empty
// segment would address a different endpoint, so it is rejected.
func (c *UsersAPIClient) usersURL(segments ...string) (string, error) {
	parts := []string{apiPath, v2Path, usersPath}
	for i, s := range segments {
		if s == "" {
			return "", fmt.Errorf("%w: position %d in %q", ErrEmptySegment, i, strings.Join(segments, "/"))
		}
		parts = append(parts, url.PathEscape(s))
	}
	return c.account.BaseURL() + strings.Join(parts, "/"), nil
}
