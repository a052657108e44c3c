// Package telemetry builds the client identification header sent with
// every management request.
package telemetry

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
)

const (
	// HeaderName is the request header carrying the encoded UserAgent.
	HeaderName = "Auth0-Client"

	// LibraryName identifies this client in telemetry.
	LibraryName = "usersapi-go"
	// LibraryVersion is the released version of this client.
	LibraryVersion = "1.2.0"
)

// ErrEmptyValue is returned when parsing an empty header value.
var ErrEmptyValue = errors.New("empty telemetry value")

// UserAgent describes the library issuing requests.
type UserAgent struct {
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Env     map[string]string `json:"env,omitempty"`
}

// New creates a UserAgent with the given name and version and no env.
func New(name, version string) *UserAgent {
	return &UserAgent{Name: name, Version: version}
}

// Default returns the UserAgent for this library and the running Go toolchain.
func Default() *UserAgent {
	return &UserAgent{
		Name:    LibraryName,
		Version: LibraryVersion,
		Env: map[string]string{
			"goVersion": runtime.Version(),
			"os":        runtime.GOOS,
			"arch":      runtime.GOARCH,
		},
	}
}

// WithEnv returns a copy of u with key set in its env map.
func (u *UserAgent) WithEnv(key, value string) *UserAgent {
	env := make(map[string]string, len(u.Env)+1)
	for k, v := range u.Env {
		env[k] = v
	}
	env[key] = value
	return &UserAgent{Name: u.Name, Version: u.Version, Env: env}
}

// Value encodes the UserAgent as unpadded base64url JSON.
func (u *UserAgent) Value() string {
	// Marshal of strings and a string map cannot fail.
	data, _ := json.Marshal(u)
	return base64.RawURLEncoding.EncodeToString(data)
}

// Parse decodes a header value produced by Value.
func Parse(value string) (*UserAgent, error) {
	if value == "" {
		return nil, ErrEmptyValue
	}

	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode telemetry: %w", err)
	}

	var ua UserAgent
	if err := json.Unmarshal(data, &ua); err != nil {
		return nil, fmt.Errorf("unmarshal telemetry: %w", err)
	}
	return &ua, nil
}
