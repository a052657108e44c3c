package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authlink/usersapi/internal/testutil"
)

const takeTimeout = 5 * time.Second

func signedToken(t *testing.T, subject string) string {
	t.Helper()
	claims := jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}
	if subject != "" {
		claims["sub"] = subject
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func setupEnv(t *testing.T, api *testutil.UsersAPI, token string) {
	t.Helper()
	t.Setenv("USERSAPI_DOMAIN", api.Domain())
	t.Setenv("USERSAPI_CLIENT_ID", "CLIENTID")
	t.Setenv("USERSAPI_TOKEN", token)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_ProfileUsesTokenSubject(t *testing.T) {
	api := testutil.NewUsersAPI(t)
	api.WillReturnUserProfile()
	setupEnv(t, api, signedToken(t, "auth0|123456789"))

	code, stdout, stderr := runCLI(t, "profile")
	require.Equal(t, 0, code, stderr)

	req := api.TakeRequest(t, takeTimeout)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/v2/users/auth0%7C123456789", req.Path)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "auth0|123456789", out["user_id"])
}

func TestRun_UpdateMetadataDecodesValues(t *testing.T) {
	api := testutil.NewUsersAPI(t)
	api.WillReturnUserProfile()
	setupEnv(t, api, signedToken(t, ""))

	code, _, stderr := runCLI(t, "update-metadata",
		"--user-id", "primary",
		"--set", "plan=gold",
		"--set", "seats=3",
		"--set", `tags=["a","b"]`,
	)
	require.Equal(t, 0, code, stderr)

	req := api.TakeRequest(t, takeTimeout)
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, map[string]any{
		"user_metadata": map[string]any{
			"plan":  "gold",
			"seats": float64(3),
			"tags":  []any{"a", "b"},
		},
	}, req.JSONBody(t))
}

func TestRun_AsyncLink(t *testing.T) {
	api := testutil.NewUsersAPI(t)
	api.WillReturnSuccessfulLink()
	setupEnv(t, api, signedToken(t, "primary"))

	code, stdout, stderr := runCLI(t, "link", "--async", "--secondary-token", "secondary")
	require.Equal(t, 0, code, stderr)

	req := api.TakeRequest(t, takeTimeout)
	assert.Equal(t, "/api/v2/users/primary/identities", req.Path)
	assert.Equal(t, "secondary", req.JSONBody(t)["link_with"])

	var out []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Len(t, out, 2)
}

func TestRun_UnlinkRequiresFlags(t *testing.T) {
	api := testutil.NewUsersAPI(t)
	setupEnv(t, api, signedToken(t, "primary"))

	code, stdout, stderr := runCLI(t, "unlink", "--provider", "twitter")
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "--secondary-user-id")
}

func TestRun_ErrorRedactsToken(t *testing.T) {
	api := testutil.NewUsersAPI(t)
	token := signedToken(t, "primary")
	api.WillReturn(http.StatusUnauthorized, "text/plain", "bad token "+token)
	setupEnv(t, api, token)

	code, stdout, stderr := runCLI(t, "profile")
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "[redacted]")
	assert.NotContains(t, stderr, token)
}

func TestRun_MissingToken(t *testing.T) {
	api := testutil.NewUsersAPI(t)
	setupEnv(t, api, "")

	code, _, stderr := runCLI(t, "profile", "--user-id", "primary")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "USERSAPI_TOKEN is required")
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, stderr := runCLI(t, "delete-everything")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "unknown command")
}

func TestParseMetadata(t *testing.T) {
	metadata, err := parseMetadata([]string{"name=my_name", "boolValue=true", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "my_name", "boolValue": true, "empty": ""}, metadata)

	_, err = parseMetadata(nil)
	assert.ErrorIs(t, err, ErrNoMetadata)

	_, err = parseMetadata([]string{"novalue"})
	assert.ErrorIs(t, err, ErrInvalidPair)
}

func TestSanitizeError(t *testing.T) {
	err := errors.New("request with secret-token failed")
	got := sanitizeError(err, "secret-token", "")
	assert.Equal(t, "request with [redacted] failed", got)
	assert.False(t, strings.Contains(got, "secret-token"))
	assert.Equal(t, "", sanitizeError(nil))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLogLevel("debug").String())
	assert.Equal(t, "WARN", parseLogLevel("warn").String())
	assert.Equal(t, "INFO", parseLogLevel("nonsense").String())
}
