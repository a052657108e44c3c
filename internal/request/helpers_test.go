package request

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// testError is the E used by tests in this package.
type testError struct {
	status int
	code   string
	cause  error
}

func (e *testError) Error() string {
	return fmt.Sprintf("status=%d code=%s cause=%v", e.status, e.code, e.cause)
}

func (e *testError) Unwrap() error { return e.cause }

type testErrorAdapter struct{}

func (testErrorAdapter) FromRawResponse(statusCode int, body string, headers http.Header) *testError {
	return &testError{status: statusCode, code: "raw:" + body}
}

func (testErrorAdapter) FromJSONResponse(statusCode int, values map[string]any) *testError {
	code, _ := values["error"].(string)
	return &testError{status: statusCode, code: code}
}

func (testErrorAdapter) FromException(err error) *testError {
	return &testError{code: "exception", cause: err}
}

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// captured is what the test server saw.
type captured struct {
	method string
	path   string
	query  string
	header http.Header
	body   []byte
}

func newCapturingServer(t *testing.T, status int, contentType, response string) (*httptest.Server, chan captured) {
	t.Helper()
	seen := make(chan captured, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen <- captured{
			method: r.Method,
			path:   r.URL.EscapedPath(),
			query:  r.URL.RawQuery,
			header: r.Header.Clone(),
			body:   body,
		}
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func decodeBody(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("failed to decode body %q: %v", body, err)
	}
	return out
}
