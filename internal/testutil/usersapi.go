package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
)

// RecordedRequest is a request received by UsersAPI. Path is escaped;
// Params holds the URL parameters of the matched route.
type RecordedRequest struct {
	ID     string
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
	Params map[string]string
}

// JSONBody decodes the body as a JSON object.
func (r *RecordedRequest) JSONBody(t testing.TB) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(r.Body, &out); err != nil {
		t.Fatalf("failed to decode request body %q: %v", r.Body, err)
	}
	return out
}

type cannedResponse struct {
	status      int
	contentType string
	body        string
}

// UsersAPI is a mock of the users endpoints backed by httptest.Server.
// Responses are queued with the WillReturn* methods and served in order;
// requests are recorded for TakeRequest.
type UsersAPI struct {
	server   *httptest.Server
	mu       sync.Mutex
	queue    []cannedResponse
	requests chan *RecordedRequest
}

// NewUsersAPI starts a mock server that is closed when the test ends.
func NewUsersAPI(t testing.TB) *UsersAPI {
	t.Helper()

	api := &UsersAPI{requests: make(chan *RecordedRequest, 32)}

	r := chi.NewRouter()
	r.Route("/api/v2/users/{userID}", func(r chi.Router) {
		r.Get("/", api.serve)
		r.Patch("/", api.serve)
		r.Post("/identities", api.serve)
		r.Delete("/identities/{provider}/{secondaryID}", api.serve)
	})
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		api.record(req, nil)
		writeJSON(w, http.StatusNotFound, `{"statusCode":404,"error":"Not Found","message":"route not found"}`)
	})

	api.server = httptest.NewServer(r)
	t.Cleanup(api.Shutdown)
	return api
}

// Domain returns the server URL, usable as an account domain.
func (a *UsersAPI) Domain() string {
	return a.server.URL
}

// Shutdown stops the server.
func (a *UsersAPI) Shutdown() {
	a.server.Close()
}

// WillReturn queues a response.
func (a *UsersAPI) WillReturn(status int, contentType, body string) *UsersAPI {
	a.mu.Lock()
	a.queue = append(a.queue, cannedResponse{status: status, contentType: contentType, body: body})
	a.mu.Unlock()
	return a
}

// WillReturnUserProfile queues a profile for "auth0|123456789".
func (a *UsersAPI) WillReturnUserProfile() *UsersAPI {
	data, _ := json.Marshal(NewTestProfile("auth0|123456789"))
	return a.WillReturn(http.StatusOK, "application/json", string(data))
}

// WillReturnSuccessfulLink queues the two identities left after linking.
func (a *UsersAPI) WillReturnSuccessfulLink() *UsersAPI {
	data, _ := json.Marshal([]any{
		NewTestIdentity("auth0", "123456789"),
		NewTestIdentity("twitter", "383158798"),
	})
	return a.WillReturn(http.StatusOK, "application/json", string(data))
}

// WillReturnSuccessfulUnlink queues the single identity left after unlinking.
func (a *UsersAPI) WillReturnSuccessfulUnlink() *UsersAPI {
	data, _ := json.Marshal([]any{NewTestIdentity("auth0", "123456789")})
	return a.WillReturn(http.StatusOK, "application/json", string(data))
}

// WillReturnError queues an API error body.
func (a *UsersAPI) WillReturnError(status int, errorCode, message string) *UsersAPI {
	data, _ := json.Marshal(map[string]any{
		"statusCode": status,
		"error":      http.StatusText(status),
		"message":    message,
		"errorCode":  errorCode,
	})
	return a.WillReturn(status, "application/json", string(data))
}

// TakeRequest waits up to timeout for the next recorded request.
func (a *UsersAPI) TakeRequest(t testing.TB, timeout time.Duration) *RecordedRequest {
	t.Helper()
	select {
	case req := <-a.requests:
		return req
	case <-time.After(timeout):
		t.Fatalf("no request received within %v", timeout)
		return nil
	}
}

func (a *UsersAPI) serve(w http.ResponseWriter, req *http.Request) {
	params := map[string]string{}
	if rctx := chi.RouteContext(req.Context()); rctx != nil {
		for i, key := range rctx.URLParams.Keys {
			params[key] = rctx.URLParams.Values[i]
		}
	}
	a.record(req, params)

	a.mu.Lock()
	if len(a.queue) == 0 {
		a.mu.Unlock()
		writeJSON(w, http.StatusInternalServerError, `{"error":"no response queued"}`)
		return
	}
	resp := a.queue[0]
	a.queue = a.queue[1:]
	a.mu.Unlock()

	if resp.contentType != "" {
		w.Header().Set("Content-Type", resp.contentType)
	}
	w.WriteHeader(resp.status)
	_, _ = io.WriteString(w, resp.body)
}

func (a *UsersAPI) record(req *http.Request, params map[string]string) {
	body, _ := io.ReadAll(req.Body)
	a.requests <- &RecordedRequest{
		ID:     ulid.Make().String(),
		Method: req.Method,
		Path:   req.URL.EscapedPath(),
		Query:  req.URL.RawQuery,
		Header: req.Header.Clone(),
		Body:   body,
		Params: params,
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, strings.TrimSpace(body))
}
