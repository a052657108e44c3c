package request

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/authlink/usersapi/internal/metrics"
)

func newTestFactory() *Factory[*testError] {
	return NewFactory[*testError](NewDefaultClient(ClientConfig{}), testErrorAdapter{})
}

func TestExecute_Success(t *testing.T) {
	srv, seen := newCapturingServer(t, http.StatusOK, "application/json", `{"id":"1","name":"one"}`)
	f := newTestFactory()
	f.SetHeader("Authorization", "Bearer primary")
	f.SetAuth0ClientInfo("telemetry-value")

	got, err := Get[item](f, srv.URL+"/items/1", DecodeJSON[item]()).
		AddHeader("X-Extra", "yes").
		Execute(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.ID != "1" || got.Name != "one" {
		t.Errorf("unexpected result: %+v", got)
	}

	req := <-seen
	if req.header.Get("Authorization") != "Bearer primary" {
		t.Errorf("expected bearer header, got %q", req.header.Get("Authorization"))
	}
	if req.header.Get("Auth0-Client") != "telemetry-value" {
		t.Errorf("expected telemetry header, got %q", req.header.Get("Auth0-Client"))
	}
	if req.header.Get("X-Extra") != "yes" {
		t.Errorf("expected per-request header, got %q", req.header.Get("X-Extra"))
	}
}

func TestExecute_JSONError(t *testing.T) {
	srv, _ := newCapturingServer(t, http.StatusUnauthorized, "application/json; charset=utf-8", `{"error":"invalid_token"}`)

	_, err := Get[item](newTestFactory(), srv.URL, DecodeJSON[item]()).Execute(context.Background())

	var te *testError
	if !errors.As(err, &te) {
		t.Fatalf("expected *testError, got %T", err)
	}
	if te.status != http.StatusUnauthorized || te.code != "invalid_token" {
		t.Errorf("unexpected error: %+v", te)
	}
}

func TestExecute_RawError(t *testing.T) {
	srv, _ := newCapturingServer(t, http.StatusBadGateway, "text/plain", `upstream down`)

	_, err := Get[item](newTestFactory(), srv.URL, DecodeJSON[item]()).Execute(context.Background())

	var te *testError
	if !errors.As(err, &te) {
		t.Fatalf("expected *testError, got %T", err)
	}
	if te.code != "raw:upstream down" {
		t.Errorf("expected raw body in code, got %s", te.code)
	}
}

func TestExecute_InvalidSuccessBody(t *testing.T) {
	srv, _ := newCapturingServer(t, http.StatusOK, "application/json", `not json`)

	_, err := Get[item](newTestFactory(), srv.URL, DecodeJSON[item]()).Execute(context.Background())
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse in chain, got %v", err)
	}
}

func TestExecute_NetworkError(t *testing.T) {
	boom := errors.New("dial failed")
	client := clientFunc(func(ctx context.Context, url string, options Options) (*ServerResponse, error) {
		return nil, boom
	})
	f := NewFactory[*testError](client, testErrorAdapter{})

	_, err := Post[item](f, "http://unused", DecodeJSON[item]()).Execute(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("expected cause in chain, got %v", err)
	}
}

func TestExecute_OptionsAreIsolated(t *testing.T) {
	var sent []Options
	client := clientFunc(func(ctx context.Context, url string, options Options) (*ServerResponse, error) {
		options.Parameters["mutated"] = true
		sent = append(sent, options)
		return &ServerResponse{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{}`))}, nil
	})
	f := NewFactory[*testError](client, testErrorAdapter{})

	req := Patch[item](f, "http://unused", DecodeJSON[item]()).AddParameter("a", 1)
	for i := 0; i < 2; i++ {
		if _, err := req.Execute(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}

	if len(sent) != 2 {
		t.Fatalf("expected 2 loads, got %d", len(sent))
	}
	if sent[1].Method != MethodPatch {
		t.Errorf("expected PATCH, got %s", sent[1].Method)
	}
	if len(req.(*BaseRequest[item, *testError]).Options().Parameters) != 1 {
		t.Error("expected networking client mutations to not leak into the request")
	}
}

func TestFactory_HeadersSnapshotAtCreation(t *testing.T) {
	f := newTestFactory()
	f.SetHeader("A", "1")

	req := Get[item](f, "http://unused", DecodeJSON[item]()).(*BaseRequest[item, *testError])
	f.SetHeader("B", "2")

	if _, ok := req.Options().Headers["B"]; ok {
		t.Error("expected headers set after creation to not apply")
	}
	if req.Options().Headers["A"] != "1" {
		t.Error("expected factory header on request")
	}
}

func TestStart_DeliversOnLooper(t *testing.T) {
	srv, _ := newCapturingServer(t, http.StatusOK, "application/json", `{"id":"7"}`)
	looper := NewLooper()
	recorder := metrics.NewInMemory()

	f := newTestFactory()
	f.SetThreadSwitcher(LooperThreadSwitcher(looper))
	f.SetMetrics(recorder)

	var got item
	delivered := false
	Get[item](f, srv.URL, DecodeJSON[item]()).Start(context.Background(), CallbackFuncs[item, *testError]{
		Success: func(result item) {
			got = result
			delivered = true
		},
		Failure: func(err *testError) {
			t.Errorf("unexpected failure: %v", err)
		},
	})

	if delivered {
		t.Fatal("expected callback to wait for the looper")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := looper.RunOne(ctx); err != nil {
		t.Fatalf("expected callback to be posted, got %v", err)
	}

	if !delivered || got.ID != "7" {
		t.Errorf("expected delivered result, got %+v", got)
	}
	if recorder.Snapshot().CallbacksSucceeded != 1 {
		t.Error("expected callback delivery to be recorded")
	}
}

func TestStart_Failure(t *testing.T) {
	srv, _ := newCapturingServer(t, http.StatusNotFound, "application/json", `{"error":"inexistent_user"}`)
	f := newTestFactory()
	f.SetThreadSwitcher(&ThreadSwitcher{Main: Inline, Background: Inline})
	recorder := metrics.NewInMemory()
	f.SetMetrics(recorder)

	var failure *testError
	Delete[[]item](f, srv.URL, DecodeJSON[[]item]()).Start(context.Background(), CallbackFuncs[[]item, *testError]{
		Failure: func(err *testError) { failure = err },
	})

	if failure == nil || failure.code != "inexistent_user" {
		t.Errorf("expected inexistent_user failure, got %+v", failure)
	}
	if snap := recorder.Snapshot(); snap.CallbacksFailed != 1 || snap.CallbacksSucceeded != 0 {
		t.Errorf("expected one failed delivery, got %d/%d", snap.CallbacksSucceeded, snap.CallbacksFailed)
	}
}

func TestExecute_NilResponse(t *testing.T) {
	nilClient := clientFunc(func(ctx context.Context, url string, options Options) (*ServerResponse, error) {
		return nil, nil
	})
	f := NewFactory[*testError](nilClient, testErrorAdapter{})

	_, err := Get[item](f, "https://tenant.example/items/1", DecodeJSON[item]()).Execute(context.Background())
	if !errors.Is(err, ErrNilResponse) {
		t.Fatalf("expected ErrNilResponse, got %v", err)
	}

	f.SetThreadSwitcher(&ThreadSwitcher{Main: Inline, Background: Inline})
	var failure *testError
	Get[item](f, "https://tenant.example/items/1", DecodeJSON[item]()).Start(context.Background(), CallbackFuncs[item, *testError]{
		Failure: func(err *testError) { failure = err },
	})
	if failure == nil || !errors.Is(failure, ErrNilResponse) {
		t.Errorf("expected ErrNilResponse failure, got %+v", failure)
	}
}

func TestFail(t *testing.T) {
	cause := errors.New("bad argument")
	var loads int
	f := NewFactory[*testError](clientFunc(func(ctx context.Context, url string, options Options) (*ServerResponse, error) {
		loads++
		return nil, errors.New("unexpected load")
	}), testErrorAdapter{})
	f.SetHeader("Authorization", "Bearer primary")

	_, err := Fail[item](f, MethodGet, "", cause).Execute(context.Background())
	var te *testError
	if !errors.As(err, &te) || te.code != "exception" {
		t.Fatalf("expected exception error, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be wrapped, got %v", err)
	}
	if loads != 0 {
		t.Errorf("expected no network load, got %d", loads)
	}
}

func TestLooper(t *testing.T) {
	l := NewLooper()
	var order []int
	l.Post(func() { order = append(order, 1) })
	l.Post(func() {
		order = append(order, 2)
		l.Post(func() { order = append(order, 3) })
	})

	if l.Pending() != 2 {
		t.Errorf("expected 2 pending, got %d", l.Pending())
	}
	if n := l.Idle(); n != 3 {
		t.Errorf("expected 3 run, got %d", n)
	}
	if len(order) != 3 || order[0] != 1 || order[2] != 3 {
		t.Errorf("unexpected order: %v", order)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type clientFunc func(ctx context.Context, url string, options Options) (*ServerResponse, error)

func (f clientFunc) Load(ctx context.Context, url string, options Options) (*ServerResponse, error) {
	return f(ctx, url, options)
}
