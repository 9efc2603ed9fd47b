package dispatcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shofin-islam/qahelper/pkg/request"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) Fatal(string, ...interface{}) {}

func newTestDispatcher(opts Options) *Dispatcher {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	return New(noopLogger{}, opts)
}

func TestExecuteEchoesPost(t *testing.T) {
	var gotMethod, gotCT, gotBody, gotTrace string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotCT = r.Header.Get("Content-Type")
		gotTrace = strings.Join(r.Header.Values("X-Trace"), ",")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	d := newTestDispatcher(Options{})
	defer d.Close()

	capture := d.Execute(context.Background(),
		fmt.Sprintf(`curl -X POST '%s/items' -H 'X-Trace: a' -H 'X-Trace: b' --data '{"name":"O'"'"'Brien"}'`, srv.URL))

	if capture.Outcome != request.OutcomeOK {
		t.Fatalf("unexpected outcome %s: %s", capture.Outcome, capture.Error)
	}
	if capture.StatusCode != http.StatusCreated || capture.StatusText != "Created" {
		t.Fatalf("unexpected status %d %q", capture.StatusCode, capture.StatusText)
	}
	if capture.Body != `{"ok":true}` {
		t.Fatalf("unexpected body %q", capture.Body)
	}
	if gotMethod != "POST" || gotCT != "application/json" || gotTrace != "a,b" {
		t.Fatalf("server saw method=%s ct=%s trace=%s", gotMethod, gotCT, gotTrace)
	}
	if gotBody != `{"name":"O'Brien"}` {
		t.Fatalf("server saw body %q", gotBody)
	}
	if !hasHeader(capture.RequestHeaders, "Content-Type") {
		t.Fatalf("capture should record the defaulted Content-Type: %+v", capture.RequestHeaders)
	}
}

func TestExecuteInvalidDoesNoNetworkIO(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	d := newTestDispatcher(Options{})
	defer d.Close()

	capture := d.Execute(context.Background(), "GET "+srv.URL)
	if capture.Outcome != request.OutcomeInvalidFormat || capture.Body != request.InvalidCurlBody {
		t.Fatalf("expected invalid sentinel, got %+v", capture)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("invalid command reached the network")
	}
}

func TestDispatchNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	d := newTestDispatcher(Options{})
	defer d.Close()

	capture := d.Dispatch(context.Background(), request.Descriptor{URL: url})
	if capture.Outcome != request.OutcomeNetworkFailure {
		t.Fatalf("expected network failure, got %s", capture.Outcome)
	}
	if !strings.HasPrefix(capture.Body, "Execution Error: ") || capture.Error == "" {
		t.Fatalf("unexpected failure capture %+v", capture)
	}
}

func TestDispatchUnsupportedMethodFallsBackToGet(t *testing.T) {
	var gotMethod string
	var gotBodyLen int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotBodyLen = r.ContentLength
	}))
	defer srv.Close()

	d := newTestDispatcher(Options{})
	defer d.Close()

	capture := d.Dispatch(context.Background(), request.Descriptor{Method: "OPTIONS", URL: srv.URL, Body: "x"})
	if gotMethod != "GET" || capture.Method != "GET" {
		t.Fatalf("expected GET fallback, server=%s capture=%s", gotMethod, capture.Method)
	}
	if gotBodyLen > 0 || capture.RequestBody != "" {
		t.Fatalf("GET must not carry a body")
	}
}

func TestDispatchHostHeader(t *testing.T) {
	var gotHost string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.Host
	}))
	defer srv.Close()

	d := newTestDispatcher(Options{})
	defer d.Close()

	d.Dispatch(context.Background(), request.Descriptor{
		URL:     srv.URL,
		Headers: []request.Header{{Name: "Host", Value: "api.internal"}},
	})
	if gotHost != "api.internal" {
		t.Fatalf("expected Host override, got %q", gotHost)
	}
}

func TestExecuteAllPreservesOrder(t *testing.T) {
	var inFlight, peak int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		fmt.Fprint(w, r.URL.Query().Get("i"))
	}))
	defer srv.Close()

	d := newTestDispatcher(Options{MaxConcurrent: 3})
	defer d.Close()

	var texts []string
	for i := 0; i < 9; i++ {
		texts = append(texts, fmt.Sprintf("curl '%s/?i=%d'", srv.URL, i))
	}
	texts = append(texts, "not a curl")

	results := d.ExecuteAll(context.Background(), texts)
	if len(results) != len(texts) {
		t.Fatalf("expected %d results, got %d", len(texts), len(results))
	}
	for i := 0; i < 9; i++ {
		if results[i].Body != fmt.Sprint(i) {
			t.Fatalf("result %d out of order: %q", i, results[i].Body)
		}
	}
	if results[9].Outcome != request.OutcomeInvalidFormat {
		t.Fatalf("last result should be invalid, got %s", results[9].Outcome)
	}
	if atomic.LoadInt32(&peak) > 3 {
		t.Fatalf("concurrency limit exceeded: %d", peak)
	}
}

func TestDispatchAfterClose(t *testing.T) {
	d := newTestDispatcher(Options{})
	d.Close()
	capture := d.Dispatch(context.Background(), request.Descriptor{URL: "http://127.0.0.1:1"})
	if capture.Outcome != request.OutcomeNetworkFailure || !strings.Contains(capture.Error, "closed") {
		t.Fatalf("expected closed failure, got %+v", capture)
	}
}

func hasHeader(headers []request.Header, name string) bool {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return true
		}
	}
	return false
}
