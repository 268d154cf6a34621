package trace

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "rateio/internal/log"
)

func newTestLogger(buf *bytes.Buffer) *applog.Logger {
	return applog.New(applog.Config{Level: slog.LevelDebug, Format: "json", Output: buf})
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(newTestLogger(&buf), func(*http.Request) string { return "203.0.113.9" })

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		applog.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/owners", nil))

	if !strings.HasPrefix(seen, "req_") || len(seen) != len("req_")+16 {
		t.Fatalf("unexpected request id %q", seen)
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("response header not set: %q", rec.Header().Get(HeaderRequestID))
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected handler log and completion log, got %d: %s", len(lines), buf.String())
	}
	var inner, done map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &inner); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &done); err != nil {
		t.Fatal(err)
	}
	if inner[applog.FieldRequestID] != seen {
		t.Fatalf("handler log missing request id: %v", inner)
	}
	if done["level"] != "WARN" || done[applog.FieldStatusCode] != float64(http.StatusTeapot) {
		t.Fatalf("unexpected completion log: %v", done)
	}
	if m.GetMetrics().TotalRequests != 1 {
		t.Fatalf("metrics: %+v", m.GetMetrics())
	}
}

func TestMiddlewareKeepsUpstreamRequestID(t *testing.T) {
	m := NewMiddleware(applog.Discard(), nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "edge-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(HeaderRequestID); got != "edge-42" {
		t.Fatalf("got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "bad id with spaces")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(HeaderRequestID); !strings.HasPrefix(got, "req_") {
		t.Fatalf("invalid upstream id should be replaced, got %q", got)
	}
}

func TestLevelFor(t *testing.T) {
	cases := map[int]string{200: "INFO", 302: "INFO", 404: "WARN", 422: "WARN", 500: "ERROR"}
	for status, want := range cases {
		if got := levelFor(status).String(); got != want {
			t.Errorf("levelFor(%d) = %s, want %s", status, got, want)
		}
	}
}
