package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLimiterWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: 2, Now: clock.Now})
	defer rl.Stop()

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request inside the window should be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("other clients have their own window")
	}

	clock.Advance(time.Minute)
	if !rl.Allow("a") {
		t.Fatal("window should reset after a minute")
	}
	if got := rl.GetMetrics(); got.TotalHits != 1 || got.ClientCount != 2 {
		t.Fatalf("unexpected metrics: %+v", got)
	}
}

func TestLimiterWindowDoesNotSlideWithTraffic(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: 1, Now: clock.Now})
	defer rl.Stop()

	if !rl.Allow("a") {
		t.Fatal("first request should pass")
	}
	for i := 0; i < 3; i++ {
		clock.Advance(15 * time.Second)
		if rl.Allow("a") {
			t.Fatalf("request %d inside the window should be limited", i+2)
		}
	}
	clock.Advance(20 * time.Second)
	if !rl.Allow("a") {
		t.Fatal("window opened 65s ago and should have reset")
	}
}

func TestCleanupForgetsIdleClients(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: 5, Now: clock.Now})
	defer rl.Stop()

	rl.Allow("a")
	clock.Advance(11 * time.Minute)
	rl.cleanupStaleEntries()
	if rl.ActiveClients() != 0 {
		t.Fatalf("expected idle client to be dropped, have %d", rl.ActiveClients())
	}
}

func TestMiddlewareOnlyLimitsWrites(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()
	h := rl.Middleware(func(*http.Request) string { return "ip" }, false, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(method string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/api/entries/x", nil))
		return rec.Code
	}

	if do(http.MethodPost) != http.StatusNoContent {
		t.Fatal("first write should pass")
	}
	if code := do(http.MethodPatch); code != http.StatusTooManyRequests {
		t.Fatalf("second write should be limited, got %d", code)
	}
	for i := 0; i < 3; i++ {
		if do(http.MethodGet) != http.StatusNoContent {
			t.Fatal("reads are not limited")
		}
	}
}
