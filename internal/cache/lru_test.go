package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestLRUGetSet(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("unexpected hit for missing key")
	}
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should survive, it was used recently")
	}
	if c.Stats().Evictions != 1 {
		t.Fatalf("evictions = %d", c.Stats().Evictions)
	}
}

func TestLRUExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute, WithClock(clock.Now))
	c.Set("a", 1)
	c.Set("b", 2)

	clock.now = clock.now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatal("a should have expired")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Fatalf("CleanExpired removed %d, want 1", removed)
	}
	if c.Size() != 0 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUPeekLeavesStatsAndOrder(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	if v, ok := c.Peek("a"); !ok || v != 1 {
		t.Fatalf("Peek(a) = %d, %v", v, ok)
	}
	if _, ok := c.Peek("missing"); ok {
		t.Fatal("Peek should miss unknown keys")
	}
	if st := c.Stats(); st.Hits != 0 || st.Misses != 0 {
		t.Fatalf("Peek changed stats: %+v", st)
	}

	// a was only peeked, so it is still the least recently used.
	c.Set("c", 3)
	if _, ok := c.Peek("a"); ok {
		t.Fatal("a should have been evicted")
	}
}

func TestManagerSweepAndStop(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := NewLRUCache[int](10, time.Second, WithClock(clock.Now))
	c.Set("a", 1)

	m := NewManager(nil)
	m.Register(c)
	clock.now = clock.now.Add(time.Hour)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("Sweep removed %d", n)
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()
}

func TestManagerStopWithoutStart(t *testing.T) {
	done := make(chan struct{})
	go func() {
		NewManager(nil).Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a manager that never started")
	}
}
