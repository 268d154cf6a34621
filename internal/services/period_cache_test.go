package services

import (
	"testing"
	"time"

	"rateio/internal/core"
	"rateio/internal/ledger"
)

func TestPeriodCacheNilIsNoop(t *testing.T) {
	var c *PeriodCache
	c.SetBucket("alice", march2024, ledger.EmptyBucket())
	if _, ok := c.Bucket("alice", march2024); ok {
		t.Fatal("nil cache should never hit")
	}
	c.Apply("alice", []core.Period{march2024}, func(*ledger.Book) bool {
		t.Fatal("nil cache must not run mutations")
		return true
	})
	if len(c.Cleaners()) != 0 {
		t.Fatal("nil cache has no cleaners")
	}
}

func TestPeriodCacheReturnsCopies(t *testing.T) {
	c := NewPeriodCache(8, time.Minute)
	b := ledger.EmptyBucket()
	b.Entries = append(b.Entries, core.Entry{ID: "e1", Name: "original"})
	c.SetBucket("alice", march2024, b)

	b.Entries[0].Name = "changed after set"
	got, ok := c.Bucket("alice", march2024)
	if !ok || got.Entries[0].Name != "original" {
		t.Fatalf("cache aliased caller slice: %+v", got)
	}

	got.Entries[0].Name = "changed after get"
	again, _ := c.Bucket("alice", march2024)
	if again.Entries[0].Name != "original" {
		t.Fatal("cache aliased returned slice")
	}
}

func TestPeriodCacheKeysByUser(t *testing.T) {
	c := NewPeriodCache(8, time.Minute)
	c.SetBucket("alice", march2024, ledger.EmptyBucket())
	if _, ok := c.Bucket("bob", march2024); ok {
		t.Fatal("bob must not see alice's bucket")
	}

	c.SetOwners("alice", core.DefaultOwners())
	c.InvalidateBucket("alice", march2024)
	if _, ok := c.Bucket("alice", march2024); ok {
		t.Fatal("bucket should be gone after InvalidateBucket")
	}
	if _, ok := c.Owners("alice"); !ok {
		t.Fatal("owners are cached separately from buckets")
	}
}

func TestPeriodCacheApplyWritesThroughCachedPeriods(t *testing.T) {
	c := NewPeriodCache(8, time.Minute)
	april := march2024.AddMonths(1)
	c.SetBucket("alice", march2024, ledger.EmptyBucket())

	c.Apply("alice", []core.Period{march2024, april}, func(book *ledger.Book) bool {
		book.Insert(
			core.Entry{ID: "e1", Period: march2024},
			core.Entry{ID: "e2", Period: april},
		)
		return true
	})

	got, ok := c.Bucket("alice", march2024)
	if !ok || len(got.Entries) != 1 || got.Entries[0].ID != "e1" {
		t.Fatalf("march bucket = %+v, %v", got, ok)
	}
	if _, ok := c.Bucket("alice", april); ok {
		t.Fatal("a period that was not cached must stay uncached")
	}
	if st := c.Stats(); st.Hits != 1 {
		t.Fatalf("Apply should not count as a read, stats = %+v", st)
	}
}

func TestPeriodCacheApplyEvictsOnMiss(t *testing.T) {
	c := NewPeriodCache(8, time.Minute)
	c.SetBucket("alice", march2024, ledger.EmptyBucket())

	c.Apply("alice", []core.Period{march2024}, func(book *ledger.Book) bool {
		return book.Remove(march2024, "unknown")
	})
	if _, ok := c.Bucket("alice", march2024); ok {
		t.Fatal("bucket should be evicted when the mutation misses")
	}
}
