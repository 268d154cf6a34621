package services

import (
	"time"

	"rateio/internal/cache"
	"rateio/internal/core"
	"rateio/internal/ledger"
)

// PeriodCache holds per-user period buckets and owner lists. A nil
// *PeriodCache is valid and caches nothing.
type PeriodCache struct {
	buckets *cache.LRUCache[ledger.Bucket]
	owners  *cache.LRUCache[[]core.Owner]
}

func NewPeriodCache(size int, ttl time.Duration, opts ...cache.Option) *PeriodCache {
	return &PeriodCache{
		buckets: cache.NewLRUCache[ledger.Bucket](size, ttl, opts...),
		owners:  cache.NewLRUCache[[]core.Owner](size, ttl, opts...),
	}
}

func bucketKey(userID string, p core.Period) string {
	return userID + "|" + p.Key()
}

// Bucket returns a private copy of the cached bucket.
func (c *PeriodCache) Bucket(userID string, p core.Period) (ledger.Bucket, bool) {
	if c == nil {
		return ledger.Bucket{}, false
	}
	b, ok := c.buckets.Get(bucketKey(userID, p))
	if !ok {
		return ledger.Bucket{}, false
	}
	return b.Clone(), true
}

func (c *PeriodCache) SetBucket(userID string, p core.Period, b ledger.Bucket) {
	if c == nil {
		return
	}
	c.buckets.Set(bucketKey(userID, p), b.Clone())
}

func (c *PeriodCache) InvalidateBucket(userID string, p core.Period) {
	if c == nil {
		return
	}
	c.buckets.Delete(bucketKey(userID, p))
}

func (c *PeriodCache) Owners(userID string) ([]core.Owner, bool) {
	if c == nil {
		return nil, false
	}
	owners, ok := c.owners.Get(userID)
	if !ok {
		return nil, false
	}
	return append([]core.Owner(nil), owners...), true
}

func (c *PeriodCache) SetOwners(userID string, owners []core.Owner) {
	if c == nil {
		return
	}
	c.owners.Set(userID, append([]core.Owner(nil), owners...))
}

// Apply writes a committed change through to the cached buckets. The cached
// buckets among periods are loaded into a Book, mutate runs over it and the
// result replaces them. Periods not cached are skipped and left to the next
// read. If mutate reports that its target was not found, the loaded periods
// are evicted instead.
func (c *PeriodCache) Apply(userID string, periods []core.Period, mutate func(*ledger.Book) bool) {
	if c == nil {
		return
	}
	book := ledger.NewBook()
	cached := make([]core.Period, 0, len(periods))
	for _, p := range periods {
		if b, ok := c.buckets.Peek(bucketKey(userID, p)); ok {
			book.SetBucket(p, b)
			cached = append(cached, p)
		}
	}
	if len(cached) == 0 {
		return
	}
	if !mutate(book) {
		for _, p := range cached {
			c.InvalidateBucket(userID, p)
		}
		return
	}
	for _, p := range cached {
		c.buckets.Set(bucketKey(userID, p), book.Bucket(p))
	}
}

// Cleaners exposes the underlying caches to a cache.Manager.
func (c *PeriodCache) Cleaners() []cache.Cleaner {
	if c == nil {
		return nil
	}
	return []cache.Cleaner{c.buckets, c.owners}
}

// Stats reports bucket cache traffic.
func (c *PeriodCache) Stats() cache.Stats {
	if c == nil {
		return cache.Stats{}
	}
	return c.buckets.Stats()
}
