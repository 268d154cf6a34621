// Package ledger holds the month-bucketed entry book and the pure
// calculations over it: installment expansion, balances and projections.
package ledger

import (
	"sort"

	"rateio/internal/core"
)

// Bucket is everything recorded for one period.
type Bucket struct {
	Entries []core.Entry      `json:"entries"`
	Rental  core.RentalIncome `json:"rentalIncome"`
}

// EmptyBucket is the view of a period nothing was ever written to.
func EmptyBucket() Bucket {
	return Bucket{Entries: []core.Entry{}, Rental: core.DefaultRentalIncome()}
}

// Clone deep-copies the bucket.
func (b Bucket) Clone() Bucket {
	entries := make([]core.Entry, len(b.Entries))
	for i, e := range b.Entries {
		entries[i] = e.Clone()
	}
	return Bucket{Entries: entries, Rental: b.Rental.Clone()}
}

// Book maps periods to buckets. The zero value is not usable; call NewBook.
// A Book is not safe for concurrent mutation.
type Book struct {
	buckets map[core.Period]Bucket
}

func NewBook() *Book {
	return &Book{buckets: make(map[core.Period]Bucket)}
}

// Bucket returns a copy of the period's bucket, or EmptyBucket if the period
// has never been written.
func (b *Book) Bucket(p core.Period) Bucket {
	bucket, ok := b.buckets[p]
	if !ok {
		return EmptyBucket()
	}
	return bucket.Clone()
}

// SetBucket replaces a whole period.
func (b *Book) SetBucket(p core.Period, bucket Bucket) {
	b.buckets[p] = bucket.Clone()
}

// Insert appends entries to the bucket of their own period.
func (b *Book) Insert(entries ...core.Entry) {
	for _, e := range entries {
		bucket := b.ensure(e.Period)
		bucket.Entries = append(bucket.Entries, e.Clone())
		b.buckets[e.Period] = bucket
	}
}

// Replace swaps the entry with the same id in e's period. It reports whether
// such an entry existed.
func (b *Book) Replace(e core.Entry) bool {
	bucket, ok := b.buckets[e.Period]
	if !ok {
		return false
	}
	for i := range bucket.Entries {
		if bucket.Entries[i].ID == e.ID {
			bucket.Entries[i] = e.Clone()
			return true
		}
	}
	return false
}

// Remove deletes the entry with the given id from the period. Other periods
// are untouched, including sibling installments.
func (b *Book) Remove(p core.Period, id string) bool {
	bucket, ok := b.buckets[p]
	if !ok {
		return false
	}
	for i := range bucket.Entries {
		if bucket.Entries[i].ID == id {
			bucket.Entries = append(bucket.Entries[:i], bucket.Entries[i+1:]...)
			b.buckets[p] = bucket
			return true
		}
	}
	return false
}

// SetRental replaces the period's rental income.
func (b *Book) SetRental(p core.Period, r core.RentalIncome) {
	bucket := b.ensure(p)
	bucket.Rental = r.Clone()
	b.buckets[p] = bucket
}

// Periods lists the written periods in ascending order.
func (b *Book) Periods() []core.Period {
	out := make([]core.Period, 0, len(b.buckets))
	for p := range b.buckets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func (b *Book) ensure(p core.Period) Bucket {
	bucket, ok := b.buckets[p]
	if !ok {
		bucket = EmptyBucket()
	}
	return bucket
}
