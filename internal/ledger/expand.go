package ledger

import (
	"github.com/google/uuid"

	"rateio/internal/core"
)

// IDGenerator hands out entry and parent identifiers.
type IDGenerator interface {
	NewID() string
}

// IDFunc adapts a plain function to IDGenerator.
type IDFunc func() string

func (f IDFunc) NewID() string { return f() }

// UUIDGenerator issues random version 4 UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// Expand turns a draft into its installment entries.
//
// A draft with N installments yields N entries in consecutive periods
// starting at anchor. Every entry carries the full draft value (it is not
// divided by N), a 1-based CurrentInstallment and, when N > 1, a ParentID
// shared by all of them. Entries are returned in installment order.
func Expand(draft core.EntryDraft, anchor core.Period, ids IDGenerator) []core.Entry {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	tmpl := draft.Template()
	n := tmpl.TotalInstallments

	var parentID string
	if n > 1 {
		parentID = ids.NewID()
	}

	entries := make([]core.Entry, 0, n)
	for i := 0; i < n; i++ {
		e := tmpl.Clone()
		e.ID = ids.NewID()
		e.Period = anchor.AddMonths(i)
		e.CurrentInstallment = i + 1
		e.ParentID = parentID
		entries = append(entries, e)
	}
	return entries
}
