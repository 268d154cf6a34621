package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"rateio/internal/core"
)

// Totals are the period aggregates a split policy distributes.
type Totals struct {
	Expenses decimal.Decimal
	Rental   decimal.Decimal
	Net      decimal.Decimal
}

// EntryFilter decides which entries count towards a period's expense total.
type EntryFilter interface {
	Include(e core.Entry) bool
}

// EntryFilterFunc adapts a predicate to EntryFilter.
type EntryFilterFunc func(e core.Entry) bool

func (f EntryFilterFunc) Include(e core.Entry) bool { return f(e) }

var (
	// AllEntries counts every entry in the bucket, income included.
	AllEntries EntryFilter = EntryFilterFunc(func(core.Entry) bool { return true })

	// ExpensesOnly counts only entries of type expense.
	ExpensesOnly EntryFilter = EntryFilterFunc(func(e core.Entry) bool { return e.Type == core.Expense })
)

// SplitPolicy distributes period totals across owners. Implementations must
// return one balance per owner, in owner order.
type SplitPolicy interface {
	Split(t Totals, owners []core.Owner) []core.OwnerBalance
}

// EqualSplit gives every owner the same share. Owner percentages are ignored.
type EqualSplit struct{}

func (EqualSplit) Split(t Totals, owners []core.Owner) []core.OwnerBalance {
	k := decimal.NewFromInt(int64(len(owners)))
	out := make([]core.OwnerBalance, len(owners))
	for i, o := range owners {
		out[i] = core.OwnerBalance{
			OwnerID:       o.ID,
			OwnerName:     o.Name,
			TotalExpenses: t.Expenses.Div(k),
			RentalCredit:  t.Rental.Div(k),
			FinalBalance:  t.Net.Div(k),
			Percentage:    o.Percentage,
		}
	}
	return out
}

// WeightedSplit shares totals in proportion to owner percentages. When the
// percentages sum to zero it falls back to EqualSplit.
type WeightedSplit struct{}

func (WeightedSplit) Split(t Totals, owners []core.Owner) []core.OwnerBalance {
	sum := decimal.Zero
	for _, o := range owners {
		sum = sum.Add(o.Percentage)
	}
	if sum.IsZero() {
		return EqualSplit{}.Split(t, owners)
	}

	out := make([]core.OwnerBalance, len(owners))
	for i, o := range owners {
		w := o.Percentage.Div(sum)
		out[i] = core.OwnerBalance{
			OwnerID:       o.ID,
			OwnerName:     o.Name,
			TotalExpenses: t.Expenses.Mul(w),
			RentalCredit:  t.Rental.Mul(w),
			FinalBalance:  t.Net.Mul(w),
			Percentage:    o.Percentage,
		}
	}
	return out
}

// splitPolicies maps configuration names to split policies.
var splitPolicies = map[string]SplitPolicy{
	"equal":    EqualSplit{},
	"weighted": WeightedSplit{},
}

// entryFilters maps configuration names to entry filters.
var entryFilters = map[string]EntryFilter{
	"all":           AllEntries,
	"expenses_only": ExpensesOnly,
}

// SplitPolicyFor returns the split policy registered under name.
func SplitPolicyFor(name string) (SplitPolicy, error) {
	p, ok := splitPolicies[name]
	if !ok {
		return nil, fmt.Errorf("unknown split policy: %s", name)
	}
	return p, nil
}

// EntryFilterFor returns the entry filter registered under name.
func EntryFilterFor(name string) (EntryFilter, error) {
	f, ok := entryFilters[name]
	if !ok {
		return nil, fmt.Errorf("unknown entry filter: %s", name)
	}
	return f, nil
}

// RegisterSplitPolicy adds or replaces a named split policy. Call it during
// program initialization.
func RegisterSplitPolicy(name string, p SplitPolicy) {
	splitPolicies[name] = p
}

// RegisterEntryFilter adds or replaces a named entry filter. Call it during
// program initialization.
func RegisterEntryFilter(name string, f EntryFilter) {
	entryFilters[name] = f
}

// SplitPolicyNames lists the registered split policy names, sorted.
func SplitPolicyNames() []string { return sortedKeys(splitPolicies) }

// EntryFilterNames lists the registered entry filter names, sorted.
func EntryFilterNames() []string { return sortedKeys(entryFilters) }

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BalanceOptions selects the strategies used by BalancesFor. Nil fields
// take the defaults: AllEntries and EqualSplit.
type BalanceOptions struct {
	Filter EntryFilter
	Split  SplitPolicy
}

// TotalsFor aggregates a period. Rental counts only while active.
func TotalsFor(entries []core.Entry, rental core.RentalIncome, filter EntryFilter) Totals {
	if filter == nil {
		filter = AllEntries
	}
	expenses := decimal.Zero
	for _, e := range entries {
		if filter.Include(e) {
			expenses = expenses.Add(e.Value)
		}
	}
	effectiveRental := decimal.Zero
	if rental.IsActive {
		effectiveRental = rental.Value
	}
	return Totals{
		Expenses: expenses,
		Rental:   effectiveRental,
		Net:      expenses.Sub(effectiveRental),
	}
}

// BalancesFor splits a period's totals across owners. It returns nil when
// there are no owners.
func BalancesFor(entries []core.Entry, rental core.RentalIncome, owners []core.Owner, opts BalanceOptions) []core.OwnerBalance {
	if len(owners) == 0 {
		return nil
	}
	split := opts.Split
	if split == nil {
		split = EqualSplit{}
	}
	return split.Split(TotalsFor(entries, rental, opts.Filter), owners)
}
