package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"rateio/internal/core"
)

var monthsInYear = decimal.NewFromInt(12)

// ProjectionSummary aggregates a full projection year.
type ProjectionSummary struct {
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	TotalExpenses     decimal.Decimal `json:"totalExpenses"`
	AverageMonthlyNet decimal.Decimal `json:"averageMonthlyNet"`
}

// ProjectFor walks January through December of year and returns exactly
// twelve rows. A month with no bucket projects to zero, as does every month
// of a nil book.
func ProjectFor(year int, book *Book) []core.ProjectionRow {
	if book == nil {
		book = NewBook()
	}
	rows := make([]core.ProjectionRow, 0, 12)
	for m := time.January; m <= time.December; m++ {
		p := core.Period{Year: year, Month: m}
		rows = append(rows, projectPeriod(p, book.Bucket(p)))
	}
	return rows
}

func projectPeriod(p core.Period, bucket Bucket) core.ProjectionRow {
	expenses, revenue := decimal.Zero, decimal.Zero
	for _, e := range bucket.Entries {
		if !EntryActiveAt(e, p) {
			continue
		}
		switch e.Type {
		case core.Expense:
			expenses = expenses.Add(e.Value)
		case core.Income:
			revenue = revenue.Add(e.Value)
		}
	}
	if RentalActiveAt(bucket.Rental, p) {
		revenue = revenue.Add(bucket.Rental.Value)
	}
	return core.ProjectionRow{
		Month:    p.Label(),
		Period:   p,
		Date:     p.Start(),
		Expenses: expenses,
		Revenue:  revenue,
		Net:      revenue.Sub(expenses),
	}
}

// EntryActiveAt reports whether e counts in period p: entries without a start
// date always count, the others from their start period on.
func EntryActiveAt(e core.Entry, p core.Period) bool {
	return e.StartDate == nil || !p.Before(*e.StartDate)
}

// RentalActiveAt reports whether a rental record contributes revenue in
// period p. A record with a duration but no contract start never counts;
// one without a duration counts indefinitely.
func RentalActiveAt(r core.RentalIncome, p core.Period) bool {
	if !r.IsActive || !r.Value.IsPositive() {
		return false
	}
	switch {
	case r.ContractDuration == nil:
		return true
	case r.ContractStartDate == nil:
		return false
	}
	start := *r.ContractStartDate
	end := start.AddMonths(*r.ContractDuration)
	return !p.Before(start) && p.Before(end)
}

// Summarize totals a projection. The average is taken over twelve months
// whatever the number of rows.
func Summarize(rows []core.ProjectionRow) ProjectionSummary {
	s := ProjectionSummary{TotalRevenue: decimal.Zero, TotalExpenses: decimal.Zero}
	for _, r := range rows {
		s.TotalRevenue = s.TotalRevenue.Add(r.Revenue)
		s.TotalExpenses = s.TotalExpenses.Add(r.Expenses)
	}
	s.AverageMonthlyNet = s.TotalRevenue.Sub(s.TotalExpenses).Div(monthsInYear)
	return s
}
