package google

import (
	"fmt"
	"strconv"
	"strings"

	"rateio/internal/core"
	"rateio/internal/ledger"
)

const rentalRowType = "rental"

var (
	periodHeader     = []any{"User", "Period", "ID", "Name", "Category", "Type", "Value", "Installment", "Due Day"}
	projectionHeader = []any{"User", "Year", "Month", "Expenses", "Revenue", "Net"}
)

// periodRows renders one row per entry plus a row for the rental income when
// it contributes to the period.
func periodRows(userID string, p core.Period, b ledger.Bucket) [][]any {
	rows := make([][]any, 0, len(b.Entries)+1)
	for _, e := range b.Entries {
		due := ""
		if e.DueDay != nil {
			due = strconv.Itoa(*e.DueDay)
		}
		rows = append(rows, []any{
			userID,
			p.Key(),
			e.ID,
			e.Name,
			string(e.Category),
			string(e.Type),
			e.Value.InexactFloat64(),
			fmt.Sprintf("%d/%d", e.CurrentInstallment, e.TotalInstallments),
			due,
		})
	}
	if ledger.RentalActiveAt(b.Rental, p) {
		rows = append(rows, []any{
			userID, p.Key(), b.Rental.ID, b.Rental.Name, "", rentalRowType,
			b.Rental.Value.InexactFloat64(), "", "",
		})
	}
	return rows
}

func projectionRows(userID string, year int, rows []core.ProjectionRow) [][]any {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, []any{
			userID,
			year,
			r.Month,
			r.Expenses.InexactFloat64(),
			r.Revenue.InexactFloat64(),
			r.Net.InexactFloat64(),
		})
	}
	return out
}

// replaceRows rebuilds a sheet: the header, every existing data row that
// does not match, then the new rows. Matching uses the first two columns.
func replaceRows(existing [][]any, header []any, user, scope string, add [][]any) [][]any {
	out := make([][]any, 0, len(existing)+len(add)+1)
	out = append(out, header)
	for i, row := range existing {
		if i == 0 && isHeader(row, header) {
			continue
		}
		cols := toStrings(row)
		if len(cols) == 0 || strings.Join(cols, "") == "" {
			continue
		}
		if safeGet(cols, 0) == user && safeGet(cols, 1) == scope {
			continue
		}
		out = append(out, row)
	}
	return append(out, add...)
}

func isHeader(row, header []any) bool {
	return len(row) > 0 && len(header) > 0 &&
		strings.EqualFold(strings.TrimSpace(fmt.Sprint(row[0])), fmt.Sprint(header[0]))
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// columnRange spans every column of a header, e.g. "'Sheet'!A:I".
func columnRange(sheet string, header []any) string {
	return fmt.Sprintf("'%s'!A:%c", sheet, 'A'+rune(len(header)-1))
}
