// Package core provides the ledger's domain types and the lenient parsing
// used for user-typed input.
package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts free-form numeric input into a decimal amount.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. When
// both appear, the last one is the decimal separator and the other is read as
// a thousands separator ("1.234,56" and "1,234.56" are both 1234.56).
// Exponent notation ("1e5") is not an amount and, like any other input that
// fails to parse, yields zero.
//
// Examples:
//
//	ParseAmount("1200")     -> 1200
//	ParseAmount("99,90")    -> 99.9
//	ParseAmount("1.234,56") -> 1234.56
//	ParseAmount("abc")      -> 0
//	ParseAmount("1e6")      -> 0
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "eE") {
		return decimal.Zero
	}
	s = strings.ReplaceAll(s, " ", "")

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case dot >= 0 && comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseIntDefault parses a base-10 integer, returning def when s is empty or
// malformed.
func ParseIntDefault(s string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}
