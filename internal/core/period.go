package core

import (
	"fmt"
	"strings"
	"time"
)

// PeriodLayout is the canonical text form of a period key.
const PeriodLayout = "2006-01"

// Period is a calendar month. It carries no day-of-month so month arithmetic
// never overflows into the following month.
type Period struct {
	Year  int
	Month time.Month
}

// NewPeriod builds a period, normalizing months outside 1..12 into the
// neighbouring years (month 13 of 2024 is January 2025).
func NewPeriod(year int, month time.Month) Period {
	return Period{}.fromIndex(year*12 + int(month) - 1)
}

// PeriodOf returns the period a date falls in.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses a YYYY-MM key. A full calendar date (YYYY-MM-DD) is
// accepted and its day ignored.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(PeriodLayout, s); err == nil {
		return PeriodOf(t), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return PeriodOf(t), nil
	}
	return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

// Key formats the period as YYYY-MM.
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) String() string {
	return p.Key()
}

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Valid reports whether the period names a real calendar month.
func (p Period) Valid() bool {
	return p.Year >= 1 && p.Year <= 9999 && p.Month >= time.January && p.Month <= time.December
}

// AddMonths moves the period n months forward (or backward for negative n).
func (p Period) AddMonths(n int) Period {
	return p.fromIndex(p.index() + n)
}

// Compare returns -1, 0 or +1 depending on whether p is before, equal to or
// after o.
func (p Period) Compare(o Period) int {
	switch a, b := p.index(), o.index(); {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Before reports whether p is strictly earlier than o.
func (p Period) Before(o Period) bool { return p.Compare(o) < 0 }

// After reports whether p is strictly later than o.
func (p Period) After(o Period) bool { return p.Compare(o) > 0 }

// Start is midnight UTC on the first day of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Label is the short month name ("Jan".."Dec").
func (p Period) Label() string {
	return p.Start().Format("Jan")
}

// MarshalText implements encoding.TextMarshaler.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.Key()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Period) UnmarshalText(data []byte) error {
	parsed, err := ParsePeriod(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Period) index() int {
	return p.Year*12 + int(p.Month) - 1
}

func (Period) fromIndex(idx int) Period {
	year := idx / 12
	month := idx % 12
	if month < 0 {
		month += 12
		year--
	}
	return Period{Year: year, Month: time.Month(month + 1)}
}
