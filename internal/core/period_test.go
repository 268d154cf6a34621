package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestPeriodKey(t *testing.T) {
	cases := []struct {
		p    Period
		want string
	}{
		{Period{2024, time.March}, "2024-03"},
		{Period{2024, time.December}, "2024-12"},
		{Period{987, time.January}, "0987-01"},
	}
	for _, tc := range cases {
		if got := tc.p.Key(); got != tc.want {
			t.Fatalf("Key(%v) = %q, want %q", tc.p, got, tc.want)
		}
	}
}

func TestPeriodOfIgnoresDay(t *testing.T) {
	a := PeriodOf(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	b := PeriodOf(time.Date(2024, time.January, 31, 23, 59, 0, 0, time.UTC))
	if a != b {
		t.Fatalf("same month should bucket equally: %v vs %v", a, b)
	}
}

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		in   string
		want Period
		ok   bool
	}{
		{"2024-03", Period{2024, time.March}, true},
		{" 2025-12 ", Period{2025, time.December}, true},
		{"2024-03-15", Period{2024, time.March}, true},
		{"2024-13", Period{}, false},
		{"2024/03", Period{}, false},
		{"2024-03xyz", Period{}, false},
		{"2024-03-99", Period{}, false},
		{"2024-02-30", Period{}, false},
		{"", Period{}, false},
	}
	for _, tc := range cases {
		got, err := ParsePeriod(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("ParsePeriod(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidPeriod) {
			t.Fatalf("ParsePeriod(%q) expected ErrInvalidPeriod, got %v", tc.in, err)
		}
	}
}

func TestAddMonths(t *testing.T) {
	cases := []struct {
		from Period
		n    int
		want Period
	}{
		{Period{2024, time.March}, 0, Period{2024, time.March}},
		{Period{2024, time.March}, 2, Period{2024, time.May}},
		{Period{2024, time.November}, 3, Period{2025, time.February}},
		{Period{2024, time.January}, -1, Period{2023, time.December}},
		{Period{2024, time.January}, 24, Period{2026, time.January}},
		{Period{2024, time.January}, -25, Period{2021, time.December}},
	}
	for _, tc := range cases {
		if got := tc.from.AddMonths(tc.n); got != tc.want {
			t.Fatalf("%v.AddMonths(%d) = %v, want %v", tc.from, tc.n, got, tc.want)
		}
	}
}

// January 31st plus one month must land in February, not March.
func TestAddMonthsFromEndOfMonth(t *testing.T) {
	jan := PeriodOf(time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC))
	if got := jan.AddMonths(1); got != (Period{2024, time.February}) {
		t.Fatalf("got %v", got)
	}
}

func TestNewPeriodNormalizes(t *testing.T) {
	if got := NewPeriod(2024, 13); got != (Period{2025, time.January}) {
		t.Fatalf("got %v", got)
	}
	if got := NewPeriod(2024, 0); got != (Period{2023, time.December}) {
		t.Fatalf("got %v", got)
	}
}

func TestPeriodCompare(t *testing.T) {
	a := Period{2024, time.June}
	b := Period{2024, time.July}
	if !a.Before(b) || a.After(b) || a.Compare(b) != -1 {
		t.Fatalf("expected %v before %v", a, b)
	}
	if b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Fatal("compare results inconsistent")
	}
}

func TestPeriodLabel(t *testing.T) {
	if got := (Period{2024, time.September}).Label(); got != "Sep" {
		t.Fatalf("got %q", got)
	}
}

func TestPeriodJSON(t *testing.T) {
	type wrapper struct {
		P   Period  `json:"p"`
		Opt *Period `json:"opt,omitempty"`
	}
	data, err := json.Marshal(wrapper{P: Period{2024, time.March}})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"p":"2024-03"}` {
		t.Fatalf("unexpected json %s", data)
	}

	var w wrapper
	if err := json.Unmarshal([]byte(`{"p":"2025-01","opt":"2025-02"}`), &w); err != nil {
		t.Fatal(err)
	}
	if w.P != (Period{2025, time.January}) || w.Opt == nil || *w.Opt != (Period{2025, time.February}) {
		t.Fatalf("unexpected decode %+v", w)
	}

	if err := json.Unmarshal([]byte(`{"p":"nope"}`), &w); err == nil {
		t.Fatal("expected decode error")
	}
}
