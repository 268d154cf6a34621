package core

import (
	"strconv"
	"strings"
)

// EntryDraft is an entry as typed by the user, before any parsing.
type EntryDraft struct {
	Name              string `json:"name"`
	Value             string `json:"value"`
	Category          string `json:"category"`
	Periodicity       string `json:"periodicity"`
	Type              string `json:"type"`
	DueDay            string `json:"dueDay"`
	StartDate         string `json:"startDate"`
	TotalInstallments string `json:"totalInstallments"`
}

// Template parses the draft into a single entry with no id and no period.
//
// Parsing never fails: a bad value becomes 0, an unknown enum falls back
// to other/monthly/expense, a missing or out-of-range due day is dropped,
// and the installment count is clamped to 1..MaxInstallments.
func (d EntryDraft) Template() Entry {
	e := Entry{
		Name:               strings.TrimSpace(d.Name),
		Value:              ParseAmount(d.Value),
		Category:           parseCategory(d.Category),
		Periodicity:        parsePeriodicity(d.Periodicity),
		Type:               parseEntryType(d.Type),
		TotalInstallments:  clampInstallments(ParseIntDefault(d.TotalInstallments, 1)),
		CurrentInstallment: 1,
	}

	if day := ParseIntDefault(d.DueDay, 0); day >= 1 && day <= 31 {
		e.DueDay = &day
	}
	if p, err := ParsePeriod(d.StartDate); err == nil {
		e.StartDate = &p
	}
	return e
}

func clampInstallments(n int) int {
	switch {
	case n < 1:
		return 1
	case n > MaxInstallments:
		return MaxInstallments
	default:
		return n
	}
}

func parseCategory(s string) Category {
	switch c := Category(strings.TrimSpace(s)); c {
	case FinancingBank, FinancingBuilder, Condominium, OtherCategory:
		return c
	default:
		return OtherCategory
	}
}

func parsePeriodicity(s string) Periodicity {
	switch p := Periodicity(strings.TrimSpace(s)); p {
	case Monthly, Yearly, OneTime:
		return p
	default:
		return Monthly
	}
}

func parseEntryType(s string) EntryType {
	switch t := EntryType(strings.TrimSpace(s)); t {
	case Expense, Income:
		return t
	default:
		return Expense
	}
}

// RentalDraft is a rental income record as typed by the user.
type RentalDraft struct {
	Name              string `json:"name"`
	Value             string `json:"value"`
	IsActive          string `json:"isActive"`
	ContractDuration  string `json:"contractDuration"`
	ContractStartDate string `json:"contractStartDate"`
	StartDate         string `json:"startDate"`
}

// Parse converts the draft. Value and IsActive are lenient; a contract
// field or start date that is present but malformed is a ValidationError.
// The pairing of duration and contract start is left to Validate.
func (d RentalDraft) Parse() (RentalIncome, error) {
	r := RentalIncome{
		Name:  strings.TrimSpace(d.Name),
		Value: ParseAmount(d.Value),
	}
	if r.Name == "" {
		r.Name = DefaultRentalName
	}
	if active, err := strconv.ParseBool(strings.TrimSpace(d.IsActive)); err == nil {
		r.IsActive = active
	} else if strings.EqualFold(strings.TrimSpace(d.IsActive), "on") {
		r.IsActive = true
	}

	fields := map[string]string{}
	if s := strings.TrimSpace(d.ContractDuration); s != "" {
		months, err := strconv.Atoi(s)
		if err != nil {
			fields["contractDuration"] = "number"
		} else {
			r.ContractDuration = &months
		}
	}
	if p, ok := parseOptionalPeriod(d.ContractStartDate); ok {
		r.ContractStartDate = p
	} else {
		fields["contractStartDate"] = "period"
	}
	if p, ok := parseOptionalPeriod(d.StartDate); ok {
		r.StartDate = p
	} else {
		fields["startDate"] = "period"
	}
	if len(fields) > 0 {
		return r, &ValidationError{Fields: fields}
	}
	return r, nil
}

// parseOptionalPeriod returns nil for blank input and false for garbage.
func parseOptionalPeriod(s string) (*Period, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	p, err := ParsePeriod(s)
	if err != nil {
		return nil, false
	}
	return &p, true
}
