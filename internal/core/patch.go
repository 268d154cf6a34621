package core

import (
	"strings"
)

// OwnerPatch carries the owner fields to change. Nil fields are left alone.
type OwnerPatch struct {
	Name       *string `json:"name"`
	Percentage *string `json:"percentage"`
	ImageRef   *string `json:"imageRef"`
}

// Apply returns o with the patch merged in.
func (p OwnerPatch) Apply(o Owner) Owner {
	if p.Name != nil {
		o.Name = strings.TrimSpace(*p.Name)
	}
	if p.Percentage != nil {
		o.Percentage = ParseAmount(*p.Percentage)
	}
	if p.ImageRef != nil {
		o.ImageRef = strings.TrimSpace(*p.ImageRef)
	}
	return o
}

// EntryPatch carries the entry fields to change, as typed by the user.
// An empty DueDay or StartDate clears the field.
type EntryPatch struct {
	Name        *string `json:"name"`
	Value       *string `json:"value"`
	Category    *string `json:"category"`
	Periodicity *string `json:"periodicity"`
	Type        *string `json:"type"`
	DueDay      *string `json:"dueDay"`
	StartDate   *string `json:"startDate"`
}

// Apply returns e with the patch merged in. Enum fields are taken verbatim
// so that Entry.Validate can reject unknown values; the only error Apply
// itself returns is a malformed start date.
func (p EntryPatch) Apply(e Entry) (Entry, error) {
	e = e.Clone()
	if p.Name != nil {
		e.Name = strings.TrimSpace(*p.Name)
	}
	if p.Value != nil {
		e.Value = ParseAmount(*p.Value)
	}
	if p.Category != nil {
		e.Category = Category(strings.TrimSpace(*p.Category))
	}
	if p.Periodicity != nil {
		e.Periodicity = Periodicity(strings.TrimSpace(*p.Periodicity))
	}
	if p.Type != nil {
		e.Type = EntryType(strings.TrimSpace(*p.Type))
	}
	if p.DueDay != nil {
		e.DueDay = nil
		if day := ParseIntDefault(*p.DueDay, 0); day != 0 {
			e.DueDay = &day
		}
	}
	if p.StartDate != nil {
		e.StartDate = nil
		if s := strings.TrimSpace(*p.StartDate); s != "" {
			start, err := ParsePeriod(s)
			if err != nil {
				return e, &ValidationError{Fields: map[string]string{"startDate": "period"}}
			}
			e.StartDate = &start
		}
	}
	return e, nil
}
