package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	FinancingBank    Category = "financing_bank"
	FinancingBuilder Category = "financing_builder"
	Condominium      Category = "condominium"
	OtherCategory    Category = "other"
)

const (
	Monthly Periodicity = "monthly"
	Yearly  Periodicity = "yearly"
	OneTime Periodicity = "one_time"
)

const (
	Expense EntryType = "expense"
	Income  EntryType = "income"
)

const (
	// MaxInstallments bounds the installment count of a single draft.
	MaxInstallments = 250

	// DefaultRentalName labels a period's rental income until the user renames it.
	DefaultRentalName = "Receita de Aluguel"
)

type (
	Category    string
	Periodicity string
	EntryType   string

	// Owner is a co-owner of the property. Percentage is informational
	// unless the weighted split policy is selected.
	Owner struct {
		ID         string          `json:"id"`
		Name       string          `json:"name" validate:"max=120"`
		Percentage decimal.Decimal `json:"percentage"`
		ImageRef   string          `json:"imageRef,omitempty"`
		Position   int             `json:"position"`
	}

	// Entry is one ledger line inside a period. Installment entries share a
	// ParentID; single entries have none.
	Entry struct {
		ID                 string          `json:"id"`
		Name               string          `json:"name" validate:"max=200"`
		Value              decimal.Decimal `json:"value"`
		Category           Category        `json:"category" validate:"oneof=financing_bank financing_builder condominium other"`
		Periodicity        Periodicity     `json:"periodicity" validate:"oneof=monthly yearly one_time"`
		Type               EntryType       `json:"type" validate:"oneof=expense income"`
		DueDay             *int            `json:"dueDay,omitempty" validate:"omitempty,min=1,max=31"`
		StartDate          *Period         `json:"startDate,omitempty"`
		TotalInstallments  int             `json:"totalInstallments" validate:"min=1,max=250"`
		CurrentInstallment int             `json:"currentInstallment" validate:"min=1,ltefield=TotalInstallments"`
		ParentID           string          `json:"parentId,omitempty"`
		Period             Period          `json:"period"`
	}

	// RentalIncome is the rent received in one period. A contract window, if
	// any, starts at ContractStartDate and lasts ContractDuration months.
	RentalIncome struct {
		ID                string          `json:"id,omitempty"`
		Name              string          `json:"name" validate:"max=120"`
		Value             decimal.Decimal `json:"value"`
		IsActive          bool            `json:"isActive"`
		ContractDuration  *int            `json:"contractDuration,omitempty" validate:"omitempty,min=0,max=1200"`
		ContractStartDate *Period         `json:"contractStartDate,omitempty"`
		StartDate         *Period         `json:"startDate,omitempty"`
	}

	// OwnerBalance is one owner's share of a period's net result.
	// TotalExpenses is the owner's share of the period total, not the total.
	OwnerBalance struct {
		OwnerID       string          `json:"ownerId"`
		OwnerName     string          `json:"ownerName"`
		TotalExpenses decimal.Decimal `json:"totalExpenses"`
		RentalCredit  decimal.Decimal `json:"rentalCredit"`
		FinalBalance  decimal.Decimal `json:"finalBalance"`
		Percentage    decimal.Decimal `json:"percentage"`
	}

	// ProjectionRow aggregates one month of a yearly projection.
	ProjectionRow struct {
		Month    string          `json:"month"`
		Period   Period          `json:"period"`
		Date     time.Time       `json:"date"`
		Expenses decimal.Decimal `json:"expenses"`
		Revenue  decimal.Decimal `json:"revenue"`
		Net      decimal.Decimal `json:"net"`
	}
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidPeriod = errors.New("invalid period")
	ErrValidation    = errors.New("validation failed")
)

func init() {
	// Amounts travel as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// DefaultOwners is the owner set seeded for a user with none.
func DefaultOwners() []Owner {
	shares := []string{"33.33", "33.33", "33.34"}
	names := []string{"Proprietário 1", "Proprietário 2", "Proprietário 3"}
	owners := make([]Owner, len(names))
	for i := range names {
		owners[i] = Owner{
			Name:       names[i],
			Percentage: decimal.RequireFromString(shares[i]),
			Position:   i,
		}
	}
	return owners
}

// DefaultRentalIncome is the rental record of a period that was never edited.
func DefaultRentalIncome() RentalIncome {
	return RentalIncome{Name: DefaultRentalName, Value: decimal.Zero}
}

// Clone returns a copy that shares no pointers with e.
func (e Entry) Clone() Entry {
	e.DueDay = cloneInt(e.DueDay)
	e.StartDate = clonePeriod(e.StartDate)
	return e
}

// Clone returns a copy that shares no pointers with r.
func (r RentalIncome) Clone() RentalIncome {
	r.ContractDuration = cloneInt(r.ContractDuration)
	r.ContractStartDate = clonePeriod(r.ContractStartDate)
	r.StartDate = clonePeriod(r.StartDate)
	return r
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func clonePeriod(p *Period) *Period {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
