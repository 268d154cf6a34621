package core

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(rentalContractLevel, RentalIncome{})
	return v
}

// rentalContractLevel requires a contract duration and a contract start to be
// given together.
func rentalContractLevel(sl validator.StructLevel) {
	r := sl.Current().Interface().(RentalIncome)
	switch {
	case r.ContractDuration != nil && r.ContractStartDate == nil:
		sl.ReportError(r.ContractStartDate, "contractStartDate", "ContractStartDate", "required_with", "contractDuration")
	case r.ContractStartDate != nil && r.ContractDuration == nil:
		sl.ReportError(r.ContractDuration, "contractDuration", "ContractDuration", "required_with", "contractStartDate")
	}
	if r.ContractStartDate != nil && !r.ContractStartDate.Valid() {
		sl.ReportError(r.ContractStartDate, "contractStartDate", "ContractStartDate", "period", "")
	}
}

// ValidationError lists the offending fields and the rule each one broke.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return &ValidationError{Fields: fields}
}

// Validate checks enum membership, installment bounds and the due day.
// Amounts are not range-checked.
func (e Entry) Validate() error {
	if err := validationError(validate.Struct(e)); err != nil {
		return err
	}
	if !e.Period.Valid() {
		return &ValidationError{Fields: map[string]string{"period": "period"}}
	}
	if e.StartDate != nil && !e.StartDate.Valid() {
		return &ValidationError{Fields: map[string]string{"startDate": "period"}}
	}
	return nil
}

// Validate enforces that a contract window is either fully specified or
// absent.
func (r RentalIncome) Validate() error {
	return validationError(validate.Struct(r))
}

func (o Owner) Validate() error {
	return validationError(validate.Struct(o))
}
