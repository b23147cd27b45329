package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidationError describes a single invariant violation on a transaction.
type ValidationError struct {
	Field       string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

var hundred = decimal.NewFromInt(100)

// HasCents reports whether d has at most two decimal places.
func HasCents(d decimal.Decimal) bool {
	scaled := d.Mul(hundred)
	return scaled.Equal(scaled.Floor())
}

// ValidateTransaction checks the invariants every persisted transaction holds.
func ValidateTransaction(t Transaction) []ValidationError {
	var errs []ValidationError

	if t.Date.IsZero() {
		errs = append(errs, ValidationError{Field: "date", Description: "missing"})
	}
	if strings.TrimSpace(t.Description) == "" {
		errs = append(errs, ValidationError{Field: "description", Description: "empty"})
	}
	if t.Amount.IsZero() {
		errs = append(errs, ValidationError{Field: "amount", Description: "must be non-zero"})
	} else if !HasCents(t.Amount) {
		errs = append(errs, ValidationError{
			Field:       "amount",
			Description: fmt.Sprintf("%s has more than 2 decimal places", t.Amount),
		})
	}
	if t.CategorySource != SourceNone && t.CategoryID == 0 {
		errs = append(errs, ValidationError{Field: "category", Description: "source set without a category"})
	}
	return errs
}

// CheckTransaction joins ValidateTransaction's findings into one error, or nil.
func CheckTransaction(t Transaction) error {
	verrs := ValidateTransaction(t)
	if len(verrs) == 0 {
		return nil
	}
	msgs := make([]string, len(verrs))
	for i, ve := range verrs {
		msgs[i] = ve.Error()
	}
	return fmt.Errorf("invalid transaction: %s", strings.Join(msgs, "; "))
}
