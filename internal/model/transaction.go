package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategorySource records how a transaction received its category.
type CategorySource string

const (
	SourceNone   CategorySource = ""
	SourceAuto   CategorySource = "auto"
	SourceManual CategorySource = "manual"
)

// Transaction is one normalized movement on a bank statement.
type Transaction struct {
	ID             int64
	Date           time.Time       // calendar date, UTC midnight
	Description    string          // original statement text
	Amount         decimal.Decimal // negative = expense, positive = income
	Type           string          // operation keyword, "" when unknown
	Name           string          // counterparty
	CategoryID     int64           // 0 = uncategorized
	CategorySource CategorySource
	Recurrence     bool
	Vital          bool
	Savings        bool // funded from savings rather than external income
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Categorized reports whether the transaction has a category.
func (t Transaction) Categorized() bool {
	return t.CategoryID != 0
}

// Cents returns the amount in minor units. Amounts are validated to two
// decimals before they reach the store, so the conversion is exact.
func (t Transaction) Cents() int64 {
	return t.Amount.Shift(2).IntPart()
}

// Flags groups the boolean tags that can be changed after import.
type Flags struct {
	Recurrence bool
	Vital      bool
	Savings    bool
}

// Flags returns the transaction's current tags.
func (t Transaction) Flags() Flags {
	return Flags{Recurrence: t.Recurrence, Vital: t.Vital, Savings: t.Savings}
}
