package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestTransactionCents(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"-13.38", -1338},
		{"2500", 250000},
		{"0.01", 1},
		{"-0.5", -50},
	}
	for _, tt := range tests {
		txn := Transaction{Amount: decimal.RequireFromString(tt.amount)}
		assert.Equal(t, tt.want, txn.Cents(), "Cents(%s)", tt.amount)
	}
}

func TestValidateTransaction(t *testing.T) {
	valid := Transaction{Date: day(2025, 10, 24), Description: "PAIEMENT PAR CARTE", Amount: decimal.RequireFromString("-13.38")}
	assert.Empty(t, ValidateTransaction(valid))
	assert.NoError(t, CheckTransaction(valid))

	zero := valid
	zero.Amount = decimal.Zero
	verrs := ValidateTransaction(zero)
	require.Len(t, verrs, 1)
	assert.Equal(t, "amount", verrs[0].Field)

	precise := valid
	precise.Amount = decimal.RequireFromString("1.005")
	verrs = ValidateTransaction(precise)
	require.Len(t, verrs, 1)
	assert.Contains(t, verrs[0].Error(), "more than 2 decimal places")

	bad := Transaction{CategorySource: SourceAuto}
	err := CheckTransaction(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "date: missing")
	assert.Contains(t, err.Error(), "description: empty")
	assert.Contains(t, err.Error(), "category: source set without a category")
}

func TestFilterMatch(t *testing.T) {
	txn := Transaction{Date: day(2025, 1, 15), CategoryID: 3, Vital: true}

	assert.True(t, Filter{}.Match(txn))
	assert.True(t, Filter{From: day(2025, 1, 15), To: day(2025, 1, 15)}.Match(txn), "bounds are inclusive")
	assert.False(t, Filter{From: day(2025, 1, 16)}.Match(txn))
	assert.False(t, Filter{To: day(2025, 1, 14)}.Match(txn))
	assert.True(t, Filter{CategoryIDs: []int64{1, 3}}.Match(txn))
	assert.False(t, Filter{CategoryIDs: []int64{1}}.Match(txn))
	assert.False(t, Filter{Uncategorized: true}.Match(txn))
	assert.True(t, Filter{Vital: Bool(true), Recurrence: Bool(false)}.Match(txn))
	assert.False(t, Filter{Savings: Bool(true)}.Match(txn))
}

func TestFilterEmpty(t *testing.T) {
	assert.False(t, Filter{}.Empty())
	assert.False(t, Filter{From: day(2025, 1, 1)}.Empty())
	assert.True(t, Filter{From: day(2025, 2, 1), To: day(2025, 1, 1)}.Empty())
}

func TestReferenceError(t *testing.T) {
	err := fmt.Errorf("deleting: %w", NotFound("category", 42))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, IsReferenceError(err))
	assert.Equal(t, "deleting: category #42: not found", err.Error())

	assert.False(t, IsReferenceError(errors.New("disk full")))
}
