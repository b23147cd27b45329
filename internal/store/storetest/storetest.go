// Package storetest holds the behaviour every store.Store must show. Each
// backend runs it from its own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/releve/internal/dedup"
	"github.com/cleared-dev/releve/internal/model"
	"github.com/cleared-dev/releve/internal/store"
)

// Factory returns a fresh, empty store. Cleanup is the factory's job.
type Factory func(t *testing.T) store.Store

// Run executes the contract suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(*testing.T, store.Store)
	}{
		{"TransactionsRoundTrip", testTransactionsRoundTrip},
		{"TransactionsRejectInvalid", testTransactionsRejectInvalid},
		{"UpdateTransaction", testUpdateTransaction},
		{"ListTransactionsFilter", testListTransactionsFilter},
		{"FingerprintsAndClear", testFingerprintsAndClear},
		{"Categories", testCategories},
		{"UpdateCategoriesAtomic", testUpdateCategoriesAtomic},
		{"DeleteCategoryGuards", testDeleteCategoryGuards},
		{"Rules", testRules},
		{"Budgets", testBudgets},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

// Day returns UTC midnight of the given date.
func Day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// Txn builds a valid, uncategorized transaction.
func Txn(date time.Time, desc, amount string) model.Transaction {
	return model.Transaction{Date: date, Description: desc, Amount: decimal.RequireFromString(amount)}
}

func isNotFound(err error) bool {
	return model.IsReferenceError(err) && errors.Is(err, model.ErrNotFound)
}

func testTransactionsRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	in := Txn(Day(2025, 10, 24), "PAIEMENT PAR CARTE X3573 LIDL", "-13.38")
	in.Type, in.Name = "PAIEMENT PAR CARTE", "LIDL"
	in.Vital = true

	created, err := s.CreateTransactions(ctx, []model.Transaction{in, Txn(Day(2025, 10, 25), "VIREMENT RECU", "2500")})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.NotZero(t, created[0].ID)
	assert.NotEqual(t, created[0].ID, created[1].ID)
	assert.False(t, created[0].CreatedAt.IsZero())

	got, err := s.GetTransaction(ctx, created[0].ID)
	require.NoError(t, err)
	assert.True(t, got.Date.Equal(Day(2025, 10, 24)))
	assert.Equal(t, "PAIEMENT PAR CARTE X3573 LIDL", got.Description)
	assert.Equal(t, "-13.38", got.Amount.StringFixed(2))
	assert.Equal(t, "LIDL", got.Name)
	assert.Equal(t, "PAIEMENT PAR CARTE", got.Type)
	assert.True(t, got.Vital)
	assert.False(t, got.Categorized())

	_, err = s.GetTransaction(ctx, 9999)
	assert.True(t, isNotFound(err), "got %v", err)
}

func testTransactionsRejectInvalid(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.CreateTransactions(ctx, []model.Transaction{
		Txn(Day(2025, 1, 1), "OK", "-1"),
		Txn(Day(2025, 1, 1), "ZERO", "0"),
	})
	require.Error(t, err)

	all, err := s.ListTransactions(ctx, model.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all, "nothing from a rejected batch is stored")

	bad := Txn(Day(2025, 1, 1), "BAD CATEGORY", "-1")
	bad.CategoryID = 777
	bad.CategorySource = model.SourceManual
	_, err = s.CreateTransactions(ctx, []model.Transaction{bad})
	assert.Error(t, err)
}

func testUpdateTransaction(t *testing.T, s store.Store) {
	ctx := context.Background()
	cat, err := s.CreateCategory(ctx, model.Category{Name: "Alimentation", Kind: model.KindExpense})
	require.NoError(t, err)
	created, err := s.CreateTransactions(ctx, []model.Transaction{Txn(Day(2025, 1, 1), "LIDL", "-5")})
	require.NoError(t, err)

	txn := created[0]
	txn.CategoryID = cat.ID
	txn.CategorySource = model.SourceAuto
	txn.Recurrence = true
	txn.Savings = true
	require.NoError(t, s.UpdateTransaction(ctx, txn))

	got, err := s.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, cat.ID, got.CategoryID)
	assert.Equal(t, model.SourceAuto, got.CategorySource)
	assert.True(t, got.Recurrence)
	assert.True(t, got.Savings)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	txn.CategoryID = 4242
	err = s.UpdateTransaction(ctx, txn)
	assert.True(t, isNotFound(err), "got %v", err)

	err = s.UpdateTransaction(ctx, model.Transaction{ID: 9999})
	assert.True(t, isNotFound(err), "got %v", err)
}

func testListTransactionsFilter(t *testing.T, s store.Store) {
	ctx := context.Background()
	cat, err := s.CreateCategory(ctx, model.Category{Name: "Transport", Kind: model.KindExpense})
	require.NoError(t, err)

	a := Txn(Day(2025, 1, 15), "SNCF", "-40")
	a.CategoryID, a.CategorySource, a.Recurrence = cat.ID, model.SourceManual, true
	b := Txn(Day(2025, 1, 10), "EDF", "-80")
	b.Vital = true
	c := Txn(Day(2025, 2, 1), "SALAIRE", "2500")
	_, err = s.CreateTransactions(ctx, []model.Transaction{a, b, c})
	require.NoError(t, err)

	descs := func(f model.Filter) []string {
		txns, err := s.ListTransactions(ctx, f)
		require.NoError(t, err)
		var out []string
		for _, txn := range txns {
			out = append(out, txn.Description)
		}
		return out
	}

	assert.Equal(t, []string{"EDF", "SNCF", "SALAIRE"}, descs(model.Filter{}), "ordered by date")
	assert.Equal(t, []string{"EDF", "SNCF"}, descs(model.Filter{From: Day(2025, 1, 10), To: Day(2025, 1, 31)}))
	assert.Equal(t, []string{"SNCF"}, descs(model.Filter{CategoryIDs: []int64{cat.ID}}))
	assert.Equal(t, []string{"EDF", "SALAIRE"}, descs(model.Filter{Uncategorized: true}))
	assert.Equal(t, []string{"SNCF"}, descs(model.Filter{Recurrence: model.Bool(true)}))
	assert.Equal(t, []string{"EDF"}, descs(model.Filter{Vital: model.Bool(true)}))
	assert.Equal(t, []string{"EDF", "SNCF", "SALAIRE"}, descs(model.Filter{Savings: model.Bool(false)}))
	assert.Empty(t, descs(model.Filter{From: Day(2025, 3, 1), To: Day(2025, 1, 1)}))
}

func testFingerprintsAndClear(t *testing.T, s store.Store) {
	ctx := context.Background()
	txn := Txn(Day(2025, 10, 24), "PAIEMENT PAR CARTE X3573 LIDL", "-13.38")
	_, err := s.CreateTransactions(ctx, []model.Transaction{txn, Txn(Day(2025, 10, 25), "EDF", "-80")})
	require.NoError(t, err)

	idx, err := s.Fingerprints(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.True(t, idx.Contains(dedup.Of(txn)))

	n, err := s.ClearTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	idx, err = s.Fingerprints(ctx)
	require.NoError(t, err)
	assert.Zero(t, idx.Len())
}

func testCategories(t *testing.T, s store.Store) {
	ctx := context.Background()
	root, err := s.CreateCategory(ctx, model.Category{Name: "Logement", Kind: model.KindExpense, Color: "#aa0000"})
	require.NoError(t, err)
	child, err := s.CreateCategory(ctx, model.Category{Name: "Charges", ParentID: root.ID, Kind: model.KindExpense})
	require.NoError(t, err)

	got, err := s.GetCategory(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, got.ParentID)
	assert.Equal(t, model.KindExpense, got.Kind)

	_, err = s.CreateCategory(ctx, model.Category{Name: "Charges", ParentID: root.ID})
	assert.ErrorIs(t, err, model.ErrConflict)

	other, err := s.CreateCategory(ctx, model.Category{Name: "Charges", Kind: model.KindExpense})
	require.NoError(t, err, "same name under another parent is allowed")

	_, err = s.CreateCategory(ctx, model.Category{Name: "Orphan", ParentID: 9999})
	assert.True(t, isNotFound(err), "got %v", err)

	other.Name = "Charges fixes"
	other.Description = "copro"
	require.NoError(t, s.UpdateCategory(ctx, other))
	got, err = s.GetCategory(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "Charges fixes", got.Name)
	assert.Equal(t, "copro", got.Description)

	other.ParentID = root.ID
	other.Name = "Charges"
	assert.ErrorIs(t, s.UpdateCategory(ctx, other), model.ErrConflict)

	all, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Logement", all[0].Name)
	assert.Equal(t, "#aa0000", all[0].Color)

	_, err = s.GetCategory(ctx, 9999)
	assert.True(t, isNotFound(err), "got %v", err)
}

func testUpdateCategoriesAtomic(t *testing.T, s store.Store) {
	ctx := context.Background()
	root, err := s.CreateCategory(ctx, model.Category{Name: "Loisirs", Kind: model.KindExpense})
	require.NoError(t, err)
	child, err := s.CreateCategory(ctx, model.Category{Name: "Cinéma", ParentID: root.ID, Kind: model.KindExpense})
	require.NoError(t, err)

	root.Kind = model.KindIncome
	child.Kind = model.KindIncome
	missing := model.Category{ID: 9999, Name: "Fantôme", Kind: model.KindIncome}
	err = s.UpdateCategories(ctx, []model.Category{root, child, missing})
	assert.True(t, isNotFound(err), "got %v", err)

	for _, id := range []int64{root.ID, child.ID} {
		got, err := s.GetCategory(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.KindExpense, got.Kind, "category %d rolled back", id)
	}

	require.NoError(t, s.UpdateCategories(ctx, []model.Category{root, child}))
	for _, id := range []int64{root.ID, child.ID} {
		got, err := s.GetCategory(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.KindIncome, got.Kind)
	}
}

func testDeleteCategoryGuards(t *testing.T, s store.Store) {
	ctx := context.Background()
	root, err := s.CreateCategory(ctx, model.Category{Name: "Loisirs", Kind: model.KindExpense})
	require.NoError(t, err)
	child, err := s.CreateCategory(ctx, model.Category{Name: "Cinéma", ParentID: root.ID, Kind: model.KindExpense})
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteCategory(ctx, root.ID), model.ErrHasChildren)

	rule, err := s.CreateRule(ctx, model.Rule{Keyword: "ugc", CategoryID: child.ID})
	require.NoError(t, err)
	txn := Txn(Day(2025, 1, 1), "UGC", "-11")
	txn.CategoryID, txn.CategorySource = child.ID, model.SourceAuto
	created, err := s.CreateTransactions(ctx, []model.Transaction{txn})
	require.NoError(t, err)
	budget, err := s.CreateBudget(ctx, model.Budget{CategoryID: child.ID, Limit: decimal.NewFromInt(50), Active: true})
	require.NoError(t, err)

	refs, err := s.CategoryRefs(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CategoryRefs{Transactions: 1, Rules: 1, Budgets: 1}, refs)
	assert.ErrorIs(t, s.DeleteCategory(ctx, child.ID), model.ErrInUse)

	require.NoError(t, s.DeleteRule(ctx, rule.ID))
	require.NoError(t, s.DeleteBudget(ctx, budget.ID))
	created[0].CategoryID, created[0].CategorySource = 0, model.SourceNone
	require.NoError(t, s.UpdateTransaction(ctx, created[0]))

	require.NoError(t, s.DeleteCategory(ctx, child.ID))
	require.NoError(t, s.DeleteCategory(ctx, root.ID))
	assert.True(t, isNotFound(s.DeleteCategory(ctx, root.ID)))

	_, err = s.CategoryRefs(ctx, root.ID)
	assert.True(t, isNotFound(err), "got %v", err)
}

func testRules(t *testing.T, s store.Store) {
	ctx := context.Background()
	cat, err := s.CreateCategory(ctx, model.Category{Name: "Alimentation", Kind: model.KindExpense})
	require.NoError(t, err)

	r1, err := s.CreateRule(ctx, model.Rule{Keyword: "lidl", CategoryID: cat.ID})
	require.NoError(t, err)
	r2, err := s.CreateRule(ctx, model.Rule{Keyword: "Carrefour", CategoryID: cat.ID, CaseSensitive: true})
	require.NoError(t, err)
	assert.Greater(t, r2.ID, r1.ID)
	assert.False(t, r1.CreatedAt.IsZero())

	_, err = s.CreateRule(ctx, model.Rule{Keyword: "x", CategoryID: 9999})
	assert.True(t, isNotFound(err), "got %v", err)
	_, err = s.CreateRule(ctx, model.Rule{Keyword: "  ", CategoryID: cat.ID})
	assert.ErrorIs(t, err, model.ErrInvalid)

	rules, err := s.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "lidl", rules[0].Keyword)
	assert.True(t, rules[1].CaseSensitive)

	require.NoError(t, s.DeleteRule(ctx, r1.ID))
	assert.True(t, isNotFound(s.DeleteRule(ctx, r1.ID)))
	rules, err = s.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func testBudgets(t *testing.T, s store.Store) {
	ctx := context.Background()
	cat, err := s.CreateCategory(ctx, model.Category{Name: "Alimentation", Kind: model.KindExpense})
	require.NoError(t, err)

	b, err := s.CreateBudget(ctx, model.Budget{CategoryID: cat.ID, Limit: decimal.RequireFromString("400.50"), Active: true})
	require.NoError(t, err)
	assert.Equal(t, model.PeriodMonthly, b.Period)

	_, err = s.CreateBudget(ctx, model.Budget{CategoryID: cat.ID, Limit: decimal.Zero})
	assert.ErrorIs(t, err, model.ErrInvalid)
	_, err = s.CreateBudget(ctx, model.Budget{CategoryID: 9999, Limit: decimal.NewFromInt(1)})
	assert.True(t, isNotFound(err), "got %v", err)

	budgets, err := s.ListBudgets(ctx)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, "400.50", budgets[0].Limit.StringFixed(2))
	assert.True(t, budgets[0].Active)

	require.NoError(t, s.DeleteBudget(ctx, b.ID))
	assert.True(t, isNotFound(s.DeleteBudget(ctx, b.ID)))
}
