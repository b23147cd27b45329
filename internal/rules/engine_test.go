package rules

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/releve/internal/categories"
	"github.com/cleared-dev/releve/internal/model"
	"github.com/cleared-dev/releve/internal/store/memory"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func txn(desc, amount string) model.Transaction {
	return model.Transaction{Date: day(2025, 10, 24), Description: desc, Amount: decimal.RequireFromString(amount)}
}

type fixture struct {
	store  *memory.Store
	engine *Engine
	alim   model.Category
	trans  model.Category
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	alim, err := s.CreateCategory(ctx, model.Category{Name: "Alimentation", Kind: model.KindExpense})
	require.NoError(t, err)
	trans, err := s.CreateCategory(ctx, model.Category{Name: "Transport", Kind: model.KindExpense})
	require.NoError(t, err)
	return fixture{store: s, engine: NewEngine(s), alim: alim, trans: trans}
}

func (f fixture) insert(t *testing.T, txns ...model.Transaction) []model.Transaction {
	t.Helper()
	out, err := f.store.CreateTransactions(context.Background(), txns)
	require.NoError(t, err)
	return out
}

func TestSort(t *testing.T) {
	rules := []model.Rule{
		{ID: 1, Keyword: "bus"},
		{ID: 2, Keyword: "carrefour"},
		{ID: 3, Keyword: "été"},
		{ID: 4, Keyword: "sncf"},
		{ID: 5, Keyword: "car"},
	}
	Sort(rules)
	var ids []int64
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	// "été" is three runes, so it ties with "bus" and "car" on length.
	assert.Equal(t, []int64{2, 4, 1, 3, 5}, ids)
}

func TestMatcher(t *testing.T) {
	m := NewMatcher([]model.Rule{
		{ID: 1, Keyword: "car", CategoryID: 10},
		{ID: 2, Keyword: "carrefour", CategoryID: 20},
		{ID: 3, Keyword: "SNCF", CategoryID: 30, CaseSensitive: true},
		{ID: 4, Keyword: "straße", CategoryID: 40},
	})

	tests := []struct {
		desc string
		want int64
	}{
		{"PAIEMENT PAR CARTE X3573 CARREFOUR CITY", 20},
		{"PAIEMENT PAR CARTE CARGLASS", 10},
		{"PRELEVEMENT SNCF CONNECT", 30},
		{"PRELEVEMENT sncf connect", 0},
		{"VIREMENT HAUPTSTRASSE 5", 40},
		{"RETRAIT DAB", 0},
	}
	for _, tt := range tests {
		r, ok := m.Match(tt.desc)
		if tt.want == 0 {
			assert.False(t, ok, "Match(%q)", tt.desc)
			continue
		}
		require.True(t, ok, "Match(%q)", tt.desc)
		assert.Equal(t, tt.want, r.CategoryID, "Match(%q)", tt.desc)
	}
}

func TestMatcher_TieBrokenByInsertion(t *testing.T) {
	m := NewMatcher([]model.Rule{
		{ID: 7, Keyword: "lidl", CategoryID: 2},
		{ID: 3, Keyword: "LIDL", CategoryID: 1},
	})
	r, ok := m.Match("PAIEMENT LIDL")
	require.True(t, ok)
	assert.Equal(t, int64(3), r.ID)
}

func TestAdd(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rule, warnings, err := f.engine.Add(ctx, "  lidl ", f.alim.ID, false)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "lidl", rule.Keyword)

	_, warnings, err = f.engine.Add(ctx, "LIDL", f.alim.ID, false)
	require.NoError(t, err, "a duplicate is a warning, not a failure")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "already maps to this category")

	_, warnings, err = f.engine.Add(ctx, "lidl", f.trans.ID, false)
	require.NoError(t, err)
	assert.Empty(t, warnings, "same keyword for another category")

	_, _, err = f.engine.Add(ctx, "x", 999, false)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, _, err = f.engine.Add(ctx, " ", f.alim.ID, false)
	assert.ErrorIs(t, err, model.ErrInvalid)

	rules, err := f.engine.List(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 3)
}

func TestRemove(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rule, _, err := f.engine.Add(ctx, "lidl", f.alim.ID, false)
	require.NoError(t, err)

	require.NoError(t, f.engine.Remove(ctx, rule.ID))
	assert.ErrorIs(t, f.engine.Remove(ctx, rule.ID), model.ErrNotFound)
}

func TestAutoCategorize(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, _, err := f.engine.Add(ctx, "lidl", f.alim.ID, false)
	require.NoError(t, err)

	cat, ok, err := f.engine.AutoCategorize(ctx, txn("PAIEMENT PAR CARTE X3573 LIDL", "-13.38"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alimentation", cat.Name)

	_, ok, err = f.engine.AutoCategorize(ctx, txn("RETRAIT DAB", "-20"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCategorizeAllAuto(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, _, err := f.engine.Add(ctx, "lidl", f.alim.ID, false)
	require.NoError(t, err)
	_, _, err = f.engine.Add(ctx, "sncf", f.trans.ID, false)
	require.NoError(t, err)

	created := f.insert(t,
		txn("PAIEMENT PAR CARTE X3573 LIDL", "-13.38"),
		txn("PRELEVEMENT SNCF", "-40"),
		txn("RETRAIT DAB", "-20"),
	)

	n, err := f.engine.CategorizeAllAuto(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := f.store.GetTransaction(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, f.alim.ID, got.CategoryID)
	assert.Equal(t, model.SourceAuto, got.CategorySource)

	unmatched, err := f.store.GetTransaction(ctx, created[2].ID)
	require.NoError(t, err)
	assert.False(t, unmatched.Categorized())

	before, err := f.store.ListTransactions(ctx, model.Filter{})
	require.NoError(t, err)

	n, err = f.engine.CategorizeAllAuto(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "second run changes nothing")

	after, err := f.store.ListTransactions(ctx, model.Filter{})
	require.NoError(t, err)
	for i := range before {
		assert.Equal(t, before[i].CategoryID, after[i].CategoryID)
	}
}

func TestCategorizeAllAuto_NoRules(t *testing.T) {
	f := setup(t)
	f.insert(t, txn("PAIEMENT LIDL", "-1"))
	n, err := f.engine.CategorizeAllAuto(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCategorizeManual_NotOverwritten(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	created := f.insert(t, txn("PAIEMENT PAR CARTE X3573 LIDL", "-13.38"))

	require.NoError(t, f.engine.CategorizeManual(ctx, created[0].ID, f.trans.ID))

	_, _, err := f.engine.Add(ctx, "lidl", f.alim.ID, false)
	require.NoError(t, err)
	n, err := f.engine.CategorizeAllAuto(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := f.store.GetTransaction(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, f.trans.ID, got.CategoryID)
	assert.Equal(t, model.SourceManual, got.CategorySource)
}

func TestCategorizeManual_Errors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	created := f.insert(t, txn("X", "-1"))

	err := f.engine.CategorizeManual(ctx, created[0].ID, 999)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.True(t, model.IsReferenceError(err))

	err = f.engine.CategorizeManual(ctx, 999, f.alim.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUncategorize(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	created := f.insert(t, txn("PAIEMENT LIDL", "-1"))
	require.NoError(t, f.engine.CategorizeManual(ctx, created[0].ID, f.trans.ID))

	require.NoError(t, f.engine.Uncategorize(ctx, created[0].ID))
	_, _, err := f.engine.Add(ctx, "lidl", f.alim.ID, false)
	require.NoError(t, err)
	n, err := f.engine.CategorizeAllAuto(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	cats := categories.NewManager(s)
	_, err := cats.Seed(ctx)
	require.NoError(t, err)

	e := NewEngine(s)
	n, err := e.Seed(ctx, cats)
	require.NoError(t, err)
	want := 0
	for _, dr := range DefaultRules() {
		want += len(dr.Keywords)
	}
	assert.Equal(t, want, n)

	n, err = e.Seed(ctx, cats)
	require.NoError(t, err)
	assert.Zero(t, n)

	cat, ok, err := e.AutoCategorize(ctx, txn("PAIEMENT PAR CARTE X3573 LIDL", "-13.38"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alimentation", cat.Name)

	cat, ok, err = e.AutoCategorize(ctx, txn("PRELEVEMENT EDF", "-80"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Électricité/Gaz/Eau", cat.Name)
}

func TestSeed_SkipsMissingCategories(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	cats := categories.NewManager(s)
	_, err := cats.Create(ctx, categories.CreateParams{Name: "Alimentation"})
	require.NoError(t, err)

	n, err := NewEngine(s).Seed(ctx, cats)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultRules()[0].Keywords), n)
}
