// Package stats computes read-only aggregates over the ledger. Sums are
// accumulated in integer cents and converted to decimals only in results,
// so no rounding error builds up across many transactions.
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/releve/internal/categories"
	"github.com/cleared-dev/releve/internal/model"
	"github.com/cleared-dev/releve/internal/period"
)

// UncategorizedLabel names the bucket of transactions without a category.
const UncategorizedLabel = "Sans catégorie"

// Reader is the read access the aggregator needs.
type Reader interface {
	ListTransactions(ctx context.Context, f model.Filter) ([]model.Transaction, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListBudgets(ctx context.Context) ([]model.Budget, error)
}

// Service computes statistics. It never writes.
type Service struct {
	reader Reader
}

// NewService creates a Service.
func NewService(r Reader) *Service {
	return &Service{reader: r}
}

func money(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Totals summarizes a set of transactions. Expense and LargestExpense are
// magnitudes; Net is Income minus Expense.
type Totals struct {
	Count          int
	Income         decimal.Decimal
	Expense        decimal.Decimal
	Net            decimal.Decimal
	Average        decimal.Decimal // mean signed amount, rounded to cents
	LargestIncome  decimal.Decimal
	LargestExpense decimal.Decimal
}

func zeroTotals() Totals {
	return Totals{
		Income:         decimal.Zero,
		Expense:        decimal.Zero,
		Net:            decimal.Zero,
		Average:        decimal.Zero,
		LargestIncome:  decimal.Zero,
		LargestExpense: decimal.Zero,
	}
}

func (s *Service) list(ctx context.Context, f model.Filter) ([]model.Transaction, error) {
	if f.Empty() {
		return nil, nil
	}
	txns, err := s.reader.ListTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return txns, nil
}

func computeTotals(txns []model.Transaction) Totals {
	if len(txns) == 0 {
		return zeroTotals()
	}
	var income, expense, maxIncome, maxExpense int64
	for _, t := range txns {
		c := t.Cents()
		if c > 0 {
			income += c
			maxIncome = max(maxIncome, c)
		} else {
			expense -= c
			maxExpense = max(maxExpense, -c)
		}
	}
	net := income - expense
	return Totals{
		Count:          len(txns),
		Income:         money(income),
		Expense:        money(expense),
		Net:            money(net),
		Average:        money(net).Div(decimal.NewFromInt(int64(len(txns)))).Round(2),
		LargestIncome:  money(maxIncome),
		LargestExpense: money(maxExpense),
	}
}

// Totals returns the summary of the transactions matching f. A filter
// whose range is empty, or matches nothing, yields all-zero totals.
func (s *Service) Totals(ctx context.Context, f model.Filter) (Totals, error) {
	txns, err := s.list(ctx, f)
	if err != nil {
		return zeroTotals(), err
	}
	return computeTotals(txns), nil
}

// CategoryTotal is the amount attributed to one category. CategoryID 0 is
// the uncategorized bucket.
type CategoryTotal struct {
	CategoryID int64
	Name       string
	Path       string
	Amount     decimal.Decimal
}

type categoryIndex struct {
	forest *categories.Forest
}

func (s *Service) categories(ctx context.Context) (categoryIndex, error) {
	cats, err := s.reader.ListCategories(ctx)
	if err != nil {
		return categoryIndex{}, fmt.Errorf("listing categories: %w", err)
	}
	return categoryIndex{forest: categories.NewForest(cats)}, nil
}

func (ci categoryIndex) label(id int64) (string, string) {
	if id == 0 {
		return UncategorizedLabel, UncategorizedLabel
	}
	c, ok := ci.forest.Get(id)
	if !ok {
		return fmt.Sprintf("#%d", id), fmt.Sprintf("#%d", id)
	}
	return c.Name, ci.forest.Path(id)
}

// sumByCategory adds up expense magnitudes per category, and income too
// when includeIncome is set. Results are ordered by amount descending,
// then name.
func sumByCategory(txns []model.Transaction, ci categoryIndex, includeIncome bool) []CategoryTotal {
	sums := make(map[int64]int64)
	for _, t := range txns {
		c := t.Cents()
		switch {
		case c < 0:
			sums[t.CategoryID] -= c
		case includeIncome:
			sums[t.CategoryID] += c
		}
	}

	out := make([]CategoryTotal, 0, len(sums))
	for id, cents := range sums {
		name, path := ci.label(id)
		out = append(out, CategoryTotal{CategoryID: id, Name: name, Path: path, Amount: money(cents)})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

// ByCategory returns the summed expense magnitude of each category among
// the transactions matching f. includeIncome adds income amounts to the
// same buckets.
func (s *Service) ByCategory(ctx context.Context, f model.Filter, includeIncome bool) ([]CategoryTotal, error) {
	txns, err := s.list(ctx, f)
	if err != nil || len(txns) == 0 {
		return nil, err
	}
	ci, err := s.categories(ctx)
	if err != nil {
		return nil, err
	}
	return sumByCategory(txns, ci, includeIncome), nil
}

// MonthTotals is the expense breakdown of one month.
type MonthTotals struct {
	Month      string // "2025-01"
	Expense    decimal.Decimal
	Categories []CategoryTotal
}

// MonthlyBreakdown groups the expenses matching f by year-month, then by
// category. year and month narrow the result when non-zero. Months come in
// chronological order.
func (s *Service) MonthlyBreakdown(ctx context.Context, f model.Filter, year, month int) ([]MonthTotals, error) {
	txns, err := s.list(ctx, f)
	if err != nil || len(txns) == 0 {
		return nil, err
	}
	ci, err := s.categories(ctx)
	if err != nil {
		return nil, err
	}

	byMonth := make(map[string][]model.Transaction)
	for _, t := range txns {
		if year != 0 && t.Date.Year() != year {
			continue
		}
		if month != 0 && int(t.Date.Month()) != month {
			continue
		}
		key := period.MonthOf(t.Date)
		byMonth[key] = append(byMonth[key], t)
	}

	keys := make([]string, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]MonthTotals, 0, len(keys))
	for _, k := range keys {
		cats := sumByCategory(byMonth[k], ci, false)
		total := decimal.Zero
		for _, c := range cats {
			total = total.Add(c.Amount)
		}
		out = append(out, MonthTotals{Month: k, Expense: total, Categories: cats})
	}
	return out, nil
}

// DayTotal is the net signed sum of one calendar day.
type DayTotal struct {
	Date time.Time
	Net  decimal.Decimal
}

// DailyTrend returns the net amount per day among the transactions
// matching f, in date order. Days without transactions are absent.
func (s *Service) DailyTrend(ctx context.Context, f model.Filter) ([]DayTotal, error) {
	txns, err := s.list(ctx, f)
	if err != nil || len(txns) == 0 {
		return nil, err
	}

	var out []DayTotal
	var cents int64
	for i, t := range txns {
		cents += t.Cents()
		last := i == len(txns)-1 || !txns[i+1].Date.Equal(t.Date)
		if last {
			out = append(out, DayTotal{Date: t.Date, Net: money(cents)})
			cents = 0
		}
	}
	return out, nil
}

// Split partitions expense magnitude by a boolean flag.
type Split struct {
	Flagged   decimal.Decimal
	Unflagged decimal.Decimal
}

func (s *Service) split(ctx context.Context, f model.Filter, flag func(model.Transaction) bool) (Split, error) {
	txns, err := s.list(ctx, f)
	if err != nil {
		return Split{Flagged: decimal.Zero, Unflagged: decimal.Zero}, err
	}
	return computeSplit(txns, flag), nil
}

func computeSplit(txns []model.Transaction, flag func(model.Transaction) bool) Split {
	var yes, no int64
	for _, t := range txns {
		c := t.Cents()
		if c >= 0 {
			continue
		}
		if flag(t) {
			yes -= c
		} else {
			no -= c
		}
	}
	return Split{Flagged: money(yes), Unflagged: money(no)}
}

func isRecurrent(t model.Transaction) bool { return t.Recurrence }
func isVital(t model.Transaction) bool     { return t.Vital }
func isSavings(t model.Transaction) bool   { return t.Savings }

// RecurrenceSplit separates recurring expenses from one-off ones.
func (s *Service) RecurrenceSplit(ctx context.Context, f model.Filter) (Split, error) {
	return s.split(ctx, f, isRecurrent)
}

// VitalSplit separates essential expenses from the rest.
func (s *Service) VitalSplit(ctx context.Context, f model.Filter) (Split, error) {
	return s.split(ctx, f, isVital)
}

// SavingsSplit separates expenses paid from savings from the rest.
func (s *Service) SavingsSplit(ctx context.Context, f model.Filter) (Split, error) {
	return s.split(ctx, f, isSavings)
}

// Report bundles every aggregate for one filter.
type Report struct {
	Totals     Totals
	ByCategory []CategoryTotal
	Monthly    []MonthTotals
	Daily      []DayTotal
	Recurrence Split
	Vital      Split
	Savings    Split
}

// Report computes all aggregates for f concurrently. Each part reads the
// store on its own, so a write in flight may be seen by some parts only.
func (s *Service) Report(ctx context.Context, f model.Filter) (Report, error) {
	var r Report
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		r.Totals, err = s.Totals(ctx, f)
		return err
	})
	g.Go(func() (err error) {
		r.ByCategory, err = s.ByCategory(ctx, f, false)
		return err
	})
	g.Go(func() (err error) {
		r.Monthly, err = s.MonthlyBreakdown(ctx, f, 0, 0)
		return err
	})
	g.Go(func() (err error) {
		r.Daily, err = s.DailyTrend(ctx, f)
		return err
	})
	g.Go(func() (err error) {
		r.Recurrence, err = s.RecurrenceSplit(ctx, f)
		return err
	})
	g.Go(func() (err error) {
		r.Vital, err = s.VitalSplit(ctx, f)
		return err
	})
	g.Go(func() (err error) {
		r.Savings, err = s.SavingsSplit(ctx, f)
		return err
	})

	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	return r, nil
}
