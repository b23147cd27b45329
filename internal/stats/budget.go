package stats

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/releve/internal/model"
	"github.com/cleared-dev/releve/internal/period"
)

// BudgetLine compares one budget with what was spent in its window.
type BudgetLine struct {
	Budget    model.Budget
	Path      string
	Spent     decimal.Decimal
	Remaining decimal.Decimal // negative when over
	Over      bool
}

// BudgetStatus reports every active monthly budget for the given month.
// Expenses in descendants of a budget's category count against it.
func (s *Service) BudgetStatus(ctx context.Context, year, month int) ([]BudgetLine, error) {
	budgets, err := s.reader.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing budgets: %w", err)
	}

	var active []model.Budget
	for _, b := range budgets {
		if b.Active && b.Period == model.PeriodMonthly {
			active = append(active, b)
		}
	}
	if len(active) == 0 {
		return nil, nil
	}

	ci, err := s.categories(ctx)
	if err != nil {
		return nil, err
	}

	from, to := period.MonthRange(year, month)
	txns, err := s.list(ctx, model.Filter{From: from, To: to})
	if err != nil {
		return nil, err
	}

	spent := make(map[int64]int64)
	for _, t := range txns {
		if c := t.Cents(); c < 0 && t.Categorized() {
			spent[t.CategoryID] -= c
		}
	}

	out := make([]BudgetLine, 0, len(active))
	for _, b := range active {
		var cents int64
		for _, d := range ci.forest.Descendants(b.CategoryID) {
			cents += spent[d]
		}
		used := money(cents)
		_, path := ci.label(b.CategoryID)
		out = append(out, BudgetLine{
			Budget:    b,
			Path:      path,
			Spent:     used,
			Remaining: b.Limit.Sub(used),
			Over:      used.GreaterThan(b.Limit),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
