package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryKind groups root categories into the income and expense domains.
type CategoryKind string

const (
	KindExpense CategoryKind = "expense"
	KindIncome  CategoryKind = "income"
)

// Category is a node in the budget classification forest.
type Category struct {
	ID          int64
	Name        string
	ParentID    int64 // 0 = root
	Kind        CategoryKind
	Description string
	Color       string
}

// IsRoot reports whether the category has no parent.
func (c Category) IsRoot() bool {
	return c.ParentID == 0
}

// Rule maps a keyword found in a description to a target category.
type Rule struct {
	ID            int64
	Keyword       string
	CategoryID    int64
	CaseSensitive bool
	CreatedAt     time.Time
}

// BudgetPeriod is the window a budget limit applies to.
type BudgetPeriod string

const PeriodMonthly BudgetPeriod = "monthly"

// Budget is a spending limit on a category.
type Budget struct {
	ID         int64
	CategoryID int64
	Limit      decimal.Decimal
	Period     BudgetPeriod
	Active     bool
}

// CategoryRefs counts what still points at a category.
type CategoryRefs struct {
	Transactions int
	Rules        int
	Budgets      int
}

// Total returns the number of references of any kind.
func (r CategoryRefs) Total() int {
	return r.Transactions + r.Rules + r.Budgets
}
