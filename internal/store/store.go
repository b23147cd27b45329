// Package store defines the persistence contract shared by the memory and
// SQLite backends.
package store

import (
	"context"

	"github.com/cleared-dev/releve/internal/dedup"
	"github.com/cleared-dev/releve/internal/model"
)

// Store persists transactions, categories, rules and budgets. Missing ids
// are reported as *model.ReferenceError wrapping model.ErrNotFound; other
// failures are returned wrapped and unchanged in kind.
//
// Implementations stamp CreatedAt and UpdatedAt and assign ids. A single
// writer is assumed.
type Store interface {
	// CreateTransactions inserts txns, each of which must pass
	// model.CheckTransaction, and returns them with ids assigned.
	CreateTransactions(ctx context.Context, txns []model.Transaction) ([]model.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (model.Transaction, error)
	// UpdateTransaction replaces the mutable fields of an existing
	// transaction: category, category source, type, name and flags.
	UpdateTransaction(ctx context.Context, txn model.Transaction) error
	// ListTransactions returns the transactions matching f ordered by
	// date, then id.
	ListTransactions(ctx context.Context, f model.Filter) ([]model.Transaction, error)
	Fingerprints(ctx context.Context) (dedup.Index, error)
	// ClearTransactions deletes every transaction and returns how many.
	ClearTransactions(ctx context.Context) (int, error)

	CreateCategory(ctx context.Context, c model.Category) (model.Category, error)
	GetCategory(ctx context.Context, id int64) (model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	UpdateCategory(ctx context.Context, c model.Category) error
	// UpdateCategories applies every update or none of them.
	UpdateCategories(ctx context.Context, cats []model.Category) error
	DeleteCategory(ctx context.Context, id int64) error
	CategoryRefs(ctx context.Context, id int64) (model.CategoryRefs, error)

	CreateRule(ctx context.Context, r model.Rule) (model.Rule, error)
	ListRules(ctx context.Context) ([]model.Rule, error)
	DeleteRule(ctx context.Context, id int64) error

	CreateBudget(ctx context.Context, b model.Budget) (model.Budget, error)
	ListBudgets(ctx context.Context) ([]model.Budget, error)
	DeleteBudget(ctx context.Context, id int64) error

	Close() error
}
