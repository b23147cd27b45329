// Package rules assigns categories to transactions from keyword rules.
//
// Rules are evaluated longest keyword first, ties broken by insertion
// order (ascending id). The first rule whose keyword occurs in the
// transaction description wins. Case-insensitive rules compare under
// Unicode case folding.
package rules

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/cleared-dev/releve/internal/logger"
	"github.com/cleared-dev/releve/internal/model"
)

// Store is the persistence the engine needs.
type Store interface {
	CreateRule(ctx context.Context, r model.Rule) (model.Rule, error)
	ListRules(ctx context.Context) ([]model.Rule, error)
	DeleteRule(ctx context.Context, id int64) error
	GetCategory(ctx context.Context, id int64) (model.Category, error)
	GetTransaction(ctx context.Context, id int64) (model.Transaction, error)
	UpdateTransaction(ctx context.Context, txn model.Transaction) error
	ListTransactions(ctx context.Context, f model.Filter) ([]model.Transaction, error)
}

// Engine manages rules and applies them.
type Engine struct {
	store Store
}

// NewEngine creates an Engine.
func NewEngine(s Store) *Engine {
	return &Engine{store: s}
}

// Sort orders rules by priority: keyword length in runes descending, then
// id ascending.
func Sort(rules []model.Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(rules[i].Keyword), utf8.RuneCountInString(rules[j].Keyword)
		if li != lj {
			return li > lj
		}
		return rules[i].ID < rules[j].ID
	})
}

// Matcher evaluates a fixed rule set. It is not safe for concurrent use.
type Matcher struct {
	rules  []model.Rule
	folded []string
	caser  cases.Caser
}

// NewMatcher sorts a copy of rules by priority and prepares them.
func NewMatcher(rules []model.Rule) *Matcher {
	m := &Matcher{
		rules: append([]model.Rule(nil), rules...),
		caser: cases.Fold(),
	}
	Sort(m.rules)
	m.folded = make([]string, len(m.rules))
	for i, r := range m.rules {
		if !r.CaseSensitive {
			m.folded[i] = m.caser.String(r.Keyword)
		}
	}
	return m
}

// Match returns the highest-priority rule whose keyword occurs in
// description.
func (m *Matcher) Match(description string) (model.Rule, bool) {
	var folded string
	for i, r := range m.rules {
		if r.CaseSensitive {
			if strings.Contains(description, r.Keyword) {
				return r, true
			}
			continue
		}
		if folded == "" {
			folded = m.caser.String(description)
		}
		if strings.Contains(folded, m.folded[i]) {
			return r, true
		}
	}
	return model.Rule{}, false
}

// Add creates a rule. Adding a keyword that already maps to the same
// category succeeds with a warning.
func (e *Engine) Add(ctx context.Context, keyword string, categoryID int64, caseSensitive bool) (model.Rule, []string, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return model.Rule{}, nil, &model.ReferenceError{Entity: "rule", Err: fmt.Errorf("%w: empty keyword", model.ErrInvalid)}
	}
	if _, err := e.store.GetCategory(ctx, categoryID); err != nil {
		return model.Rule{}, nil, err
	}

	existing, err := e.store.ListRules(ctx)
	if err != nil {
		return model.Rule{}, nil, fmt.Errorf("listing rules: %w", err)
	}
	var warnings []string
	caser := cases.Fold()
	for _, r := range existing {
		if r.CategoryID != categoryID {
			continue
		}
		same := r.Keyword == keyword
		if !same && !r.CaseSensitive && !caseSensitive {
			same = caser.String(r.Keyword) == caser.String(keyword)
		}
		if same {
			warnings = append(warnings, fmt.Sprintf("keyword %q already maps to this category (rule #%d)", keyword, r.ID))
		}
	}

	rule, err := e.store.CreateRule(ctx, model.Rule{Keyword: keyword, CategoryID: categoryID, CaseSensitive: caseSensitive})
	if err != nil {
		return model.Rule{}, nil, fmt.Errorf("creating rule: %w", err)
	}
	return rule, warnings, nil
}

// Remove deletes a rule.
func (e *Engine) Remove(ctx context.Context, id int64) error {
	return e.store.DeleteRule(ctx, id)
}

// List returns all rules in priority order.
func (e *Engine) List(ctx context.Context) ([]model.Rule, error) {
	rules, err := e.store.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	Sort(rules)
	return rules, nil
}

// AutoCategorize returns the category the rules assign to txn. It does not
// modify txn.
func (e *Engine) AutoCategorize(ctx context.Context, txn model.Transaction) (model.Category, bool, error) {
	rules, err := e.store.ListRules(ctx)
	if err != nil {
		return model.Category{}, false, fmt.Errorf("listing rules: %w", err)
	}
	r, ok := NewMatcher(rules).Match(txn.Description)
	if !ok {
		return model.Category{}, false, nil
	}
	c, err := e.store.GetCategory(ctx, r.CategoryID)
	if err != nil {
		return model.Category{}, false, fmt.Errorf("rule #%d: %w", r.ID, err)
	}
	return c, true, nil
}

// CategorizeAllAuto applies the rules to every uncategorized transaction
// and returns how many received a category. Categorized transactions are
// never touched, so a second call on unchanged data returns 0.
func (e *Engine) CategorizeAllAuto(ctx context.Context) (int, error) {
	rules, err := e.store.ListRules(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing rules: %w", err)
	}
	if len(rules) == 0 {
		return 0, nil
	}
	txns, err := e.store.ListTransactions(ctx, model.Filter{Uncategorized: true})
	if err != nil {
		return 0, fmt.Errorf("listing uncategorized transactions: %w", err)
	}

	m := NewMatcher(rules)
	n := 0
	for _, txn := range txns {
		r, ok := m.Match(txn.Description)
		if !ok {
			continue
		}
		txn.CategoryID = r.CategoryID
		txn.CategorySource = model.SourceAuto
		if err := e.store.UpdateTransaction(ctx, txn); err != nil {
			return n, fmt.Errorf("categorizing transaction %d: %w", txn.ID, err)
		}
		n++
	}

	log := logger.FromContext(ctx)
	log.Info().Int("categorized", n).Int("uncategorized", len(txns)-n).Msg("auto-categorization done")
	return n, nil
}

// CategorizeManual sets the category of a transaction unconditionally.
// Manual assignments are never overwritten by CategorizeAllAuto.
func (e *Engine) CategorizeManual(ctx context.Context, txnID, categoryID int64) error {
	if _, err := e.store.GetCategory(ctx, categoryID); err != nil {
		return err
	}
	txn, err := e.store.GetTransaction(ctx, txnID)
	if err != nil {
		return err
	}
	txn.CategoryID = categoryID
	txn.CategorySource = model.SourceManual
	if err := e.store.UpdateTransaction(ctx, txn); err != nil {
		return fmt.Errorf("categorizing transaction %d: %w", txnID, err)
	}
	return nil
}

// Uncategorize clears the category of a transaction, making it eligible
// for CategorizeAllAuto again.
func (e *Engine) Uncategorize(ctx context.Context, txnID int64) error {
	txn, err := e.store.GetTransaction(ctx, txnID)
	if err != nil {
		return err
	}
	txn.CategoryID = 0
	txn.CategorySource = model.SourceNone
	if err := e.store.UpdateTransaction(ctx, txn); err != nil {
		return fmt.Errorf("uncategorizing transaction %d: %w", txnID, err)
	}
	return nil
}
