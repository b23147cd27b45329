// Package memory is an in-process store.Store, used by tests and by
// one-shot commands that do not need a database file.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cleared-dev/releve/internal/dedup"
	"github.com/cleared-dev/releve/internal/model"
	"github.com/cleared-dev/releve/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps every entity in maps guarded by one RWMutex. Values are
// copied in and out, so callers never share memory with the store.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	nextID     int64
	txns       map[int64]model.Transaction
	categories map[int64]model.Category
	rules      map[int64]model.Rule
	budgets    map[int64]model.Budget
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		now:        time.Now,
		txns:       make(map[int64]model.Transaction),
		categories: make(map[int64]model.Category),
		rules:      make(map[int64]model.Rule),
		budgets:    make(map[int64]model.Budget),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) stamp() time.Time {
	return s.now().UTC()
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) checkCategoryRef(id int64) error {
	if id == 0 {
		return nil
	}
	if _, ok := s.categories[id]; !ok {
		return model.NotFound("category", id)
	}
	return nil
}

func (s *Store) CreateTransactions(ctx context.Context, txns []model.Transaction) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range txns {
		if err := model.CheckTransaction(t); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		if err := s.checkCategoryRef(t.CategoryID); err != nil {
			return nil, err
		}
	}

	out := make([]model.Transaction, len(txns))
	now := s.stamp()
	for i, t := range txns {
		t.ID = s.id()
		t.Date = t.Date.UTC()
		t.CreatedAt, t.UpdatedAt = now, now
		s.txns[t.ID] = t
		out[i] = t
	}
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.txns[id]
	if !ok {
		return model.Transaction{}, model.NotFound("transaction", id)
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, txn model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.txns[txn.ID]
	if !ok {
		return model.NotFound("transaction", txn.ID)
	}
	if err := s.checkCategoryRef(txn.CategoryID); err != nil {
		return err
	}

	cur.CategoryID = txn.CategoryID
	cur.CategorySource = txn.CategorySource
	cur.Type = txn.Type
	cur.Name = txn.Name
	cur.Recurrence = txn.Recurrence
	cur.Vital = txn.Vital
	cur.Savings = txn.Savings
	if err := model.CheckTransaction(cur); err != nil {
		return err
	}
	cur.UpdatedAt = s.stamp()
	s.txns[cur.ID] = cur
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, f model.Filter) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if f.Empty() {
		return nil, nil
	}
	var out []model.Transaction
	for _, t := range s.txns {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) Fingerprints(ctx context.Context) (dedup.Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := dedup.NewIndex()
	for _, t := range s.txns {
		idx.Add(dedup.Of(t))
	}
	return idx, nil
}

func (s *Store) ClearTransactions(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.txns)
	s.txns = make(map[int64]model.Transaction)
	return n, nil
}

func (s *Store) siblingConflict(c model.Category) bool {
	for _, other := range s.categories {
		if other.ID != c.ID && other.ParentID == c.ParentID && other.Name == c.Name {
			return true
		}
	}
	return false
}

func (s *Store) checkCategory(c model.Category) error {
	if strings.TrimSpace(c.Name) == "" {
		return &model.ReferenceError{Entity: "category", Err: fmt.Errorf("%w: empty name", model.ErrInvalid)}
	}
	if c.ParentID != 0 {
		if _, ok := s.categories[c.ParentID]; !ok {
			return model.NotFound("category", c.ParentID)
		}
	}
	if s.siblingConflict(c) {
		return &model.ReferenceError{Entity: "category", Ref: fmt.Sprintf("%q", c.Name), Err: model.ErrConflict}
	}
	return nil
}

func (s *Store) CreateCategory(ctx context.Context, c model.Category) (model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = 0
	if c.Kind == "" {
		c.Kind = model.KindExpense
	}
	if err := s.checkCategory(c); err != nil {
		return model.Category{}, err
	}
	c.ID = s.id()
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return model.Category{}, model.NotFound("category", id)
	}
	return c, nil
}

// ListCategories returns all categories ordered by id.
func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b model.Category) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c model.Category) error {
	return s.UpdateCategories(ctx, []model.Category{c})
}

func (s *Store) UpdateCategories(ctx context.Context, cats []model.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := make(map[int64]model.Category, len(cats))
	for _, c := range cats {
		if err := s.updateCategory(c, prev); err != nil {
			for id, old := range prev {
				s.categories[id] = old
			}
			return err
		}
	}
	return nil
}

// updateCategory applies c, remembering the first value it replaces in
// prev so a failed batch can be rolled back.
func (s *Store) updateCategory(c model.Category, prev map[int64]model.Category) error {
	old, ok := s.categories[c.ID]
	if !ok {
		return model.NotFound("category", c.ID)
	}
	if c.ParentID == c.ID {
		return &model.ReferenceError{Entity: "category", Ref: fmt.Sprintf("#%d", c.ID), Err: model.ErrCycle}
	}
	if err := s.checkCategory(c); err != nil {
		return err
	}
	if _, seen := prev[c.ID]; !seen {
		prev[c.ID] = old
	}
	s.categories[c.ID] = c
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return model.NotFound("category", id)
	}
	for _, c := range s.categories {
		if c.ParentID == id {
			return &model.ReferenceError{Entity: "category", Ref: fmt.Sprintf("#%d", id), Err: model.ErrHasChildren}
		}
	}
	if refs := s.refs(id); refs.Total() > 0 {
		return &model.ReferenceError{Entity: "category", Ref: fmt.Sprintf("#%d", id), Err: model.ErrInUse}
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) refs(id int64) model.CategoryRefs {
	var r model.CategoryRefs
	for _, t := range s.txns {
		if t.CategoryID == id {
			r.Transactions++
		}
	}
	for _, rule := range s.rules {
		if rule.CategoryID == id {
			r.Rules++
		}
	}
	for _, b := range s.budgets {
		if b.CategoryID == id {
			r.Budgets++
		}
	}
	return r
}

func (s *Store) CategoryRefs(ctx context.Context, id int64) (model.CategoryRefs, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.categories[id]; !ok {
		return model.CategoryRefs{}, model.NotFound("category", id)
	}
	return s.refs(id), nil
}

func (s *Store) CreateRule(ctx context.Context, r model.Rule) (model.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(r.Keyword) == "" {
		return model.Rule{}, &model.ReferenceError{Entity: "rule", Err: fmt.Errorf("%w: empty keyword", model.ErrInvalid)}
	}
	if _, ok := s.categories[r.CategoryID]; !ok {
		return model.Rule{}, model.NotFound("category", r.CategoryID)
	}
	r.ID = s.id()
	r.CreatedAt = s.stamp()
	s.rules[r.ID] = r
	return r, nil
}

// ListRules returns all rules ordered by id, i.e. insertion order.
func (s *Store) ListRules(ctx context.Context) ([]model.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b model.Rule) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) DeleteRule(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[id]; !ok {
		return model.NotFound("rule", id)
	}
	delete(s.rules, id)
	return nil
}

func (s *Store) CreateBudget(ctx context.Context, b model.Budget) (model.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !b.Limit.IsPositive() || !model.HasCents(b.Limit) {
		return model.Budget{}, &model.ReferenceError{Entity: "budget", Err: fmt.Errorf("%w: limit must be positive with at most 2 decimals", model.ErrInvalid)}
	}
	if _, ok := s.categories[b.CategoryID]; !ok {
		return model.Budget{}, model.NotFound("category", b.CategoryID)
	}
	if b.Period == "" {
		b.Period = model.PeriodMonthly
	}
	b.ID = s.id()
	s.budgets[b.ID] = b
	return b, nil
}

// ListBudgets returns all budgets ordered by id.
func (s *Store) ListBudgets(ctx context.Context) ([]model.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b model.Budget) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) DeleteBudget(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.budgets[id]; !ok {
		return model.NotFound("budget", id)
	}
	delete(s.budgets, id)
	return nil
}
