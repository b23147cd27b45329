// Package sqlite is the on-disk store.Store, a single SQLite file whose
// schema is managed by embedded migrations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/cleared-dev/releve/internal/dedup"
	"github.com/cleared-dev/releve/internal/model"
	"github.com/cleared-dev/releve/internal/period"
	"github.com/cleared-dev/releve/internal/store"
)

var _ store.Store = (*Store)(nil)

const timeLayout = time.RFC3339Nano

// Store wraps a database/sql handle limited to one connection, so
// writes are serialized.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// DSN returns the connection string for path with foreign keys enforced.
func DSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Open creates or opens the database at path and migrates it.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := DSN(path)

	if err := RunMigrations(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) stamp() string {
	return s.now().UTC().Format(timeLayout)
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", v, err)
	}
	return t, nil
}

func constraintCode(err error) int {
	var serr *sqlitedrv.Error
	if errors.As(err, &serr) {
		return serr.Code()
	}
	return 0
}

// --- transactions

const txnColumns = `id, date, description, amount_cents, type, name, category_id, category_source,
	recurrence, vital, savings, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (model.Transaction, error) {
	var (
		t                  model.Transaction
		date, created, upd string
		cents              int64
		category           sql.NullInt64
		source             string
	)
	err := row.Scan(&t.ID, &date, &t.Description, &cents, &t.Type, &t.Name, &category, &source,
		&t.Recurrence, &t.Vital, &t.Savings, &created, &upd)
	if err != nil {
		return t, err
	}
	if t.Date, err = period.ParseDate(date); err != nil {
		return t, err
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return t, err
	}
	if t.UpdatedAt, err = parseTime(upd); err != nil {
		return t, err
	}
	t.Amount = decimal.New(cents, -2)
	t.CategoryID = category.Int64
	t.CategorySource = model.CategorySource(source)
	return t, nil
}

func (s *Store) categoryExists(ctx context.Context, q querier, id int64) error {
	if id == 0 {
		return nil
	}
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if n == 0 {
		return model.NotFound("category", id)
	}
	return nil
}

func (s *Store) CreateTransactions(ctx context.Context, txns []model.Transaction) ([]model.Transaction, error) {
	for i, t := range txns {
		if err := model.CheckTransaction(t); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert transactions: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions
		(date, description, amount_cents, type, name, category_id, category_source,
		 recurrence, vital, savings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert transaction: %w", err)
	}
	defer stmt.Close()

	now := s.stamp()
	out := make([]model.Transaction, len(txns))
	for i, t := range txns {
		if err := s.categoryExists(ctx, tx, t.CategoryID); err != nil {
			return nil, err
		}
		res, err := stmt.ExecContext(ctx, period.FormatDate(t.Date), t.Description, t.Cents(), t.Type, t.Name,
			nullID(t.CategoryID), string(t.CategorySource), t.Recurrence, t.Vital, t.Savings, now, now)
		if err != nil {
			return nil, fmt.Errorf("insert transaction: %w", err)
		}
		if t.ID, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("insert transaction id: %w", err)
		}
		t.Date = period.Day(t.Date)
		t.CreatedAt, _ = parseTime(now)
		t.UpdatedAt = t.CreatedAt
		out[i] = t
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transactions: %w", err)
	}
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (model.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+txnColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, model.NotFound("transaction", id)
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, txn model.Transaction) error {
	cur, err := s.GetTransaction(ctx, txn.ID)
	if err != nil {
		return err
	}
	if err := s.categoryExists(ctx, s.db, txn.CategoryID); err != nil {
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

	_, err = s.db.ExecContext(ctx, `UPDATE transactions SET
		category_id = ?, category_source = ?, type = ?, name = ?,
		recurrence = ?, vital = ?, savings = ?, updated_at = ?
		WHERE id = ?`,
		nullID(cur.CategoryID), string(cur.CategorySource), cur.Type, cur.Name,
		cur.Recurrence, cur.Vital, cur.Savings, s.stamp(), cur.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return nil
}

// transactionWhere translates f into a WHERE clause and its arguments.
func transactionWhere(f model.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !f.From.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, period.FormatDate(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, period.FormatDate(f.To))
	}
	if f.Uncategorized {
		conds = append(conds, "category_id IS NULL")
	}
	if len(f.CategoryIDs) > 0 {
		marks := make([]string, len(f.CategoryIDs))
		for i, id := range f.CategoryIDs {
			marks[i] = "?"
			args = append(args, id)
		}
		conds = append(conds, "category_id IN ("+strings.Join(marks, ", ")+")")
	}
	flags := []struct {
		col string
		v   *bool
	}{
		{"recurrence", f.Recurrence},
		{"vital", f.Vital},
		{"savings", f.Savings},
	}
	for _, fl := range flags {
		if fl.v != nil {
			conds = append(conds, fl.col+" = ?")
			args = append(args, *fl.v)
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) ListTransactions(ctx context.Context, f model.Filter) ([]model.Transaction, error) {
	if f.Empty() {
		return nil, nil
	}
	where, args := transactionWhere(f)
	rows, err := s.db.QueryContext(ctx, `SELECT `+txnColumns+` FROM transactions`+where+` ORDER BY date, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (s *Store) Fingerprints(ctx context.Context) (dedup.Index, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, description, amount_cents FROM transactions`)
	if err != nil {
		return nil, fmt.Errorf("list fingerprints: %w", err)
	}
	defer rows.Close()

	idx := dedup.NewIndex()
	for rows.Next() {
		var fp dedup.Fingerprint
		if err := rows.Scan(&fp.Date, &fp.Description, &fp.AmountCents); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		idx.Add(fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list fingerprints: %w", err)
	}
	return idx, nil
}

func (s *Store) ClearTransactions(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions`)
	if err != nil {
		return 0, fmt.Errorf("clear transactions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear transactions: %w", err)
	}
	return int(n), nil
}

// --- categories

func scanCategory(row scanner) (model.Category, error) {
	var (
		c      model.Category
		parent sql.NullInt64
		kind   string
	)
	if err := row.Scan(&c.ID, &c.Name, &parent, &kind, &c.Description, &c.Color); err != nil {
		return c, err
	}
	c.ParentID = parent.Int64
	c.Kind = model.CategoryKind(kind)
	return c, nil
}

type querier interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func (s *Store) checkCategory(ctx context.Context, q querier, c model.Category) error {
	if strings.TrimSpace(c.Name) == "" {
		return &model.ReferenceError{Entity: "category", Err: fmt.Errorf("%w: empty name", model.ErrInvalid)}
	}
	if err := s.categoryExists(ctx, q, c.ParentID); err != nil {
		return err
	}
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE COALESCE(parent_id, 0) = ? AND name = ? AND id <> ?`,
		c.ParentID, c.Name, c.ID).Scan(&n)
	if err != nil {
		return fmt.Errorf("check sibling names: %w", err)
	}
	if n > 0 {
		return conflict(c.Name)
	}
	return nil
}

func conflict(name string) error {
	return &model.ReferenceError{Entity: "category", Ref: fmt.Sprintf("%q", name), Err: model.ErrConflict}
}

func (s *Store) CreateCategory(ctx context.Context, c model.Category) (model.Category, error) {
	c.ID = 0
	if c.Kind == "" {
		c.Kind = model.KindExpense
	}
	if err := s.checkCategory(ctx, s.db, c); err != nil {
		return model.Category{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name, parent_id, kind, description, color) VALUES (?, ?, ?, ?, ?)`,
		c.Name, nullID(c.ParentID), string(c.Kind), c.Description, c.Color)
	if err != nil {
		if constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return model.Category{}, conflict(c.Name)
		}
		return model.Category{}, fmt.Errorf("insert category: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return model.Category{}, fmt.Errorf("insert category id: %w", err)
	}
	return c, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (model.Category, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, parent_id, kind, description, color FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Category{}, model.NotFound("category", id)
	}
	if err != nil {
		return model.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// ListCategories returns all categories ordered by id.
func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, parent_id, kind, description, color FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c model.Category) error {
	return s.UpdateCategories(ctx, []model.Category{c})
}

func (s *Store) UpdateCategories(ctx context.Context, cats []model.Category) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update categories: %w", err)
	}
	defer tx.Rollback()

	for _, c := range cats {
		if c.ID == 0 {
			return model.NotFound("category", c.ID)
		}
		if err := s.categoryExists(ctx, tx, c.ID); err != nil {
			return err
		}
		if c.ParentID == c.ID {
			return &model.ReferenceError{Entity: "category", Ref: fmt.Sprintf("#%d", c.ID), Err: model.ErrCycle}
		}
		if err := s.checkCategory(ctx, tx, c); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE categories SET name = ?, parent_id = ?, kind = ?, description = ?, color = ? WHERE id = ?`,
			c.Name, nullID(c.ParentID), string(c.Kind), c.Description, c.Color, c.ID)
		if err != nil {
			if constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
				return conflict(c.Name)
			}
			return fmt.Errorf("update category: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit categories: %w", err)
	}
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}
	ref := fmt.Sprintf("#%d", id)

	var children int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE parent_id = ?`, id).Scan(&children); err != nil {
		return fmt.Errorf("count children: %w", err)
	}
	if children > 0 {
		return &model.ReferenceError{Entity: "category", Ref: ref, Err: model.ErrHasChildren}
	}

	refs, err := s.CategoryRefs(ctx, id)
	if err != nil {
		return err
	}
	if refs.Total() > 0 {
		return &model.ReferenceError{Entity: "category", Ref: ref, Err: model.ErrInUse}
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		if constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
			return &model.ReferenceError{Entity: "category", Ref: ref, Err: model.ErrInUse}
		}
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

func (s *Store) CategoryRefs(ctx context.Context, id int64) (model.CategoryRefs, error) {
	var r model.CategoryRefs
	if err := s.categoryExists(ctx, s.db, id); err != nil {
		return r, err
	}
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM transactions WHERE category_id = ?1),
		(SELECT COUNT(*) FROM rules WHERE category_id = ?1),
		(SELECT COUNT(*) FROM budgets WHERE category_id = ?1)`, id).
		Scan(&r.Transactions, &r.Rules, &r.Budgets)
	if err != nil {
		return r, fmt.Errorf("count category references: %w", err)
	}
	return r, nil
}

// --- rules

func (s *Store) CreateRule(ctx context.Context, r model.Rule) (model.Rule, error) {
	if strings.TrimSpace(r.Keyword) == "" {
		return model.Rule{}, &model.ReferenceError{Entity: "rule", Err: fmt.Errorf("%w: empty keyword", model.ErrInvalid)}
	}
	if r.CategoryID == 0 {
		return model.Rule{}, model.NotFound("category", 0)
	}
	if err := s.categoryExists(ctx, s.db, r.CategoryID); err != nil {
		return model.Rule{}, err
	}
	now := s.stamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO rules (keyword, category_id, case_sensitive, created_at) VALUES (?, ?, ?, ?)`,
		r.Keyword, r.CategoryID, r.CaseSensitive, now)
	if err != nil {
		return model.Rule{}, fmt.Errorf("insert rule: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return model.Rule{}, fmt.Errorf("insert rule id: %w", err)
	}
	r.CreatedAt, _ = parseTime(now)
	return r, nil
}

// ListRules returns all rules ordered by id, i.e. insertion order.
func (s *Store) ListRules(ctx context.Context) ([]model.Rule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, keyword, category_id, case_sensitive, created_at FROM rules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []model.Rule
	for rows.Next() {
		var (
			r       model.Rule
			created string
		)
		if err := rows.Scan(&r.ID, &r.Keyword, &r.CategoryID, &r.CaseSensitive, &created); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		if r.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteRule(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "rules", "rule", id)
}

func (s *Store) deleteByID(ctx context.Context, table, entity string, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}
	if n == 0 {
		return model.NotFound(entity, id)
	}
	return nil
}

// --- budgets

func (s *Store) CreateBudget(ctx context.Context, b model.Budget) (model.Budget, error) {
	if !b.Limit.IsPositive() || !model.HasCents(b.Limit) {
		return model.Budget{}, &model.ReferenceError{Entity: "budget", Err: fmt.Errorf("%w: limit must be positive with at most 2 decimals", model.ErrInvalid)}
	}
	if b.CategoryID == 0 {
		return model.Budget{}, model.NotFound("category", 0)
	}
	if err := s.categoryExists(ctx, s.db, b.CategoryID); err != nil {
		return model.Budget{}, err
	}
	if b.Period == "" {
		b.Period = model.PeriodMonthly
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (category_id, limit_cents, period, active) VALUES (?, ?, ?, ?)`,
		b.CategoryID, b.Limit.Shift(2).IntPart(), string(b.Period), b.Active)
	if err != nil {
		return model.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return model.Budget{}, fmt.Errorf("insert budget id: %w", err)
	}
	return b, nil
}

// ListBudgets returns all budgets ordered by id.
func (s *Store) ListBudgets(ctx context.Context) ([]model.Budget, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category_id, limit_cents, period, active FROM budgets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []model.Budget
	for rows.Next() {
		var (
			b     model.Budget
			cents int64
			per   string
		)
		if err := rows.Scan(&b.ID, &b.CategoryID, &cents, &per, &b.Active); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Limit = decimal.New(cents, -2)
		b.Period = model.BudgetPeriod(per)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteBudget(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "budgets", "budget", id)
}
