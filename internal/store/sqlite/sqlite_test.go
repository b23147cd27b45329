package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/releve/internal/model"
	"github.com/cleared-dev/releve/internal/store"
	"github.com/cleared-dev/releve/internal/store/storetest"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "releve.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return openTemp(t) })
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "releve.db")

	s, err := Open(path)
	require.NoError(t, err)
	cat, err := s.CreateCategory(ctx, model.Category{Name: "Alimentation", Kind: model.KindExpense})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Migrations are already applied; reopening must keep the data.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alimentation", got.Name)
}

func TestTimestamps(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	fixed := time.Date(2025, 11, 1, 9, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	created, err := s.CreateTransactions(ctx, []model.Transaction{
		storetest.Txn(storetest.Day(2025, 10, 24), "EDF", "-80"),
	})
	require.NoError(t, err)

	got, err := s.GetTransaction(ctx, created[0].ID)
	require.NoError(t, err)
	assert.True(t, fixed.Equal(got.CreatedAt))
	assert.True(t, fixed.Equal(got.UpdatedAt))
}

func TestTransactionWhere(t *testing.T) {
	where, args := transactionWhere(model.Filter{})
	assert.Empty(t, where)
	assert.Nil(t, args)

	where, args = transactionWhere(model.Filter{
		From:          storetest.Day(2025, 1, 1),
		CategoryIDs:   []int64{3, 4},
		Uncategorized: false,
		Vital:         model.Bool(true),
	})
	assert.Equal(t, " WHERE date >= ? AND category_id IN (?, ?) AND vital = ?", where)
	assert.Equal(t, []any{"2025-01-01", int64(3), int64(4), true}, args)
}

func TestAmountsStoredInCents(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	_, err := s.CreateTransactions(ctx, []model.Transaction{
		storetest.Txn(storetest.Day(2025, 10, 24), "A", "-0.10"),
		storetest.Txn(storetest.Day(2025, 10, 24), "B", "-0.20"),
	})
	require.NoError(t, err)

	var sum int64
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT SUM(amount_cents) FROM transactions`).Scan(&sum))
	assert.Equal(t, int64(-30), sum)
}
