package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/releve/internal/categories"
	"github.com/cleared-dev/releve/internal/describe"
	"github.com/cleared-dev/releve/internal/importer"
	"github.com/cleared-dev/releve/internal/model"
	"github.com/cleared-dev/releve/internal/period"
	"github.com/cleared-dev/releve/internal/store"
	"github.com/cleared-dev/releve/internal/store/memory"
	"github.com/cleared-dev/releve/internal/store/sqlite"
)

const statement = "Date,Libellé,Débit euros,Crédit euros\n" +
	`24/10/2025,PAIEMENT PAR CARTE X3573 LIDL,"13,38",` + "\n" +
	`25/10/2025,PRELEVEMENT Orange SA,"39,99",` + "\n" +
	`27/10/2025,VIREMENT EN VOTRE FAVEUR Entreprise ABC Salaire,,"2 500,00"` + "\n" +
	`28/10/2025,RETRAIT DAB X3573 PARIS 15,"60,00",` + "\n" +
	`xx/10/2025,FRAIS,"1,00",` + "\n"

var clock = time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC)

var backends = []struct {
	name string
	open func(t *testing.T) store.Store
}{
	{"memory", func(t *testing.T) store.Store { return memory.New() }},
	{"sqlite", func(t *testing.T) store.Store {
		s, err := sqlite.Open(filepath.Join(t.TempDir(), "releve.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	}},
}

func newService(t *testing.T, st store.Store) (*Service, string) {
	t.Helper()
	root := t.TempDir()
	svc := NewService(st, WithImportLog(root), WithClock(func() time.Time { return clock }))
	svc.newRunID = func() string { return "run-1" }
	return svc, root
}

func forEachBackend(t *testing.T, fn func(t *testing.T, svc *Service)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			svc, _ := newService(t, b.open(t))
			fn(t, svc)
		})
	}
}

func TestImportFile(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		res, err := svc.ImportFile(ctx, []byte(statement), importer.DefaultConfig())
		require.NoError(t, err)

		assert.Equal(t, "run-1", res.RunID)
		assert.Equal(t, 5, res.Rows)
		assert.Equal(t, "utf-8", res.Encoding)
		assert.Zero(t, res.Duplicates)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0], "line 6")

		require.Len(t, res.Inserted, 4)
		for _, txn := range res.Inserted {
			assert.NotZero(t, txn.ID)
			assert.False(t, txn.Amount.IsZero())
			assert.False(t, txn.Date.IsZero())
		}

		// A card payment keeps its date, sign and parsed counterparty.
		lidl, err := svc.Store().GetTransaction(ctx, res.Inserted[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "2025-10-24", period.FormatDate(lidl.Date))
		assert.Equal(t, "-13.38", lidl.Amount.StringFixed(2))
		assert.Equal(t, describe.TypeCardPayment, lidl.Type)
		assert.Contains(t, lidl.Name, "LIDL")
		assert.False(t, lidl.Categorized())

		assert.Equal(t, "2500.00", res.Inserted[2].Amount.StringFixed(2))
	})
}

func TestImportFile_ReimportInsertsNothing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		first, err := svc.ImportFile(ctx, []byte(statement), importer.DefaultConfig())
		require.NoError(t, err)

		second, err := svc.ImportFile(ctx, []byte(statement), importer.DefaultConfig())
		require.NoError(t, err)
		assert.Empty(t, second.Inserted)
		assert.Equal(t, len(first.Inserted), second.Duplicates)

		all, err := svc.Transactions(ctx, model.Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})
}

func TestImportFile_SameRowTwice(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service) {
		row := `24/10/2025,PAIEMENT PAR CARTE X3573 LIDL,"13,38",` + "\n"
		data := "Date,Libellé,Débit euros,Crédit euros\n" + row + row

		res, err := svc.ImportFile(context.Background(), []byte(data), importer.DefaultConfig())
		require.NoError(t, err)
		assert.Len(t, res.Inserted, 1)
		assert.Equal(t, 1, res.Duplicates)
	})
}

func TestImportFile_ConfigErrorPersistsNothing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		cfg := importer.DefaultConfig()
		cfg.DateColumn = "Date opération"

		_, err := svc.ImportFile(ctx, []byte(statement), cfg)
		require.Error(t, err)
		var cerr *importer.ConfigError
		assert.True(t, errors.As(err, &cerr))

		all, err := svc.Transactions(ctx, model.Filter{})
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestImportFile_CancelledPersistsNothing(t *testing.T) {
	svc, root := newService(t, memory.New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ImportFile(ctx, []byte(statement), importer.DefaultConfig())
	require.ErrorIs(t, err, context.Canceled)

	all, err := svc.Transactions(context.Background(), model.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = os.Stat(filepath.Join(root, "logs"))
	assert.True(t, os.IsNotExist(err), "failed runs are not logged")
}

func TestImportPath_RecordsHistory(t *testing.T) {
	svc, root := newService(t, memory.New())
	path := filepath.Join(t.TempDir(), "releve_2025-10.csv")
	require.NoError(t, os.WriteFile(path, []byte(statement), 0o644))

	_, err := svc.ImportPath(context.Background(), path, importer.DefaultConfig())
	require.NoError(t, err)
	_, err = svc.ImportPath(context.Background(), path, importer.DefaultConfig())
	require.NoError(t, err)

	history, err := svc.History()
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "releve_2025-10.csv", history[0].File)
	assert.Equal(t, "run-1", history[0].RunID)
	assert.True(t, clock.Equal(history[0].Timestamp))
	assert.Equal(t, 4, history[0].Inserted)
	assert.Equal(t, 1, history[0].Warnings)
	assert.Equal(t, 0, history[1].Inserted)
	assert.Equal(t, 4, history[1].Duplicates)

	assert.FileExists(t, filepath.Join(root, "logs", "import-log.csv"))

	_, err = svc.ImportPath(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), importer.DefaultConfig())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHistory_Disabled(t *testing.T) {
	svc := NewService(memory.New())
	_, err := svc.ImportFile(context.Background(), []byte(statement), importer.DefaultConfig())
	require.NoError(t, err)

	history, err := svc.History()
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSeedAndAutoCategorize(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		cats, rls, err := svc.Seed(ctx)
		require.NoError(t, err)
		assert.Positive(t, cats)
		assert.Positive(t, rls)

		again, againRules, err := svc.Seed(ctx)
		require.NoError(t, err)
		assert.Zero(t, again)
		assert.Zero(t, againRules)

		res, err := svc.ImportFile(ctx, []byte(statement), importer.DefaultConfig())
		require.NoError(t, err)

		n, err := svc.AutoCategorizeAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		n, err = svc.AutoCategorizeAll(ctx)
		require.NoError(t, err)
		assert.Zero(t, n, "second pass finds nothing new")

		wantPaths := []string{
			"Alimentation",
			"Logement > Internet/Téléphone",
			"Salaire",
			"",
		}
		for i, want := range wantPaths {
			txn, err := svc.Store().GetTransaction(ctx, res.Inserted[i].ID)
			require.NoError(t, err)
			if want == "" {
				assert.False(t, txn.Categorized(), txn.Description)
				continue
			}
			path, err := svc.Categories().Path(ctx, txn.CategoryID)
			require.NoError(t, err)
			assert.Equal(t, want, path, txn.Description)
			assert.Equal(t, model.SourceAuto, txn.CategorySource)
		}
	})
}

func TestCategorizeManual(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		_, _, err := svc.Seed(ctx)
		require.NoError(t, err)
		res, err := svc.ImportFile(ctx, []byte(statement), importer.DefaultConfig())
		require.NoError(t, err)

		loisirs, err := svc.Categories().Resolve(ctx, "Loisirs")
		require.NoError(t, err)
		lidl := res.Inserted[0]
		require.NoError(t, svc.CategorizeManual(ctx, lidl.ID, loisirs.ID))

		_, err = svc.AutoCategorizeAll(ctx)
		require.NoError(t, err)

		got, err := svc.Store().GetTransaction(ctx, lidl.ID)
		require.NoError(t, err)
		assert.Equal(t, loisirs.ID, got.CategoryID)
		assert.Equal(t, model.SourceManual, got.CategorySource)

		err = svc.CategorizeManual(ctx, lidl.ID, 9999)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestSetFlags(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		res, err := svc.ImportFile(ctx, []byte(statement), importer.DefaultConfig())
		require.NoError(t, err)
		orange := res.Inserted[1]

		got, err := svc.SetFlags(ctx, orange.ID, model.Flags{Recurrence: true, Vital: true})
		require.NoError(t, err)
		assert.Equal(t, model.Flags{Recurrence: true, Vital: true}, got.Flags())

		split, err := svc.Stats().RecurrenceSplit(ctx, model.Filter{})
		require.NoError(t, err)
		assert.Equal(t, "39.99", split.Flagged.StringFixed(2))

		_, err = svc.SetFlags(ctx, 9999, model.Flags{})
		assert.True(t, model.IsReferenceError(err))
	})
}

func TestClearTransactions(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		_, err := svc.ImportFile(ctx, []byte(statement), importer.DefaultConfig())
		require.NoError(t, err)

		n, err := svc.ClearTransactions(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		res, err := svc.ImportFile(ctx, []byte(statement), importer.DefaultConfig())
		require.NoError(t, err)
		assert.Len(t, res.Inserted, 4, "cleared rows are no longer duplicates")
	})
}

func TestStatistics(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		_, err := svc.ImportFile(ctx, []byte(statement), importer.DefaultConfig())
		require.NoError(t, err)

		totals, err := svc.Statistics(ctx, model.Filter{})
		require.NoError(t, err)
		assert.Equal(t, 4, totals.Count)
		assert.Equal(t, "2500.00", totals.Income.StringFixed(2))
		assert.Equal(t, "113.37", totals.Expense.StringFixed(2))
		assert.Equal(t, "2386.63", totals.Net.StringFixed(2))

		inverted := model.Filter{From: period.Day(clock), To: period.Day(clock).AddDate(0, -1, 0)}
		zero, err := svc.Statistics(ctx, inverted)
		require.NoError(t, err)
		assert.Zero(t, zero.Count)
		assert.True(t, zero.Income.IsZero())
		assert.True(t, zero.Expense.IsZero())
		assert.True(t, zero.Net.IsZero())

		byCat, err := svc.ByCategory(ctx, model.Filter{}, false)
		require.NoError(t, err)
		require.Len(t, byCat, 1)
		assert.Equal(t, int64(0), byCat[0].CategoryID)
		assert.True(t, byCat[0].Amount.Equal(totals.Expense))

		months, err := svc.MonthlyBreakdown(ctx, model.Filter{}, 2025, 10)
		require.NoError(t, err)
		require.Len(t, months, 1)
		assert.Equal(t, "2025-10", months[0].Month)

		days, err := svc.DailyTrend(ctx, model.Filter{})
		require.NoError(t, err)
		assert.Len(t, days, 4)
	})
}

func TestDeleteCategoryWithChild(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		_, _, err := svc.Seed(ctx)
		require.NoError(t, err)

		before, err := svc.Categories().List(ctx, categories.DepthFirst)
		require.NoError(t, err)

		alim, err := svc.Categories().Resolve(ctx, "Alimentation")
		require.NoError(t, err)
		err = svc.Categories().Delete(ctx, alim.ID)
		require.Error(t, err)
		assert.True(t, model.IsReferenceError(err))
		assert.ErrorIs(t, err, model.ErrHasChildren)

		after, err := svc.Categories().List(ctx, categories.DepthFirst)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}
