// Package ledger is the entry point used by the command line: it wires the
// import pipeline, the category forest, the rule engine and the statistics
// over one store.
package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cleared-dev/releve/internal/categories"
	"github.com/cleared-dev/releve/internal/importer"
	"github.com/cleared-dev/releve/internal/importlog"
	"github.com/cleared-dev/releve/internal/logger"
	"github.com/cleared-dev/releve/internal/model"
	"github.com/cleared-dev/releve/internal/rules"
	"github.com/cleared-dev/releve/internal/stats"
	"github.com/cleared-dev/releve/internal/store"
)

// Service provides the ledger operations over one store.
type Service struct {
	store      store.Store
	categories *categories.Manager
	rules      *rules.Engine
	stats      *stats.Service
	logRoot    string
	now        func() time.Time
	newRunID   func() string
}

// Option configures a Service.
type Option func(*Service)

// WithImportLog records every import run under root/logs/import-log.csv.
func WithImportLog(root string) Option {
	return func(s *Service) { s.logRoot = root }
}

// WithClock sets the time source for import log timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a ledger Service. The caller keeps ownership of st.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:      st,
		categories: categories.NewManager(st),
		rules:      rules.NewEngine(st),
		stats:      stats.NewService(st),
		now:        time.Now,
		newRunID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Categories returns the category forest manager.
func (s *Service) Categories() *categories.Manager { return s.categories }

// Rules returns the rule engine.
func (s *Service) Rules() *rules.Engine { return s.rules }

// Stats returns the statistics aggregator.
func (s *Service) Stats() *stats.Service { return s.stats }

// Store returns the underlying store.
func (s *Service) Store() store.Store { return s.store }

// Seed installs the default category catalog and rules on an empty store.
// It is a no-op on a store that already has them.
func (s *Service) Seed(ctx context.Context) (cats, rls int, err error) {
	cats, err = s.categories.Seed(ctx)
	if err != nil {
		return cats, 0, fmt.Errorf("seeding categories: %w", err)
	}
	rls, err = s.rules.Seed(ctx, s.categories)
	if err != nil {
		return cats, rls, fmt.Errorf("seeding rules: %w", err)
	}
	if cats > 0 || rls > 0 {
		log := logger.FromContext(ctx)
		log.Info().Int("categories", cats).Int("rules", rls).Msg("seeded defaults")
	}
	return cats, rls, nil
}

// ImportResult is the outcome of one import run.
type ImportResult struct {
	RunID      string
	Inserted   []model.Transaction // with ids assigned
	Warnings   []string
	Duplicates int
	Encoding   string
	Rows       int
}

// ImportFile normalizes data with cfg and persists the rows that are not
// already in the store. Re-importing the same content inserts nothing and
// reports every row as a duplicate. On a configuration error nothing is
// persisted and the error is a *importer.ConfigError.
func (s *Service) ImportFile(ctx context.Context, data []byte, cfg importer.Config) (ImportResult, error) {
	return s.importData(ctx, "", data, cfg)
}

// ImportPath reads the file at path and imports it like ImportFile.
func (s *Service) ImportPath(ctx context.Context, path string, cfg importer.Config) (ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return s.importData(ctx, filepath.Base(path), data, cfg)
}

func (s *Service) importData(ctx context.Context, file string, data []byte, cfg importer.Config) (ImportResult, error) {
	res := ImportResult{RunID: s.newRunID()}
	log := logger.FromContext(ctx).With().Str("run_id", res.RunID).Str("file", file).Logger()
	ctx = logger.WithContext(ctx, log)

	p, err := importer.NewPipeline(cfg)
	if err != nil {
		return res, err
	}

	existing, err := s.store.Fingerprints(ctx)
	if err != nil {
		return res, fmt.Errorf("loading fingerprints: %w", err)
	}

	out, err := p.Run(ctx, data, existing)
	res.Warnings = out.Warnings
	res.Duplicates = out.Duplicates
	res.Encoding = out.Encoding
	res.Rows = out.Rows
	if err != nil {
		// A cancelled run is not persisted, so the file can be imported
		// again from scratch.
		return res, err
	}

	if len(out.Accepted) > 0 {
		res.Inserted, err = s.store.CreateTransactions(ctx, out.Accepted)
		if err != nil {
			return res, fmt.Errorf("saving transactions: %w", err)
		}
	}

	log.Info().
		Int("inserted", len(res.Inserted)).
		Int("duplicates", res.Duplicates).
		Int("warnings", len(res.Warnings)).
		Msg("import finished")

	if s.logRoot != "" {
		entry := importlog.Entry{
			Timestamp:  s.now(),
			RunID:      res.RunID,
			File:       file,
			Encoding:   res.Encoding,
			Rows:       res.Rows,
			Inserted:   len(res.Inserted),
			Duplicates: res.Duplicates,
			Warnings:   len(res.Warnings),
		}
		if err := importlog.Append(s.logRoot, []importlog.Entry{entry}); err != nil {
			return res, fmt.Errorf("recording import: %w", err)
		}
	}
	return res, nil
}

// History returns the recorded import runs, oldest first. It is empty when
// the import log is disabled.
func (s *Service) History() ([]importlog.Entry, error) {
	if s.logRoot == "" {
		return nil, nil
	}
	return importlog.Read(s.logRoot)
}

// AutoCategorizeAll applies the rules to every uncategorized transaction
// and returns how many were categorized.
func (s *Service) AutoCategorizeAll(ctx context.Context) (int, error) {
	return s.rules.CategorizeAllAuto(ctx)
}

// CategorizeManual assigns a category to a transaction by hand.
func (s *Service) CategorizeManual(ctx context.Context, txnID, categoryID int64) error {
	return s.rules.CategorizeManual(ctx, txnID, categoryID)
}

// SetFlags replaces the recurrence, vital and savings tags of a transaction.
func (s *Service) SetFlags(ctx context.Context, txnID int64, flags model.Flags) (model.Transaction, error) {
	txn, err := s.store.GetTransaction(ctx, txnID)
	if err != nil {
		return model.Transaction{}, err
	}
	txn.Recurrence = flags.Recurrence
	txn.Vital = flags.Vital
	txn.Savings = flags.Savings
	if err := s.store.UpdateTransaction(ctx, txn); err != nil {
		return model.Transaction{}, fmt.Errorf("flagging transaction %d: %w", txnID, err)
	}
	return s.store.GetTransaction(ctx, txnID)
}

// Transactions lists the transactions matching f in date order.
func (s *Service) Transactions(ctx context.Context, f model.Filter) ([]model.Transaction, error) {
	if f.Empty() {
		return nil, nil
	}
	return s.store.ListTransactions(ctx, f)
}

// ClearTransactions deletes every transaction. Categories and rules stay.
func (s *Service) ClearTransactions(ctx context.Context) (int, error) {
	n, err := s.store.ClearTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("clearing transactions: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Warn().Int("deleted", n).Msg("transactions cleared")
	return n, nil
}

// Statistics returns the totals of the transactions matching f.
func (s *Service) Statistics(ctx context.Context, f model.Filter) (stats.Totals, error) {
	return s.stats.Totals(ctx, f)
}

// ByCategory returns the per-category sums of the transactions matching f.
func (s *Service) ByCategory(ctx context.Context, f model.Filter, includeIncome bool) ([]stats.CategoryTotal, error) {
	return s.stats.ByCategory(ctx, f, includeIncome)
}

// MonthlyBreakdown returns the expenses per month and category.
func (s *Service) MonthlyBreakdown(ctx context.Context, f model.Filter, year, month int) ([]stats.MonthTotals, error) {
	return s.stats.MonthlyBreakdown(ctx, f, year, month)
}

// DailyTrend returns the net amount of each day.
func (s *Service) DailyTrend(ctx context.Context, f model.Filter) ([]stats.DayTotal, error) {
	return s.stats.DailyTrend(ctx, f)
}
