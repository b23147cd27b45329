package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/releve/internal/config"
	"github.com/cleared-dev/releve/internal/ledger"
	"github.com/cleared-dev/releve/internal/logger"
	"github.com/cleared-dev/releve/internal/store/sqlite"
)

// project is an opened releve directory: its configuration, its database
// and the ledger over it.
type project struct {
	root   string
	cfg    *config.Config
	store  *sqlite.Store
	ledger *ledger.Service
}

// openProject loads the configuration under opts.dir, opens the database
// and seeds the default categories and rules on first use. The returned
// context carries the configured logger.
func openProject(cmd *cobra.Command, opts *rootOptions) (*project, context.Context, error) {
	root, err := filepath.Abs(opts.dir)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.LoadProject(root)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, fmt.Errorf("configuring logger: %w", err)
	}
	ctx := logger.WithContext(cmd.Context(), log)

	st, err := sqlite.Open(cfg.DatabasePath(root))
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	svc := ledger.NewService(st, ledger.WithImportLog(root))
	if _, _, err := svc.Seed(ctx); err != nil {
		st.Close()
		return nil, nil, err
	}

	return &project{root: root, cfg: cfg, store: st, ledger: svc}, ctx, nil
}

func (p *project) Close() error {
	return p.store.Close()
}
