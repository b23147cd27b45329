package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/releve/internal/categories"
	"github.com/cleared-dev/releve/internal/config"
	"github.com/cleared-dev/releve/internal/gitops"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	var useGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new releve project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.dir = args[0]
			}
			return runInit(cmd, opts, useGit)
		},
	}

	cmd.Flags().BoolVar(&useGit, "git", false, "version the configuration and import log with git")

	return cmd
}

func runInit(cmd *cobra.Command, opts *rootOptions, useGit bool) error {
	dir, err := filepath.Abs(opts.dir)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	// Create directory structure.
	dirs := []string{
		"data",
		"logs",
		"exports",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	// Write releve.yaml unless the project already has one.
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); errors.Is(err, fs.ErrNotExist) {
		if err := config.Save(cfgPath, config.Default()); err != nil {
			return err
		}
	} else if err != nil {
		return fmt.Errorf("checking config: %w", err)
	}

	// Keep personal data out of version control.
	gitignore := "data/\nexports/\nimport/\n.env\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	// Opening the project creates the database and seeds the defaults.
	p, ctx, err := openProject(cmd, opts)
	if err != nil {
		return err
	}
	defer p.Close()

	cats, err := p.ledger.Categories().List(ctx, categories.DepthFirst)
	if err != nil {
		return err
	}
	rules, err := p.ledger.Rules().List(ctx)
	if err != nil {
		return err
	}

	out := newPrinter(cmd.OutOrStdout())
	out.success("Initialized releve project at %s (%d categories, %d rules)", dir, len(cats), len(rules))

	if useGit {
		repo, ok := gitops.Open(dir, p.cfg.Git.AuthorName, p.cfg.Git.AuthorEmail)
		if !ok {
			if repo, err = gitops.Init(ctx, dir, p.cfg.Git.AuthorName, p.cfg.Git.AuthorEmail); err != nil {
				return err
			}
		}
		hash, err := repo.Commit(ctx, "init: releve project", config.FileName, ".gitignore")
		if err != nil {
			return fmt.Errorf("initial commit: %w", err)
		}
		if hash != "" {
			out.info("Committed project files (%s)", hash)
		}
	}
	return nil
}
