package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/releve/internal/gitops"
	"github.com/cleared-dev/releve/internal/importer"
	"github.com/cleared-dev/releve/internal/importlog"
)

func newImportCommand(opts *rootOptions) *cobra.Command {
	var profile string
	var categorize bool

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import bank statement CSV files",
		Long: "Import the given files, or every CSV waiting in import/ when none is given.\n" +
			"Files taken from import/ are moved to import/processed/ once imported.",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ctx, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			reg, err := p.cfg.Registry()
			if err != nil {
				return err
			}
			cfg, ok := reg.Get(profile)
			if !ok {
				return fmt.Errorf("unknown import profile %q (known: %s)", profile, strings.Join(reg.Names(), ", "))
			}

			out := newPrinter(cmd.OutOrStdout())
			paths := args
			fromInbox := len(args) == 0
			if fromInbox {
				files, err := importer.Scan(p.root)
				if err != nil {
					return err
				}
				for _, f := range files {
					paths = append(paths, f.Path)
				}
				if len(paths) == 0 {
					out.info("No files to import in %s", filepath.Join(p.root, "import"))
					return nil
				}
			}

			var names []string
			inserted := 0
			for _, path := range paths {
				name := filepath.Base(path)
				res, err := p.ledger.ImportPath(ctx, path, cfg)
				if err != nil {
					return fmt.Errorf("importing %s: %w", name, err)
				}
				names = append(names, name)
				inserted += len(res.Inserted)
				out.success("%s: %d imported, %d duplicates (%s)", name, len(res.Inserted), res.Duplicates, res.Encoding)
				for _, w := range res.Warnings {
					out.warning("%s", w)
				}
				if fromInbox {
					if err := importer.MarkProcessed(p.root, name); err != nil {
						return err
					}
				}
			}

			if p.cfg.Git.AutoCommit {
				if repo, ok := gitops.Open(p.root, p.cfg.Git.AuthorName, p.cfg.Git.AuthorEmail); ok {
					logPath, err := filepath.Rel(p.root, importlog.Path(p.root))
					if err != nil {
						return err
					}
					msg := fmt.Sprintf("import: %s (+%d)", strings.Join(names, ", "), inserted)
					hash, err := repo.Commit(ctx, msg, logPath)
					if err != nil {
						return fmt.Errorf("committing import log: %w", err)
					}
					if hash != "" {
						out.info("Committed import log (%s)", hash)
					}
				}
			}

			if categorize {
				n, err := p.ledger.AutoCategorizeAll(ctx)
				if err != nil {
					return err
				}
				out.info("%d transactions categorized", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&profile, "profile", "p", importer.DefaultProfile, "import profile from releve.yaml")
	cmd.Flags().BoolVar(&categorize, "categorize", false, "apply the rules after importing")

	return cmd
}
