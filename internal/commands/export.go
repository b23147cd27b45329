package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/releve/internal/export"
)

func newExportCommand(opts *rootOptions) *cobra.Command {
	var filter filterFlags
	var output string

	cmd := &cobra.Command{
		Use:       "export <transactions|categories>",
		Short:     "Write transactions or categories as CSV",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"transactions", "categories"},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ctx, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			forest, err := p.ledger.Categories().Forest(ctx)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			switch args[0] {
			case "categories":
				err = export.WriteCategories(w, forest)
			default:
				f, ferr := filter.build(ctx, p.ledger.Categories())
				if ferr != nil {
					return ferr
				}
				txns, lerr := p.ledger.Transactions(ctx, f)
				if lerr != nil {
					return lerr
				}
				err = export.WriteTransactions(w, txns, forest)
			}
			if err != nil {
				return err
			}

			if output != "" {
				newPrinter(cmd.ErrOrStderr()).success("Wrote %s", output)
			}
			return nil
		},
	}

	filter.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write instead of stdout")

	return cmd
}
