package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/releve/internal/period"
)

func newListCommand(opts *rootOptions) *cobra.Command {
	var filter filterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ctx, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			f, err := filter.build(ctx, p.ledger.Categories())
			if err != nil {
				return err
			}
			txns, err := p.ledger.Transactions(ctx, f)
			if err != nil {
				return err
			}
			forest, err := p.ledger.Categories().Forest(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tAMOUNT\tNAME\tCATEGORY")
			for _, t := range txns {
				name := t.Name
				if name == "" {
					name = t.Description
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", t.ID, period.FormatDate(t.Date), t.Amount.StringFixed(2), name, forest.Path(t.CategoryID))
			}
			return tw.Flush()
		},
	}

	filter.register(cmd)
	return cmd
}
