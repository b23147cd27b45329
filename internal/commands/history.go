package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show past imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			entries, err := p.ledger.History()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				newPrinter(cmd.OutOrStdout()).info("No imports yet.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tFILE\tROWS\tIMPORTED\tDUPLICATES\tWARNINGS")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n",
					e.Timestamp.Local().Format(time.DateTime), e.File, e.Rows, e.Inserted, e.Duplicates, e.Warnings)
			}
			return tw.Flush()
		},
	}
}

func newClearCommand(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every transaction, keeping categories, rules and budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete transactions without --yes")
			}

			p, ctx, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			n, err := p.ledger.ClearTransactions(ctx)
			if err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).success("Deleted %d transactions", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
