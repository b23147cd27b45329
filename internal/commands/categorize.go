package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/releve/internal/model"
)

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

func newCategorizeCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Apply the keyword rules to uncategorized transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ctx, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			n, err := p.ledger.AutoCategorizeAll(ctx)
			if err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).success("%d transactions categorized", n)
			return nil
		},
	}

	cmd.AddCommand(newCategorizeSetCommand(opts), newCategorizeClearCommand(opts))
	return cmd
}

func newCategorizeSetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <transaction-id> <category>",
		Short: "Assign a category by hand; rules never override it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			txnID, err := parseID(args[0], "transaction")
			if err != nil {
				return err
			}

			p, ctx, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			cat, err := p.ledger.Categories().Resolve(ctx, args[1])
			if err != nil {
				return err
			}
			if err := p.ledger.CategorizeManual(ctx, txnID, cat.ID); err != nil {
				return err
			}
			path, err := p.ledger.Categories().Path(ctx, cat.ID)
			if err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).success("Transaction #%d -> %s", txnID, path)
			return nil
		},
	}
}

func newCategorizeClearCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <transaction-id>",
		Short: "Remove the category of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txnID, err := parseID(args[0], "transaction")
			if err != nil {
				return err
			}

			p, ctx, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			if err := p.ledger.Rules().Uncategorize(ctx, txnID); err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).success("Transaction #%d is uncategorized", txnID)
			return nil
		},
	}
}

func newFlagCommand(opts *rootOptions) *cobra.Command {
	var flags model.Flags

	cmd := &cobra.Command{
		Use:   "flag <transaction-id>",
		Short: "Set the recurrence, vital and savings tags of a transaction",
		Long:  "Set the tags of a transaction. Tags not given are cleared.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txnID, err := parseID(args[0], "transaction")
			if err != nil {
				return err
			}

			p, ctx, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			txn, err := p.ledger.SetFlags(ctx, txnID, flags)
			if err != nil {
				return err
			}
			f := txn.Flags()
			newPrinter(cmd.OutOrStdout()).success("Transaction #%d: recurrence=%t vital=%t savings=%t", txn.ID, f.Recurrence, f.Vital, f.Savings)
			return nil
		},
	}

	cmd.Flags().BoolVar(&flags.Recurrence, "recurrence", false, "recurring payment")
	cmd.Flags().BoolVar(&flags.Vital, "vital", false, "essential expense")
	cmd.Flags().BoolVar(&flags.Savings, "savings", false, "paid from savings")

	return cmd
}
