package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRuleCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage keyword categorization rules",
	}
	cmd.AddCommand(newRuleListCommand(opts), newRuleAddCommand(opts), newRuleDeleteCommand(opts))
	return cmd
}

func newRuleListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules in matching order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ctx, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			rules, err := p.ledger.Rules().List(ctx)
			if err != nil {
				return err
			}
			forest, err := p.ledger.Categories().Forest(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKEYWORD\tCASE\tCATEGORY")
			for _, r := range rules {
				mode := "ignore"
				if r.CaseSensitive {
					mode = "exact"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.ID, r.Keyword, mode, forest.Path(r.CategoryID))
			}
			return tw.Flush()
		},
	}
}

func newRuleAddCommand(opts *rootOptions) *cobra.Command {
	var caseSensitive bool

	cmd := &cobra.Command{
		Use:   "add <keyword> <category>",
		Short: "Map a description keyword to a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ctx, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			cat, err := p.ledger.Categories().Resolve(ctx, args[1])
			if err != nil {
				return err
			}
			rule, warnings, err := p.ledger.Rules().Add(ctx, args[0], cat.ID, caseSensitive)
			if err != nil {
				return err
			}

			out := newPrinter(cmd.OutOrStdout())
			out.success("Created rule #%d: %q -> %s", rule.ID, rule.Keyword, cat.Name)
			for _, w := range warnings {
				out.warning("%s", w)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "match the keyword's exact case")
	return cmd
}

func newRuleDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "rule")
			if err != nil {
				return err
			}

			p, ctx, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			if err := p.ledger.Rules().Remove(ctx, id); err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).success("Deleted rule #%d", id)
			return nil
		},
	}
}
