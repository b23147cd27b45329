package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/releve/internal/period"
	"github.com/cleared-dev/releve/internal/stats"
)

func newReportCommand(opts *rootOptions) *cobra.Command {
	var filter filterFlags
	var monthly, daily, income bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print totals and breakdowns for the selected transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			year, month, err := filter.monthOf()
			if err != nil {
				return err
			}

			p, ctx, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			f, err := filter.build(ctx, p.ledger.Categories())
			if err != nil {
				return err
			}
			r, err := p.ledger.Stats().Report(ctx, f)
			if err != nil {
				return err
			}

			out := newPrinter(cmd.OutOrStdout())
			w := cmd.OutOrStdout()

			out.heading("Totals")
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "Transactions\t%d\n", r.Totals.Count)
			fmt.Fprintf(tw, "Income\t%s\n", r.Totals.Income.StringFixed(2))
			fmt.Fprintf(tw, "Expenses\t%s\n", r.Totals.Expense.StringFixed(2))
			fmt.Fprintf(tw, "Net\t%s\n", r.Totals.Net.StringFixed(2))
			fmt.Fprintf(tw, "Average\t%s\n", r.Totals.Average.StringFixed(2))
			fmt.Fprintf(tw, "Largest income\t%s\n", r.Totals.LargestIncome.StringFixed(2))
			fmt.Fprintf(tw, "Largest expense\t%s\n", r.Totals.LargestExpense.StringFixed(2))
			if err := tw.Flush(); err != nil {
				return err
			}

			byCategory := r.ByCategory
			if income {
				if byCategory, err = p.ledger.ByCategory(ctx, f, true); err != nil {
					return err
				}
			}
			out.heading("By category")
			if err := printCategories(w, byCategory); err != nil {
				return err
			}

			out.heading("Expense splits")
			tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "\tFLAGGED\tOTHER")
			fmt.Fprintf(tw, "Recurring\t%s\t%s\n", r.Recurrence.Flagged.StringFixed(2), r.Recurrence.Unflagged.StringFixed(2))
			fmt.Fprintf(tw, "Vital\t%s\t%s\n", r.Vital.Flagged.StringFixed(2), r.Vital.Unflagged.StringFixed(2))
			fmt.Fprintf(tw, "From savings\t%s\t%s\n", r.Savings.Flagged.StringFixed(2), r.Savings.Unflagged.StringFixed(2))
			if err := tw.Flush(); err != nil {
				return err
			}

			if monthly {
				for _, m := range r.Monthly {
					out.heading(fmt.Sprintf("%s: %s", m.Month, m.Expense.StringFixed(2)))
					if err := printCategories(w, m.Categories); err != nil {
						return err
					}
				}
			}

			if daily {
				out.heading("Daily net")
				tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				for _, d := range r.Daily {
					fmt.Fprintf(tw, "%s\t%s\n", period.FormatDate(d.Date), d.Net.StringFixed(2))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}

			if year != 0 {
				lines, err := p.ledger.Stats().BudgetStatus(ctx, year, month)
				if err != nil {
					return err
				}
				if len(lines) > 0 {
					out.heading("Budgets")
					return printBudgets(cmd, lines)
				}
			}
			return nil
		},
	}

	filter.register(cmd)
	cmd.Flags().BoolVar(&monthly, "monthly", false, "add the per-month breakdown")
	cmd.Flags().BoolVar(&daily, "daily", false, "add the per-day net amounts")
	cmd.Flags().BoolVar(&income, "income", false, "include income in the category breakdown")

	return cmd
}

func printCategories(w io.Writer, totals []stats.CategoryTotal) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range totals {
		fmt.Fprintf(tw, "%s\t%s\n", c.Path, c.Amount.StringFixed(2))
	}
	return tw.Flush()
}

func printBudgets(cmd *cobra.Command, lines []stats.BudgetLine) error {
	out := newPrinter(cmd.OutOrStdout())
	if len(lines) == 0 {
		out.info("No active budget.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tLIMIT\tSPENT\tREMAINING")
	for _, l := range lines {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", l.Budget.ID, l.Path, l.Budget.Limit.StringFixed(2), l.Spent.StringFixed(2), l.Remaining.StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, l := range lines {
		if l.Over {
			out.warning("%s is over budget by %s", l.Path, l.Remaining.Neg().StringFixed(2))
		}
	}
	return nil
}
