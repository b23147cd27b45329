package commands

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/releve/internal/model"
	"github.com/cleared-dev/releve/internal/period"
)

func newBudgetCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage monthly spending limits",
	}
	cmd.AddCommand(newBudgetSetCommand(opts), newBudgetStatusCommand(opts), newBudgetDeleteCommand(opts))
	return cmd
}

func newBudgetSetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <category> <monthly-limit>",
		Short: "Add a monthly limit to a category and its subcategories",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid limit %q: %w", args[1], err)
			}

			p, ctx, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			cat, err := p.ledger.Categories().Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			b, err := p.store.CreateBudget(ctx, model.Budget{
				CategoryID: cat.ID,
				Limit:      limit,
				Period:     model.PeriodMonthly,
				Active:     true,
			})
			if err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).success("Budget #%d: %s per month for %s", b.ID, b.Limit.StringFixed(2), cat.Name)
			return nil
		},
	}
}

func newBudgetStatusCommand(opts *rootOptions) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Compare spending with the budgets for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if month == "" {
				month = period.MonthOf(time.Now())
			}
			year, mon, err := period.ParseMonth(month)
			if err != nil {
				return err
			}

			p, ctx, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			lines, err := p.ledger.Stats().BudgetStatus(ctx, year, mon)
			if err != nil {
				return err
			}
			return printBudgets(cmd, lines)
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "calendar month, YYYY-MM (default current)")
	return cmd
}

func newBudgetDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <budget-id>",
		Short: "Delete a budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "budget")
			if err != nil {
				return err
			}

			p, ctx, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			if err := p.store.DeleteBudget(ctx, id); err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).success("Deleted budget #%d", id)
			return nil
		},
	}
}
