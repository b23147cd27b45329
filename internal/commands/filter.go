package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/releve/internal/categories"
	"github.com/cleared-dev/releve/internal/model"
	"github.com/cleared-dev/releve/internal/period"
)

// filterFlags are the transaction selection flags shared by list, report
// and export.
type filterFlags struct {
	from          string
	to            string
	month         string
	category      string
	uncategorized bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.to, "to", "", "last date, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.month, "month", "", "calendar month, YYYY-MM")
	cmd.Flags().StringVar(&f.category, "category", "", "category id, path or name, subcategories included")
	cmd.Flags().BoolVar(&f.uncategorized, "uncategorized", false, "only transactions without a category")
	cmd.MarkFlagsMutuallyExclusive("month", "from")
	cmd.MarkFlagsMutuallyExclusive("month", "to")
	cmd.MarkFlagsMutuallyExclusive("category", "uncategorized")
}

func (f *filterFlags) build(ctx context.Context, cats *categories.Manager) (model.Filter, error) {
	var out model.Filter
	var err error

	if f.month != "" {
		year, month, err := period.ParseMonth(f.month)
		if err != nil {
			return out, err
		}
		out.From, out.To = period.MonthRange(year, month)
	}
	if f.from != "" {
		if out.From, err = period.ParseDate(f.from); err != nil {
			return out, err
		}
	}
	if f.to != "" {
		if out.To, err = period.ParseDate(f.to); err != nil {
			return out, err
		}
	}

	if f.category != "" {
		c, err := cats.Resolve(ctx, f.category)
		if err != nil {
			return out, err
		}
		forest, err := cats.Forest(ctx)
		if err != nil {
			return out, err
		}
		out.CategoryIDs = forest.Descendants(c.ID)
	}
	out.Uncategorized = f.uncategorized
	return out, nil
}

// monthOf returns the year and month selected with --month, or zeros.
func (f *filterFlags) monthOf() (int, int, error) {
	if f.month == "" {
		return 0, 0, nil
	}
	year, month, err := period.ParseMonth(f.month)
	if err != nil {
		return 0, 0, fmt.Errorf("--month: %w", err)
	}
	return year, month, nil
}
