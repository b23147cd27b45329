package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/releve/internal/categories"
	"github.com/cleared-dev/releve/internal/model"
)

func newCategoryCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage the category tree",
		Long: "Manage the category tree. Categories are referenced by id (#12), by path\n" +
			"(\"Logement > Charges\") or by name when the name is unique.",
	}
	cmd.AddCommand(
		newCategoryListCommand(opts),
		newCategoryAddCommand(opts),
		newCategoryMoveCommand(opts),
		newCategoryRenameCommand(opts),
		newCategoryDeleteCommand(opts),
	)
	return cmd
}

func newCategoryListCommand(opts *rootOptions) *cobra.Command {
	var breadthFirst bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the category tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ctx, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			order := categories.DepthFirst
			if breadthFirst {
				order = categories.BreadthFirst
			}
			nodes, err := p.ledger.Categories().List(ctx, order)
			if err != nil {
				return err
			}

			out := newPrinter(cmd.OutOrStdout())
			for _, n := range nodes {
				if breadthFirst {
					out.info("#%-4d %s", n.ID, n.Path)
					continue
				}
				label := n.Name
				if n.IsRoot() {
					label += " [" + string(n.Kind) + "]"
				}
				out.info("#%-4d %s%s", n.ID, strings.Repeat("  ", n.Depth), label)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&breadthFirst, "bfs", false, "breadth-first order, one path per line")
	return cmd
}

func newCategoryAddCommand(opts *rootOptions) *cobra.Command {
	var parent, kind, description, color string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ctx, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			mgr := p.ledger.Categories()
			params := categories.CreateParams{
				Name:        args[0],
				Kind:        model.CategoryKind(kind),
				Description: description,
				Color:       color,
			}
			if parent != "" {
				pc, err := mgr.Resolve(ctx, parent)
				if err != nil {
					return err
				}
				params.ParentID = pc.ID
			}

			c, err := mgr.Create(ctx, params)
			if err != nil {
				return err
			}
			path, err := mgr.Path(ctx, c.ID)
			if err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).success("Created #%d %s", c.ID, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "parent category")
	cmd.Flags().StringVar(&kind, "kind", "", "expense or income, for root categories")
	cmd.Flags().StringVar(&description, "description", "", "free-text description")
	cmd.Flags().StringVar(&color, "color", "", "display color, e.g. #4caf50")

	return cmd
}

func newCategoryMoveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move <category> <new-parent|root>",
		Short: "Move a category under another one, or make it a root",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ctx, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			mgr := p.ledger.Categories()
			c, err := mgr.Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			var parentID int64
			if !strings.EqualFold(args[1], "root") {
				parent, err := mgr.Resolve(ctx, args[1])
				if err != nil {
					return err
				}
				parentID = parent.ID
			}

			if _, err := mgr.Move(ctx, c.ID, parentID); err != nil {
				return err
			}
			path, err := mgr.Path(ctx, c.ID)
			if err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).success("Moved #%d to %s", c.ID, path)
			return nil
		},
	}
}

func newCategoryRenameCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <category> <new-name>",
		Short: "Rename a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ctx, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			mgr := p.ledger.Categories()
			c, err := mgr.Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			if _, err := mgr.Update(ctx, c.ID, args[1], c.Description, c.Color); err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).success("Renamed #%d to %s", c.ID, strings.TrimSpace(args[1]))
			return nil
		},
	}
}

func newCategoryDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <category>",
		Short: "Delete an unused leaf category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ctx, err := openProject(cmd, opts)
			if err != nil {
				return err
			}
			defer p.Close()

			mgr := p.ledger.Categories()
			c, err := mgr.Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			if err := mgr.Delete(ctx, c.ID); err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).success("Deleted #%d %s", c.ID, c.Name)
			return nil
		},
	}
}
