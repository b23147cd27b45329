package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/releve/internal/buildinfo"
)

type rootOptions struct {
	dir string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "releve",
		Short:   "Personal bank statement ledger",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.dir, "dir", "C", ".", "project directory")

	rootCmd.AddCommand(
		newInitCommand(opts),
		newImportCommand(opts),
		newListCommand(opts),
		newCategorizeCommand(opts),
		newFlagCommand(opts),
		newCategoryCommand(opts),
		newRuleCommand(opts),
		newBudgetCommand(opts),
		newReportCommand(opts),
		newExportCommand(opts),
		newHistoryCommand(opts),
		newClearCommand(opts),
	)

	return rootCmd
}
