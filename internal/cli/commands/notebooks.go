package commands

import (
	"github.com/spf13/cobra"
)

// NewNotebooksCommand creates the notebooks command.
func NewNotebooksCommand() *cobra.Command {
	opts := &BuildOptions{NotebooksOnly: true}

	cmd := &cobra.Command{
		Use:   "notebooks",
		Short: "Project compiled models into runnable notebooks",
		Long: `Transform compiled models and project each stored-procedure
artifact into a notebook, without writing SQL artifacts.

Spark platforms (databricks, fabric) get %%sql magic cells; warehouse
platforms get plain SQL cells.`,
		Example: `  # Notebooks for the configured platform
  snowball notebooks

  # Databricks notebooks with 4 workers
  snowball notebooks --platform databricks --workers 4`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Watch for changes and rebuild")

	return cmd
}
