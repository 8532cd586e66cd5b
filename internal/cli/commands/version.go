package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display pgcatalog version and build information.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "pgcatalog v%s\n", version)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Postgres catalog, query and completion client built with Go and pgx")
		},
	}
}
