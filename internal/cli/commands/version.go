package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display dumpconv version and build information.`,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "dumpconv v%s\n", version)
			_, _ = fmt.Fprintf(out, "MySQL dump to PostgreSQL converter (%s)\n", runtime.Version())
			_, _ = fmt.Fprintf(out, "commit %s, built %s\n", commit, buildDate)
		},
	}
}
