package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dumpconv/internal/cli/output"
	"github.com/leapstack-labs/dumpconv/internal/journal"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded conversions",
		Long: `List the conversions recorded in the run journal, newest first.

Every convert run is recorded unless --no-journal is set.`,
		Example: `  # Show the last 20 runs
  dumpconv history

  # Show every run as JSON
  dumpconv history --limit 0 --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 = all)")
	return cmd
}

func runHistory(cmd *cobra.Command, limit int) error {
	cc, cleanup := NewCommandContext(cmd)
	defer cleanup()
	r := cc.Renderer

	if !cc.JournalEnabled() {
		return fmt.Errorf("run journal is disabled\nHint: unset no_journal in dumpconv.yaml or drop --no-journal")
	}

	var runs []*journal.Run
	if j := cc.Journal(commandContext(cmd), false); j != nil {
		var err error
		if runs, err = j.List(commandContext(cmd), limit); err != nil {
			return err
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		if runs == nil {
			runs = []*journal.Run{}
		}
		return r.JSON(runs)
	}

	r.Header(1, "Conversion history")
	if len(runs) == 0 {
		r.Muted("No runs recorded in " + cc.Cfg.JournalPath)
		return nil
	}

	rows := make([][]any, len(runs))
	for i, run := range runs {
		status := string(run.Status)
		if run.DryRun {
			status += " (dry run)"
		}
		rows[i] = []any{
			shortID(run.ID),
			run.Job,
			run.Table,
			status,
			run.Statements,
			run.Rows,
			run.StartedAt.Local().Format(time.DateTime),
			run.Duration().Round(time.Millisecond).String(),
		}
	}
	r.Table([]string{"ID", "Job", "Table", "Status", "Statements", "Rows", "Started", "Duration"}, rows)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
