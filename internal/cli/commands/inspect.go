package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dumpconv/internal/cli/output"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [input]",
		Short: "Report the INSERT statements and rows a dump holds",
		Long: `Scan a dump the way convert does and report what it found, without
writing anything: the number of INSERT statements for the table, the rows in
each statement, malformed rows and converted flag values.

Output adapts to environment:
  - Terminal: Styled, colored output
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # Inspect the configured dump
  dumpconv inspect

  # Inspect another table in a dump
  dumpconv inspect dump.sql --table students --schema students.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) > 0 {
				input = args[0]
			}
			return runInspect(cmd, input)
		},
	}
}

func runInspect(cmd *cobra.Command, input string) error {
	cc := NewCommandContextWithoutJournal(cmd)
	r := cc.Renderer

	job, err := buildJob(cc.Cfg, input, "")
	if err != nil {
		return err
	}

	_, res, err := cc.Converter.Analyze(commandContext(cmd), job)
	if err != nil {
		return reportConvertError(r, err)
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}

	r.Header(1, "Found INSERT statements")
	r.Println("")
	r.KeyValue("Input", res.Input)
	r.KeyValue("Table", res.Table)
	r.KeyValue("Statements", strconv.Itoa(res.Statements))
	r.KeyValue("Rows", strconv.Itoa(res.Rows))
	r.KeyValue("Malformed", strconv.Itoa(res.Malformed))
	r.KeyValue("Flags converted", strconv.Itoa(res.Converted))
	r.Println("")

	rows := make([][]any, len(res.StatementRows))
	for i, n := range res.StatementRows {
		rows[i] = []any{i + 1, n}
	}
	r.Table([]string{"Statement", "Rows"}, rows)

	if res.Malformed > 0 {
		r.Warning(fmt.Sprintf("%d rows do not have %d fields and would be passed through unchanged", res.Malformed, job.Table.Width()))
	}
	return nil
}
