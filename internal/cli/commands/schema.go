package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dumpconv/internal/cli/output"
	"github.com/leapstack-labs/dumpconv/pkg/schema"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	var columns bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the target table definition",
		Long: `Print the CREATE TABLE statement of the active table schema: the built-in
schema for --table, or the YAML file given with --schema.

With --columns the columns are listed as a table instead, including the
transform applied to each field.`,
		Example: `  # Print the CREATE TABLE for the default table
  dumpconv schema

  # List the columns of a custom schema
  dumpconv schema --schema students.yaml --columns`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchema(cmd, columns)
		},
	}

	cmd.Flags().BoolVar(&columns, "columns", false, "List columns instead of printing CREATE TABLE")
	return cmd
}

func runSchema(cmd *cobra.Command, columns bool) error {
	cc := NewCommandContextWithoutJournal(cmd)
	r := cc.Renderer

	tbl, err := schema.Resolve(cc.Cfg.Table, cc.Cfg.Schema)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(tbl)
	}

	if !columns {
		r.Println(tbl.CreateTableSQL())
		return nil
	}

	r.Header(1, tbl.Name)
	rows := make([][]any, len(tbl.Columns))
	for i, c := range tbl.Columns {
		flags := ""
		switch {
		case c.PrimaryKey:
			flags = "primary key"
		case c.NotNull:
			flags = "not null"
		}
		rows[i] = []any{i + 1, c.Name, c.Type, flags, c.Default, string(c.Transform)}
	}
	r.Table([]string{"#", "Column", "Type", "Constraint", "Default", "Transform"}, rows)
	return nil
}
