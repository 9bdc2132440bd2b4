package dump

import (
	"strings"

	"github.com/leapstack-labs/dumpconv/pkg/schema"
)

const scriptPreamble = `-- PostgreSQL compatible SQL
-- Converted from MySQL dump

-- Create table
`

// RowSeparator joins rendered tuples in the INSERT statement.
const RowSeparator = ",\n"

// Render assembles the output script: the table definition followed by a
// single INSERT carrying every row. With no rows only the definition is
// emitted, since an INSERT without tuples is not valid SQL.
func Render(table *schema.Table, rows []Row) string {
	var b strings.Builder
	b.WriteString(scriptPreamble)
	b.WriteString(table.CreateTableSQL())
	b.WriteString("\n")

	if len(rows) == 0 {
		return b.String()
	}

	b.WriteString("\n-- Insert data\n")
	b.WriteString("INSERT INTO ")
	b.WriteString(table.Name)
	b.WriteString(" (")
	b.WriteString(table.ColumnList())
	b.WriteString(") VALUES\n")
	for i, r := range rows {
		if i > 0 {
			b.WriteString(RowSeparator)
		}
		b.WriteString(r.String())
	}
	b.WriteString(";")
	return b.String()
}
