package dump

import (
	"errors"
	"strings"
)

// Row is one parenthesized tuple of a statement body.
type Row struct {
	Statement int      // 1-based statement index
	Number    int      // 1-based position within the statement
	Raw       string   // text between the tuple's outer parentheses
	Fields    []string // top-level field literals, trimmed
	Malformed bool     // set when the field count does not fit the schema
	Converted int      // number of fields rewritten by a transform
}

// SplitRows splits a statement body into rows.
func SplitRows(stmt Statement) ([]Row, error) {
	tuples, err := splitTuples(stmt.Body)
	if err != nil {
		var se *SyntaxError
		if errors.As(err, &se) {
			se.Statement = stmt.Index
		}
		return nil, err
	}

	rows := make([]Row, 0, len(tuples))
	for i, t := range tuples {
		rows = append(rows, Row{
			Statement: stmt.Index,
			Number:    i + 1,
			Raw:       t,
			Fields:    splitFields(t),
		})
	}
	return rows, nil
}

// String renders the row as a tuple. Well-formed rows are rebuilt from their
// fields; malformed rows keep their original text.
func (r Row) String() string {
	if r.Malformed || len(r.Fields) == 0 {
		return "(" + r.Raw + ")"
	}
	return "(" + strings.Join(r.Fields, ", ") + ")"
}

// CountRows reports how many statements and rows doc holds for table
// without transforming them.
func CountRows(doc *Document, table string) (statements, rows int, err error) {
	stmts, err := ExtractStatements(doc, table)
	if err != nil {
		return len(stmts), 0, err
	}
	for _, stmt := range stmts {
		tuples, err := SplitRows(stmt)
		if err != nil {
			return len(stmts), rows, err
		}
		rows += len(tuples)
	}
	return len(stmts), rows, nil
}
