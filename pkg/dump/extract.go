package dump

import (
	"regexp"
	"strings"
)

// Statement is the VALUES body of one INSERT statement.
type Statement struct {
	Index   int      // 1-based position among the matched statements
	Offset  int      // byte offset of INSERT in the document
	Columns []string // explicit column list, empty when omitted
	Body    string   // text between VALUES and the terminating ';'
}

// insertHeader matches the literal markers of an INSERT for one table. The
// table may be bare, backticked or double quoted; markers are case sensitive.
func insertHeader(table string) *regexp.Regexp {
	name := regexp.QuoteMeta(table)
	return regexp.MustCompile(`INSERT INTO\s+(?:` + "`" + name + "`" + `|"` + name + `"|` + name + `)` +
		`(?:\s*\(([^)]*)\))?\s*VALUES\s*`)
}

// ExtractStatements locates every INSERT INTO table ... VALUES ...; in doc.
// A statement ends at the first semicolon outside a quoted literal. Finding
// nothing is not an error here; callers decide how to report it.
func ExtractStatements(doc *Document, table string) ([]Statement, error) {
	re := insertHeader(table)
	text := doc.Text

	var stmts []Statement
	pos := 0
	for pos < len(text) {
		loc := re.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}

		bodyStart := pos + loc[1]
		end, ok := findStatementEnd(text, bodyStart)
		if !ok {
			return stmts, &SyntaxError{
				Statement: len(stmts) + 1,
				Offset:    pos + loc[0],
				Msg:       "INSERT statement is not terminated by ';'",
			}
		}

		stmt := Statement{
			Index:  len(stmts) + 1,
			Offset: pos + loc[0],
			Body:   strings.TrimSpace(text[bodyStart:end]),
		}
		if loc[2] >= 0 {
			stmt.Columns = parseColumnList(text[pos+loc[2] : pos+loc[3]])
		}
		stmts = append(stmts, stmt)
		pos = end + 1
	}

	return stmts, nil
}

func parseColumnList(s string) []string {
	var cols []string
	for _, c := range strings.Split(s, ",") {
		name := strings.Trim(strings.TrimSpace(c), "`\"")
		if name != "" {
			cols = append(cols, name)
		}
	}
	return cols
}
