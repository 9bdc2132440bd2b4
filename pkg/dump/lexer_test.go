package dump

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dumpconv/pkg/schema"
)

func TestSplitTuples(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []string
		wantErr string
	}{
		{
			name: "single tuple",
			body: "(1,'a')",
			want: []string{"1,'a'"},
		},
		{
			name: "mysqldump layout",
			body: "(1,'a'),\n(2,'b'),\n(3,'c')",
			want: []string{"1,'a'", "2,'b'", "3,'c'"},
		},
		{
			name: "compact layout",
			body: "(1,'a'),(2,'b')",
			want: []string{"1,'a'", "2,'b'"},
		},
		{
			name: "separator inside literal",
			body: "(1,'x),\n(y'),(2,'z')",
			want: []string{"1,'x),\n(y'", "2,'z'"},
		},
		{
			name: "nested function call",
			body: "(1,CONCAT('a','b')),(2,NOW())",
			want: []string{"1,CONCAT('a','b')", "2,NOW()"},
		},
		{
			name: "escaped quotes",
			body: `(1,'it''s'),(2,'back\'slash'),(3,"dq""x")`,
			want: []string{`1,'it''s'`, `2,'back\'slash'`, `3,"dq""x"`},
		},
		{
			name: "empty body",
			body: "",
			want: nil,
		},
		{
			name:    "unbalanced",
			body:    "(1,'a'),(2,'b'",
			wantErr: "unbalanced parentheses",
		},
		{
			name:    "unterminated literal",
			body:    "(1,'a)",
			wantErr: "unterminated quoted literal",
		},
		{
			name:    "garbage between rows",
			body:    "(1) x (2)",
			wantErr: "between rows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitTuples(tt.body)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitFields(t *testing.T) {
	tests := []struct {
		tuple string
		want  []string
	}{
		{"1,'a',NULL", []string{"1", "'a'", "NULL"}},
		{" 1 , 'a b' ", []string{"1", "'a b'"}},
		{"'a,b',2", []string{"'a,b'", "2"}},
		{"CONCAT('a',',','b'),3", []string{"CONCAT('a',',','b')", "3"}},
		{"'it''s, ok',0", []string{"'it''s, ok'", "0"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.tuple, func(t *testing.T) {
			assert.Equal(t, tt.want, splitFields(tt.tuple))
		})
	}
}

func TestFindStatementEnd(t *testing.T) {
	s := "(1,'a;b'),(2,\"c;d\");(3)"
	end, ok := findStatementEnd(s, 0)
	require.True(t, ok)
	assert.Equal(t, ';', rune(s[end]))
	assert.Equal(t, "(1,'a;b'),(2,\"c;d\")", s[:end])

	_, ok = findStatementEnd("(1,'a;b')", 0)
	assert.False(t, ok)

	s = "(1) /* ; */ /*!40000 SELECT 1; */ -- ;\n,(2);"
	end, ok = findStatementEnd(s, 0)
	require.True(t, ok)
	assert.Equal(t, len(s)-1, end)
}

func TestExtractStatements(t *testing.T) {
	doc := &Document{Text: "-- MySQL dump\n" +
		"CREATE TABLE `firstyear` (`sex` varchar(10));\n" +
		"INSERT INTO `firstyear` (`sex`, `s_no`) VALUES (1,'a'),\n(2,'b');\n" +
		"INSERT INTO `firstyear_archive` VALUES (9,'z');\n" +
		"insert into firstyear values (8,'lower');\n" +
		"INSERT INTO firstyear VALUES (3,'INSERT INTO firstyear VALUES (4);');\n" +
		"INSERT INTO \"firstyear\" VALUES (5,'e');\n",
	}

	stmts, err := ExtractStatements(doc, "firstyear")
	require.NoError(t, err)
	require.Len(t, stmts, 3)

	assert.Equal(t, 1, stmts[0].Index)
	assert.Equal(t, []string{"sex", "s_no"}, stmts[0].Columns)
	assert.Equal(t, "(1,'a'),\n(2,'b')", stmts[0].Body)

	assert.Empty(t, stmts[1].Columns)
	assert.Equal(t, "(3,'INSERT INTO firstyear VALUES (4);')", stmts[1].Body)

	assert.Equal(t, 3, stmts[2].Index)
	assert.Equal(t, "(5,'e')", stmts[2].Body)
}

func TestExtractStatements_Unterminated(t *testing.T) {
	doc := &Document{Text: "INSERT INTO firstyear VALUES (1,'a');\nINSERT INTO firstyear VALUES (2,'b')"}

	stmts, err := ExtractStatements(doc, "firstyear")
	require.Error(t, err)
	assert.Len(t, stmts, 1)

	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.Statement)
}

func TestSplitRows(t *testing.T) {
	rows, err := SplitRows(Statement{Index: 2, Body: "(1,'a'),\n(2,'b')"})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[1].Statement)
	assert.Equal(t, 2, rows[1].Number)
	assert.Equal(t, "2,'b'", rows[1].Raw)
	assert.Equal(t, []string{"2", "'b'"}, rows[1].Fields)

	_, err = SplitRows(Statement{Index: 4, Body: "(1,'a'"})
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 4, se.Statement)
}

func TestTransformRow(t *testing.T) {
	tbl := &schema.Table{Name: "t", Columns: []schema.Column{
		{Name: "id", Type: "INT"},
		{Name: "active", Type: "BOOLEAN", Transform: schema.TransformBool},
		{Name: "name", Type: "TEXT"},
	}}
	tr := NewTransformer(tbl, PolicyPass, nil)

	row := Row{Statement: 1, Number: 1, Raw: "1,1,'x'", Fields: []string{"1", "1", "'x'"}}
	got, err := tr.TransformRow(row)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "TRUE", "'x'"}, got.Fields)
	assert.Equal(t, 1, got.Converted)
	assert.Equal(t, "(1, TRUE, 'x')", got.String())
	assert.Equal(t, []string{"1", "1", "'x'"}, row.Fields, "input row is not mutated")

	again, err := tr.TransformRow(got)
	require.NoError(t, err)
	assert.Equal(t, got.Fields, again.Fields, "transform is idempotent")
	assert.Equal(t, 0, again.Converted)

	short := Row{Raw: "1,0", Fields: []string{"1", "0"}}
	passed, err := tr.TransformRow(short)
	require.NoError(t, err)
	assert.True(t, passed.Malformed)
	assert.Equal(t, "(1,0)", passed.String())

	_, err = NewTransformer(tbl, PolicyStrict, nil).TransformRow(short)
	require.ErrorIs(t, err, ErrMalformedRow)
}

func TestTransformRow_MalformedWarning(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	// 17 fields: the flag lands third from last but the row is not converted.
	fields := splitFields("'M',1,'R1','E1','N1','F1','Mo1','CS','pw','A1','ap','pp','9999999999','a@b.com',0,'B','P1'")
	require.Len(t, fields, 17)

	got, err := NewTransformer(schema.FirstYear(), PolicyPass, logger).TransformRow(Row{Statement: 3, Number: 7, Fields: fields})
	require.NoError(t, err)
	assert.True(t, got.Malformed)
	assert.Equal(t, "0", got.Fields[14])

	assert.Contains(t, logs.String(), "statement=3 row=7 fields=17 expected=18")
	assert.Contains(t, logs.String(), "otp_verified (field 16 of 18)")
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"": PolicyPass, "pass": PolicyPass, "STRICT": PolicyStrict} {
		got, err := ParsePolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParsePolicy("lenient")
	require.Error(t, err)
}

func TestRender(t *testing.T) {
	tbl := schema.FirstYear()

	t.Run("rows", func(t *testing.T) {
		rows := []Row{
			{Fields: []string{"1", "'a'"}},
			{Raw: "broken", Malformed: true},
		}
		script := Render(tbl, rows)

		assert.Contains(t, script, tbl.CreateTableSQL())
		assert.Contains(t, script, "INSERT INTO firstyear ("+tbl.ColumnList()+") VALUES\n(1, 'a'),\n(broken);")
	})

	t.Run("no rows", func(t *testing.T) {
		script := Render(tbl, nil)
		assert.Contains(t, script, "CREATE TABLE IF NOT EXISTS firstyear")
		assert.NotContains(t, script, "INSERT INTO")
	})
}

func TestCountRows(t *testing.T) {
	script := Render(schema.FirstYear(), []Row{{Fields: []string{"1"}}, {Fields: []string{"2"}}, {Fields: []string{"3"}}})

	stmts, rows, err := CountRows(&Document{Text: script}, "firstyear")
	require.NoError(t, err)
	assert.Equal(t, 1, stmts)
	assert.Equal(t, 3, rows)

	stmts, rows, err = CountRows(&Document{Text: "-- empty"}, "firstyear")
	require.NoError(t, err)
	assert.Zero(t, stmts)
	assert.Zero(t, rows)
}
