package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dumpconv/internal/cli/config"
	"github.com/leapstack-labs/dumpconv/internal/cli/output"
	"github.com/leapstack-labs/dumpconv/internal/cli/testutil"
	"github.com/leapstack-labs/dumpconv/pkg/dump"
)

func studentRow(flag string) string {
	return "('M',1,'R1','E1','N1','F1','Mo1','CS','pw','A1','ap','pp','9999999999','a@b.com','spw'," + flag + ",'B','P1')"
}

const twoStatementDump = "-- MySQL dump 10.13\n" +
	"INSERT INTO `firstyear` (`sex`) VALUES\n" +
	"('M',1,'R1','E1','N1','F1','Mo1','CS','pw','A1','ap','pp','9999999999','a@b.com','spw',0,'B','P1'),\n" +
	"('F',2,'R2','E2','N2','F2','Mo2','CS','pw','A2','ap','pp','9999999999','c@d.com','spw',1,'A','P2');\n" +
	"INSERT INTO `firstyear` (`sex`) VALUES\n" +
	"('M',3,'R3','E3','N3','F3','Mo3','IT','pw','A3','ap','pp','9999999999','e@f.com','spw',1,'C','P3');\n"

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestNewConvertCommand(t *testing.T) {
	cmd := NewConvertCommand()

	assert.Equal(t, "convert [input] [output]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	for _, flag := range []string{"watch", "all", "dry-run", "parallel"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewCommandsMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{cmd: NewInspectCommand(), use: "inspect [input]"},
		{cmd: NewSchemaCommand(), use: "schema", flags: []string{"columns"}},
		{cmd: NewLoadCommand(), use: "load [script]", flags: []string{"no-verify"}},
		{cmd: NewHistoryCommand(), use: "history", flags: []string{"limit"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Example, "Example should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestConvert_Defaults(t *testing.T) {
	dir := testutil.SetupTestProject(t, map[string]string{"firstyear.sql": twoStatementDump})

	out, _, err := execute(t, NewConvertCommand())
	require.NoError(t, err)

	outPath := filepath.Join(dir, "firstyear_postgres.sql")
	assert.Contains(t, out, "✓ PostgreSQL file created: "+outPath+"\n")
	assert.Contains(t, out, "✓ Total rows: 3\n")
	assert.Contains(t, out, "✓ Found 2 INSERT statements in original file\n")

	script, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(script), "'spw', TRUE, 'C', 'P3');"))
	assert.Equal(t, 3, strings.Count(string(script), "'spw', "))

	// The run was journaled.
	assert.FileExists(t, filepath.Join(dir, ".dumpconv", "journal.db"))
	hist, _, err := execute(t, NewHistoryCommand())
	require.NoError(t, err)
	assert.Contains(t, hist, "success")
	assert.Contains(t, hist, "firstyear")
}

func TestConvert_PositionalPaths(t *testing.T) {
	dir := testutil.SetupTestProject(t, map[string]string{"firstyear (4).sql": twoStatementDump})

	out, _, err := execute(t, NewConvertCommand(), "firstyear (4).sql", "out/converted.sql")
	require.NoError(t, err)

	assert.Contains(t, out, "out/converted.sql")
	assert.FileExists(t, filepath.Join(dir, "out", "converted.sql"))
}

func TestConvert_CouldNotParse(t *testing.T) {
	dir := testutil.SetupTestProject(t, map[string]string{"firstyear.sql": "-- no data here\n"})

	out, _, err := execute(t, NewConvertCommand())
	require.ErrorIs(t, err, ErrReported)

	assert.Contains(t, out, "Error: Could not parse INSERT statements")
	assert.NoFileExists(t, filepath.Join(dir, "firstyear_postgres.sql"))
	assert.NoDirExists(t, filepath.Join(dir, ".dumpconv"), "a failed run creates no journal")
}

func TestConvert_FailureRecordedInExistingJournal(t *testing.T) {
	dir := testutil.SetupTestProject(t, map[string]string{"firstyear.sql": twoStatementDump})

	_, _, err := execute(t, NewConvertCommand())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "firstyear.sql"), []byte("-- emptied\n"), 0600))

	_, _, err = execute(t, NewConvertCommand())
	require.ErrorIs(t, err, ErrReported)

	hist, _, err := execute(t, NewHistoryCommand())
	require.NoError(t, err)
	assert.Contains(t, hist, "success")
	assert.Contains(t, hist, "failed")
}

func TestConvert_MissingInput(t *testing.T) {
	testutil.SetupTestProject(t, nil)

	_, _, err := execute(t, NewConvertCommand(), "nope.sql")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestConvert_DryRun(t *testing.T) {
	dir := testutil.SetupTestProject(t, map[string]string{"firstyear.sql": twoStatementDump})

	out, _, err := execute(t, NewConvertCommand(), "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS firstyear (")
	assert.Contains(t, out, "'spw', FALSE, 'B', 'P1'),\n(")
	assert.NoFileExists(t, filepath.Join(dir, "firstyear_postgres.sql"))
	assert.NoDirExists(t, filepath.Join(dir, ".dumpconv"))
}

func TestConvert_JSON(t *testing.T) {
	testutil.SetupTestProject(t, map[string]string{
		"firstyear.sql": twoStatementDump,
		"dumpconv.yaml": "output: json\nno_journal: true\n",
	})

	out, _, err := execute(t, NewConvertCommand())
	require.NoError(t, err)

	assert.Contains(t, out, `"rows": 3`)
	assert.Contains(t, out, `"statements": 2`)
	assert.Contains(t, out, `"statement_rows": [`)
}

func TestConvert_All(t *testing.T) {
	dir := testutil.SetupTestProject(t, map[string]string{
		"a.sql": twoStatementDump,
		"b.sql": "INSERT INTO firstyear VALUES " + studentRow("1") + ";",
		"dumpconv.yaml": `parallel: 2
jobs:
  - name: first
    input: a.sql
    output: out/a.sql
  - input: b.sql
    output: out/b.sql
`,
	})

	out, _, err := execute(t, NewConvertCommand(), "--all")
	require.NoError(t, err)

	assert.Contains(t, out, "first")
	assert.Contains(t, out, "firstyear-2")
	assert.Contains(t, out, "✓ Total rows: 4")
	assert.FileExists(t, filepath.Join(dir, "out", "a.sql"))
	assert.FileExists(t, filepath.Join(dir, "out", "b.sql"))
}

func TestConfiguredJobs_GeneratedNameCollision(t *testing.T) {
	cfg := config.Defaults()
	cfg.Jobs = []config.JobConfig{
		{Name: "firstyear-2", Input: "a.sql", Output: "out/a.sql"},
		{Input: "b.sql", Output: "out/b.sql"},
	}

	_, err := configuredJobs(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `jobs[1]: name "firstyear-2" is already used`)
}

func TestConvert_AllWithoutJobs(t *testing.T) {
	testutil.SetupTestProject(t, nil)

	_, _, err := execute(t, NewConvertCommand(), "--all")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no jobs configured")
}

func TestConvert_FlagConflicts(t *testing.T) {
	testutil.SetupTestProject(t, nil)

	_, _, err := execute(t, NewConvertCommand(), "--watch", "--dry-run")
	require.Error(t, err)

	_, _, err = execute(t, NewConvertCommand(), "--all", "x.sql")
	require.Error(t, err)
}

func TestInspect(t *testing.T) {
	dir := testutil.SetupTestProject(t, map[string]string{"firstyear.sql": twoStatementDump})

	out, _, err := execute(t, NewInspectCommand())
	require.NoError(t, err)

	assert.Contains(t, out, "# Found INSERT Statements")
	assert.Contains(t, out, "**Statements:** 2")
	assert.Contains(t, out, "**Rows:** 3")
	assert.Contains(t, out, "**Flags converted:** 3")
	assert.Contains(t, out, "| Statement | Rows |")
	assert.NoFileExists(t, filepath.Join(dir, "firstyear_postgres.sql"))
}

func TestSchema(t *testing.T) {
	testutil.SetupTestProject(t, nil)

	out, _, err := execute(t, NewSchemaCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS firstyear (")
	assert.Contains(t, out, "otp_verified BOOLEAN DEFAULT FALSE")

	out, _, err = execute(t, NewSchemaCommand(), "--columns")
	require.NoError(t, err)
	assert.Contains(t, out, "otp_verified")
	assert.Contains(t, out, "bool")
}

func TestSchema_CustomFile(t *testing.T) {
	testutil.SetupTestProject(t, map[string]string{
		"students.yaml": `table: students
columns:
  - name: id
    type: INTEGER
    primary_key: true
  - name: active
    type: BOOLEAN
    transform: bool
`,
		"dumpconv.yaml": "table: students\nschema: students.yaml\n",
	})

	out, _, err := execute(t, NewSchemaCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS students (")
}

func TestLoad_NoTarget(t *testing.T) {
	testutil.SetupTestProject(t, nil)

	_, _, err := execute(t, NewLoadCommand(), "script.sql")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no target configured")
}

func TestHistory_Disabled(t *testing.T) {
	testutil.SetupTestProject(t, map[string]string{"dumpconv.yaml": "no_journal: true\n"})

	_, _, err := execute(t, NewHistoryCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestHistory_Empty(t *testing.T) {
	dir := testutil.SetupTestProject(t, nil)

	out, _, err := execute(t, NewHistoryCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded")
	assert.NoDirExists(t, filepath.Join(dir, ".dumpconv"), "reading history does not create the journal")
}

func TestConvert_Fixture(t *testing.T) {
	td := testutil.GetTestdataDir(t)
	fixture, err := os.ReadFile(filepath.Join(td, "firstyear.sql"))
	require.NoError(t, err)
	testutil.SetupTestProject(t, map[string]string{"firstyear.sql": string(fixture)})

	out, _, err := execute(t, NewInspectCommand())
	require.NoError(t, err)

	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "**Rows:** 3")
}

func TestReportConvert(t *testing.T) {
	res := &dump.Result{Output: "firstyear_postgres.sql", Rows: 4, Statements: 2, Malformed: 1, Skipped: 1}

	tests := []struct {
		name    string
		mode    output.OutputMode
		isTTY   bool
		wantOut []string
		wantErr []string
	}{
		{
			name: "markdown",
			mode: output.ModeMarkdown,
			wantOut: []string{
				"✓ PostgreSQL file created: firstyear_postgres.sql\n",
				"✓ Total rows: 4\n",
				"✓ Found 2 INSERT statements in original file\n",
			},
			wantErr: []string{
				"1 malformed rows passed through unchanged",
				"1 INSERT statements could not be split into rows and were skipped",
			},
		},
		{
			name:    "text on a terminal",
			mode:    output.ModeAuto,
			isTTY:   true,
			wantOut: []string{"Total rows: 4", "Found 2 INSERT statements"},
		},
		{
			name:    "json",
			mode:    output.ModeJSON,
			wantOut: []string{`"rows": 4`, `"malformed": 1`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := testutil.NewTestRenderer(tt.mode, tt.isTTY)
			require.NoError(t, reportConvert(tr.Renderer, res))

			for _, want := range tt.wantOut {
				assert.Contains(t, tr.Output(), want)
			}
			for _, want := range tt.wantErr {
				assert.Contains(t, tr.ErrorOutput(), want)
			}
			if !tt.isTTY {
				testutil.AssertNoANSI(t, tr.Output()+tr.ErrorOutput())
			}
		})
	}
}

func TestReportConvertError(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeMarkdown, false)
	err := reportConvertError(tr.Renderer, dump.ErrNoStatements)
	require.ErrorIs(t, err, ErrReported)
	assert.Equal(t, "Error: Could not parse INSERT statements\n", tr.Output())

	tr = testutil.NewTestRenderer(output.ModeJSON, false)
	err = reportConvertError(tr.Renderer, dump.ErrNoStatements)
	require.ErrorIs(t, err, dump.ErrNoStatements)
	assert.Empty(t, tr.Output())

	other := os.ErrPermission
	assert.Equal(t, other, reportConvertError(tr.Renderer, other))
}
