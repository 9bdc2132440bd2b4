package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dumpconv/internal/testutil"
	"github.com/leapstack-labs/dumpconv/pkg/dump"
	"github.com/leapstack-labs/dumpconv/pkg/schema"
)

func setupTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(context.Background(), MemoryPath, testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

// fixedClock returns a clock that advances one second per call.
func fixedClock() func() time.Time {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func testJob(name string) dump.Job {
	return dump.Job{
		Name:   name,
		Input:  "/dumps/" + name + ".sql",
		Output: "/out/" + name + "_postgres.sql",
		Table:  schema.FirstYear(),
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")

	assert.False(t, Exists(path))
	j, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, j.Path())

	_, err = j.Record(context.Background(), testJob("firstyear"), false, time.Now(), &dump.Result{Rows: 3}, nil)
	require.NoError(t, err)
	require.NoError(t, j.Close())
	assert.True(t, Exists(path))

	// Reopening runs migrations again as a no-op and keeps the data.
	j, err = Open(context.Background(), path, nil)
	require.NoError(t, err)
	defer func() { _ = j.Close() }()

	runs, err := j.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestJournal_RunLifecycle(t *testing.T) {
	tests := []struct {
		name       string
		res        *dump.Result
		runErr     error
		wantStatus Status
		wantError  string
		wantRows   int
		wantOutput string
	}{
		{
			name:       "success",
			res:        &dump.Result{Statements: 2, Rows: 4, Malformed: 1, Bytes: 900, Output: "/out/written.sql"},
			wantStatus: StatusSuccess,
			wantRows:   4,
			wantOutput: "/out/written.sql",
		},
		{
			name:       "failure without result",
			runErr:     dump.ErrNoStatements,
			wantStatus: StatusFailed,
			wantError:  "could not parse INSERT statements",
			wantOutput: "/out/firstyear_postgres.sql",
		},
		{
			name:       "failure with partial result",
			res:        &dump.Result{Statements: 1, Rows: 0},
			runErr:     errors.New("statement 1 row 3: malformed"),
			wantStatus: StatusFailed,
			wantError:  "malformed",
			wantOutput: "/out/firstyear_postgres.sql",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := setupTestJournal(t)
			j.now = fixedClock()
			ctx := context.Background()

			run, err := j.start(ctx, testJob("firstyear"), false, j.now())
			require.NoError(t, err)
			assert.Equal(t, StatusRunning, run.Status)
			assert.NotEmpty(t, run.ID)

			pending, err := j.Get(ctx, run.ID)
			require.NoError(t, err)
			assert.Nil(t, pending.CompletedAt)
			assert.Zero(t, pending.Duration())

			require.NoError(t, j.complete(ctx, run.ID, tt.res, tt.runErr))

			got, err := j.Get(ctx, run.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, "firstyear", got.Table)
			assert.Equal(t, tt.wantRows, got.Rows)
			assert.Equal(t, tt.wantOutput, got.Output)
			if tt.wantError == "" {
				assert.Empty(t, got.Error)
			} else {
				assert.Contains(t, got.Error, tt.wantError)
			}
			require.NotNil(t, got.CompletedAt)
			assert.Equal(t, time.Second, got.Duration())
		})
	}
}

func TestJournal_List(t *testing.T) {
	j := setupTestJournal(t)
	j.now = fixedClock()
	ctx := context.Background()

	for _, name := range []string{"first", "second", "third"} {
		run, err := j.Record(ctx, testJob(name), name == "second", j.now(), &dump.Result{Rows: 1}, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, run.Status)
	}

	runs, err := j.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "third", runs[0].Job, "newest first")
	assert.Equal(t, "first", runs[2].Job)
	assert.True(t, runs[1].DryRun)
	assert.False(t, runs[0].DryRun)

	limited, err := j.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestJournal_Record(t *testing.T) {
	j := setupTestJournal(t)
	j.now = fixedClock()
	ctx := context.Background()

	started := time.Date(2024, 6, 1, 11, 59, 58, 0, time.UTC)
	run, err := j.Record(ctx, testJob("firstyear"), true, started, nil, dump.ErrNoStatements)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, run.Status)
	assert.True(t, run.DryRun)
	assert.Equal(t, started, run.StartedAt)
	assert.Equal(t, 3*time.Second, run.Duration(), "completion uses the journal clock")
	assert.Contains(t, run.Error, "could not parse")
}

func TestExists(t *testing.T) {
	assert.False(t, Exists(MemoryPath))
	assert.False(t, Exists(""))
	assert.False(t, Exists(filepath.Join(t.TempDir(), "none.db")))
}

func TestJournal_NotFound(t *testing.T) {
	j := setupTestJournal(t)
	ctx := context.Background()

	_, err := j.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrRunNotFound)

	err = j.complete(ctx, "missing", nil, nil)
	require.ErrorIs(t, err, ErrRunNotFound)
}
