// Package journal records conversion runs in a local SQLite database.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/leapstack-labs/dumpconv/pkg/dump"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MemoryPath opens a private in-memory journal.
const MemoryPath = ":memory:"

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Status is the lifecycle state of a run.
type Status string

// Run statuses.
const (
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Run is one recorded conversion.
type Run struct {
	ID          string     `json:"id"`
	Job         string     `json:"job"`
	Table       string     `json:"table"`
	Input       string     `json:"input"`
	Output      string     `json:"output"`
	Status      Status     `json:"status"`
	Statements  int        `json:"statements"`
	Rows        int        `json:"rows"`
	Malformed   int        `json:"malformed"`
	Bytes       int        `json:"bytes"`
	DryRun      bool       `json:"dry_run"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Journal is a SQLite-backed run log.
type Journal struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the journal at path and migrates it.
// Use MemoryPath for a throwaway journal.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dsn := MemoryPath
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create journal directory: %w", err)
			}
		}
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	// One connection: an in-memory database lives and dies with its connection,
	// and SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping journal database: %w", err)
	}

	j := &Journal{db: db, path: path, logger: logger, now: time.Now}
	if err := j.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, j.db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, r := range results {
		j.logger.Debug("journal migration applied", slog.String("source", r.Source.Path))
	}
	return nil
}

// Path returns the journal's database path.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the journal database.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Exists reports whether a journal database is already present at path.
func Exists(path string) bool {
	if path == MemoryPath || path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Record stores a finished conversion of job that began at startedAt. A nil
// runErr marks it successful; res may be nil when the conversion failed
// before producing counts.
func (j *Journal) Record(ctx context.Context, job dump.Job, dryRun bool, startedAt time.Time, res *dump.Result, runErr error) (*Run, error) {
	run, err := j.start(ctx, job, dryRun, startedAt)
	if err != nil {
		return nil, err
	}
	if err := j.complete(ctx, run.ID, res, runErr); err != nil {
		return nil, err
	}
	return j.Get(ctx, run.ID)
}

// start inserts a running conversion for job.
func (j *Journal) start(ctx context.Context, job dump.Job, dryRun bool, startedAt time.Time) (*Run, error) {
	table := ""
	if job.Table != nil {
		table = job.Table.Name
	}
	run := &Run{
		ID:        uuid.New().String(),
		Job:       job.Name,
		Table:     table,
		Input:     job.Input,
		Output:    job.Output,
		Status:    StatusRunning,
		DryRun:    dryRun,
		StartedAt: startedAt.UTC(),
	}

	j.logger.Debug("recording run", slog.String("id", run.ID), slog.String("job", run.Job))

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, job, table_name, input, output, status, dry_run, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Job, run.Table, run.Input, run.Output, string(run.Status), run.DryRun, run.StartedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	return run, nil
}

// complete stores the outcome of run id.
func (j *Journal) complete(ctx context.Context, id string, res *dump.Result, runErr error) error {
	status := StatusSuccess
	var errMsg *string
	if runErr != nil {
		status = StatusFailed
		msg := runErr.Error()
		errMsg = &msg
	}

	var statements, rows, malformed, bytes int
	var output string
	if res != nil {
		statements, rows, malformed, bytes = res.Statements, res.Rows, res.Malformed, res.Bytes
		output = res.Output
	}

	result, err := j.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, statements = ?, row_count = ?, malformed = ?, bytes = ?,
		    output = CASE WHEN ? = '' THEN output ELSE ? END,
		    error = ?, completed_at = ?
		WHERE id = ?`,
		string(status), statements, rows, malformed, bytes, output, output, errMsg, j.now().UTC().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

const runColumns = `id, job, table_name, input, output, status, statements, row_count, malformed, bytes, dry_run, error, started_at, completed_at`

// Get returns one run by ID.
func (j *Journal) Get(ctx context.Context, id string) (*Run, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs, newest first. A limit of zero or less
// returns every run.
func (j *Journal) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run       Run
		status    string
		errMsg    sql.NullString
		started   int64
		completed sql.NullInt64
	)
	if err := s.Scan(&run.ID, &run.Job, &run.Table, &run.Input, &run.Output, &status,
		&run.Statements, &run.Rows, &run.Malformed, &run.Bytes, &run.DryRun,
		&errMsg, &started, &completed); err != nil {
		return nil, err
	}
	run.Status = Status(status)
	run.Error = errMsg.String
	run.StartedAt = time.Unix(0, started).UTC()
	if completed.Valid {
		t := time.Unix(0, completed.Int64).UTC()
		run.CompletedAt = &t
	}
	return &run, nil
}
