// Package pgload applies converted scripts to a PostgreSQL database.
package pgload

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

// ErrRowCountMismatch is returned when the table gained a different number
// of rows than the script inserts. The transaction is rolled back.
var ErrRowCountMismatch = errors.New("row count mismatch")

// Config holds PostgreSQL connection settings. DSN, when set, wins over the
// individual fields.
type Config struct {
	DSN      string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// Result reports what a load did.
type Result struct {
	Table    string        `json:"table"`
	Before   int64         `json:"rows_before"`
	After    int64         `json:"rows_after"`
	Inserted int64         `json:"inserted"`
	Duration time.Duration `json:"duration_ns"`
}

// Loader executes scripts against one database.
type Loader struct {
	DB     *sql.DB
	Logger *slog.Logger
}

// New wraps an open database handle.
// If logger is nil, a discard logger is used.
func New(db *sql.DB, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{DB: db, Logger: logger}
}

// Open connects to PostgreSQL through the pgx stdlib driver and pings it.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Loader, error) {
	l := New(nil, logger)
	l.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", BuildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	l.DB = db
	return l, nil
}

// BuildDSN constructs a PostgreSQL connection string in key=value form.
func BuildDSN(cfg Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, cfg.Database, sslmode)
	if cfg.User != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.User)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	return dsn
}

// Close closes the database connection.
func (l *Loader) Close() error {
	if l.DB != nil {
		l.Logger.Debug("closing database connection")
		return l.DB.Close()
	}
	return nil
}

// Apply runs script in one transaction and checks that table gained exactly
// expected rows. A negative expected skips the check.
func (l *Loader) Apply(ctx context.Context, script, table string, expected int64) (*Result, error) {
	if l.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	start := time.Now()
	res := &Result{Table: table}

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exists, err := tableExists(ctx, tx, table)
	if err != nil {
		return nil, err
	}
	if exists {
		if res.Before, err = countRows(ctx, tx, table); err != nil {
			return nil, err
		}
	}

	l.Logger.Debug("applying script", slog.String("table", table), slog.Int("bytes", len(script)))
	// No arguments, so pgx sends it over the simple protocol and multiple
	// statements are allowed.
	if _, err := tx.ExecContext(ctx, script); err != nil {
		return nil, fmt.Errorf("failed to execute script: %w", err)
	}

	if res.After, err = countRows(ctx, tx, table); err != nil {
		return nil, err
	}
	res.Inserted = res.After - res.Before

	if expected >= 0 && res.Inserted != expected {
		return nil, fmt.Errorf("%w: table %s gained %d rows, script inserts %d", ErrRowCountMismatch, table, res.Inserted, expected)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	res.Duration = time.Since(start)
	l.Logger.Info("script applied",
		slog.String("table", table),
		slog.Int64("inserted", res.Inserted),
		slog.Int64("rows", res.After))
	return res, nil
}

const tableExistsQuery = `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1)`

func tableExists(ctx context.Context, tx *sql.Tx, table string) (bool, error) {
	var exists bool
	if err := tx.QueryRowContext(ctx, tableExistsQuery, table).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return exists, nil
}

func countRows(ctx context.Context, tx *sql.Tx, table string) (int64, error) {
	var n int64
	query := "SELECT COUNT(*) FROM " + pgx.Identifier{table}.Sanitize()
	if err := tx.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return n, nil
}
