// Package config provides configuration management for the dumpconv CLI.
//
// Values are layered from built-in defaults, a dumpconv.yaml project file,
// DUMPCONV_* environment variables and command-line flags, in increasing order
// of precedence.
package config

// Config holds all CLI configuration options.
type Config struct {
	Input        string        `koanf:"input"`
	OutFile      string        `koanf:"out_file"`
	Table        string        `koanf:"table"`
	Schema       string        `koanf:"schema"`
	Encoding     string        `koanf:"encoding"`
	Malformed    string        `koanf:"malformed"`
	Parallel     int           `koanf:"parallel"`
	Verbose      bool          `koanf:"verbose"`
	LogLevel     string        `koanf:"log_level"`
	OutputFormat string        `koanf:"output"`
	JournalPath  string        `koanf:"journal"`
	NoJournal    bool          `koanf:"no_journal"`
	Target       *TargetConfig `koanf:"target"`
	Jobs         []JobConfig   `koanf:"jobs"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// TargetConfig describes the PostgreSQL database that `load` applies scripts to.
type TargetConfig struct {
	DSN      string `koanf:"dsn"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"sslmode"`
}

// JobConfig is one entry of the `jobs:` list run by `convert --all`.
// Empty fields inherit the top-level values.
type JobConfig struct {
	Name      string `koanf:"name"`
	Input     string `koanf:"input"`
	Output    string `koanf:"output"`
	Table     string `koanf:"table"`
	Schema    string `koanf:"schema"`
	Encoding  string `koanf:"encoding"`
	Malformed string `koanf:"malformed"`
}

// Default configuration values. They reproduce the literals of the original
// one-off conversion script.
const (
	DefaultInput     = "firstyear.sql"
	DefaultOutFile   = "firstyear_postgres.sql"
	DefaultTable     = "firstyear"
	DefaultEncoding  = "utf-8"
	DefaultMalformed = "pass"
	DefaultJournal   = ".dumpconv/journal.db"
	DefaultLogLevel  = "warn"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultPort      = 5432
	DefaultSSLMode   = "disable"
)

// Defaults returns a Config populated with default values.
func Defaults() *Config {
	return &Config{
		Input:        DefaultInput,
		OutFile:      DefaultOutFile,
		Table:        DefaultTable,
		Encoding:     DefaultEncoding,
		Malformed:    DefaultMalformed,
		LogLevel:     DefaultLogLevel,
		OutputFormat: DefaultOutput,
		JournalPath:  DefaultJournal,
	}
}
