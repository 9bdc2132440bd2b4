package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dumpconv/internal/cli/config"
	"github.com/leapstack-labs/dumpconv/internal/cli/output"
	"github.com/leapstack-labs/dumpconv/internal/journal"
	"github.com/leapstack-labs/dumpconv/pkg/dump"
	"github.com/leapstack-labs/dumpconv/pkg/schema"
)

// ErrReported marks a failure the command already showed to the user; the
// caller should exit non-zero without printing it again.
var ErrReported = errors.New("error already reported")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg       *config.Config
	Logger    *slog.Logger
	Renderer  *output.Renderer
	Converter *dump.Converter

	journalPath string // empty when journaling is disabled
	mu          sync.Mutex
	journal     *journal.Journal
	journalErr  error
}

// NewCommandContext creates a CommandContext that records runs in the
// journal. The journal is opened on first use. Returns the context and a
// cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func()) {
	cc := NewCommandContextWithoutJournal(cmd)
	if !cc.Cfg.NoJournal {
		cc.journalPath = cc.Cfg.JournalPath
	}

	return cc, func() {
		cc.mu.Lock()
		defer cc.mu.Unlock()
		if cc.journal != nil {
			_ = cc.journal.Close()
			cc.journal = nil
		}
	}
}

// NewCommandContextWithoutJournal creates a CommandContext without a journal.
func NewCommandContextWithoutJournal(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(commandContext(cmd))
	mode := output.Mode(cfg.OutputFormat)

	return &CommandContext{
		Cfg:       cfg,
		Logger:    logger,
		Renderer:  output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
		Converter: dump.NewConverter(logger),
	}
}

// JournalEnabled reports whether runs are recorded.
func (cc *CommandContext) JournalEnabled() bool {
	return cc.journalPath != ""
}

// Journal returns the run journal, opening it on first use. Unless create is
// set, a journal that does not exist yet stays uncreated and nil is
// returned. A journal that cannot be opened is reported once as a warning.
func (cc *CommandContext) Journal(ctx context.Context, create bool) *journal.Journal {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.journalLocked(ctx, create)
}

func (cc *CommandContext) journalLocked(ctx context.Context, create bool) *journal.Journal {
	if cc.journal != nil || cc.journalErr != nil || cc.journalPath == "" {
		return cc.journal
	}
	if !create && !journal.Exists(cc.journalPath) {
		return nil
	}

	j, err := journal.Open(ctx, cc.journalPath, cc.Logger)
	if err != nil {
		cc.journalErr = err
		cc.Logger.Warn("run journal unavailable", slog.String("path", cc.journalPath), slog.String("error", err.Error()))
		return nil
	}
	cc.journal = j
	return j
}

// pendingRun is a conversion whose outcome is not known yet.
type pendingRun struct {
	job     dump.Job
	dryRun  bool
	started time.Time
}

func startRun(job dump.Job, dryRun bool) pendingRun {
	return pendingRun{job: job, dryRun: dryRun, started: time.Now()}
}

// completeRun records a finished run. Failed runs and dry runs are recorded
// only in a journal that already exists, so a run that writes no output
// leaves no journal behind either.
func (cc *CommandContext) completeRun(ctx context.Context, run pendingRun, res *dump.Result, runErr error) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	j := cc.journalLocked(ctx, runErr == nil && !run.dryRun)
	if j == nil {
		return
	}
	if _, err := j.Record(ctx, run.job, run.dryRun, run.started, res, runErr); err != nil {
		cc.Logger.Warn("failed to record run", slog.String("job", run.job.Name), slog.String("error", err.Error()))
	}
}

// Helper functions shared across commands

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	cfg := config.Defaults()
	cfg.Table = getEnvOrDefault(config.EnvPrefix+"TABLE", cfg.Table)
	cfg.Schema = os.Getenv(config.EnvPrefix + "SCHEMA")
	cfg.Encoding = getEnvOrDefault(config.EnvPrefix+"ENCODING", cfg.Encoding)
	cfg.Malformed = getEnvOrDefault(config.EnvPrefix+"MALFORMED", cfg.Malformed)
	cfg.OutputFormat = getEnvOrDefault(config.EnvPrefix+"OUTPUT", cfg.OutputFormat)
	cfg.JournalPath = getEnvOrDefault(config.EnvPrefix+"JOURNAL", cfg.JournalPath)
	cfg.NoJournal, _ = strconv.ParseBool(os.Getenv(config.EnvPrefix + "NO_JOURNAL"))
	cfg.Verbose = os.Getenv(config.EnvPrefix+"VERBOSE") == "true"
	return cfg
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// buildJob assembles the conversion job from configuration, with optional
// positional overrides for input and output.
func buildJob(cfg *config.Config, input, out string) (dump.Job, error) {
	jc := config.JobConfig{Input: input, Output: out}
	return jobFromConfig(cfg, jc)
}

// jobFromConfig fills the empty fields of jc from the top-level config and
// resolves its schema.
func jobFromConfig(cfg *config.Config, jc config.JobConfig) (dump.Job, error) {
	pick := func(v, fallback string) string {
		if v != "" {
			return v
		}
		return fallback
	}

	table := pick(jc.Table, cfg.Table)
	schemaPath := jc.Schema
	if schemaPath == "" && jc.Table == "" {
		schemaPath = cfg.Schema
	}
	tbl, err := schema.Resolve(table, schemaPath)
	if err != nil {
		return dump.Job{}, err
	}

	policy, err := dump.ParsePolicy(pick(jc.Malformed, cfg.Malformed))
	if err != nil {
		return dump.Job{}, err
	}

	name := pick(jc.Name, tbl.Name)
	return dump.Job{
		Name:     name,
		Input:    pick(jc.Input, cfg.Input),
		Output:   pick(jc.Output, cfg.OutFile),
		Table:    tbl,
		Encoding: pick(jc.Encoding, cfg.Encoding),
		Policy:   policy,
	}, nil
}

// configuredJobs returns the jobs listed in the config file.
func configuredJobs(cfg *config.Config) ([]dump.Job, error) {
	if len(cfg.Jobs) == 0 {
		return nil, fmt.Errorf("no jobs configured\nHint: list them under jobs: in dumpconv.yaml")
	}
	jobs := make([]dump.Job, 0, len(cfg.Jobs))
	seen := make(map[string]bool, len(cfg.Jobs))
	for i, jc := range cfg.Jobs {
		if jc.Output == "" {
			return nil, fmt.Errorf("jobs[%d]: output is required", i)
		}
		job, err := jobFromConfig(cfg, jc)
		if err != nil {
			return nil, fmt.Errorf("jobs[%d]: %w", i, err)
		}
		if jc.Name == "" {
			job.Name = fmt.Sprintf("%s-%d", job.Table.Name, i+1)
		}
		if seen[job.Name] {
			return nil, fmt.Errorf("jobs[%d]: name %q is already used; give the job a name", i, job.Name)
		}
		seen[job.Name] = true
		jobs = append(jobs, job)
	}
	return jobs, nil
}
