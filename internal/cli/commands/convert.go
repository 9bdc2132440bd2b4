package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dumpconv/internal/cli/output"
	"github.com/leapstack-labs/dumpconv/pkg/dump"
)

// ConvertOptions holds options for the convert command.
type ConvertOptions struct {
	Watch  bool
	All    bool
	DryRun bool
}

// NewConvertCommand creates the convert command.
func NewConvertCommand() *cobra.Command {
	opts := &ConvertOptions{}

	cmd := &cobra.Command{
		Use:   "convert [input] [output]",
		Short: "Convert a MySQL dump into a PostgreSQL script",
		Long: `Convert the INSERT statements of a MySQL dump into a PostgreSQL script.

The INSERT statements for one table are collected, every row's flag columns
are rewritten from 0/1 to FALSE/TRUE, and a single INSERT is written after a
CREATE TABLE IF NOT EXISTS header for the table.

Input and output default to the configured values (firstyear.sql and
firstyear_postgres.sql). When no INSERT statement for the table is found,
nothing is written and the command exits non-zero.

Rows whose field count does not match the table are passed through
unchanged with a warning (--malformed pass) or fail the run
(--malformed strict).`,
		Example: `  # Convert with the defaults
  dumpconv convert

  # Convert a specific dump
  dumpconv convert "firstyear (4).sql" firstyear_postgres.sql

  # Print the script instead of writing it
  dumpconv convert --dry-run

  # Re-convert whenever the dump changes
  dumpconv convert --watch

  # Run every job listed in dumpconv.yaml, two at a time
  dumpconv convert --all --parallel 2`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-run the conversion whenever the input changes")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Run every job listed in the config file")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the script to stdout instead of writing it")
	cmd.Flags().Int("parallel", 0, "Maximum concurrent jobs with --all (0 = all at once)")

	return cmd
}

func runConvert(cmd *cobra.Command, args []string, opts *ConvertOptions) error {
	if opts.All && len(args) > 0 {
		return fmt.Errorf("--all takes no arguments; jobs come from the config file")
	}
	if opts.All && (opts.Watch || opts.DryRun) {
		return fmt.Errorf("--all cannot be combined with --watch or --dry-run")
	}
	if opts.Watch && opts.DryRun {
		return fmt.Errorf("--watch cannot be combined with --dry-run")
	}

	cc, cleanup := NewCommandContext(cmd)
	defer cleanup()
	ctx := commandContext(cmd)

	if opts.All {
		return convertAll(ctx, cc)
	}

	var input, out string
	if len(args) > 0 {
		input = args[0]
	}
	if len(args) > 1 {
		out = args[1]
	}
	job, err := buildJob(cc.Cfg, input, out)
	if err != nil {
		return err
	}

	switch {
	case opts.Watch:
		return convertWatch(ctx, cc, job)
	case opts.DryRun:
		return convertDryRun(ctx, cc, job)
	}

	run := startRun(job, false)
	res, err := cc.Converter.Convert(ctx, job)
	cc.completeRun(ctx, run, res, err)
	if err != nil {
		return reportConvertError(cc.Renderer, err)
	}
	return reportConvert(cc.Renderer, res)
}

func convertDryRun(ctx context.Context, cc *CommandContext, job dump.Job) error {
	run := startRun(job, true)
	script, res, err := cc.Converter.Render(ctx, job)
	cc.completeRun(ctx, run, res, err)
	if err != nil {
		return reportConvertError(cc.Renderer, err)
	}

	if cc.Renderer.EffectiveMode() == output.ModeJSON {
		return cc.Renderer.JSON(struct {
			*dump.Result
			Script string `json:"script"`
		}{res, script})
	}
	cc.Renderer.Println(script)
	return nil
}

func convertWatch(ctx context.Context, cc *CommandContext, job dump.Job) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := cc.Renderer
	r.Muted(fmt.Sprintf("Watching %s (Ctrl+C to stop)", job.Input))

	return cc.Converter.Watch(ctx, job, func(res *dump.Result, err error) {
		run := pendingRun{job: job, started: time.Now()}
		if res != nil {
			run.started = run.started.Add(-res.Duration)
		}
		cc.completeRun(ctx, run, res, err)
		if err != nil {
			_ = reportConvertError(r, err)
			return
		}
		_ = reportConvert(r, res)
	})
}

func convertAll(ctx context.Context, cc *CommandContext) error {
	jobs, err := configuredJobs(cc.Cfg)
	if err != nil {
		return err
	}

	batch := time.Now()
	results, runErr := cc.Converter.ConvertAll(ctx, jobs, cc.Cfg.Parallel, func(job dump.Job, res *dump.Result, err error) {
		cc.completeRun(ctx, pendingRun{job: job, started: batch}, res, err)
	})

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if jerr := r.JSON(results); jerr != nil {
			return jerr
		}
		return runErr
	}

	r.Header(1, "Conversion jobs")
	total := 0
	for i, job := range jobs {
		res := results[i]
		switch {
		case res != nil && res.Output != "":
			total += res.Rows
			r.StatusLine(job.Name, "success", fmt.Sprintf("%d rows -> %s", res.Rows, filepath.Base(res.Output)))
		case res != nil:
			r.StatusLine(job.Name, "failed", job.Input)
		default:
			r.StatusLine(job.Name, "skipped", job.Input)
		}
	}
	r.Println("")
	r.Success(fmt.Sprintf("Total rows: %d", total))
	return runErr
}

// reportConvert prints the outcome of a successful conversion.
func reportConvert(r *output.Renderer, res *dump.Result) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}

	r.Success("PostgreSQL file created: " + res.Output)
	r.Success(fmt.Sprintf("Total rows: %d", res.Rows))
	r.Success(fmt.Sprintf("Found %d INSERT statements in original file", res.Statements))
	if res.Malformed > 0 {
		r.Warning(fmt.Sprintf("%d malformed rows passed through unchanged", res.Malformed))
	}
	if res.Skipped > 0 {
		r.Warning(fmt.Sprintf("%d INSERT statements could not be split into rows and were skipped", res.Skipped))
	}
	return nil
}

// reportConvertError shows a parse failure the way the command promises and
// passes every other error up.
func reportConvertError(r *output.Renderer, err error) error {
	if errors.Is(err, dump.ErrNoStatements) && r.EffectiveMode() != output.ModeJSON {
		r.Error("Could not parse INSERT statements")
		return ErrReported
	}
	return err
}
