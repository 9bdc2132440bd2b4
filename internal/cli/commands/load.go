package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dumpconv/internal/cli/config"
	"github.com/leapstack-labs/dumpconv/internal/cli/output"
	"github.com/leapstack-labs/dumpconv/internal/pgload"
	"github.com/leapstack-labs/dumpconv/pkg/dump"
)

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	var noVerify bool

	cmd := &cobra.Command{
		Use:   "load [script]",
		Short: "Apply a converted script to PostgreSQL",
		Long: `Execute a converted script against the configured PostgreSQL target in a
single transaction, then check that the table gained exactly as many rows as
the script inserts. On a mismatch the transaction is rolled back.

The target comes from the target: section of dumpconv.yaml or from
DUMPCONV_TARGET_* environment variables. ${VAR} references in target fields
are expanded from the environment.`,
		Example: `  # Load the default output file
  dumpconv load

  # Load a script into a database given by DSN
  DUMPCONV_TARGET_DSN=postgres://app@localhost/students dumpconv load out.sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script := ""
			if len(args) > 0 {
				script = args[0]
			}
			return runLoad(cmd, script, noVerify)
		},
	}

	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip the row count check")
	return cmd
}

func runLoad(cmd *cobra.Command, path string, noVerify bool) error {
	cc := NewCommandContextWithoutJournal(cmd)
	r := cc.Renderer
	ctx := commandContext(cmd)

	if path == "" {
		path = cc.Cfg.OutFile
	}
	if err := cc.Cfg.ValidateTarget(); err != nil {
		return err
	}

	doc, err := dump.Load(path, "")
	if err != nil {
		return err
	}
	_, expected, err := dump.CountRows(doc, cc.Cfg.Table)
	if err != nil {
		return fmt.Errorf("failed to read rows from %s: %w", path, err)
	}
	if noVerify {
		expected = -1
	}
	cc.Logger.Debug("loading script", slog.String("path", path), slog.Int("rows", expected))

	loader, err := pgload.Open(ctx, targetToPgload(cc.Cfg.Target), cc.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = loader.Close() }()

	res, err := loader.Apply(ctx, doc.Text, cc.Cfg.Table, int64(expected))
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}
	r.Success(fmt.Sprintf("Loaded %d rows into %s", res.Inserted, res.Table))
	r.Success(fmt.Sprintf("Table %s now has %d rows", res.Table, res.After))
	return nil
}

func targetToPgload(t *config.TargetConfig) pgload.Config {
	return pgload.Config{
		DSN:      t.DSN,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		User:     t.User,
		Password: t.Password,
		SSLMode:  t.SSLMode,
	}
}
