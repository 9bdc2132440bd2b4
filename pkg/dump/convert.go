package dump

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/dumpconv/pkg/schema"
)

// Job describes one conversion.
type Job struct {
	Name     string
	Input    string
	Output   string
	Table    *schema.Table
	Encoding string
	Policy   Policy
}

// Result summarizes a conversion.
type Result struct {
	Job           string        `json:"job,omitempty"`
	Table         string        `json:"table"`
	Input         string        `json:"input"`
	Output        string        `json:"output,omitempty"`
	Statements    int           `json:"statements"`
	Skipped       int           `json:"skipped_statements"`
	Rows          int           `json:"rows"`
	Malformed     int           `json:"malformed"`
	Converted     int           `json:"converted_flags"`
	StatementRows []int         `json:"statement_rows"`
	Bytes         int           `json:"bytes"`
	Duration      time.Duration `json:"duration_ns"`
}

// Converter runs conversion jobs.
type Converter struct {
	logger *slog.Logger
}

// NewConverter creates a Converter. A nil logger discards output.
func NewConverter(logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Converter{logger: logger}
}

// Convert runs the whole pipeline and writes the output file. When no
// statement matches, ErrNoStatements is returned and nothing is written.
func (c *Converter) Convert(ctx context.Context, job Job) (*Result, error) {
	script, res, err := c.Render(ctx, job)
	if err != nil {
		return res, err
	}

	if err := Write(job.Output, script); err != nil {
		return res, err
	}
	res.Output = job.Output
	res.Bytes = len(script)

	c.logger.Info("wrote postgres script",
		slog.String("output", job.Output),
		slog.Int("rows", res.Rows),
		slog.Int("statements", res.Statements))
	return res, nil
}

// Render runs the pipeline without writing, returning the script.
func (c *Converter) Render(ctx context.Context, job Job) (string, *Result, error) {
	rows, res, err := c.Analyze(ctx, job)
	if err != nil {
		return "", res, err
	}
	script := Render(job.Table, rows)
	res.Bytes = len(script)
	return script, res, nil
}

// Analyze loads, extracts, splits and transforms without rendering. The
// returned rows are in document order.
func (c *Converter) Analyze(ctx context.Context, job Job) ([]Row, *Result, error) {
	start := time.Now()
	if job.Table == nil {
		return nil, nil, fmt.Errorf("job %s has no table schema", job.Name)
	}

	res := &Result{
		Job:   job.Name,
		Table: job.Table.Name,
		Input: job.Input,
	}
	defer func() { res.Duration = time.Since(start) }()

	doc, err := Load(job.Input, job.Encoding)
	if err != nil {
		return nil, res, err
	}
	c.logger.Debug("loaded dump", slog.String("path", doc.Path), slog.Int("bytes", len(doc.Text)))

	stmts, err := ExtractStatements(doc, job.Table.Name)
	if err != nil {
		if err := c.skipStatement(job, err); err != nil {
			return nil, res, err
		}
		res.Skipped++
	}
	if len(stmts) == 0 {
		return nil, res, fmt.Errorf("%w for table %s in %s", ErrNoStatements, job.Table.Name, job.Input)
	}
	c.logger.Info("found INSERT statements", slog.String("table", job.Table.Name), slog.Int("count", len(stmts)))

	tr := NewTransformer(job.Table, job.Policy, c.logger)

	var out []Row
	for _, stmt := range stmts {
		if err := ctx.Err(); err != nil {
			return nil, res, err
		}
		if n := len(stmt.Columns); n > 0 && n != job.Table.Width() {
			c.logger.Warn("column list does not match schema width",
				slog.Int("statement", stmt.Index),
				slog.Int("columns", n),
				slog.Int("expected", job.Table.Width()))
		}

		rows, err := SplitRows(stmt)
		if err != nil {
			if err := c.skipStatement(job, err); err != nil {
				return nil, res, err
			}
			res.Skipped++
			continue
		}

		for _, row := range rows {
			row, err = tr.TransformRow(row)
			if err != nil {
				return nil, res, err
			}
			if row.Malformed {
				res.Malformed++
			}
			res.Converted += row.Converted
			out = append(out, row)
		}
		res.StatementRows = append(res.StatementRows, len(rows))
		c.logger.Debug("processed statement", slog.Int("statement", stmt.Index), slog.Int("rows", len(rows)))
	}

	res.Statements = len(res.StatementRows)
	if res.Statements == 0 {
		return nil, res, fmt.Errorf("%w for table %s in %s", ErrNoStatements, job.Table.Name, job.Input)
	}
	res.Rows = len(out)
	return out, res, nil
}

// skipStatement decides whether a statement that cannot be split into rows
// fails the run. Under the pass policy it is dropped with a warning.
func (c *Converter) skipStatement(job Job, err error) error {
	var se *SyntaxError
	if job.Policy == PolicyStrict || !errors.As(err, &se) {
		return err
	}
	c.logger.Warn("skipping INSERT statement that could not be split into rows",
		slog.Int("statement", se.Statement),
		slog.Int("offset", se.Offset),
		slog.String("reason", se.Msg))
	return nil
}
