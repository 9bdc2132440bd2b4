package dump

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/dumpconv/pkg/schema"
)

// Policy decides what happens to rows whose field count does not match the
// schema.
type Policy string

// Malformed-row policies.
const (
	// PolicyPass emits the row untouched and logs a warning.
	PolicyPass Policy = "pass"
	// PolicyStrict fails the conversion.
	PolicyStrict Policy = "strict"
)

// ParsePolicy validates a policy name. The empty string selects PolicyPass.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyPass:
		return PolicyPass, nil
	case PolicyStrict:
		return PolicyStrict, nil
	}
	return "", fmt.Errorf("unknown malformed-row policy %q (want pass or strict)", s)
}

// Transformer rewrites rows according to a table schema.
type Transformer struct {
	table  *schema.Table
	policy Policy
	logger *slog.Logger
}

// NewTransformer creates a Transformer. A nil logger discards output.
func NewTransformer(table *schema.Table, policy Policy, logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if policy == "" {
		policy = PolicyPass
	}
	return &Transformer{table: table, policy: policy, logger: logger}
}

// TransformRow applies the column transforms to a row. A row is well-formed
// when it has exactly one field per schema column; anything else is handled
// by the malformed-row policy. Transforming an already transformed row is a
// no-op.
func (t *Transformer) TransformRow(row Row) (Row, error) {
	if len(row.Fields) != t.table.Width() {
		if t.policy == PolicyStrict {
			return row, fmt.Errorf("%w: statement %d row %d has %d fields, table %s expects %d",
				ErrMalformedRow, row.Statement, row.Number, len(row.Fields), t.table.Name, t.table.Width())
		}
		t.logger.Warn("passing malformed row through untransformed",
			slog.Int("statement", row.Statement),
			slog.Int("row", row.Number),
			slog.Int("fields", len(row.Fields)),
			slog.Int("expected", t.table.Width()),
			slog.Any("unconverted", t.flagPositions()))
		row.Malformed = true
		row.Converted = 0
		return row, nil
	}

	fields := make([]string, len(row.Fields))
	converted := 0
	for i, f := range row.Fields {
		fields[i] = t.table.Columns[i].Transform.Apply(f)
		if fields[i] != f {
			converted++
		}
	}

	row.Fields = fields
	row.Malformed = false
	row.Converted = converted
	return row, nil
}

// flagPositions describes the columns a malformed row leaves untransformed,
// e.g. "otp_verified (field 16 of 18)".
func (t *Transformer) flagPositions() []string {
	cols := t.table.FlagColumns()
	out := make([]string, len(cols))
	for i, idx := range cols {
		out[i] = fmt.Sprintf("%s (field %d of %d)", t.table.Columns[idx].Name, idx+1, t.table.Width())
	}
	return out
}
