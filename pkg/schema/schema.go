// Package schema describes the target table a dump is converted into.
//
// A Table is an ordered list of columns. Column order matters: it is the
// order of the fields inside every row tuple of the source dump, so a column's
// index is the field position its transform applies to.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Column describes one target column.
type Column struct {
	Name       string    `yaml:"name" json:"name"`
	Type       string    `yaml:"type" json:"type"`
	Default    string    `yaml:"default,omitempty" json:"default,omitempty"`
	NotNull    bool      `yaml:"not_null,omitempty" json:"not_null,omitempty"`
	PrimaryKey bool      `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
	Transform  Transform `yaml:"transform,omitempty" json:"transform,omitempty"`
}

// Table is a declarative description of the target table.
type Table struct {
	Name    string   `yaml:"table" json:"table"`
	Columns []Column `yaml:"columns" json:"columns"`
}

// ErrInvalidSchema is returned by Validate for unusable schemas.
var ErrInvalidSchema = errors.New("invalid schema")

// Width returns the number of columns, i.e. the expected field count of a row.
func (t *Table) Width() int {
	return len(t.Columns)
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnList returns the comma-separated column names used by INSERT.
func (t *Table) ColumnList() string {
	return strings.Join(t.ColumnNames(), ", ")
}

// FlagColumns returns the indexes of columns carrying a boolean transform.
func (t *Table) FlagColumns() []int {
	var idx []int
	for i, c := range t.Columns {
		if c.Transform == TransformBool {
			idx = append(idx, i)
		}
	}
	return idx
}

// Definition renders the column clause of CREATE TABLE.
func (c Column) Definition() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte(' ')
	b.WriteString(c.Type)
	if c.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	return b.String()
}

// CreateTableSQL renders a CREATE TABLE IF NOT EXISTS statement.
func (t *Table) CreateTableSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", t.Name)
	for i, c := range t.Columns {
		b.WriteString("  ")
		b.WriteString(c.Definition())
		if i < len(t.Columns)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString(");")
	return b.String()
}

// Validate checks that the table can drive a conversion.
func (t *Table) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: table name is required", ErrInvalidSchema)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("%w: table %s has no columns", ErrInvalidSchema, t.Name)
	}

	seen := make(map[string]struct{}, len(t.Columns))
	for i, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: column %d has no name", ErrInvalidSchema, i+1)
		}
		if strings.TrimSpace(c.Type) == "" {
			return fmt.Errorf("%w: column %s has no type", ErrInvalidSchema, c.Name)
		}
		key := strings.ToLower(c.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate column %s", ErrInvalidSchema, c.Name)
		}
		seen[key] = struct{}{}
		if !c.Transform.Valid() {
			return fmt.Errorf("%w: column %s has unknown transform %q", ErrInvalidSchema, c.Name, c.Transform)
		}
	}
	return nil
}
