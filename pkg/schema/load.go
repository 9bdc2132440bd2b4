package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML schema description.
//
//	table: firstyear
//	columns:
//	  - name: s_no
//	    type: SERIAL
//	    primary_key: true
//	  - name: otp_verified
//	    type: BOOLEAN
//	    default: "FALSE"
//	    transform: bool
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path) //nolint:gosec // schema path is user-provided by design of the CLI
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML schema.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Resolve returns the schema for a table: the YAML file at path when set,
// otherwise the built-in schema of that name.
func Resolve(table, path string) (*Table, error) {
	if path != "" {
		t, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if table != "" && t.Name != table {
			return nil, fmt.Errorf("%w: schema %s describes table %s, not %s", ErrInvalidSchema, path, t.Name, table)
		}
		return t, nil
	}
	if t, ok := Builtin(table); ok {
		return t, nil
	}
	return nil, fmt.Errorf("no built-in schema for table %q; pass --schema with a YAML description", table)
}
