// Package dump converts the INSERT statements of a MySQL dump into a
// PostgreSQL script for a single declared table.
//
// A conversion is one sequential pass: Load reads the whole file,
// ExtractStatements locates the INSERT statements for the table, SplitRows
// breaks each VALUES body into tuples, a Transformer rewrites flag fields and
// Render assembles the output script.
package dump

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

// Sentinel errors.
var (
	// ErrNoStatements is returned when the document holds no INSERT
	// statement for the requested table.
	ErrNoStatements = errors.New("could not parse INSERT statements")
	// ErrMalformedRow is returned under the strict policy for rows whose
	// field count does not match the schema.
	ErrMalformedRow = errors.New("malformed row")
)

// Document is the full text of a source dump.
type Document struct {
	Path string
	Text string
}

// Load reads path into memory, decoding it from the named character set.
// An empty encoding or any UTF-8 alias leaves the bytes as they are.
func Load(path, encoding string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // dump path comes from the user
	if err != nil {
		return nil, fmt.Errorf("failed to read dump %s: %w", path, err)
	}

	text, err := decode(data, encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to decode dump %s: %w", path, err)
	}

	return &Document{Path: path, Text: text}, nil
}

func decode(data []byte, encoding string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(encoding))
	if name == "" || name == "utf-8" || name == "utf8" {
		return string(data), nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return "", fmt.Errorf("unknown encoding %q: %w", encoding, err)
	}
	if enc == nil {
		return "", fmt.Errorf("unsupported encoding %q", encoding)
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Write stores the rendered script at path, creating parent directories.
func Write(path, content string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil { //nolint:gosec // output script is meant to be shared
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
