package schema

import "strings"

// Transform names a per-field rewrite applied during conversion.
type Transform string

// Supported transforms.
const (
	TransformNone Transform = ""
	TransformBool Transform = "bool"
)

// PostgreSQL boolean literals.
const (
	TrueLiteral  = "TRUE"
	FalseLiteral = "FALSE"
)

// Valid reports whether t is a known transform.
func (t Transform) Valid() bool {
	switch t {
	case TransformNone, TransformBool:
		return true
	}
	return false
}

// Apply rewrites a single field literal. Values the transform does not
// recognize are returned unchanged, which makes every transform idempotent.
func (t Transform) Apply(value string) string {
	switch t {
	case TransformBool:
		switch strings.TrimSpace(value) {
		case "0":
			return FalseLiteral
		case "1":
			return TrueLiteral
		}
	}
	return value
}
