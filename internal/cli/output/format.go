package output

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FormatTitle title-cases a header, leaving the rest of each word as is.
func FormatTitle(s string) string {
	// Casers are stateful; one per call.
	return cases.Title(language.English, cases.NoLower).String(s)
}

// FormatHeader renders a markdown header.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + FormatTitle(text)
}

// FormatKeyValue renders a bold markdown label and its value.
func FormatKeyValue(key, value string) string {
	return "**" + key + ":** " + value
}
