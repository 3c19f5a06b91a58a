// Package preprocess normalizes raw document text before segmentation:
// uniform newlines, no exotic whitespace, trimmed lines, and paragraph
// breaks condensed to exactly one blank line.
package preprocess

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	paragraphSeparator = " "
	sectionSeparator   = " "
)

// Exotic whitespace stripped outright: form feed, line tabulation,
// no-break space.
var exoticWhitespace = []string{"", "", " "}

var multiNewline = regexp.MustCompile(`\n{3,}`)

// Clean applies the full normalization pipeline. Cleaning already-clean
// text is a no-op, so it is safe to run on every ingestion.
func Clean(text string) string {
	cleaned := strings.ReplaceAll(text, "\r\n", "\n")
	cleaned = strings.ReplaceAll(cleaned, "\r", "")

	cleaned = strings.ReplaceAll(cleaned, paragraphSeparator, "\n")
	cleaned = strings.ReplaceAll(cleaned, sectionSeparator, "\n\n")
	cleaned = strings.ReplaceAll(cleaned, "\n", "")
	for _, ws := range exoticWhitespace {
		cleaned = strings.ReplaceAll(cleaned, ws, "")
	}

	// Drop non-printing, non-whitespace runes
	var b strings.Builder
	b.Grow(len(cleaned))
	for _, r := range cleaned {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	cleaned = strings.TrimSpace(b.String())

	lines := strings.Split(cleaned, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	cleaned = strings.Join(lines, "\n")

	return multiNewline.ReplaceAllString(cleaned, "\n\n")
}
