package chunking

import (
	"regexp"
	"strings"
)

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	repeatedSpaces = regexp.MustCompile(` {2,}`)
	pageNumberLine = regexp.MustCompile(`\n\s*\d+\s*\n`)
)

// Clean normalises extracted text before chunking. Runs of blank lines
// collapse to one paragraph break, space runs collapse to a single space,
// bare numeric lines (page numbers) are removed, and every line is trimmed.
func Clean(text string) string {
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	text = repeatedSpaces.ReplaceAllString(text, " ")
	text = pageNumberLine.ReplaceAllString(text, "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
