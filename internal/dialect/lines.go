// ABOUTME: Line scanning helpers shared by the dialect adapters
// ABOUTME: Blocks are runs of lines; a block's span excludes surrounding indentation and trailing blanks
package dialect

import (
	"strings"

	"github.com/harper/transdoc/internal/errs"
	"github.com/harper/transdoc/internal/models"
)

// line is one line of a document without its terminator
type line struct {
	start int
	text  string
}

func (l line) trimmed() string {
	return strings.TrimSpace(l.text)
}

func (l line) blank() bool {
	return l.trimmed() == ""
}

// indent returns the width of leading spaces and tabs in bytes
func (l line) indent() int {
	return len(l.text) - len(strings.TrimLeft(l.text, " \t"))
}

// splitLines cuts text at '\n'; a trailing '\r' stays out of the line text
func splitLines(text string) []line {
	var lines []line
	start := 0
	for start <= len(text) {
		nl := strings.IndexByte(text[start:], '\n')
		var raw string
		if nl < 0 {
			raw = text[start:]
		} else {
			raw = text[start : start+nl]
		}
		lines = append(lines, line{start: start, text: strings.TrimSuffix(raw, "\r")})
		if nl < 0 {
			break
		}
		start += nl + 1
	}
	// A terminating newline does not open another line
	if n := len(lines); n > 0 && lines[n-1].text == "" && lines[n-1].start == len(text) {
		lines = lines[:n-1]
	}
	return lines
}

// blockSpan covers lines[first..last] from the first non-space byte to the last one
func blockSpan(lines []line, first, last int, kind models.ChunkKind) models.Span {
	f, l := lines[first], lines[last]
	return models.Span{
		Start: f.start + f.indent(),
		End:   l.start + len(strings.TrimRight(l.text, " \t")),
		Kind:  kind,
	}
}

// findLine returns the first index >= from whose line satisfies match, or -1
func findLine(lines []line, from, to int, match func(line) bool) int {
	for j := from; j < to; j++ {
		if match(lines[j]) {
			return j
		}
	}
	return -1
}

// spanList accumulates spans for a line-oriented adapter
type spanList struct {
	lines []line
	spans []models.Span
}

func (s *spanList) add(first, last int, kind models.ChunkKind) {
	s.spans = append(s.spans, blockSpan(s.lines, first, last, kind))
}

func segErr(dialect string, offset int, reason string) error {
	return &errs.SegmentationError{Dialect: dialect, Offset: offset, Reason: reason}
}
