// ABOUTME: Markdown and MyST adapter: code, math, comments, HTML and front matter stay literal
// ABOUTME: Headings, paragraphs, lists, quotes and tables are translatable blocks
package dialect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/harper/transdoc/internal/models"
)

var (
	mdMarker  = regexp.MustCompile(`^<!-- ` + markerFields + ` -->$`)
	mdLinkRef = regexp.MustCompile(`^ {0,3}\[[^\]]+\]:\s*\S`)
	mdList    = regexp.MustCompile(`^\s*([-*+]|[0-9]{1,9}[.)])(\s|$)`)
	mdHTML    = regexp.MustCompile(`^<(/?[A-Za-z][A-Za-z0-9-]*(\s|/?>|$)|!|\?)`)
)

type markdown struct{}

// NewMarkdown returns the Markdown/MyST adapter
func NewMarkdown() Dialect {
	return markdown{}
}

func (markdown) Name() string { return Markdown }

func (markdown) FormatMarker(p models.Provenance) string {
	return "<!-- " + fmt.Sprintf(markerBody, p.Source, p.Anchor, p.NeedsReview) + " -->"
}

func (markdown) ParseMarker(line string) (models.Provenance, bool) {
	return parseMarkerWith(mdMarker, line)
}

func (d markdown) Split(text string) ([]models.Span, error) {
	lines := splitLines(text)
	out := &spanList{lines: lines}

	i := 0
	if len(lines) > 0 && strings.TrimRight(lines[0].text, " \t") == "---" {
		j := findLine(lines, 1, len(lines), func(l line) bool {
			t := strings.TrimRight(l.text, " \t")
			return t == "---" || t == "..."
		})
		if j < 0 {
			return nil, segErr(Markdown, 0, "unterminated front matter")
		}
		out.add(0, j, models.ChunkLiteral)
		i = j + 1
	}

	inList := false
	for i < len(lines) {
		l := lines[i]
		if l.blank() {
			i++
			continue
		}

		end, ok, err := d.literalBlock(lines, i, inList)
		if err != nil {
			return nil, err
		}
		if ok {
			out.add(i, end, models.ChunkLiteral)
			if l.indent() == 0 {
				inList = false
			}
			i = end + 1
			continue
		}

		if isATXHeading(l.trimmed()) {
			out.add(i, i, models.ChunkTranslatable)
			inList = false
			i++
			continue
		}

		j := i
		for j+1 < len(lines) {
			next := lines[j+1]
			if next.blank() || d.interrupts(next) {
				break
			}
			j++
		}
		out.add(i, j, models.ChunkTranslatable)
		inList = mdList.MatchString(l.text) || (inList && l.indent() > 0)
		i = j + 1
	}
	return out.spans, nil
}

// literalBlock reports whether a literal construct starts at lines[i] and the index of its last line
func (d markdown) literalBlock(lines []line, i int, inList bool) (int, bool, error) {
	l := lines[i]
	t := l.trimmed()

	if _, ok := d.ParseMarker(t); ok {
		return i, true, nil
	}

	if ch, n := fenceOpen(t); n > 0 {
		j := findLine(lines, i+1, len(lines), func(c line) bool { return fenceCloses(c.trimmed(), ch, n) })
		if j < 0 {
			return 0, false, segErr(Markdown, l.start, fmt.Sprintf("unterminated %s fence", strings.Repeat(string(ch), n)))
		}
		return j, true, nil
	}

	if strings.HasPrefix(t, "$$") {
		if len(t) > 4 && strings.HasSuffix(t, "$$") {
			return i, true, nil
		}
		j := findLine(lines, i+1, len(lines), func(c line) bool { return strings.Contains(c.text, "$$") })
		if j < 0 {
			return 0, false, segErr(Markdown, l.start, "unterminated $$ math block")
		}
		return j, true, nil
	}

	if strings.HasPrefix(t, "<!--") {
		if strings.Contains(t[4:], "-->") {
			return i, true, nil
		}
		j := findLine(lines, i+1, len(lines), func(c line) bool { return strings.Contains(c.text, "-->") })
		if j < 0 {
			return 0, false, segErr(Markdown, l.start, "unterminated HTML comment")
		}
		return j, true, nil
	}

	if l.indent() <= 3 && mdHTML.MatchString(t) {
		return paragraphEnd(lines, i), true, nil
	}

	if !inList && (strings.HasPrefix(l.text, "    ") || strings.HasPrefix(l.text, "\t")) {
		return paragraphEnd(lines, i), true, nil
	}

	if isThematicBreak(t) {
		return i, true, nil
	}

	if mdLinkRef.MatchString(l.text) {
		j := i
		for j+1 < len(lines) && mdLinkRef.MatchString(lines[j+1].text) {
			j++
		}
		return j, true, nil
	}

	return 0, false, nil
}

// interrupts reports whether l ends the paragraph above it
func (d markdown) interrupts(l line) bool {
	t := l.trimmed()
	if _, n := fenceOpen(t); n > 0 {
		return true
	}
	return strings.HasPrefix(t, "$$") || strings.HasPrefix(t, "<!--") || isATXHeading(t)
}

func paragraphEnd(lines []line, i int) int {
	j := i
	for j+1 < len(lines) && !lines[j+1].blank() {
		j++
	}
	return j
}

// fenceOpen returns the fence character and run length when t opens a ```, ~~~ or ::: fence
func fenceOpen(t string) (byte, int) {
	if len(t) < 3 {
		return 0, 0
	}
	ch := t[0]
	if ch != '`' && ch != '~' && ch != ':' {
		return 0, 0
	}
	n := 0
	for n < len(t) && t[n] == ch {
		n++
	}
	if n < 3 {
		return 0, 0
	}
	// Backtick fences cannot carry backticks in their info string
	if ch == '`' && strings.Contains(t[n:], "`") {
		return 0, 0
	}
	return ch, n
}

func fenceCloses(t string, ch byte, n int) bool {
	if len(t) < n {
		return false
	}
	for i := 0; i < len(t); i++ {
		if t[i] != ch {
			return false
		}
	}
	return true
}

func isATXHeading(t string) bool {
	n := 0
	for n < len(t) && t[n] == '#' {
		n++
	}
	return n >= 1 && n <= 6 && (n == len(t) || t[n] == ' ' || t[n] == '\t')
}

func isThematicBreak(t string) bool {
	s := strings.ReplaceAll(strings.ReplaceAll(t, " ", ""), "\t", "")
	if len(s) < 3 {
		return false
	}
	ch := s[0]
	if ch != '-' && ch != '*' && ch != '_' {
		return false
	}
	return strings.Count(s, string(ch)) == len(s)
}
