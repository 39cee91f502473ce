// ABOUTME: LaTeX adapter: preamble, math, verbatim-like environments and structural commands stay literal
// ABOUTME: Prose paragraphs, sectioning commands and prose environments are translatable
package dialect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/harper/transdoc/internal/models"
)

var texMarker = regexp.MustCompile(`^% ` + markerFields + `$`)

// Environments whose body is never translated
var literalEnvs = map[string]bool{
	"equation": true, "equation*": true, "align": true, "align*": true,
	"gather": true, "gather*": true, "multline": true, "multline*": true,
	"eqnarray": true, "eqnarray*": true, "displaymath": true, "math": true,
	"flalign": true, "flalign*": true, "alignat": true, "alignat*": true,
	"verbatim": true, "Verbatim": true, "lstlisting": true, "minted": true,
	"tikzpicture": true, "tabular": true, "tabular*": true, "tabularx": true,
	"array": true, "comment": true, "alltt": true, "filecontents": true,
}

// Environments whose body is raw text: braces and \begin inside them are not markup
var rawEnvs = map[string]bool{
	"verbatim": true, "Verbatim": true, "lstlisting": true, "minted": true,
	"comment": true, "alltt": true, "filecontents": true,
}

// Commands that carry no prose; a block made only of these is literal
var structuralCommands = map[string]bool{
	"label": true, "input": true, "include": true, "includegraphics": true,
	"maketitle": true, "tableofcontents": true, "listoffigures": true, "listoftables": true,
	"newpage": true, "clearpage": true, "cleardoublepage": true, "pagebreak": true,
	"bibliography": true, "bibliographystyle": true, "printbibliography": true,
	"centering": true, "vspace": true, "hspace": true, "noindent": true,
	"appendix": true, "frontmatter": true, "mainmatter": true, "backmatter": true,
	"smallskip": true, "medskip": true, "bigskip": true, "hline": true,
	"newcommand": true, "renewcommand": true, "setlength": true, "setcounter": true,
	"addtocounter": true, "usepackage": true, "graphicspath": true, "FloatBarrier": true,
}

type latex struct{}

// NewLaTeX returns the LaTeX adapter
func NewLaTeX() Dialect {
	return latex{}
}

func (latex) Name() string { return LaTeX }

func (latex) FormatMarker(p models.Provenance) string {
	return "% " + fmt.Sprintf(markerBody, p.Source, p.Anchor, p.NeedsReview)
}

func (latex) ParseMarker(line string) (models.Provenance, bool) {
	return parseMarkerWith(texMarker, line)
}

func (d latex) Split(text string) ([]models.Span, error) {
	if err := checkBalanced(text); err != nil {
		return nil, err
	}

	lines := splitLines(text)
	out := &spanList{lines: lines}

	body, end := 0, len(lines)
	if b := findLine(lines, 0, len(lines), func(l line) bool { return strings.Contains(stripComment(l.text), `\begin{document}`) }); b >= 0 {
		if first := findLine(lines, 0, b+1, func(l line) bool { return !l.blank() }); first >= 0 {
			out.add(first, b, models.ChunkLiteral)
		}
		body = b + 1
		if e := findLine(lines, body, len(lines), func(l line) bool { return strings.Contains(stripComment(l.text), `\end{document}`) }); e >= 0 {
			end = e
		}
	}

	i := body
	for i < end {
		l := lines[i]
		t := l.trimmed()
		switch {
		case l.blank():
			i++
		case d.isMarker(t):
			out.add(i, i, models.ChunkLiteral)
			i++
		case strings.HasPrefix(t, "%"):
			j := i
			for j+1 < end && strings.HasPrefix(lines[j+1].trimmed(), "%") && !d.isMarker(lines[j+1].trimmed()) {
				j++
			}
			out.add(i, j, models.ChunkLiteral)
			i = j + 1
		default:
			j, kind, err := d.block(lines, i, end)
			if err != nil {
				return nil, err
			}
			out.add(i, j, kind)
			i = j + 1
		}
	}

	if end < len(lines) {
		last := len(lines) - 1
		for last > end && lines[last].blank() {
			last--
		}
		out.add(end, last, models.ChunkLiteral)
	}
	return out.spans, nil
}

func (d latex) isMarker(t string) bool {
	_, ok := d.ParseMarker(t)
	return ok
}

// block classifies the block starting at lines[i] and returns its last line
func (d latex) block(lines []line, i, end int) (int, models.ChunkKind, error) {
	l := lines[i]
	t := l.trimmed()

	if strings.HasPrefix(t, `\[`) {
		if strings.Contains(t[2:], `\]`) {
			return i, models.ChunkLiteral, nil
		}
		j := findLine(lines, i+1, end, func(c line) bool { return strings.Contains(c.text, `\]`) })
		if j < 0 {
			return 0, "", segErr(LaTeX, l.start, `unterminated \[ display math`)
		}
		return j, models.ChunkLiteral, nil
	}

	if strings.HasPrefix(t, "$$") {
		if len(t) > 4 && strings.HasSuffix(t, "$$") {
			return i, models.ChunkLiteral, nil
		}
		j := findLine(lines, i+1, end, func(c line) bool { return strings.Contains(c.text, "$$") })
		if j < 0 {
			return 0, "", segErr(LaTeX, l.start, "unterminated $$ display math")
		}
		return j, models.ChunkLiteral, nil
	}

	if name, ok := leadingEnv(t); ok && literalEnvs[name] {
		j, err := matchingEnd(lines, i, end, name)
		if err != nil {
			return 0, "", err
		}
		return j, models.ChunkLiteral, nil
	}

	// Prose: runs to a blank line, but never stops inside an open environment
	depth := envDelta(l.text)
	j := i
	for j+1 < end {
		next := lines[j+1]
		if depth <= 0 && (next.blank() || d.interrupts(next)) {
			break
		}
		j++
		depth += envDelta(next.text)
	}

	structural := true
	for k := i; k <= j && structural; k++ {
		structural = isStructural(lines[k].text)
	}
	if structural {
		return j, models.ChunkLiteral, nil
	}
	return j, models.ChunkTranslatable, nil
}

func (d latex) interrupts(l line) bool {
	t := l.trimmed()
	if strings.HasPrefix(t, "%") || strings.HasPrefix(t, `\[`) || strings.HasPrefix(t, "$$") {
		return true
	}
	name, ok := leadingEnv(t)
	return ok && literalEnvs[name]
}

// leadingEnv returns the environment name when t starts with \begin{name}
func leadingEnv(t string) (string, bool) {
	if !strings.HasPrefix(t, `\begin{`) {
		return "", false
	}
	close := strings.IndexByte(t, '}')
	if close < 0 {
		return "", false
	}
	return t[len(`\begin{`):close], true
}

// matchingEnd finds the line holding the \end that closes the \begin{name} on lines[i]
func matchingEnd(lines []line, i, end int, name string) (int, error) {
	open, closer := `\begin{`+name+`}`, `\end{`+name+`}`
	depth := 0
	for j := i; j < end; j++ {
		text := lines[j].text
		if !rawEnvs[name] {
			text = stripComment(text)
		}
		depth += strings.Count(text, open) - strings.Count(text, closer)
		if depth <= 0 {
			return j, nil
		}
	}
	return 0, segErr(LaTeX, lines[i].start, fmt.Sprintf(`unterminated \begin{%s}`, name))
}

// envDelta counts \begin minus \end on one line, ignoring comments
func envDelta(text string) int {
	text = stripComment(text)
	return strings.Count(text, `\begin{`) - strings.Count(text, `\end{`)
}

// stripComment drops everything from the first unescaped %
func stripComment(text string) string {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '%':
			return text[:i]
		}
	}
	return text
}

// isStructural reports whether a line holds only structural commands and their arguments
func isStructural(text string) bool {
	s := strings.TrimSpace(stripComment(text))
	if s == "" {
		return true
	}
	for s != "" {
		if s[0] != '\\' {
			return false
		}
		n := 1
		for n < len(s) && (s[n] >= 'a' && s[n] <= 'z' || s[n] >= 'A' && s[n] <= 'Z') {
			n++
		}
		if n == 1 || !structuralCommands[s[1:n]] {
			return false
		}
		if n < len(s) && s[n] == '*' {
			n++
		}
		s = s[n:]
		for {
			s = strings.TrimLeft(s, " \t")
			if s == "" || (s[0] != '{' && s[0] != '[') {
				break
			}
			k := groupEnd(s)
			if k < 0 {
				return false
			}
			s = s[k+1:]
		}
		s = strings.TrimSpace(s)
	}
	return true
}

// groupEnd returns the index of the bracket closing the group that opens s
func groupEnd(s string) int {
	open := s[0]
	closer := byte('}')
	if open == '[' {
		closer = ']'
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// checkBalanced rejects documents with unbalanced braces or \begin/\end pairs
func checkBalanced(text string) error {
	type env struct {
		name   string
		offset int
	}
	var stack []env
	braces, braceAt := 0, 0

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '%':
			nl := strings.IndexByte(text[i:], '\n')
			if nl < 0 {
				i = len(text)
			} else {
				i += nl
			}
		case '{':
			if braces == 0 {
				braceAt = i
			}
			braces++
		case '}':
			braces--
			if braces < 0 {
				return segErr(LaTeX, i, "unbalanced }")
			}
		case '\\':
			rest := text[i:]
			switch {
			case strings.HasPrefix(rest, `\begin{`):
				name, ok := leadingEnv(rest)
				if !ok {
					return segErr(LaTeX, i, `malformed \begin`)
				}
				skip := len(`\begin{`) + len(name)
				if rawEnvs[name] {
					closer := `\end{` + name + `}`
					k := strings.Index(rest, closer)
					if k < 0 {
						return segErr(LaTeX, i, fmt.Sprintf(`unterminated \begin{%s}`, name))
					}
					skip = k + len(closer) - 1
				} else {
					stack = append(stack, env{name: name, offset: i})
				}
				i += skip
			case strings.HasPrefix(rest, `\end{`):
				close := strings.IndexByte(rest, '}')
				if close < 0 {
					return segErr(LaTeX, i, `malformed \end`)
				}
				name := rest[len(`\end{`):close]
				if len(stack) == 0 || stack[len(stack)-1].name != name {
					return segErr(LaTeX, i, fmt.Sprintf(`\end{%s} without matching \begin`, name))
				}
				stack = stack[:len(stack)-1]
				i += close
			case strings.HasPrefix(rest, `\verb`) && len(rest) > 6 && !isLetter(rest[5]):
				k := 5
				if rest[k] == '*' {
					k++
				}
				delim := rest[k]
				end := strings.IndexByte(rest[k+1:], delim)
				if end < 0 {
					return segErr(LaTeX, i, `unterminated \verb`)
				}
				i += k + 1 + end
			default:
				i++
			}
		}
	}

	if braces != 0 {
		return segErr(LaTeX, braceAt, "unbalanced {")
	}
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return segErr(LaTeX, top.offset, fmt.Sprintf(`unterminated \begin{%s}`, top.name))
	}
	return nil
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
