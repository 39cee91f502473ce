// ABOUTME: Dialect adapters classify document regions as translatable prose or literal markup
// ABOUTME: Each adapter also owns the syntax of the provenance marker written after translated chunks
package dialect

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/harper/transdoc/internal/models"
)

// Dialect names
const (
	Markdown = "markdown"
	LaTeX    = "latex"
	Text     = "text"
)

// Dialect splits a document into classified spans and reads/writes its provenance markers
type Dialect interface {
	Name() string
	// Split returns non-overlapping spans in document order; uncovered bytes are glue
	Split(text string) ([]models.Span, error)
	FormatMarker(p models.Provenance) string
	// ParseMarker reports whether line (without its newline) is a provenance marker
	ParseMarker(line string) (models.Provenance, bool)
}

var extensions = map[string]string{
	".md":       Markdown,
	".markdown": Markdown,
	".myst":     Markdown,
	".tex":      LaTeX,
	".txt":      Text,
	".text":     Text,
	".ipynb":    Notebook,
}

// ByName returns the adapter for a dialect name
func ByName(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Markdown, "md", "myst":
		return NewMarkdown(), nil
	case LaTeX, "tex":
		return NewLaTeX(), nil
	case Text, "txt", "plain":
		return NewText(), nil
	case Notebook, "ipynb", "jupyter":
		return NewNotebook(), nil
	default:
		return nil, fmt.Errorf("unknown dialect %q (want %s)", name, strings.Join(Names(), ", "))
	}
}

// ForPath picks the adapter from a file extension
func ForPath(path string) (Dialect, error) {
	name, ok := extensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("no dialect for %s; pass --dialect", filepath.Base(path))
	}
	return ByName(name)
}

// Resolve returns the named adapter when name is set, otherwise the one for path
func Resolve(name, path string) (Dialect, error) {
	if name != "" {
		return ByName(name)
	}
	return ForPath(path)
}

// Names lists the supported dialects
func Names() []string {
	names := []string{Markdown, LaTeX, Text, Notebook}
	sort.Strings(names)
	return names
}

// markerBody is shared by every dialect; only the comment wrapper differs
const markerBody = "transdoc src=%s anchor=%d needs_review=%t"

var markerFields = `transdoc src=([a-f0-9]{64}) anchor=([0-9]+) needs_review=(true|false)`

func parseMarkerWith(re *regexp.Regexp, line string) (models.Provenance, bool) {
	m := re.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return models.Provenance{}, false
	}
	anchor, err := strconv.Atoi(m[2])
	if err != nil || anchor < 1 {
		return models.Provenance{}, false
	}
	return models.Provenance{
		Source:      models.ChunkHash(m[1]),
		Anchor:      anchor,
		NeedsReview: m[3] == "true",
	}, true
}
