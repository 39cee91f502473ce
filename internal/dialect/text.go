// ABOUTME: Plain text adapter: blank-line separated paragraphs, all translatable
// ABOUTME: Markers use the HTML comment form so plain text and Markdown outputs look alike
package dialect

import (
	"fmt"

	"github.com/harper/transdoc/internal/models"
)

type plainText struct{}

// NewText returns the plain text adapter
func NewText() Dialect {
	return plainText{}
}

func (plainText) Name() string { return Text }

func (plainText) FormatMarker(p models.Provenance) string {
	return "<!-- " + fmt.Sprintf(markerBody, p.Source, p.Anchor, p.NeedsReview) + " -->"
}

func (plainText) ParseMarker(line string) (models.Provenance, bool) {
	return parseMarkerWith(mdMarker, line)
}

func (d plainText) Split(doc string) ([]models.Span, error) {
	lines := splitLines(doc)
	out := &spanList{lines: lines}

	isMarker := func(l line) bool {
		_, ok := d.ParseMarker(l.text)
		return ok
	}

	for i := 0; i < len(lines); {
		if lines[i].blank() {
			i++
			continue
		}
		if isMarker(lines[i]) {
			out.add(i, i, models.ChunkLiteral)
			i++
			continue
		}
		j := i
		for j+1 < len(lines) && !lines[j+1].blank() && !isMarker(lines[j+1]) {
			j++
		}
		out.add(i, j, models.ChunkTranslatable)
		i = j + 1
	}
	return out.spans, nil
}
