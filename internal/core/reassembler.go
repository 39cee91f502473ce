// ABOUTME: Reassembler rebuilds a document from its scaffold and the final text of each chunk
// ABOUTME: Literal chunks are copied verbatim; translatable chunks may carry provenance markers
package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harper/transdoc/internal/dialect"
	"github.com/harper/transdoc/internal/errs"
	"github.com/harper/transdoc/internal/models"
)

// UntranslatedPrefix starts the visible stand-in written for a chunk with no final text
const UntranslatedPrefix = "[UNTRANSLATED:"

// Reassembler renders scaffolds for one dialect
type Reassembler struct {
	dialect      dialect.Dialect
	provenance   bool
	placeholders bool
}

// NewReassembler creates a Reassembler. With provenance, every translatable chunk is followed
// by a marker line; with placeholders, missing finals become visible stand-ins instead of an error.
func NewReassembler(d dialect.Dialect, provenance, placeholders bool) *Reassembler {
	return &Reassembler{dialect: d, provenance: provenance, placeholders: placeholders}
}

// Reassemble substitutes finals by scaffold position. finals is keyed by chunk position;
// literal chunks ignore it. NeedsReview on each chunk feeds its marker.
func (r *Reassembler) Reassemble(sc *models.Scaffold, finals map[int]string) (string, error) {
	var missing []int
	for _, c := range sc.Chunks {
		if !c.IsTranslatable() {
			continue
		}
		if _, ok := finals[c.Position]; !ok {
			missing = append(missing, c.Position)
		}
	}
	if len(missing) > 0 && !r.placeholders {
		sort.Ints(missing)
		return "", fmt.Errorf("%w: %d chunk(s) without final text at positions %v", errs.ErrUnresolved, len(missing), missing)
	}

	emb, embedded := r.dialect.(dialect.Embedded)
	var b strings.Builder
	for i, c := range sc.Chunks {
		b.WriteString(sc.GlueAt(i))
		if !c.IsTranslatable() {
			b.WriteString(c.Raw)
			continue
		}

		text, ok := finals[c.Position]
		needsReview := c.NeedsReview
		if !ok {
			text = Placeholder(c)
			needsReview = true
		}
		marker := ""
		if r.provenance {
			marker = "\n" + r.dialect.FormatMarker(models.Provenance{
				Source:      c.Hash,
				Anchor:      c.Anchor,
				NeedsReview: needsReview,
			})
		}
		switch {
		case !embedded:
			b.WriteString(text + marker)
		case text == c.Normalized:
			b.WriteString(c.Raw + emb.Encode(marker))
		default:
			b.WriteString(emb.Encode(text + marker))
		}
	}
	b.WriteString(sc.GlueAt(len(sc.Chunks)))
	return b.String(), nil
}

// Placeholder is the stand-in text for an untranslated chunk
func Placeholder(c models.Chunk) string {
	return fmt.Sprintf("%s %d] %s", UntranslatedPrefix, c.Anchor, c.Normalized)
}

// IsPlaceholder reports whether text is an untranslated stand-in
func IsPlaceholder(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), UntranslatedPrefix)
}
