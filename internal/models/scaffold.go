// ABOUTME: Scaffold holds a document's ordered chunks and the glue bytes between them
// ABOUTME: Rendering a scaffold with its own chunk text reproduces the document exactly
package models

import "strings"

// Scaffold interleaves glue and chunks: Glue[0] Chunks[0] Glue[1] ... Chunks[n-1] Glue[n]
type Scaffold struct {
	Dialect string   `json:"dialect"`
	Chunks  []Chunk  `json:"chunks"`
	Glue    []string `json:"glue"`
}

// Render rebuilds the document from the scaffold's own chunk text
func (s *Scaffold) Render() string {
	var b strings.Builder
	for i, c := range s.Chunks {
		b.WriteString(s.GlueAt(i))
		b.WriteString(c.Raw)
	}
	b.WriteString(s.GlueAt(len(s.Chunks)))
	return b.String()
}

// GlueAt returns the glue that precedes chunk i (or trails the document when i == len(Chunks))
func (s *Scaffold) GlueAt(i int) string {
	if i < 0 || i >= len(s.Glue) {
		return ""
	}
	return s.Glue[i]
}

// Translatable returns the translatable chunks in document order
func (s *Scaffold) Translatable() []Chunk {
	var out []Chunk
	for _, c := range s.Chunks {
		if c.IsTranslatable() {
			out = append(out, c)
		}
	}
	return out
}

// ByAnchor returns the translatable chunk carrying the given anchor
func (s *Scaffold) ByAnchor(anchor int) (Chunk, bool) {
	for _, c := range s.Chunks {
		if c.IsTranslatable() && c.Anchor == anchor {
			return c, true
		}
	}
	return Chunk{}, false
}

// Slice returns the document bytes covering chunks first..last inclusive, glue between them included
func (s *Scaffold) Slice(first, last int) string {
	var b strings.Builder
	for i := first; i <= last && i < len(s.Chunks); i++ {
		if i > first {
			b.WriteString(s.GlueAt(i))
		}
		b.WriteString(s.Chunks[i].Raw)
	}
	return b.String()
}

// Span is a half-open byte range [Start, End) of a document that a dialect
// classified; bytes outside every span are glue
type Span struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Kind  ChunkKind `json:"kind"`
}
