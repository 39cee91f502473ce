// ABOUTME: Chunk represents one structural unit of a document in one language
// ABOUTME: Chunks are translatable prose or literal markup that must be copied byte for byte
package models

import "fmt"

// ChunkKind tells whether a chunk is eligible for translation
type ChunkKind string

const (
	ChunkTranslatable ChunkKind = "TRANSLATABLE"
	ChunkLiteral      ChunkKind = "LITERAL"
)

// IsValid returns true if the chunk kind is a known value
func (k ChunkKind) IsValid() bool {
	switch k {
	case ChunkTranslatable, ChunkLiteral:
		return true
	default:
		return false
	}
}

// Chunk is immutable once hashed; a new text always produces a new hash
type Chunk struct {
	Position    int       `json:"position"`
	Offset      int       `json:"offset"`
	Kind        ChunkKind `json:"kind"`
	Raw         string    `json:"raw"`
	Normalized  string    `json:"normalized"`
	Hash        ChunkHash `json:"hash"`
	Anchor      int       `json:"anchor,omitempty"`
	NeedsReview bool      `json:"needs_review,omitempty"`
}

// End returns the byte offset just past the chunk in its document
func (c Chunk) End() int {
	return c.Offset + len(c.Raw)
}

// IsTranslatable reports whether the chunk may be sent to a provider
func (c Chunk) IsTranslatable() bool {
	return c.Kind == ChunkTranslatable
}

// Label is a short human-readable identifier for logs and reports
func (c Chunk) Label() string {
	if c.Anchor > 0 {
		return fmt.Sprintf("#%d (anchor %d)", c.Position, c.Anchor)
	}
	return fmt.Sprintf("#%d", c.Position)
}

// ChunkState tracks a translatable chunk through a translation run
type ChunkState string

const (
	StateUnseen           ChunkState = "UNSEEN"
	StateCacheHit         ChunkState = "CACHE_HIT"
	StateNeedsTranslation ChunkState = "NEEDS_TRANSLATION"
	StateTranslated       ChunkState = "TRANSLATED"
)

// IsResolved reports whether a chunk has final text available
func (s ChunkState) IsResolved() bool {
	return s == StateTranslated || s == StateCacheHit
}
