// ABOUTME: Segmenter turns a document into a scaffold of hashed chunks and glue
// ABOUTME: Splits with a dialect adapter, then proves the scaffold renders back to the input
package core

import (
	"fmt"

	"github.com/harper/transdoc/internal/checksum"
	"github.com/harper/transdoc/internal/dialect"
	"github.com/harper/transdoc/internal/errs"
	"github.com/harper/transdoc/internal/models"
)

// Segmenter handles document chunking
type Segmenter struct {
	hasher checksum.Hasher
}

// NewSegmenter creates a Segmenter that hashes chunks with h
func NewSegmenter(h checksum.Hasher) *Segmenter {
	return &Segmenter{hasher: h}
}

// Segment splits text into a scaffold. Translatable chunks get 1-based anchors in document order.
func (s *Segmenter) Segment(text string, d dialect.Dialect) (*models.Scaffold, error) {
	spans, err := d.Split(text)
	if err != nil {
		return nil, err
	}

	emb, embedded := d.(dialect.Embedded)
	sc := &models.Scaffold{Dialect: d.Name()}
	prev, anchor := 0, 0
	for i, sp := range spans {
		if sp.Start < prev || sp.End <= sp.Start || sp.End > len(text) {
			return nil, &errs.SegmentationError{
				Dialect: d.Name(),
				Offset:  sp.Start,
				Reason:  fmt.Sprintf("span %d [%d,%d) overlaps or is empty", i, sp.Start, sp.End),
			}
		}
		raw := text[sp.Start:sp.End]
		decoded := raw
		if embedded && sp.Kind == models.ChunkTranslatable {
			if decoded, err = emb.Decode(raw); err != nil {
				return nil, &errs.SegmentationError{Dialect: d.Name(), Offset: sp.Start, Reason: err.Error()}
			}
		}
		normalized := checksum.Normalize(decoded)

		chunk := models.Chunk{
			Position:   len(sc.Chunks),
			Offset:     sp.Start,
			Kind:       sp.Kind,
			Raw:        raw,
			Normalized: normalized,
			Hash:       s.hasher.HashNormalized(normalized),
		}
		if chunk.IsTranslatable() {
			anchor++
			chunk.Anchor = anchor
		}

		sc.Glue = append(sc.Glue, text[prev:sp.Start])
		sc.Chunks = append(sc.Chunks, chunk)
		prev = sp.End
	}
	sc.Glue = append(sc.Glue, text[prev:])

	if sc.Render() != text {
		return nil, &errs.SegmentationError{Dialect: d.Name(), Offset: 0, Reason: "scaffold does not reproduce the input"}
	}
	return sc, nil
}
