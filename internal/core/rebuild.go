// ABOUTME: Rebuilder recovers correspondences from a source document and its marked translation
// ABOUTME: Restores a lost or foreign memory without calling a provider
package core

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/harper/transdoc/internal/dialect"
	"github.com/harper/transdoc/internal/errs"
	"github.com/harper/transdoc/internal/logging"
	"github.com/harper/transdoc/internal/models"
	"github.com/harper/transdoc/internal/storage"
)

// RebuildReport counts what one document pair gave back. Missing spans name a source hash the
// source document no longer has; skipped spans are placeholders or carry no marker.
type RebuildReport struct {
	Recovered int `json:"recovered"`
	Missing   int `json:"missing"`
	Conflicts int `json:"conflicts"`
	Skipped   int `json:"skipped"`
}

// Rebuilder records translation pairs read back from documents
type Rebuilder struct {
	store     *storage.Storage
	segmenter *Segmenter
	logger    *log.Logger
}

// NewRebuilder creates a Rebuilder over store
func NewRebuilder(store *storage.Storage, logger *log.Logger) *Rebuilder {
	return &Rebuilder{
		store:     store,
		segmenter: NewSegmenter(store.Content.Hasher()),
		logger:    logging.OrDiscard(logger),
	}
}

// Rebuild pairs every marked span of target with the source chunk its marker names and records
// the pair keyed by the source language. Markers whose needs_review flag is cleared also mark the
// translation reviewed. Conflicting pairs are counted and left out.
func (r *Rebuilder) Rebuild(ctx context.Context, rc models.RunContext, source, target string, d dialect.Dialect) (*RebuildReport, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	src, err := r.segmenter.Segment(source, d)
	if err != nil {
		return nil, err
	}
	sources := make(map[models.ChunkHash]string)
	for _, c := range src.Translatable() {
		if _, ok := sources[c.Hash]; !ok {
			sources[c.Hash] = c.Normalized
		}
	}
	if len(sources) == 0 {
		r.logger.Warn("source document has no translatable chunks")
	}

	tgt, err := r.segmenter.Segment(target, d)
	if err != nil {
		return nil, err
	}

	report := &RebuildReport{}
	emb, embedded := d.(dialect.Embedded)
	runStart := -1
	for i, c := range tgt.Chunks {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if c.IsTranslatable() {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		prov, ok := d.ParseMarker(c.Raw)
		if !ok || runStart < 0 {
			if runStart >= 0 {
				report.Skipped++
			}
			runStart = -1
			continue
		}
		text := tgt.Slice(runStart, i-1)
		runStart = -1

		if embedded {
			if text, err = emb.Decode(text); err != nil {
				r.logger.Warn("span does not decode", "anchor", prov.Anchor, "error", err)
				report.Skipped++
				continue
			}
		}
		if IsPlaceholder(text) {
			report.Skipped++
			continue
		}
		srcText, ok := sources[prov.Source]
		if !ok {
			r.logger.Warn("marker names a source chunk the source document does not have", "anchor", prov.Anchor, "hash", prov.Source.Short())
			report.Missing++
			continue
		}

		if err := r.record(ctx, rc, srcText, text, prov); err != nil {
			if errors.Is(err, errs.ErrCorrespondenceConflict) {
				r.logger.Warn("pair conflicts with the memory", "anchor", prov.Anchor, "error", err)
				report.Conflicts++
				continue
			}
			return report, err
		}
		report.Recovered++
	}
	if runStart >= 0 {
		report.Skipped++
	}

	r.logger.Info("rebuilt correspondences",
		"recovered", report.Recovered,
		"missing", report.Missing,
		"conflicts", report.Conflicts,
		"skipped", report.Skipped)
	return report, nil
}

func (r *Rebuilder) record(ctx context.Context, rc models.RunContext, srcText, tgtText string, prov models.Provenance) error {
	srcHash, err := r.store.Content.Put(ctx, rc.Source, srcText)
	if err != nil {
		return err
	}
	tgtHash, err := r.store.Content.Put(ctx, rc.Target, tgtText)
	if err != nil {
		return err
	}
	if err := r.store.Index.Record(ctx, models.Mapping{rc.Source: srcHash, rc.Target: tgtHash}, rc.Source); err != nil {
		return err
	}
	if prov.NeedsReview {
		return nil
	}
	return r.store.Index.MarkReviewed(ctx, rc.Target, tgtHash)
}
