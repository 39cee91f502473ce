// ABOUTME: Correction reconciler folds human edits of a translated document back into the cache
// ABOUTME: Markers tie each edited span to its source hash; drift is reported, never guessed
package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/harper/transdoc/internal/dialect"
	"github.com/harper/transdoc/internal/errs"
	"github.com/harper/transdoc/internal/logging"
	"github.com/harper/transdoc/internal/models"
	"github.com/harper/transdoc/internal/storage"
)

// CorrectionOutcome is what reconciliation did with one marked span
type CorrectionOutcome string

const (
	OutcomeCorrected CorrectionOutcome = "corrected"
	OutcomeAccepted  CorrectionOutcome = "accepted"
	OutcomeUnchanged CorrectionOutcome = "unchanged"
	OutcomeMismatch  CorrectionOutcome = "mismatch"
	OutcomeNotFound  CorrectionOutcome = "not_found"
	OutcomeSkipped   CorrectionOutcome = "skipped"
	OutcomeFailed    CorrectionOutcome = "failed"
)

// CorrectionResult reports one span of the target document
type CorrectionResult struct {
	Anchor   int               `json:"anchor,omitempty"`
	Source   models.ChunkHash  `json:"source,omitempty"`
	Previous models.ChunkHash  `json:"previous,omitempty"`
	Target   models.ChunkHash  `json:"target,omitempty"`
	Outcome  CorrectionOutcome `json:"outcome"`
	Err      error             `json:"-"`
	Error    string            `json:"error,omitempty"`
}

// CorrectionReport summarizes a reconciliation run
type CorrectionReport struct {
	Path    string                    `json:"path,omitempty"`
	Results []CorrectionResult        `json:"results"`
	Counts  map[CorrectionOutcome]int `json:"counts"`
}

func (r *CorrectionReport) add(res CorrectionResult) {
	if res.Err != nil {
		res.Error = res.Err.Error()
	}
	r.Results = append(r.Results, res)
	r.Counts[res.Outcome]++
}

// Count returns how many spans ended with outcome
func (r *CorrectionReport) Count(outcome CorrectionOutcome) int {
	return r.Counts[outcome]
}

// Reconciler applies corrections to the translation memory
type Reconciler struct {
	store     *storage.Storage
	segmenter *Segmenter
	logger    *log.Logger
}

// NewReconciler creates a Reconciler over store
func NewReconciler(store *storage.Storage, logger *log.Logger) *Reconciler {
	return &Reconciler{
		store:     store,
		segmenter: NewSegmenter(store.Content.Hasher()),
		logger:    logging.OrDiscard(logger),
	}
}

// Reconcile compares an edited target document with the memory. source, when not nil, is the
// current source scaffold; markers whose hash no longer sits at their anchor there are mismatches.
// Only segmentation, validation and storage I/O failures are returned as errors.
func (r *Reconciler) Reconcile(ctx context.Context, rc models.RunContext, target string, d dialect.Dialect, source *models.Scaffold) (*CorrectionReport, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	sc, err := r.segmenter.Segment(target, d)
	if err != nil {
		return nil, err
	}

	report := &CorrectionReport{Counts: make(map[CorrectionOutcome]int)}
	mismatch := func(anchor int, format string, args ...any) {
		err := &errs.MismatchError{Anchor: anchor, Reason: fmt.Sprintf(format, args...)}
		r.logger.Warn("skipping span", "anchor", anchor, "reason", err.Reason)
		report.add(CorrectionResult{Anchor: anchor, Outcome: OutcomeMismatch, Err: err})
	}

	runStart, lastAnchor := -1, 0
	// split is the offset of markup that cut the current span in two, or -1
	split := -1
	for i, c := range sc.Chunks {
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
		if !ok {
			if runStart >= 0 {
				mismatch(0, "text at byte %d has no provenance marker", sc.Chunks[runStart].Offset)
				runStart = -1
				split = c.Offset
			}
			continue
		}
		if runStart < 0 {
			mismatch(prov.Anchor, "marker at byte %d has no preceding text", c.Offset)
			split = -1
			continue
		}
		text := sc.Slice(runStart, i-1)
		runStart = -1

		if prov.Anchor <= lastAnchor {
			mismatch(prov.Anchor, "anchor does not follow anchor %d", lastAnchor)
			split = -1
			continue
		}
		lastAnchor = prov.Anchor

		if split >= 0 {
			mismatch(prov.Anchor, "span is split by markup at byte %d", split)
			split = -1
			continue
		}

		if source != nil {
			src, ok := source.ByAnchor(prov.Anchor)
			if !ok {
				mismatch(prov.Anchor, "source document has no chunk with this anchor")
				continue
			}
			if src.Hash != prov.Source {
				mismatch(prov.Anchor, "source chunk changed (%s now, marker says %s)", src.Hash.Short(), prov.Source.Short())
				continue
			}
		}

		if emb, ok := d.(dialect.Embedded); ok {
			if text, err = emb.Decode(text); err != nil {
				mismatch(prov.Anchor, "span does not decode: %v", err)
				continue
			}
		}

		res := r.apply(ctx, rc, prov, text)
		if res.Err != nil && errs.IsFatal(res.Err) {
			return report, res.Err
		}
		report.add(res)
	}
	if runStart >= 0 {
		mismatch(0, "text at byte %d has no provenance marker", sc.Chunks[runStart].Offset)
	}

	r.logger.Info("reconciled document",
		"corrected", report.Count(OutcomeCorrected),
		"accepted", report.Count(OutcomeAccepted),
		"unchanged", report.Count(OutcomeUnchanged),
		"mismatch", report.Count(OutcomeMismatch))
	return report, nil
}

// apply reconciles one marked span
func (r *Reconciler) apply(ctx context.Context, rc models.RunContext, prov models.Provenance, text string) CorrectionResult {
	res := CorrectionResult{Anchor: prov.Anchor, Source: prov.Source}
	fail := func(err error) CorrectionResult {
		res.Outcome = OutcomeFailed
		if errors.Is(err, errs.ErrNotFound) {
			res.Outcome = OutcomeNotFound
		}
		res.Err = err
		return res
	}

	if IsPlaceholder(text) {
		res.Outcome = OutcomeSkipped
		return res
	}

	others, err := r.store.Index.Lookup(ctx, rc.Source, prov.Source)
	if err != nil {
		return fail(err)
	}
	recorded, ok := others[rc.Target]
	if !ok {
		return fail(errs.NewNotFound("translation", fmt.Sprintf("%s/%s -> %s", rc.Source, prov.Source.Short(), rc.Target)))
	}
	res.Previous = recorded

	hash := r.store.Content.Hasher().Hash(text)
	if hash != recorded {
		stored, err := r.store.Content.Put(ctx, rc.Target, text)
		if err != nil {
			return fail(err)
		}
		mapping := models.Mapping{rc.Source: prov.Source, rc.Target: stored}
		if err := r.store.Index.Replace(ctx, mapping, rc.Source); err != nil {
			return fail(err)
		}
		if err := r.store.Index.MarkReviewed(ctx, rc.Target, stored); err != nil {
			return fail(err)
		}
		r.logger.Debug("recorded correction", "anchor", prov.Anchor, "from", recorded.Short(), "to", stored.Short())
		res.Target = stored
		res.Outcome = OutcomeCorrected
		return res
	}

	res.Target = recorded
	res.Outcome = OutcomeUnchanged
	if prov.NeedsReview {
		return res
	}
	reviewed, err := r.store.Index.IsReviewed(ctx, rc.Target, recorded)
	if err != nil {
		return fail(err)
	}
	if !reviewed {
		if err := r.store.Index.MarkReviewed(ctx, rc.Target, recorded); err != nil {
			return fail(err)
		}
		res.Outcome = OutcomeAccepted
	}
	return res
}
