// ABOUTME: Tests for correction reconciliation of edited translated documents
// ABOUTME: Covers corrections, acceptance, convergence and every mismatch kind
package core

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/harper/transdoc/internal/checksum"
	"github.com/harper/transdoc/internal/dialect"
	"github.com/harper/transdoc/internal/errs"
	"github.com/harper/transdoc/internal/llm"
	"github.com/harper/transdoc/internal/models"
	"github.com/harper/transdoc/internal/storage"
)

// translated runs a first translation and returns the store, source scaffold and output
func translated(t *testing.T, doc string, table map[string]string) (*storage.Storage, *models.Scaffold, string) {
	t.Helper()
	store := newTestStore(t)
	o := NewOrchestrator(store, llm.NewStub(table), DefaultOptions(), nil)
	res := translate(t, o, doc)
	sc, err := o.Segmenter().Segment(doc, dialect.NewText())
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	return store, sc, res.Output
}

func reconcile(t *testing.T, store *storage.Storage, edited string, source *models.Scaffold) *CorrectionReport {
	t.Helper()
	report, err := NewReconciler(store, nil).Reconcile(context.Background(), enFr, edited, dialect.NewText(), source)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	return report
}

func TestReconcile_CorrectionReplacesMapping(t *testing.T) {
	store, source, out := translated(t, "Hello world.\n", map[string]string{"Hello world.": "Bonjour le monde."})
	ctx := context.Background()
	oldFr := checksum.Hash("Bonjour le monde.")

	edited := strings.Replace(out, "Bonjour le monde.", "Salut le monde.", 1)
	report := reconcile(t, store, edited, source)

	if report.Count(OutcomeCorrected) != 1 || len(report.Results) != 1 {
		t.Fatalf("report = %+v", report)
	}
	if countRecords(t, store, "fr") != 2 || countRows(t, store) != 1 {
		t.Errorf("fr records = %d, rows = %d, want 2/1", countRecords(t, store, "fr"), countRows(t, store))
	}

	others, _ := store.Index.Lookup(ctx, "en", checksum.Hash("Hello world."))
	newFr := checksum.Hash("Salut le monde.")
	if others["fr"] != newFr {
		t.Errorf("fr cell = %s, want %s", others["fr"], newFr)
	}
	if text, err := store.Content.Get(ctx, "fr", oldFr); err != nil || text != "Bonjour le monde." {
		t.Errorf("superseded record = %q, %v", text, err)
	}
	if ok, _ := store.Index.IsReviewed(ctx, "fr", newFr); !ok {
		t.Error("corrected record should be reviewed")
	}

	// Converges: nothing new on a second pass
	again := reconcile(t, store, edited, source)
	if again.Count(OutcomeUnchanged) != 1 || countRecords(t, store, "fr") != 2 || countRows(t, store) != 1 {
		t.Errorf("second pass changed state: %+v", again.Counts)
	}

	// The correction is served on the next translation, already reviewed
	o := NewOrchestrator(store, llm.NewStub(nil), DefaultOptions(), nil)
	res := translate(t, o, "Hello world.\n")
	if !strings.HasPrefix(res.Output, "Salut le monde.\n") || res.Chunks[0].NeedsReview {
		t.Errorf("retranslation = %q (needs review %v)", res.Output, res.Chunks[0].NeedsReview)
	}
}

func TestReconcile_AcceptanceMarksReviewed(t *testing.T) {
	store, source, out := translated(t, "Hello.\n", nil)
	edited := strings.Replace(out, "needs_review=true", "needs_review=false", 1)

	if got := reconcile(t, store, edited, source).Count(OutcomeAccepted); got != 1 {
		t.Fatalf("accepted = %d, want 1", got)
	}
	if ok, _ := store.Index.IsReviewed(context.Background(), "fr", checksum.Hash("[fr] Hello.")); !ok {
		t.Error("accepted record should be reviewed")
	}
	if got := reconcile(t, store, edited, source).Count(OutcomeUnchanged); got != 1 {
		t.Errorf("second pass unchanged = %d, want 1", got)
	}
	if got := reconcile(t, store, out, source).Count(OutcomeUnchanged); got != 1 {
		t.Errorf("untouched output unchanged = %d, want 1", got)
	}
}

func TestReconcile_Mismatches(t *testing.T) {
	store, source, out := translated(t, "One.\n\nTwo.\n\nThree.\n", nil)
	parts := strings.Split(strings.TrimSuffix(out, "\n"), "\n\n")
	if len(parts) != 3 {
		t.Fatalf("unexpected output shape: %q", out)
	}
	join := func(p ...string) string { return strings.Join(p, "\n\n") + "\n" }
	marker := func(p string) string { return p[strings.Index(p, "\n")+1:] }

	tests := []struct {
		name       string
		edited     string
		source     *models.Scaffold
		mismatches int
		unchanged  int
	}{
		{"reordered anchors", join(parts[1], parts[0], parts[2]), nil, 1, 2},
		{"marker without text", join(parts[0], marker(parts[1]), parts[2]), nil, 1, 2},
		{"trailing text without marker", join(parts[0], parts[1], parts[2], "Tail."), nil, 1, 3},
		{"source drifted", out, segment(t, "One.\n\nChanged.\n\nThree.\n", dialect.NewText()), 1, 2},
		{"source lost anchor", out, segment(t, "One.\n\nTwo.\n", dialect.NewText()), 1, 2},
		{"matching source", out, source, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := reconcile(t, store, tt.edited, tt.source)
			if got := report.Count(OutcomeMismatch); got != tt.mismatches {
				t.Errorf("mismatches = %d, want %d (%+v)", got, tt.mismatches, report.Results)
			}
			if got := report.Count(OutcomeUnchanged); got != tt.unchanged {
				t.Errorf("unchanged = %d, want %d", got, tt.unchanged)
			}
			for _, r := range report.Results {
				if r.Outcome == OutcomeMismatch && !errors.Is(r.Err, errs.ErrReassemblyMismatch) {
					t.Errorf("mismatch err = %v", r.Err)
				}
			}
		})
	}
}

func TestReconcile_UnknownSourceIsNotFound(t *testing.T) {
	store := newTestStore(t)
	d := dialect.NewText()
	edited := "Texte.\n" + d.FormatMarker(models.Provenance{Source: checksum.Hash("never recorded"), Anchor: 1}) + "\n"

	report := reconcile(t, store, edited, nil)
	if report.Count(OutcomeNotFound) != 1 || !errors.Is(report.Results[0].Err, errs.ErrNotFound) {
		t.Errorf("report = %+v", report.Results)
	}
	if countRecords(t, store, "fr") != 0 {
		t.Error("not-found span should write nothing")
	}
}

func TestReconcile_SkipsPlaceholders(t *testing.T) {
	store := newTestStore(t)
	stub := llm.NewStub(nil)
	stub.Fail("Broken.", errors.New("503"))
	opts := DefaultOptions()
	opts.Placeholders = true
	res := translate(t, NewOrchestrator(store, stub, opts, nil), "Broken.\n")

	report := reconcile(t, store, res.Output, nil)
	if report.Count(OutcomeSkipped) != 1 || countRecords(t, store, "fr") != 0 {
		t.Errorf("report = %+v", report.Counts)
	}
}

func TestReconcile_SegmentationErrorIsReturned(t *testing.T) {
	store := newTestStore(t)
	_, err := NewReconciler(store, nil).Reconcile(context.Background(), enFr, "```\nopen\n", dialect.NewMarkdown(), nil)
	if !errors.Is(err, errs.ErrSegmentation) {
		t.Errorf("Reconcile() error = %v, want ErrSegmentation", err)
	}
}

func TestReconcile_TextBeforeLiteralNeedsMarker(t *testing.T) {
	store := newTestStore(t)
	d := dialect.NewMarkdown()
	o := NewOrchestrator(store, llm.NewStub(nil), DefaultOptions(), nil)
	res, err := o.TranslateDocument(context.Background(), enFr, "Para.\n\n```\nx\n```\n", d)
	if err != nil {
		t.Fatalf("TranslateDocument() error = %v", err)
	}

	edited := strings.Replace(res.Output, "```\nx", "Added by hand.\n\n```\nx", 1)
	report, err := NewReconciler(store, nil).Reconcile(context.Background(), enFr, edited, d, nil)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if report.Count(OutcomeMismatch) != 1 || report.Count(OutcomeUnchanged) != 1 {
		t.Errorf("counts = %+v", report.Counts)
	}
}

func TestReconcile_SpanSplitByMarkupIsNotApplied(t *testing.T) {
	store := newTestStore(t)
	d := dialect.NewMarkdown()
	o := NewOrchestrator(store, llm.NewStub(map[string]string{"Hello world.": "Bonjour le monde."}), DefaultOptions(), nil)
	res, err := o.TranslateDocument(context.Background(), enFr, "Hello world.\n", d)
	if err != nil {
		t.Fatalf("TranslateDocument() error = %v", err)
	}

	edited := strings.Replace(res.Output, "Bonjour le monde.", "Bonjour.\n\n---\n\nle monde.", 1)
	report, err := NewReconciler(store, nil).Reconcile(context.Background(), enFr, edited, d, nil)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if report.Count(OutcomeMismatch) != 2 || report.Count(OutcomeCorrected) != 0 {
		t.Errorf("counts = %+v", report.Counts)
	}

	others, _ := store.Index.Lookup(context.Background(), "en", checksum.Hash("Hello world."))
	if others["fr"] != checksum.Hash("Bonjour le monde.") {
		t.Errorf("fr cell = %s, want the original translation", others["fr"].Short())
	}
}

const notebookSource = `{
 "cells": [
  {"cell_type": "markdown", "metadata": {}, "source": ["Line one\n", "line two."]},
  {"cell_type": "code", "metadata": {}, "outputs": [], "source": ["print(\"Line one\")"]},
  {"cell_type": "markdown", "metadata": {}, "source": "Hello world."}
 ],
 "nbformat": 4
}
`

func TestNotebook_TranslateAndReconcile(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	d := dialect.NewNotebook()
	o := NewOrchestrator(store, llm.NewStub(map[string]string{
		"Line one\nline two.": "Ligne un\nligne deux.",
		"Hello world.":        "Bonjour le monde.",
	}), DefaultOptions(), nil)

	res, err := o.TranslateDocument(ctx, enFr, notebookSource, d)
	if err != nil {
		t.Fatalf("TranslateDocument() error = %v", err)
	}
	if res.Translated != 2 || res.Failed != 0 {
		t.Fatalf("Translated = %d, Failed = %d", res.Translated, res.Failed)
	}

	var nb struct {
		Cells []struct {
			CellType string `json:"cell_type"`
			Source   any    `json:"source"`
		} `json:"cells"`
	}
	if err := json.Unmarshal([]byte(res.Output), &nb); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, res.Output)
	}
	first, _ := nb.Cells[0].Source.([]any)
	if len(first) != 1 || !strings.HasPrefix(first[0].(string), "Ligne un\nligne deux.\n<!-- transdoc src=") {
		t.Errorf("first cell source = %#v", nb.Cells[0].Source)
	}
	if !strings.Contains(res.Output, `"source": ["print(\"Line one\")"]`) {
		t.Errorf("code cell changed:\n%s", res.Output)
	}
	if got := countRecords(t, store, "en"); got != 2 {
		t.Errorf("en records = %d, want 2", got)
	}
	others, _ := store.Index.Lookup(ctx, "en", checksum.Hash("Line one\nline two."))
	if others["fr"] != checksum.Hash("Ligne un\nligne deux.") {
		t.Errorf("fr cell = %s", others["fr"].Short())
	}

	edited := strings.Replace(res.Output, "Ligne un", "Première ligne", 1)
	report, err := NewReconciler(store, nil).Reconcile(ctx, enFr, edited, d, nil)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if report.Count(OutcomeCorrected) != 1 || report.Count(OutcomeUnchanged) != 1 || report.Count(OutcomeMismatch) != 0 {
		t.Errorf("counts = %+v", report.Counts)
	}
	others, _ = store.Index.Lookup(ctx, "en", checksum.Hash("Line one\nline two."))
	if others["fr"] != checksum.Hash("Première ligne\nligne deux.") {
		t.Errorf("fr cell after correction = %s", others["fr"].Short())
	}
}
