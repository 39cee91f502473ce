// ABOUTME: Tests for reassembly: round trip, markers, unresolved chunks and placeholders
// ABOUTME: Finals are keyed by scaffold position regardless of completion order
package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/harper/transdoc/internal/checksum"
	"github.com/harper/transdoc/internal/dialect"
	"github.com/harper/transdoc/internal/errs"
	"github.com/harper/transdoc/internal/models"
)

func segment(t *testing.T, doc string, d dialect.Dialect) *models.Scaffold {
	t.Helper()
	sc, err := NewSegmenter(checksum.New(checksum.SHA256)).Segment(doc, d)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	return sc
}

func rawFinals(sc *models.Scaffold) map[int]string {
	finals := make(map[int]string)
	for _, c := range sc.Translatable() {
		finals[c.Position] = c.Raw
	}
	return finals
}

func TestReassemble_RoundTrip(t *testing.T) {
	docs := []struct {
		d   dialect.Dialect
		doc string
	}{
		{dialect.NewMarkdown(), "# T\n\nPara one.\n\n```\nx\n```\n\n> quote\n"},
		{dialect.NewLaTeX(), "Intro.\n\n% note\n\\[ x \\]\n\nOutro.\n"},
		{dialect.NewText(), "\n\nA\nB\n\n\nC  \n"},
	}

	for _, tt := range docs {
		t.Run(tt.d.Name(), func(t *testing.T) {
			sc := segment(t, tt.doc, tt.d)
			got, err := NewReassembler(tt.d, false, false).Reassemble(sc, rawFinals(sc))
			if err != nil {
				t.Fatalf("Reassemble() error = %v", err)
			}
			if got != tt.doc {
				t.Errorf("Reassemble() = %q, want %q", got, tt.doc)
			}
		})
	}
}

func TestReassemble_Markers(t *testing.T) {
	d := dialect.NewMarkdown()
	sc := segment(t, "Hello.\n\n```\ncode\n```\n\nBye.\n", d)
	tr := sc.Translatable()
	sc.Chunks[tr[1].Position].NeedsReview = true

	got, err := NewReassembler(d, true, false).Reassemble(sc, map[int]string{
		tr[1].Position: "Au revoir.",
		tr[0].Position: "Bonjour.",
	})
	if err != nil {
		t.Fatalf("Reassemble() error = %v", err)
	}

	want := "Bonjour.\n" + d.FormatMarker(models.Provenance{Source: tr[0].Hash, Anchor: 1}) +
		"\n\n```\ncode\n```\n\nAu revoir.\n" +
		d.FormatMarker(models.Provenance{Source: tr[1].Hash, Anchor: 2, NeedsReview: true}) + "\n"
	if got != want {
		t.Errorf("Reassemble() =\n%s\nwant\n%s", got, want)
	}
}

func TestReassemble_Unresolved(t *testing.T) {
	d := dialect.NewText()
	sc := segment(t, "One.\n\nTwo.\n", d)
	first := sc.Translatable()[0]

	_, err := NewReassembler(d, true, false).Reassemble(sc, map[int]string{first.Position: "Un."})
	if !errors.Is(err, errs.ErrUnresolved) {
		t.Fatalf("Reassemble() error = %v, want ErrUnresolved", err)
	}

	got, err := NewReassembler(d, true, true).Reassemble(sc, map[int]string{first.Position: "Un."})
	if err != nil {
		t.Fatalf("Reassemble(placeholders) error = %v", err)
	}
	if !strings.Contains(got, "[UNTRANSLATED: 2] Two.\n") {
		t.Errorf("output lacks placeholder: %q", got)
	}
	if !strings.Contains(got, "anchor=2 needs_review=true") {
		t.Errorf("placeholder marker should need review: %q", got)
	}
	if !IsPlaceholder("  [UNTRANSLATED: 2] Two.") || IsPlaceholder("Deux.") {
		t.Error("IsPlaceholder() misclassifies")
	}
}

func TestReassemble_NotebookKeepsUntouchedCellsByteExact(t *testing.T) {
	d := dialect.NewNotebook()
	doc := "{\"cells\": [{\"cell_type\": \"markdown\", \"source\": [\"Intro \\u00e9t\\u00e9\\n\", \"  second line.\"]}], \"nbformat\": 4}\n"
	sc := segment(t, doc, d)

	finals := make(map[int]string)
	for _, c := range sc.Translatable() {
		finals[c.Position] = c.Normalized
	}
	got, err := NewReassembler(d, false, false).Reassemble(sc, finals)
	if err != nil {
		t.Fatalf("Reassemble() error = %v", err)
	}
	if got != doc {
		t.Errorf("Reassemble() = %q, want %q", got, doc)
	}

	tr := sc.Translatable()
	if len(tr) != 1 || tr[0].Normalized != "Intro été\n  second line." {
		t.Fatalf("chunks = %+v", tr)
	}
	got, err = NewReassembler(d, false, true).Reassemble(sc, map[int]string{})
	if err != nil {
		t.Fatalf("Reassemble(placeholders) error = %v", err)
	}
	if !strings.Contains(got, `"source": ["[UNTRANSLATED: 1] Intro été\n  second line."]`) {
		t.Errorf("placeholder not encoded into the cell: %q", got)
	}
}
