// ABOUTME: Tests for Scaffold rendering and chunk access helpers
// ABOUTME: Verifies glue interleaving and slicing across chunk runs
package models

import "testing"

func sampleScaffold() *Scaffold {
	return &Scaffold{
		Dialect: "text",
		Chunks: []Chunk{
			{Position: 0, Offset: 1, Kind: ChunkTranslatable, Raw: "Hello world.", Anchor: 1},
			{Position: 1, Offset: 15, Kind: ChunkLiteral, Raw: "```\ncode\n```"},
			{Position: 2, Offset: 29, Kind: ChunkTranslatable, Raw: "Bye.", Anchor: 2},
		},
		Glue: []string{"\n", "\n\n", "\n\n", "\n"},
	}
}

func TestScaffold_Render(t *testing.T) {
	want := "\nHello world.\n\n```\ncode\n```\n\nBye.\n"
	if got := sampleScaffold().Render(); got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestScaffold_RenderEmpty(t *testing.T) {
	s := &Scaffold{Glue: []string{"\n\n"}}
	if got := s.Render(); got != "\n\n" {
		t.Errorf("Render() = %q, want %q", got, "\n\n")
	}
}

func TestScaffold_Translatable(t *testing.T) {
	got := sampleScaffold().Translatable()
	if len(got) != 2 {
		t.Fatalf("Translatable() returned %d chunks, want 2", len(got))
	}
	if got[1].Raw != "Bye." {
		t.Errorf("Translatable()[1].Raw = %q, want %q", got[1].Raw, "Bye.")
	}
}

func TestScaffold_ByAnchor(t *testing.T) {
	s := sampleScaffold()
	c, ok := s.ByAnchor(2)
	if !ok || c.Raw != "Bye." {
		t.Errorf("ByAnchor(2) = %q, %v", c.Raw, ok)
	}
	if _, ok := s.ByAnchor(7); ok {
		t.Error("ByAnchor(7) should not be found")
	}
}

func TestScaffold_Slice(t *testing.T) {
	s := sampleScaffold()
	if got := s.Slice(0, 0); got != "Hello world." {
		t.Errorf("Slice(0, 0) = %q", got)
	}
	want := "Hello world.\n\n```\ncode\n```"
	if got := s.Slice(0, 1); got != want {
		t.Errorf("Slice(0, 1) = %q, want %q", got, want)
	}
}
