// ABOUTME: Tests for prompt construction and <output> extraction
// ABOUTME: Covers vocabulary rendering and tag edge cases
package llm

import (
	"strings"
	"testing"

	"github.com/harper/transdoc/internal/models"
)

func TestBuildPrompt(t *testing.T) {
	system, user := BuildPrompt(Request{
		Text:       "Hello world.",
		Source:     "en",
		Target:     "fr",
		Vocabulary: []models.VocabEntry{{Term: "world", Translation: "monde"}},
	})

	if !strings.Contains(system, "from English to French") {
		t.Errorf("system prompt = %q", system)
	}
	if !strings.Contains(user, "world=monde\n") {
		t.Errorf("user prompt lacks vocabulary: %q", user)
	}
	if !strings.HasSuffix(user, "<input>\nHello world.\n</input>") {
		t.Errorf("user prompt = %q", user)
	}

	_, bare := BuildPrompt(Request{Text: "x", Source: "en", Target: "de"})
	if strings.Contains(bare, "vocabulary") {
		t.Errorf("empty vocabulary rendered: %q", bare)
	}
}

func TestExtractOutput(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{"single block", "Sure!\n<output>\nBonjour.\n</output>", "Bonjour."},
		{"multiple blocks", "<output>Un </output> et <output>deux</output>", "Un deux"},
		{"unclosed block", "<output>\nReste du texte", "Reste du texte"},
		{"no tags", "  Bonjour.  ", "Bonjour."},
		{"empty block", "<output></output>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractOutput(tt.answer); got != tt.want {
				t.Errorf("ExtractOutput() = %q, want %q", got, tt.want)
			}
		})
	}
}
