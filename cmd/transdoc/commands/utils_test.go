// ABOUTME: Tests for shared utility functions used by CLI commands
// ABOUTME: Verifies output paths, truncation and transfer format detection
package commands

import (
	"path/filepath"
	"testing"

	"github.com/harper/transdoc/internal/storage"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"long string truncated", "hello world", 8, "hello..."},
		{"very short maxLen", "hello", 2, "he"},
		{"maxLen equals 3", "hello", 3, "hel"},
		{"unicode", "héllo wörld", 8, "héllo..."},
		{"empty string", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		src    string
		outDir string
		want   string
	}{
		{"README.md", "", "README.fr.md"},
		{filepath.Join("docs", "paper.tex"), "", filepath.Join("docs", "paper.fr.tex")},
		{"notes", "", "notes.fr"},
		{filepath.Join("docs", "a.md"), "out", filepath.Join("out", "a.md")},
	}

	for _, tt := range tests {
		if got := outputPath(tt.src, "fr", tt.outDir); got != tt.want {
			t.Errorf("outputPath(%q, %q) = %q, want %q", tt.src, tt.outDir, got, tt.want)
		}
	}
}

func TestOneLine(t *testing.T) {
	if got := oneLine("a\n  b\tc\n"); got != "a b c" {
		t.Errorf("oneLine() = %q", got)
	}
}

func TestTransferFormat(t *testing.T) {
	tests := []struct {
		path string
		as   string
		want string
	}{
		{"rows.csv", "", storage.FormatCSV},
		{"rows.JSON", "", storage.FormatJSON},
		{"rows.yml", "", storage.FormatYAML},
		{"rows.yaml", "", storage.FormatYAML},
		{"-", "", storage.FormatCSV},
		{"rows.txt", "json", storage.FormatJSON},
	}

	for _, tt := range tests {
		indexAs = tt.as
		if got := transferFormat(tt.path); got != tt.want {
			t.Errorf("transferFormat(%q, as=%q) = %q, want %q", tt.path, tt.as, got, tt.want)
		}
	}
	indexAs = ""
}
