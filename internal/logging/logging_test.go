// ABOUTME: Tests for logger construction and level selection
// ABOUTME: Verifies flag precedence and that output honors the level
package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want log.Level
	}{
		{"default", Options{}, log.InfoLevel},
		{"env debug", Options{Level: "DEBUG"}, log.DebugLevel},
		{"env warning", Options{Level: "warning"}, log.WarnLevel},
		{"verbose beats env", Options{Level: "error", Verbose: true}, log.DebugLevel},
		{"quiet", Options{Level: "debug", Quiet: true}, log.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LevelFor(tt.opts); got != tt.want {
				t.Errorf("LevelFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNew_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Quiet: true})

	logger.Info("hidden")
	logger.Error("shown", "file", "doc.md")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at error level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "doc.md") {
		t.Errorf("error line missing: %q", out)
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Error("OrDiscard(nil) returned nil")
	}
	l := Discard()
	if OrDiscard(l) != l {
		t.Error("OrDiscard() should return its argument")
	}
}
