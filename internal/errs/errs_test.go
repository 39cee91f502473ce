// ABOUTME: Tests for error kinds and their unwrapping behavior
// ABOUTME: Verifies errors.Is/As work through wrapping for every typed error
package errs

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestTypedErrorsUnwrapToSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"segmentation", &SegmentationError{Dialect: "latex", Offset: 4, Reason: "unbalanced"}, ErrSegmentation},
		{"collision", &CollisionError{Language: "fr", Hash: "abc"}, ErrChecksumCollision},
		{"conflict", &ConflictError{Language: "fr", Existing: "a", Incoming: "b"}, ErrCorrespondenceConflict},
		{"provider", &ProviderError{Provider: "stub", Err: errors.New("boom")}, ErrProvider},
		{"mismatch", &MismatchError{Anchor: 2, Reason: "missing marker"}, ErrReassemblyMismatch},
		{"not found", NewNotFound("record", "fr/abc"), ErrNotFound},
		{"io", NewIO("write", "/tmp/x", os.ErrPermission), ErrIO},
		{"invalid", Invalid("bad hash %q", "zz"), ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false, want true", wrapped, tt.sentinel)
			}
			if tt.err.Error() == "" {
				t.Error("Error() should not be empty")
			}
		})
	}
}

func TestProviderErrorKeepsCause(t *testing.T) {
	cause := errors.New("rate limited")
	err := fmt.Errorf("chunk 3: %w", &ProviderError{Provider: "openai", Err: cause})

	if !errors.Is(err, cause) {
		t.Error("ProviderError should unwrap to its cause")
	}

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatal("errors.As should find *ProviderError")
	}
	if pe.Provider != "openai" {
		t.Errorf("Provider = %q, want %q", pe.Provider, "openai")
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(NewIO("read", "x", os.ErrPermission)) {
		t.Error("IOError should be fatal")
	}
	if IsFatal(NewNotFound("record", "x")) {
		t.Error("NotFoundError should not be fatal")
	}
	if NewIO("read", "x", nil) != nil {
		t.Error("NewIO(nil) should return nil")
	}
}

func TestConflictErrorShortensHashes(t *testing.T) {
	err := &ConflictError{
		Language: "fr",
		Existing: strings.Repeat("a", 64),
		Incoming: strings.Repeat("b", 64),
	}
	if strings.Contains(err.Error(), strings.Repeat("a", 13)) {
		t.Errorf("Error() = %q, want shortened hashes", err.Error())
	}
}
