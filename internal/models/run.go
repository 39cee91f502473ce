// ABOUTME: RunContext carries the languages and vocabulary for one translation or correction run
// ABOUTME: Passed explicitly into every component call instead of living in a global
package models

import "github.com/harper/transdoc/internal/errs"

// VocabEntry is one (term, translation) pair passed to providers verbatim
type VocabEntry struct {
	Term        string `json:"term"`
	Translation string `json:"translation"`
}

// RunContext holds per-run parameters
type RunContext struct {
	Source     Language     `json:"source"`
	Target     Language     `json:"target"`
	Vocabulary []VocabEntry `json:"vocabulary,omitempty"`
	// Dialect overrides extension-based dialect detection when set
	Dialect string `json:"dialect,omitempty"`
	// RunID tags log lines for one invocation
	RunID string `json:"run_id,omitempty"`
}

// Validate checks that both languages are set and differ
func (rc RunContext) Validate() error {
	if rc.Source == "" || rc.Target == "" {
		return errs.Invalid("source and target languages are required")
	}
	if rc.Source == rc.Target {
		return errs.Invalid("source and target languages must differ (both %s)", rc.Source)
	}
	if !rc.Source.Valid() || !rc.Target.Valid() {
		return errs.Invalid("languages must be canonical codes, got %q and %q", rc.Source, rc.Target)
	}
	return nil
}
