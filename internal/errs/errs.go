// ABOUTME: Error kinds shared by the cache, index, segmenter and orchestrator
// ABOUTME: Sentinels for errors.Is plus typed errors that carry context and unwrap to them
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per error kind
var (
	ErrSegmentation           = errors.New("segmentation error")
	ErrChecksumCollision      = errors.New("checksum collision")
	ErrCorrespondenceConflict = errors.New("correspondence conflict")
	ErrProvider               = errors.New("provider error")
	ErrReassemblyMismatch     = errors.New("reassembly mismatch")
	ErrNotFound               = errors.New("not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrIO                     = errors.New("storage i/o failure")
	ErrUnresolved             = errors.New("unresolved chunks")
)

// SegmentationError reports a document that cannot be split into a round-trippable scaffold
type SegmentationError struct {
	Dialect string
	Offset  int
	Reason  string
}

func (e *SegmentationError) Error() string {
	return fmt.Sprintf("segmentation error (%s) at byte %d: %s", e.Dialect, e.Offset, e.Reason)
}

func (e *SegmentationError) Unwrap() error { return ErrSegmentation }

// CollisionError reports two distinct texts that hash to the same value
type CollisionError struct {
	Language string
	Hash     string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("checksum collision for %s/%s: stored text differs", e.Language, e.Hash)
}

func (e *CollisionError) Unwrap() error { return ErrChecksumCollision }

// ConflictError reports a non-correction write that would overwrite an existing mapping
type ConflictError struct {
	Language string
	Existing string
	Incoming string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("correspondence conflict for %s: existing %s, incoming %s",
		e.Language, short(e.Existing), short(e.Incoming))
}

func (e *ConflictError) Unwrap() error { return ErrCorrespondenceConflict }

// ProviderError wraps a failed translation call
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause
func (e *ProviderError) Unwrap() []error { return []error{ErrProvider, e.Err} }

// MismatchError reports a chunk whose provenance no longer fits the document shape
type MismatchError struct {
	Anchor int
	Reason string
}

func (e *MismatchError) Error() string {
	if e.Anchor > 0 {
		return fmt.Sprintf("reassembly mismatch at anchor %d: %s", e.Anchor, e.Reason)
	}
	return fmt.Sprintf("reassembly mismatch: %s", e.Reason)
}

func (e *MismatchError) Unwrap() error { return ErrReassemblyMismatch }

// NotFoundError represents a missing record, row or file
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IOError represents a storage-layer failure; these abort a whole run
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() []error { return []error{ErrIO, e.Err} }

// NewNotFound creates a NotFoundError
func NewNotFound(resource, key string) error {
	return &NotFoundError{Resource: resource, Key: key}
}

// NewIO creates an IOError, or returns nil when err is nil
func NewIO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}

// Invalid creates an ErrInvalidInput error with a formatted message
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// IsFatal reports whether err should abort a batch instead of a single file or chunk
func IsFatal(err error) bool {
	return errors.Is(err, ErrIO)
}

func short(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
