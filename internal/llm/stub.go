// ABOUTME: Deterministic in-process provider for tests, dry runs and offline use
// ABOUTME: Answers from a fixed table or echoes "[lang] text", and counts calls
package llm

import (
	"context"
	"sync"
	"time"

	"github.com/harper/transdoc/internal/errs"
)

// Stub is a Provider that never leaves the process
type Stub struct {
	mu      sync.Mutex
	table   map[string]string
	calls   map[string]int
	total   int
	failing map[string]error

	// Delay is slept (honoring ctx) before every answer
	Delay time.Duration
}

// NewStub returns a stub answering from table; texts not in the table are echoed
func NewStub(table map[string]string) *Stub {
	if table == nil {
		table = make(map[string]string)
	}
	return &Stub{table: table, calls: make(map[string]int), failing: make(map[string]error)}
}

// Name identifies the provider in errors and logs
func (s *Stub) Name() string {
	return "stub"
}

// Fail makes every request for text return err
func (s *Stub) Fail(text string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[text] = err
}

// Set answers text with translation from now on
func (s *Stub) Set(text, translation string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table[text] = translation
}

// Calls returns the total number of Translate calls
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// CallsFor returns how many times text was requested
func (s *Stub) CallsFor(text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[text]
}

// Translate returns the table entry for req.Text, or "[target] text"
func (s *Stub) Translate(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	s.total++
	s.calls[req.Text]++
	answer, ok := s.table[req.Text]
	failure := s.failing[req.Text]
	delay := s.Delay
	s.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", &errs.ProviderError{Provider: s.Name(), Err: ctx.Err()}
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return "", &errs.ProviderError{Provider: s.Name(), Err: err}
	}
	if failure != nil {
		return "", &errs.ProviderError{Provider: s.Name(), Err: failure}
	}
	if ok {
		return answer, nil
	}
	return "[" + string(req.Target) + "] " + req.Text, nil
}
