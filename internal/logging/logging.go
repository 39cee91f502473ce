// ABOUTME: Structured logging setup shared by the CLI, MCP server and core components
// ABOUTME: Wraps charmbracelet/log with level selection from flags and environment
package logging

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// Options configures a logger
type Options struct {
	// Level is debug, info, warn or error; Verbose and Quiet override it
	Level     string
	Verbose   bool
	Quiet     bool
	Prefix    string
	Timestamp bool
}

// New creates a logger writing to w
func New(w io.Writer, opts Options) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix:          opts.Prefix,
		ReportTimestamp: opts.Timestamp,
	})
	logger.SetLevel(LevelFor(opts))
	return logger
}

// LevelFor resolves the effective level: --verbose wins, then --quiet, then Level
func LevelFor(opts Options) log.Level {
	switch {
	case opts.Verbose:
		return log.DebugLevel
	case opts.Quiet:
		return log.ErrorLevel
	}
	switch strings.ToLower(strings.TrimSpace(opts.Level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Discard returns a logger that drops everything
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// OrDiscard returns l, or a discarding logger when l is nil
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
