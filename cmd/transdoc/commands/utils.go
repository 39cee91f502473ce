// ABOUTME: Shared setup and output helpers for CLI commands
// ABOUTME: Loads config and .env, opens the memory, builds loggers and prints JSON
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/transdoc/internal/checksum"
	"github.com/harper/transdoc/internal/config"
	"github.com/harper/transdoc/internal/logging"
	"github.com/harper/transdoc/internal/models"
	"github.com/harper/transdoc/internal/storage"
)

// loadConfig reads .env and the environment, then applies global flags
func loadConfig() (*config.Config, error) {
	// Load .env file if it exists (for API keys)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if rootDir != "" {
		cfg.Root = rootDir
	}
	return cfg, nil
}

// newLogger builds the process logger on the command's stderr
func newLogger(cmd *cobra.Command, cfg *config.Config) *log.Logger {
	return logging.New(cmd.ErrOrStderr(), logging.Options{
		Level:   cfg.LogLevel,
		Verbose: verbose,
		Quiet:   quiet,
	})
}

// openStore opens the translation memory described by cfg
func openStore(cfg *config.Config) (*storage.Storage, error) {
	alg, err := checksum.ParseAlgorithm(cfg.HashAlg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Options{Root: cfg.Root, Hash: alg, Backend: cfg.IndexFormat})
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// newRunID returns a short id that tags one invocation's log lines
func newRunID() string {
	return uuid.New().String()[:8]
}

// parseLanguages reads the --from and --to flags
func parseLanguages(from, to string) (models.Language, models.Language, error) {
	src, err := models.ParseLanguage(from)
	if err != nil {
		return "", "", fmt.Errorf("--from: %w", err)
	}
	tgt, err := models.ParseLanguage(to)
	if err != nil {
		return "", "", fmt.Errorf("--to: %w", err)
	}
	return src, tgt, nil
}

// jsonOutput reports whether results should be printed as JSON
func jsonOutput() bool {
	return outputFormat == "json"
}

func printJSON(w io.Writer, v interface{}) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", jsonData)
	return err
}

// outputPath names the translation of src: doc.md becomes doc.fr.md, or dir/doc.md with outDir
func outputPath(src string, target models.Language, outDir string) string {
	if outDir != "" {
		return filepath.Join(outDir, filepath.Base(src))
	}
	ext := filepath.Ext(src)
	return strings.TrimSuffix(src, ext) + "." + string(target) + ext
}

// truncate shortens a string to maxLen runes, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// oneLine collapses newlines for table cells
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
