// ABOUTME: CLI commands to export, import and rebuild correspondence rows
// ABOUTME: Moves the index between machines or backends, or recovers it from translated documents
package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/transdoc/internal/core"
	"github.com/harper/transdoc/internal/dialect"
	"github.com/harper/transdoc/internal/models"
	"github.com/harper/transdoc/internal/storage"
)

var (
	indexAs      string
	indexKey     string
	indexFrom    string
	indexTo      string
	indexDialect string
)

// NewIndexCmd creates the index command group
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Export, import or rebuild the correspondence index",
		Long: `Export, import or rebuild correspondence rows.

The format follows the file extension (.csv, .json, .yaml) unless --as
is given. Imports never overwrite: rows that conflict with existing
mappings are counted and skipped.

Rebuild reads a source document and its translation and records every
span whose provenance marker names a chunk of the source. It recovers a
memory from documents translated elsewhere without calling a provider.`,
	}

	export := &cobra.Command{
		Use:   "export FILE",
		Short: "Write every correspondence row to FILE (- for stdout)",
		Args:  cobra.ExactArgs(1),
		RunE:  runIndexExport,
	}
	export.Flags().StringVar(&indexAs, "as", "", "Format: csv, json or yaml")

	imp := &cobra.Command{
		Use:   "import FILE",
		Short: "Record correspondence rows read from FILE",
		Args:  cobra.ExactArgs(1),
		RunE:  runIndexImport,
	}
	imp.Flags().StringVar(&indexAs, "as", "", "Format: csv, json or yaml")
	imp.Flags().StringVar(&indexKey, "key", "", "Language whose hash identifies each row (required)")
	_ = imp.MarkFlagRequired("key")

	rebuild := &cobra.Command{
		Use:   "rebuild SOURCE TARGET",
		Short: "Recover correspondences from a source document and its marked translation",
		Example: `  transdoc index rebuild --from en --to fr README.md README.fr.md
  transdoc index rebuild --from en --to de --dialect latex paper.tex paper.de.tex`,
		Args: cobra.ExactArgs(2),
		RunE: runIndexRebuild,
	}
	rebuild.Flags().StringVar(&indexFrom, "from", "", "Language of SOURCE (required)")
	rebuild.Flags().StringVar(&indexTo, "to", "", "Language of TARGET (required)")
	rebuild.Flags().StringVar(&indexDialect, "dialect", "", "Document dialect (default: from the SOURCE extension)")
	_ = rebuild.MarkFlagRequired("from")
	_ = rebuild.MarkFlagRequired("to")

	cmd.AddCommand(export)
	cmd.AddCommand(imp)
	cmd.AddCommand(rebuild)
	return cmd
}

// transferFormat picks the export format from --as or the file extension
func transferFormat(path string) string {
	if indexAs != "" {
		return strings.ToLower(indexAs)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return storage.FormatJSON
	case ".yaml", ".yml":
		return storage.FormatYAML
	default:
		return storage.FormatCSV
	}
}

func runIndexExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	path := args[0]
	var w io.Writer = cmd.OutOrStdout()
	var f *os.File
	if path != "-" {
		if f, err = os.Create(path); err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		w = f
	}

	err = storage.Export(cmd.Context(), store.Index, w, transferFormat(path))
	if f != nil {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("exporting index: %w", err)
	}

	if path != "-" && !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported index to %s\n", path)
	}
	return nil
}

func runIndexImport(cmd *cobra.Command, args []string) error {
	key, err := models.ParseLanguage(indexKey)
	if err != nil {
		return fmt.Errorf("--key: %w", err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	report, err := storage.Import(cmd.Context(), store.Index, f, transferFormat(args[0]), key)
	if err != nil {
		return fmt.Errorf("importing index: %w", err)
	}

	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), report)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d row(s), %d conflict(s), %d skipped\n",
		report.Recorded, report.Conflicts, report.Skipped)
	return nil
}

func runIndexRebuild(cmd *cobra.Command, args []string) error {
	source, target, err := parseLanguages(indexFrom, indexTo)
	if err != nil {
		return err
	}
	rc := models.RunContext{Source: source, Target: target, Dialect: indexDialect, RunID: newRunID()}
	if err := rc.Validate(); err != nil {
		return err
	}
	d, err := dialect.Resolve(indexDialect, args[0])
	if err != nil {
		return err
	}
	srcText, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	tgtText, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[1], err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	logger := newLogger(cmd, cfg).With("run", rc.RunID)
	report, err := core.NewRebuilder(store, logger).Rebuild(ctx, rc, string(srcText), string(tgtText), d)
	if err != nil {
		return fmt.Errorf("rebuilding from %s: %w", args[1], err)
	}

	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), report)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Rebuilt %d pair(s) from %s, %d missing, %d conflict(s), %d skipped\n",
		report.Recovered, args[1], report.Missing, report.Conflicts, report.Skipped)
	return nil
}
