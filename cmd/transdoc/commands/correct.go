// ABOUTME: CLI command to feed edited translations back into the memory
// ABOUTME: Reconciles marked spans once, or on every save with --watch
package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/harper/transdoc/internal/core"
	"github.com/harper/transdoc/internal/dialect"
	"github.com/harper/transdoc/internal/errs"
	"github.com/harper/transdoc/internal/models"
)

const watchDebounce = 300 * time.Millisecond

var (
	correctFrom    string
	correctTo      string
	correctSource  string
	correctDialect string
	correctWatch   bool
)

// NewCorrectCmd creates the correct command
func NewCorrectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correct FILE...",
		Short: "Learn from edited translations",
		Long: `Reconcile edited translated documents with the translation memory.

Every span followed by a provenance marker is compared with the stored
translation of its source chunk. Edited spans replace the stored
translation; untouched spans are accepted as reviewed. Spans whose
markers are missing, reordered or stale are reported and left alone.

Pass --source with the current source document to catch chunks whose
source text changed since the translation was made.

Examples:
  transdoc correct --from en --to fr README.fr.md
  transdoc correct --from en --to fr --source README.md README.fr.md
  transdoc correct --from en --to fr --watch docs/fr/*.md`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCorrect,
	}

	cmd.Flags().StringVar(&correctFrom, "from", "", "Source language of the original documents (required)")
	cmd.Flags().StringVar(&correctTo, "to", "", "Language of the edited documents (required)")
	cmd.Flags().StringVar(&correctSource, "source", "", "Current source document, for a single edited file")
	cmd.Flags().StringVar(&correctDialect, "dialect", "", "Document dialect (default: from file extension)")
	cmd.Flags().BoolVar(&correctWatch, "watch", false, "Keep running and reconcile files whenever they are saved")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runCorrect(cmd *cobra.Command, args []string) error {
	if correctSource != "" && len(args) > 1 {
		return fmt.Errorf("--source takes a single edited file")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	source, target, err := parseLanguages(correctFrom, correctTo)
	if err != nil {
		return err
	}
	rc := models.RunContext{Source: source, Target: target, Dialect: correctDialect, RunID: newRunID()}
	if err := rc.Validate(); err != nil {
		return err
	}

	logger := newLogger(cmd, cfg).With("run", rc.RunID)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	rec := core.NewReconciler(store, logger)
	seg := core.NewSegmenter(store.Content.Hasher())

	correctOne := func(path string) (*core.CorrectionReport, error) {
		return correctFile(ctx, rec, seg, rc, path, logger)
	}

	var reports []*core.CorrectionReport
	failed := 0
	for _, path := range args {
		report, err := correctOne(path)
		if err != nil {
			if errs.IsFatal(err) {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✗ %s: %v\n", path, err)
			failed++
			continue
		}
		reports = append(reports, report)
	}
	if err := printCorrectionReports(cmd, reports); err != nil {
		return err
	}

	if correctWatch {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %d file(s); press Ctrl-C to stop\n", len(args))
		}
		return core.Watch(ctx, args, watchDebounce, func(path string) {
			report, err := correctOne(path)
			if err != nil {
				logger.Error("correction failed", "file", path, "error", err)
				return
			}
			_ = printCorrectionReports(cmd, []*core.CorrectionReport{report})
		})
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d document(s) failed", failed, len(args))
	}
	return nil
}

// correctFile reconciles one edited document, segmenting --source when given
func correctFile(ctx context.Context, rec *core.Reconciler, seg *core.Segmenter, rc models.RunContext, path string, logger *log.Logger) (*core.CorrectionReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	d, err := dialect.Resolve(rc.Dialect, path)
	if err != nil {
		return nil, err
	}

	var src *models.Scaffold
	if correctSource != "" {
		raw, err := os.ReadFile(correctSource)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", correctSource, err)
		}
		if src, err = seg.Segment(string(raw), d); err != nil {
			return nil, fmt.Errorf("segmenting %s: %w", correctSource, err)
		}
	}

	report, err := rec.Reconcile(ctx, rc, string(data), d, src)
	if err != nil {
		return nil, err
	}
	report.Path = path
	logger.Debug("reconciled", "file", path, "spans", len(report.Results))
	return report, nil
}

func printCorrectionReports(cmd *cobra.Command, reports []*core.CorrectionReport) error {
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), reports)
	}

	out := cmd.OutOrStdout()
	for _, report := range reports {
		fmt.Fprintf(out, "✓ %s: %d corrected, %d accepted, %d unchanged, %d mismatched, %d failed\n",
			report.Path,
			report.Count(core.OutcomeCorrected),
			report.Count(core.OutcomeAccepted),
			report.Count(core.OutcomeUnchanged),
			report.Count(core.OutcomeMismatch),
			report.Count(core.OutcomeFailed)+report.Count(core.OutcomeNotFound))

		if quiet {
			continue
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, res := range report.Results {
			if res.Outcome == core.OutcomeUnchanged && !verbose {
				continue
			}
			if res.Outcome == core.OutcomeAccepted && !verbose {
				continue
			}
			fmt.Fprintf(w, "  %d\t%s\t%s\n", res.Anchor, res.Outcome, res.Error)
		}
		w.Flush()
	}
	return nil
}
