// ABOUTME: CLI command to translate documents through the translation memory
// ABOUTME: Builds the provider stack and orchestrator, then reports per-file results
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harper/transdoc/internal/core"
	"github.com/harper/transdoc/internal/llm"
	"github.com/harper/transdoc/internal/models"
	"github.com/harper/transdoc/internal/vocab"
)

var (
	translateFrom         string
	translateTo           string
	translateOut          string
	translateOutDir       string
	translateVocab        string
	translateDialect      string
	translateDryRun       bool
	translatePlaceholders bool
	translateNoMarkers    bool
	translateConcurrency  int
)

// NewTranslateCmd creates the translate command
func NewTranslateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate FILE...",
		Short: "Translate documents, reusing cached chunks",
		Long: `Translate one or more documents.

Each document is split into chunks. Chunks whose source hash is already
in the translation memory are reused; the rest go to the configured
provider and are recorded. Output gets a provenance marker after every
translated chunk so later edits can be fed back with 'transdoc correct'.

By default doc.md is written to doc.fr.md next to it.

Examples:
  transdoc translate --from en --to fr README.md
  transdoc translate --from en --to de --out-dir de/ docs/*.md
  transdoc translate --from en --to fr --out - notes.txt
  transdoc translate --from en --to fr --dry-run paper.tex`,
		Args: cobra.MinimumNArgs(1),
		RunE: runTranslate,
	}

	cmd.Flags().StringVar(&translateFrom, "from", "", "Source language (required)")
	cmd.Flags().StringVar(&translateTo, "to", "", "Target language (required)")
	cmd.Flags().StringVarP(&translateOut, "out", "o", "", "Output file for a single input, or - for stdout")
	cmd.Flags().StringVar(&translateOutDir, "out-dir", "", "Directory for translated files")
	cmd.Flags().StringVar(&translateVocab, "vocab", "", "Vocabulary file (.csv or .toml)")
	cmd.Flags().StringVar(&translateDialect, "dialect", "", "Document dialect (default: from file extension)")
	cmd.Flags().BoolVar(&translateDryRun, "dry-run", false, "Report cached and missing chunks without translating")
	cmd.Flags().BoolVar(&translatePlaceholders, "placeholders", false, "Write [UNTRANSLATED] stand-ins instead of failing")
	cmd.Flags().BoolVar(&translateNoMarkers, "no-markers", false, "Omit provenance markers from the output")
	cmd.Flags().IntVar(&translateConcurrency, "concurrency", 0, "Parallel provider calls (default $TRANSDOC_CONCURRENCY)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	cmd.MarkFlagsMutuallyExclusive("out", "out-dir")

	return cmd
}

func runTranslate(cmd *cobra.Command, args []string) error {
	if translateOut != "" && len(args) > 1 {
		return fmt.Errorf("--out takes a single input file; use --out-dir for several")
	}
	if translateConcurrency < 0 {
		return fmt.Errorf("--concurrency must be positive, got %d", translateConcurrency)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	source, target, err := parseLanguages(translateFrom, translateTo)
	if err != nil {
		return err
	}

	rc := models.RunContext{Source: source, Target: target, Dialect: translateDialect, RunID: newRunID()}
	if err := rc.Validate(); err != nil {
		return err
	}
	if translateVocab != "" {
		if rc.Vocabulary, err = vocab.Load(translateVocab, source, target); err != nil {
			return err
		}
	}

	logger := newLogger(cmd, cfg).With("run", rc.RunID)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	var provider llm.Provider
	if !translateDryRun {
		if provider, err = llm.NewProvider(ctx, cfg, logger); err != nil {
			return fmt.Errorf("initializing provider: %w", err)
		}
		logger.Debug("using provider", "name", provider.Name())
	}

	opts := core.Options{
		Concurrency:  cfg.Concurrency,
		Timeout:      cfg.Timeout,
		DryRun:       translateDryRun,
		Placeholders: translatePlaceholders,
		Provenance:   !translateNoMarkers,
	}
	if translateConcurrency > 0 {
		opts.Concurrency = translateConcurrency
	}
	orch := core.NewOrchestrator(store, provider, opts, logger)

	if translateOutDir != "" && !translateDryRun {
		if err := os.MkdirAll(translateOutDir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	jobs := make([]core.FileJob, 0, len(args))
	for _, src := range args {
		job := core.FileJob{Source: src, Output: outputPath(src, target, translateOutDir)}
		if translateOut != "" {
			job.Output = translateOut
		}
		if job.Output == "-" {
			job.Output = ""
		}
		jobs = append(jobs, job)
	}

	results, runErr := orch.TranslateFiles(ctx, rc, jobs)

	if translateOut == "-" && len(results) == 1 && results[0].Err == nil && !translateDryRun {
		if _, err := fmt.Fprint(cmd.OutOrStdout(), results[0].Output); err != nil {
			return err
		}
	} else if err := printTranslateResults(cmd, results); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d document(s) failed", failed, len(results))
	}
	return nil
}

func printTranslateResults(cmd *cobra.Command, results []*core.DocumentResult) error {
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), results)
	}

	out := cmd.OutOrStdout()
	var hits, translated, failed int
	for _, res := range results {
		hits += res.Hits
		translated += res.Translated
		failed += res.Failed

		switch {
		case res.Err != nil:
			fmt.Fprintf(out, "✗ %s: %v\n", res.Path, res.Err)
		case translateDryRun:
			fmt.Fprintf(out, "• %s: %d cached, %d to translate\n", res.Path, res.Hits, res.Pending)
		case res.Written:
			fmt.Fprintf(out, "✓ %s → %s (%d cached, %d translated)\n", res.Path, res.OutputPath, res.Hits, res.Translated)
		default:
			fmt.Fprintf(out, "✓ %s (%d cached, %d translated)\n", res.Path, res.Hits, res.Translated)
		}
		if verbose {
			for _, c := range res.Chunks {
				if c.Err != nil {
					fmt.Fprintf(out, "    chunk %d: %v\n", c.Anchor, c.Err)
				}
			}
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(out, "\nTotal: %d document(s), %d cached, %d translated, %d failed chunk(s)\n",
			len(results), hits, translated, failed)
	}
	return nil
}
