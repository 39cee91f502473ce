// ABOUTME: CLI command to show how a document is chunked
// ABOUTME: Prints the scaffold's chunks with kind, anchor and hash
package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/transdoc/internal/checksum"
	"github.com/harper/transdoc/internal/core"
	"github.com/harper/transdoc/internal/dialect"
)

var segmentDialect string

// NewSegmentCmd creates the segment command
func NewSegmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "segment FILE",
		Short: "Show the chunks of a document",
		Long: `Split a document the way 'translate' does and print its chunks.

Translatable chunks carry an anchor (their 1-based order) and the hash
used as their key in the translation memory. Literal chunks such as
code blocks and math are copied through untouched.

Examples:
  transdoc segment README.md
  transdoc segment --dialect latex chapter.txt
  transdoc segment --format json paper.tex`,
		Args: cobra.ExactArgs(1),
		RunE: runSegment,
	}

	cmd.Flags().StringVar(&segmentDialect, "dialect", "", "Document dialect (default: from file extension)")

	return cmd
}

func runSegment(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	alg, err := checksum.ParseAlgorithm(cfg.HashAlg)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	d, err := dialect.Resolve(segmentDialect, args[0])
	if err != nil {
		return err
	}

	sc, err := core.NewSegmenter(checksum.New(alg)).Segment(string(data), d)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), sc)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "POS\tKIND\tANCHOR\tHASH\tTEXT\n")
	fmt.Fprintf(w, "---\t----\t------\t----\t----\n")
	for _, c := range sc.Chunks {
		anchor := "-"
		if c.Anchor > 0 {
			anchor = fmt.Sprintf("%d", c.Anchor)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.Position, c.Kind, anchor, c.Hash.Short(), truncate(oneLine(c.Raw), 50))
	}
	w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nTotal: %d chunk(s), %d translatable (%s)\n", len(sc.Chunks), len(sc.Translatable()), sc.Dialect)
	}
	return nil
}
