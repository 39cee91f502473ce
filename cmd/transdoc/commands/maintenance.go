// ABOUTME: CLI commands that maintain the translation memory
// ABOUTME: gc removes unreferenced records; verify re-hashes every record
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/transdoc/internal/storage"
)

var gcDryRun bool

// NewGCCmd creates the gc command
func NewGCCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Remove records no correspondence row references",
		Long: `Collect garbage in the translation memory.

Rows pointing at missing records are pruned first, then every record
that no row references is deleted. Normal operation never deletes, so
this is the only way the memory shrinks.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			report, err := storage.CollectGarbage(cmd.Context(), store, gcDryRun)
			if err != nil {
				return fmt.Errorf("collecting garbage: %w", err)
			}

			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), report)
			}
			verb := "Removed"
			if gcDryRun {
				verb = "Would remove"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d record(s) and %d row(s); %d cell(s) cleared\n",
				verb, len(report.Unreferenced), report.RemovedRows, report.ClearedCells)
			if verbose {
				for _, h := range report.Unreferenced {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", h)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&gcDryRun, "dry-run", false, "Report what would be removed without deleting")

	return cmd
}

// NewVerifyCmd creates the verify command
func NewVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check every record still hashes to its name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			corrupt, checked, err := store.Content.Verify(cmd.Context())
			if err != nil {
				return fmt.Errorf("verifying records: %w", err)
			}

			if jsonOutput() {
				if err := printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"checked": checked,
					"corrupt": corrupt,
				}); err != nil {
					return err
				}
			} else {
				for _, c := range corrupt {
					fmt.Fprintf(cmd.OutOrStdout(), "✗ %s/%s hashes to %s\n", c.Language, c.Hash, c.Actual.Short())
				}
				if !quiet {
					fmt.Fprintf(cmd.OutOrStdout(), "Checked %d record(s), %d corrupt\n", checked, len(corrupt))
				}
			}

			if len(corrupt) > 0 {
				return fmt.Errorf("%d corrupt record(s)", len(corrupt))
			}
			return nil
		},
	}
}
