// ABOUTME: Root command for the transdoc CLI and its global flags
// ABOUTME: Validates --verbose/--quiet/--format before any subcommand runs
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Global flags shared by every subcommand
var (
	verbose      bool
	quiet        bool
	outputFormat string
	rootDir      string
)

const banner = `
 ▀█▀ █▀█ ▄▀█ █▄ █ █▀ █▀▄ █▀█ █▀▀
  █  █▀▄ █▀█ █ ▀█ ▄█ █▄▀ █▄█ █▄▄
`

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transdoc",
		Short: "Translate documents through a content-addressed translation memory",
		Long: banner + `
transdoc splits Markdown, LaTeX and plain text documents into chunks,
translates only the chunks it has never seen, and remembers every
translation by the hash of its source text. Edited translations can be
fed back with 'transdoc correct' so the memory learns the fix.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose && quiet {
				return fmt.Errorf("--verbose and --quiet are mutually exclusive")
			}
			switch outputFormat {
			case "auto", "text", "json":
				return nil
			default:
				return fmt.Errorf("--format must be auto, text or json, got %q", outputFormat)
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors and suppress summaries")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, text or json")
	cmd.PersistentFlags().StringVar(&rootDir, "root", "", "Translation memory directory (default $TRANSDOC_ROOT or XDG data dir)")

	cmd.AddCommand(NewTranslateCmd())
	cmd.AddCommand(NewCorrectCmd())
	cmd.AddCommand(NewSegmentCmd())
	cmd.AddCommand(NewLookupCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewLanguagesCmd())
	cmd.AddCommand(NewIndexCmd())
	cmd.AddCommand(NewGCCmd())
	cmd.AddCommand(NewVerifyCmd())
	cmd.AddCommand(NewSyncCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
