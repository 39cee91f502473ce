// ABOUTME: CLI commands to query the translation memory
// ABOUTME: lookup finds the translations of a chunk; show prints one record
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/transdoc/internal/core"
	"github.com/harper/transdoc/internal/models"
)

var (
	lookupText string
	lookupHash string
	lookupLang string
	lookupTo   string
)

// NewLookupCmd creates the lookup command
func NewLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Find the stored translations of a chunk",
		Long: `Find every stored translation of one chunk.

The chunk is given by its text (normalized and hashed like 'translate'
does) or directly by its hash.

Examples:
  transdoc lookup --lang en --text "Hello world."
  transdoc lookup --lang en --hash 3a7bd3e2360a... --to fr`,
		Args: cobra.NoArgs,
		RunE: runLookup,
	}

	cmd.Flags().StringVar(&lookupText, "text", "", "Chunk text")
	cmd.Flags().StringVar(&lookupHash, "hash", "", "Chunk hash")
	cmd.Flags().StringVar(&lookupLang, "lang", "", "Language of the chunk (required)")
	cmd.Flags().StringVar(&lookupTo, "to", "", "Only show this language")
	_ = cmd.MarkFlagRequired("lang")
	cmd.MarkFlagsMutuallyExclusive("text", "hash")
	cmd.MarkFlagsOneRequired("text", "hash")

	return cmd
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lang, err := models.ParseLanguage(lookupLang)
	if err != nil {
		return fmt.Errorf("--lang: %w", err)
	}
	var only models.Language
	if lookupTo != "" {
		if only, err = models.ParseLanguage(lookupTo); err != nil {
			return fmt.Errorf("--to: %w", err)
		}
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	hash := models.ChunkHash(lookupHash)
	if lookupText != "" {
		hash = store.Content.Hasher().Hash(lookupText)
	}

	res, err := core.Lookup(cmd.Context(), store, lang, hash, only)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), res)
	}
	if len(res.Translations) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No translations found for %s/%s\n", res.Language, res.Hash.Short())
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "LANG\tHASH\tREVIEWED\tTEXT\n")
	fmt.Fprintf(w, "----\t----\t--------\t----\n")
	for _, t := range res.Translations {
		text := truncate(oneLine(t.Text), 60)
		if t.Missing {
			text = "(record missing)"
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", t.Language, t.Hash.Short(), t.Reviewed, text)
	}
	return w.Flush()
}

// NewShowCmd creates the show command
func NewShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show LANG HASH",
		Short: "Print one content record",
		Long: `Print the stored text of one content record.

Examples:
  transdoc show fr 9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			lang, err := models.ParseLanguage(args[0])
			if err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			hash := models.ChunkHash(args[1])
			text, err := store.Content.Get(cmd.Context(), lang, hash)
			if err != nil {
				return err
			}

			if jsonOutput() {
				reviewed, err := store.Index.IsReviewed(cmd.Context(), lang, hash)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"lang":     lang,
					"hash":     hash,
					"text":     text,
					"reviewed": reviewed,
				})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
}
