// ABOUTME: CLI command to list and add translation memory languages
// ABOUTME: Shows index columns alongside per-language record counts
package commands

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/transdoc/internal/models"
)

// languageInfo is one row of the languages listing
type languageInfo struct {
	Code    models.Language `json:"code"`
	Name    string          `json:"name"`
	Records int             `json:"records"`
	Indexed bool            `json:"indexed"`
}

// NewLanguagesCmd creates the languages command group
func NewLanguagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List languages in the translation memory",
		Long: `List the languages known to the translation memory.

A language is indexed once it has a column in the correspondence index,
and has records once chunks in it were stored.`,
		Args: cobra.NoArgs,
		RunE: runLanguages,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add LANG",
		Short: "Add a language column to the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := models.ParseLanguage(args[0])
			if err != nil {
				return err
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

			if err := store.Index.AddLanguage(cmd.Context(), lang); err != nil {
				return fmt.Errorf("adding language: %w", err)
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Added %s (%s)\n", lang, lang.DisplayName())
			}
			return nil
		},
	})

	return cmd
}

func runLanguages(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	infos := make(map[models.Language]*languageInfo)
	get := func(l models.Language) *languageInfo {
		if infos[l] == nil {
			infos[l] = &languageInfo{Code: l, Name: l.DisplayName()}
		}
		return infos[l]
	}

	indexed, err := store.Index.Languages(cmd.Context())
	if err != nil {
		return err
	}
	for _, l := range indexed {
		get(l).Indexed = true
	}
	stored, err := store.Content.Languages()
	if err != nil {
		return err
	}
	for _, l := range stored {
		hashes, err := store.Content.List(l)
		if err != nil {
			return err
		}
		get(l).Records = len(hashes)
	}

	list := make([]languageInfo, 0, len(infos))
	for _, info := range infos {
		list = append(list, *info)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })

	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), list)
	}
	if len(list) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No languages yet\n")
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "CODE\tNAME\tRECORDS\tINDEXED\n")
	fmt.Fprintf(w, "----\t----\t-------\t-------\n")
	for _, info := range list {
		fmt.Fprintf(w, "%s\t%s\t%d\t%t\n", info.Code, info.Name, info.Records, info.Indexed)
	}
	return w.Flush()
}
