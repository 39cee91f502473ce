// ABOUTME: Vocabulary lists: ordered (term, translation) pairs for one language pair
// ABOUTME: Loaded from CSV tables with a language-code header or TOML [[entry]] tables
package vocab

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/harper/transdoc/internal/models"
	"github.com/pelletier/go-toml/v2"
)

// tomlFile is the TOML layout: one [[entry]] table per term, keyed by language code
type tomlFile struct {
	Entry []map[string]string `toml:"entry"`
}

// Load reads the vocabulary at path for source -> target, picking the format by extension
func Load(path string, source, target models.Language) ([]models.VocabEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vocabulary: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return ReadTOML(f, source, target)
	case ".csv", "":
		return ReadCSV(f, source, target)
	default:
		return nil, fmt.Errorf("unsupported vocabulary format %s (want .csv or .toml)", filepath.Ext(path))
	}
}

// ReadCSV parses a table whose header names languages; rows missing either side are skipped
func ReadCSV(r io.Reader, source, target models.Language) ([]models.VocabEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading vocabulary: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	srcCol, tgtCol := -1, -1
	for i, h := range records[0] {
		lang, err := models.ParseLanguage(h)
		if err != nil {
			continue
		}
		switch lang {
		case source:
			srcCol = i
		case target:
			tgtCol = i
		}
	}
	if srcCol < 0 || tgtCol < 0 {
		return nil, fmt.Errorf("vocabulary header %v lacks %s or %s", records[0], source, target)
	}

	var entries []models.VocabEntry
	for _, rec := range records[1:] {
		if srcCol >= len(rec) || tgtCol >= len(rec) {
			continue
		}
		entries = appendEntry(entries, rec[srcCol], rec[tgtCol])
	}
	return entries, nil
}

// ReadTOML parses [[entry]] tables; keys may be codes or English language names
func ReadTOML(r io.Reader, source, target models.Language) ([]models.VocabEntry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading vocabulary: %w", err)
	}
	var doc tomlFile
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing vocabulary: %w", err)
	}

	var entries []models.VocabEntry
	for _, e := range doc.Entry {
		byLang := make(map[models.Language]string, len(e))
		for k, v := range e {
			if lang, err := models.ParseLanguage(k); err == nil {
				byLang[lang] = v
			}
		}
		entries = appendEntry(entries, byLang[source], byLang[target])
	}
	return entries, nil
}

func appendEntry(entries []models.VocabEntry, term, translation string) []models.VocabEntry {
	term, translation = strings.TrimSpace(term), strings.TrimSpace(translation)
	if term == "" || translation == "" {
		return entries
	}
	return append(entries, models.VocabEntry{Term: term, Translation: translation})
}

// Lines renders entries as "term=translation" lines for prompts
func Lines(entries []models.VocabEntry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Term)
		b.WriteString("=")
		b.WriteString(e.Translation)
		b.WriteString("\n")
	}
	return b.String()
}
