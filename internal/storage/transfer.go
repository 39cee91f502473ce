// ABOUTME: Export and import of correspondence rows between backends and machines
// ABOUTME: CSV uses the on-disk table layout; JSON and YAML carry the same rows as maps
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/harper/transdoc/internal/errs"
	"github.com/harper/transdoc/internal/models"
	"gopkg.in/yaml.v3"
)

// Export formats
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ExportData is the JSON/YAML document shape
type ExportData struct {
	Version    string              `yaml:"version" json:"version"`
	ExportedAt string              `yaml:"exported_at" json:"exported_at"`
	Languages  []string            `yaml:"languages" json:"languages"`
	Rows       []map[string]string `yaml:"rows" json:"rows"`
}

// ImportReport counts what an import did
type ImportReport struct {
	Recorded  int `json:"recorded"`
	Conflicts int `json:"conflicts"`
	Skipped   int `json:"skipped"`
}

// Export writes every row of idx to w in the given format
func Export(ctx context.Context, idx Index, w io.Writer, format string) error {
	langs, err := idx.Languages(ctx)
	if err != nil {
		return err
	}
	rows, err := idx.Rows(ctx)
	if err != nil {
		return err
	}

	switch strings.ToLower(format) {
	case "", FormatCSV:
		return WriteTable(w, langs, rows)
	case FormatJSON, FormatYAML:
		data := ExportData{
			Version:    "1",
			ExportedAt: time.Now().UTC().Format(time.RFC3339),
		}
		for _, l := range langs {
			data.Languages = append(data.Languages, string(l))
		}
		for _, row := range rows {
			cells := make(map[string]string)
			for l, h := range row.Cells {
				if h != "" {
					cells[string(l)] = string(h)
				}
			}
			data.Rows = append(data.Rows, cells)
		}
		if strings.ToLower(format) == FormatJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(data)
		}
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown export format %q (want csv, json or yaml)", format)
	}
}

// Import records every row read from r into idx, keyed by the key language.
// Rows that conflict with existing mappings are counted and skipped, never forced.
func Import(ctx context.Context, idx Index, r io.Reader, format string, key models.Language) (*ImportReport, error) {
	var rows []models.Row

	switch strings.ToLower(format) {
	case "", FormatCSV:
		_, parsed, err := ReadTable(r)
		if err != nil {
			return nil, fmt.Errorf("reading table: %w", err)
		}
		rows = parsed
	case FormatJSON, FormatYAML:
		var data ExportData
		var err error
		if strings.ToLower(format) == FormatJSON {
			err = json.NewDecoder(r).Decode(&data)
		} else {
			err = yaml.NewDecoder(r).Decode(&data)
		}
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", format, err)
		}
		for _, cells := range data.Rows {
			row := models.Row{Cells: make(models.Mapping, len(cells))}
			for l, h := range cells {
				row.Cells[models.Language(l)] = models.ChunkHash(h)
			}
			rows = append(rows, row)
		}
	default:
		return nil, fmt.Errorf("unknown import format %q (want csv, json or yaml)", format)
	}

	report := &ImportReport{}
	for _, row := range rows {
		m := make(models.Mapping)
		for l, h := range row.Cells {
			if h != "" {
				m[l] = h
			}
		}
		if _, ok := m[key]; !ok || len(m) < 2 {
			report.Skipped++
			continue
		}
		err := idx.Record(ctx, m, key)
		switch {
		case err == nil:
			report.Recorded++
		case errors.Is(err, errs.ErrCorrespondenceConflict):
			report.Conflicts++
		case errors.Is(err, errs.ErrInvalidInput):
			report.Skipped++
		default:
			return report, err
		}
	}
	return report, nil
}
