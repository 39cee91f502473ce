// ABOUTME: CSV-backed correspondence index: one header column per language, one row per correspondence
// ABOUTME: Every mutation rewrites the table through a temp file and rename under one mutex
package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/harper/transdoc/internal/errs"
	"github.com/harper/transdoc/internal/models"
)

const (
	// CorrespondenceFileName is the table file under the store root
	CorrespondenceFileName = "correspondence.csv"
	reviewedFileName       = "reviewed.csv"
)

// CSVIndex keeps the table in memory and persists it on every change
type CSVIndex struct {
	mu           sync.Mutex
	path         string
	reviewedPath string
	langs        []models.Language
	rows         []models.Row
	reviewed     map[string]bool
}

// OpenCSVIndex loads the table and review ledger under root, creating nothing until the first write
func OpenCSVIndex(root string) (*CSVIndex, error) {
	idx := &CSVIndex{
		path:         filepath.Join(root, CorrespondenceFileName),
		reviewedPath: filepath.Join(root, reviewedFileName),
		reviewed:     make(map[string]bool),
	}
	if err := idx.load(); err != nil {
		return nil, err
	}
	if err := idx.loadReviewed(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Path returns the table file path
func (x *CSVIndex) Path() string {
	return x.path
}

func (x *CSVIndex) load() error {
	f, err := os.Open(x.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errs.NewIO("open", x.path, err)
	}
	defer f.Close()

	langs, rows, err := ReadTable(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", x.path, err)
	}
	x.langs = langs
	x.rows = rows
	return nil
}

func (x *CSVIndex) loadReviewed() error {
	f, err := os.Open(x.reviewedPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errs.NewIO("open", x.reviewedPath, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	records, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("reading %s: %w", x.reviewedPath, err)
	}
	for i, rec := range records {
		if i == 0 {
			continue
		}
		x.reviewed[reviewKey(models.Language(rec[0]), models.ChunkHash(rec[1]))] = true
	}
	return nil
}

// ReadTable parses a correspondence table: a header of language codes, then one row per correspondence
func ReadTable(r io.Reader) ([]models.Language, []models.Row, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, nil
	}

	langs := make([]models.Language, len(records[0]))
	for i, h := range records[0] {
		langs[i] = models.Language(h)
		if !langs[i].Valid() {
			return nil, nil, errs.Invalid("column %d: language %q", i+1, h)
		}
	}

	rows := make([]models.Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		row := models.Row{ID: i + 1, Cells: make(models.Mapping, len(langs))}
		for j, lang := range langs {
			if j < len(rec) && rec[j] != "" {
				row.Cells[lang] = models.ChunkHash(rec[j])
			}
		}
		rows = append(rows, row)
	}
	return langs, rows, nil
}

// WriteTable renders a correspondence table in the layout ReadTable accepts
func WriteTable(w io.Writer, langs []models.Language, rows []models.Row) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(langs))
	for i, l := range langs {
		header[i] = string(l)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		rec := make([]string, len(langs))
		for i, l := range langs {
			rec[i] = string(row.Cells[l])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// persist writes langs and rows, then adopts them in memory once the file is published
func (x *CSVIndex) persist(langs []models.Language, rows []models.Row) error {
	var buf bytes.Buffer
	if err := WriteTable(&buf, langs, rows); err != nil {
		return fmt.Errorf("encoding correspondence table: %w", err)
	}
	if err := WriteFileAtomic(x.path, buf.Bytes(), 0644); err != nil {
		return err
	}
	x.langs = langs
	x.rows = rows
	return nil
}

// withLanguages returns x.langs extended by any language in m it does not yet have
func (x *CSVIndex) withLanguages(m models.Mapping) []models.Language {
	langs := append([]models.Language(nil), x.langs...)
	for _, l := range m.Languages() {
		if !containsLanguage(langs, l) {
			langs = append(langs, l)
		}
	}
	return langs
}

func (x *CSVIndex) cloneRows() []models.Row {
	rows := make([]models.Row, len(x.rows))
	for i, r := range x.rows {
		cells := make(models.Mapping, len(r.Cells))
		for l, h := range r.Cells {
			cells[l] = h
		}
		rows[i] = models.Row{ID: r.ID, Cells: cells}
	}
	return rows
}

func (x *CSVIndex) find(rows []models.Row, lang models.Language, hash models.ChunkHash) int {
	for i, r := range rows {
		if r.Has(lang, hash) {
			return i
		}
	}
	return -1
}

// Record extends the row sharing any hash with m, or appends a new row when none does
func (x *CSVIndex) Record(ctx context.Context, m models.Mapping, key models.Language) error {
	if err := m.Validate(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	rows := x.cloneRows()
	i, err := models.MatchRow(rows, m)
	if err != nil {
		return err
	}
	if i >= 0 {
		changed, err := rows[i].Merge(m)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
	} else {
		row := models.Row{ID: len(rows) + 1}
		if _, err := row.Merge(m); err != nil {
			return err
		}
		rows = append(rows, row)
	}
	return x.persist(x.withLanguages(m), rows)
}

// Replace overwrites the row keyed by m[key]
func (x *CSVIndex) Replace(ctx context.Context, m models.Mapping, key models.Language) error {
	if err := m.Validate(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	rows := x.cloneRows()
	i := x.find(rows, key, m[key])
	if i < 0 {
		return errs.NewNotFound("correspondence row", fmt.Sprintf("%s/%s", key, m[key]))
	}
	if !rows[i].Overwrite(m) {
		return nil
	}
	return x.persist(x.withLanguages(m), rows)
}

// Lookup returns the other languages of the first row holding (lang, hash)
func (x *CSVIndex) Lookup(ctx context.Context, lang models.Language, hash models.ChunkHash) (models.Mapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if i := x.find(x.rows, lang, hash); i >= 0 {
		return x.rows[i].Others(lang), nil
	}
	return models.Mapping{}, nil
}

// Languages returns the table's columns in order
func (x *CSVIndex) Languages(ctx context.Context) ([]models.Language, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]models.Language(nil), x.langs...), nil
}

// AddLanguage appends a column; existing rows get an empty cell
func (x *CSVIndex) AddLanguage(ctx context.Context, lang models.Language) error {
	if !lang.Valid() {
		return errs.Invalid("language %q", lang)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if containsLanguage(x.langs, lang) {
		return nil
	}
	langs := append(append([]models.Language(nil), x.langs...), lang)
	return x.persist(langs, x.cloneRows())
}

// Rows returns a copy of every row
func (x *CSVIndex) Rows(ctx context.Context) ([]models.Row, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.cloneRows(), nil
}

// Prune clears dangling cells and drops rows that no longer link two records
func (x *CSVIndex) Prune(ctx context.Context, exists func(models.Language, models.ChunkHash) bool) (models.PruneStats, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	var stats models.PruneStats
	var kept []models.Row
	for _, row := range x.cloneRows() {
		cleared, keep := row.Prune(exists)
		stats.ClearedCells += cleared
		if !keep {
			stats.RemovedRows++
			continue
		}
		row.ID = len(kept) + 1
		kept = append(kept, row)
	}
	if stats == (models.PruneStats{}) {
		return stats, nil
	}
	return stats, x.persist(x.langs, kept)
}

// MarkReviewed records that a human vetted the record
func (x *CSVIndex) MarkReviewed(ctx context.Context, lang models.Language, hash models.ChunkHash) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	key := reviewKey(lang, hash)
	if x.reviewed[key] {
		return nil
	}
	x.reviewed[key] = true

	keys := make([]string, 0, len(x.reviewed))
	for k := range x.reviewed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write([]string{"language", "hash"})
	for _, k := range keys {
		l, h, _ := strings.Cut(k, "/")
		_ = cw.Write([]string{l, h})
	}
	cw.Flush()
	if err := WriteFileAtomic(x.reviewedPath, buf.Bytes(), 0644); err != nil {
		delete(x.reviewed, key)
		return err
	}
	return nil
}

// IsReviewed reports whether a human vetted the record
func (x *CSVIndex) IsReviewed(ctx context.Context, lang models.Language, hash models.ChunkHash) (bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.reviewed[reviewKey(lang, hash)], nil
}

// Close is a no-op; every change is already on disk
func (x *CSVIndex) Close() error {
	return nil
}

func reviewKey(lang models.Language, hash models.ChunkHash) string {
	return string(lang) + "/" + string(hash)
}

func containsLanguage(langs []models.Language, lang models.Language) bool {
	for _, l := range langs {
		if l == lang {
			return true
		}
	}
	return false
}
