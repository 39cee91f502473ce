// ABOUTME: SQLite-backed correspondence index with one column per language
// ABOUTME: Mutations run in a transaction under a mutex so concurrent writers never lose updates
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/harper/transdoc/internal/errs"
	"github.com/harper/transdoc/internal/models"
)

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Index implements the correspondence index on SQLite
type Index struct {
	db *DB
	mu sync.Mutex
}

// NewIndex creates an Index on an open database
func NewIndex(db *DB) *Index {
	return &Index{db: db}
}

// OpenIndex opens the database at path and returns an Index that owns it
func OpenIndex(path string) (*Index, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return NewIndex(db), nil
}

// DB returns the underlying database
func (x *Index) DB() *DB {
	return x.db
}

// Close closes the database
func (x *Index) Close() error {
	return x.db.Close()
}

func quote(lang models.Language) string {
	return `"` + string(lang) + `"`
}

func languages(ctx context.Context, q querier) ([]models.Language, error) {
	rows, err := q.QueryContext(ctx, `SELECT code FROM languages ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("listing languages: %w", err)
	}
	defer rows.Close()

	var langs []models.Language
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		langs = append(langs, models.Language(code))
	}
	return langs, rows.Err()
}

func addLanguage(ctx context.Context, q querier, known []models.Language, lang models.Language) ([]models.Language, error) {
	for _, l := range known {
		if l == lang {
			return known, nil
		}
	}
	if !lang.Valid() {
		return nil, errs.Invalid("language %q", lang)
	}
	// lang is validated above, so quoting it into DDL is safe
	alter := fmt.Sprintf(`ALTER TABLE correspondence ADD COLUMN %s TEXT NOT NULL DEFAULT ''`, quote(lang))
	if _, err := q.ExecContext(ctx, alter); err != nil {
		return nil, fmt.Errorf("adding column %s: %w", lang, err)
	}
	if _, err := q.ExecContext(ctx, `INSERT INTO languages (code) VALUES (?)`, string(lang)); err != nil {
		return nil, fmt.Errorf("registering language %s: %w", lang, err)
	}
	return append(known, lang), nil
}

// scanRows reads full rows selected with "id, <langs...>"
func scanRows(rows *sql.Rows, langs []models.Language) ([]models.Row, error) {
	var out []models.Row
	for rows.Next() {
		var id int
		cells := make([]string, len(langs))
		dest := make([]interface{}, 0, len(langs)+1)
		dest = append(dest, &id)
		for i := range cells {
			dest = append(dest, &cells[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		row := models.Row{ID: id, Cells: make(models.Mapping, len(langs))}
		for i, l := range langs {
			if cells[i] != "" {
				row.Cells[l] = models.ChunkHash(cells[i])
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func selectColumns(langs []models.Language) string {
	cols := []string{"id"}
	for _, l := range langs {
		cols = append(cols, quote(l))
	}
	return strings.Join(cols, ", ")
}

// findRow returns the first row holding (lang, hash), or nil
func findRow(ctx context.Context, q querier, langs []models.Language, lang models.Language, hash models.ChunkHash) (*models.Row, error) {
	known := false
	for _, l := range langs {
		if l == lang {
			known = true
		}
	}
	if !known {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM correspondence WHERE %s = ? ORDER BY id LIMIT 1`,
		selectColumns(langs), quote(lang))
	rows, err := q.QueryContext(ctx, query, string(hash))
	if err != nil {
		return nil, fmt.Errorf("finding row: %w", err)
	}
	defer rows.Close()

	found, err := scanRows(rows, langs)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return &found[0], nil
}

// matchingRows returns every row holding any (language, hash) pair of m
func matchingRows(ctx context.Context, q querier, langs []models.Language, m models.Mapping) ([]models.Row, error) {
	var conds []string
	var args []interface{}
	for _, l := range m.Languages() {
		if m[l] == "" {
			continue
		}
		conds = append(conds, quote(l)+" = ?")
		args = append(args, string(m[l]))
	}
	if len(conds) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM correspondence WHERE %s ORDER BY id`,
		selectColumns(langs), strings.Join(conds, " OR "))
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("matching rows: %w", err)
	}
	defer rows.Close()
	return scanRows(rows, langs)
}

func updateRow(ctx context.Context, q querier, row models.Row) error {
	var sets []string
	var args []interface{}
	for _, l := range row.Cells.Languages() {
		sets = append(sets, quote(l)+" = ?")
		args = append(args, string(row.Cells[l]))
	}
	args = append(args, row.ID)
	query := fmt.Sprintf(`UPDATE correspondence SET %s WHERE id = ?`, strings.Join(sets, ", "))
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("updating row %d: %w", row.ID, err)
	}
	return nil
}

func insertRow(ctx context.Context, q querier, cells models.Mapping) error {
	var cols, marks []string
	var args []interface{}
	for _, l := range cells.Languages() {
		cols = append(cols, quote(l))
		marks = append(marks, "?")
		args = append(args, string(cells[l]))
	}
	query := fmt.Sprintf(`INSERT INTO correspondence (%s) VALUES (%s)`,
		strings.Join(cols, ", "), strings.Join(marks, ", "))
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting row: %w", err)
	}
	return nil
}

// mutate runs fn in a transaction with every language of m registered as a column
func (x *Index) mutate(ctx context.Context, m models.Mapping, fn func(tx *sql.Tx, langs []models.Language) error) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	tx, err := x.db.BeginTx(ctx)
	if err != nil {
		return errs.NewIO("begin transaction", x.db.Path(), err)
	}
	defer func() { _ = tx.Rollback() }()

	langs, err := languages(ctx, tx)
	if err != nil {
		return err
	}
	for _, l := range m.Languages() {
		if langs, err = addLanguage(ctx, tx, langs, l); err != nil {
			return err
		}
	}

	if err := fn(tx, langs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errs.NewIO("commit", x.db.Path(), err)
	}
	return nil
}

// Record extends the row sharing any hash with m, or inserts a new row when none does
func (x *Index) Record(ctx context.Context, m models.Mapping, key models.Language) error {
	if err := m.Validate(key); err != nil {
		return err
	}
	return x.mutate(ctx, m, func(tx *sql.Tx, langs []models.Language) error {
		candidates, err := matchingRows(ctx, tx, langs, m)
		if err != nil {
			return err
		}
		i, err := models.MatchRow(candidates, m)
		if err != nil {
			return err
		}
		if i < 0 {
			return insertRow(ctx, tx, m)
		}
		row := &candidates[i]
		changed, err := row.Merge(m)
		if err != nil || !changed {
			return err
		}
		return updateRow(ctx, tx, *row)
	})
}

// Replace overwrites the row keyed by m[key]
func (x *Index) Replace(ctx context.Context, m models.Mapping, key models.Language) error {
	if err := m.Validate(key); err != nil {
		return err
	}
	return x.mutate(ctx, m, func(tx *sql.Tx, langs []models.Language) error {
		row, err := findRow(ctx, tx, langs, key, m[key])
		if err != nil {
			return err
		}
		if row == nil {
			return errs.NewNotFound("correspondence row", fmt.Sprintf("%s/%s", key, m[key]))
		}
		if !row.Overwrite(m) {
			return nil
		}
		return updateRow(ctx, tx, *row)
	})
}

// Lookup returns the other languages of the first row holding (lang, hash)
func (x *Index) Lookup(ctx context.Context, lang models.Language, hash models.ChunkHash) (models.Mapping, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	langs, err := languages(ctx, x.db.Conn())
	if err != nil {
		return nil, err
	}
	row, err := findRow(ctx, x.db.Conn(), langs, lang, hash)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return models.Mapping{}, nil
	}
	return row.Others(lang), nil
}

// Languages returns the columns in the order they were added
func (x *Index) Languages(ctx context.Context) ([]models.Language, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return languages(ctx, x.db.Conn())
}

// AddLanguage adds a column; existing rows get an empty cell
func (x *Index) AddLanguage(ctx context.Context, lang models.Language) error {
	return x.mutate(ctx, models.Mapping{lang: ""}, func(*sql.Tx, []models.Language) error { return nil })
}

// Rows returns every row ordered by id
func (x *Index) Rows(ctx context.Context) ([]models.Row, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return allRows(ctx, x.db.Conn())
}

func allRows(ctx context.Context, q querier) ([]models.Row, error) {
	langs, err := languages(ctx, q)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM correspondence ORDER BY id`, selectColumns(langs)))
	if err != nil {
		return nil, fmt.Errorf("listing rows: %w", err)
	}
	defer rows.Close()
	return scanRows(rows, langs)
}

// Prune clears dangling cells and deletes rows that no longer link two records
func (x *Index) Prune(ctx context.Context, exists func(models.Language, models.ChunkHash) bool) (models.PruneStats, error) {
	var stats models.PruneStats
	err := x.mutate(ctx, nil, func(tx *sql.Tx, langs []models.Language) error {
		rows, err := allRows(ctx, tx)
		if err != nil {
			return err
		}
		for _, row := range rows {
			cleared, keep := row.Prune(exists)
			stats.ClearedCells += cleared
			switch {
			case !keep:
				stats.RemovedRows++
				if _, err := tx.ExecContext(ctx, `DELETE FROM correspondence WHERE id = ?`, row.ID); err != nil {
					return fmt.Errorf("deleting row %d: %w", row.ID, err)
				}
			case cleared > 0:
				if err := updateRow(ctx, tx, row); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return stats, err
}

// MarkReviewed records that a human vetted the record
func (x *Index) MarkReviewed(ctx context.Context, lang models.Language, hash models.ChunkHash) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	_, err := x.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO reviewed (language, hash) VALUES (?, ?)`, string(lang), string(hash))
	if err != nil {
		return fmt.Errorf("marking %s/%s reviewed: %w", lang, hash.Short(), err)
	}
	return nil
}

// IsReviewed reports whether a human vetted the record
func (x *Index) IsReviewed(ctx context.Context, lang models.Language, hash models.ChunkHash) (bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	var one int
	err := x.db.QueryRowContext(ctx,
		`SELECT 1 FROM reviewed WHERE language = ? AND hash = ?`, string(lang), string(hash)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking review state: %w", err)
	}
	return true, nil
}
