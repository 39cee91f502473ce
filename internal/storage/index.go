// ABOUTME: Correspondence index contract shared by the CSV and SQLite backends
// ABOUTME: Rows link per-language hashes; only the correction path may replace a mapping
package storage

import (
	"context"

	"github.com/harper/transdoc/internal/models"
	"github.com/harper/transdoc/internal/storage/sqlite"
)

var (
	_ Index = (*CSVIndex)(nil)
	_ Index = (*sqlite.Index)(nil)
)

// Index persists which hashes across languages are mutual translations.
// Implementations serialize every mutation.
type Index interface {
	// Record extends the row sharing any (language, hash) pair with m, or inserts a new row.
	// It never overwrites a cell: a disagreeing cell or a mapping touching two rows is a conflict.
	Record(ctx context.Context, m models.Mapping, key models.Language) error
	// Replace overwrites the row holding m[key]; reserved for corrections
	Replace(ctx context.Context, m models.Mapping, key models.Language) error
	// Lookup returns the other languages' hashes from the first row holding (lang, hash)
	Lookup(ctx context.Context, lang models.Language, hash models.ChunkHash) (models.Mapping, error)
	Languages(ctx context.Context) ([]models.Language, error)
	AddLanguage(ctx context.Context, lang models.Language) error
	Rows(ctx context.Context) ([]models.Row, error)
	// Prune clears cells whose record no longer exists and drops rows left with fewer than two cells
	Prune(ctx context.Context, exists func(models.Language, models.ChunkHash) bool) (models.PruneStats, error)
	MarkReviewed(ctx context.Context, lang models.Language, hash models.ChunkHash) error
	IsReviewed(ctx context.Context, lang models.Language, hash models.ChunkHash) (bool, error)
	Close() error
}
