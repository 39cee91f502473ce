// ABOUTME: Garbage collection of content records no correspondence row references
// ABOUTME: The only code path that deletes records; normal operation is append-only
package storage

import (
	"context"

	"github.com/harper/transdoc/internal/models"
)

// GCReport summarizes a collection pass
type GCReport struct {
	ClearedCells   int                `json:"cleared_cells"`
	RemovedRows    int                `json:"removed_rows"`
	RemovedRecords int                `json:"removed_records"`
	Unreferenced   []models.ChunkHash `json:"unreferenced,omitempty"`
	DryRun         bool               `json:"dry_run"`
}

// CollectGarbage drops rows pointing at missing records, then deletes records no row references.
// With dryRun nothing is modified and the report lists what would go.
func CollectGarbage(ctx context.Context, s *Storage, dryRun bool) (*GCReport, error) {
	report := &GCReport{DryRun: dryRun}

	exists := func(lang models.Language, hash models.ChunkHash) bool {
		ok, err := s.Content.Has(lang, hash)
		return err != nil || ok
	}

	if dryRun {
		rows, err := s.Index.Rows(ctx)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			cleared, keep := row.Prune(exists)
			report.ClearedCells += cleared
			if !keep {
				report.RemovedRows++
			}
		}
	} else {
		stats, err := s.Index.Prune(ctx, exists)
		if err != nil {
			return nil, err
		}
		report.ClearedCells = stats.ClearedCells
		report.RemovedRows = stats.RemovedRows
	}

	rows, err := s.Index.Rows(ctx)
	if err != nil {
		return nil, err
	}
	referenced := make(map[string]bool)
	for _, row := range rows {
		// A row that a dry run would drop does not keep its records alive
		if dryRun {
			if _, keep := row.Prune(exists); !keep {
				continue
			}
		}
		for lang, hash := range row.Cells {
			if hash != "" {
				referenced[reviewKey(lang, hash)] = true
			}
		}
	}

	langs, err := s.Content.Languages()
	if err != nil {
		return nil, err
	}
	for _, lang := range langs {
		hashes, err := s.Content.List(lang)
		if err != nil {
			return nil, err
		}
		for _, hash := range hashes {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if referenced[reviewKey(lang, hash)] {
				continue
			}
			report.Unreferenced = append(report.Unreferenced, hash)
			if dryRun {
				continue
			}
			if err := s.Content.Delete(lang, hash); err != nil {
				return report, err
			}
			report.RemovedRecords++
		}
	}
	return report, nil
}
