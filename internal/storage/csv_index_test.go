// ABOUTME: Tests for the CSV correspondence index and the behavior shared by both backends
// ABOUTME: Every backend must pass indexConformance; CSV-only tests cover the file layout
package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harper/transdoc/internal/errs"
	"github.com/harper/transdoc/internal/models"
	"github.com/harper/transdoc/internal/storage/sqlite"
)

func hashOf(c string) models.ChunkHash {
	return models.ChunkHash(strings.Repeat(c, 64))
}

func backends(t *testing.T) map[string]func(t *testing.T) Index {
	return map[string]func(t *testing.T) Index{
		BackendCSV: func(t *testing.T) Index {
			idx, err := OpenCSVIndex(t.TempDir())
			if err != nil {
				t.Fatalf("OpenCSVIndex() error = %v", err)
			}
			return idx
		},
		BackendSQLite: func(t *testing.T) Index {
			idx, err := sqlite.OpenIndex(filepath.Join(t.TempDir(), SQLiteFileName))
			if err != nil {
				t.Fatalf("sqlite.OpenIndex() error = %v", err)
			}
			t.Cleanup(func() { _ = idx.Close() })
			return idx
		},
	}
}

func TestIndexConformance(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			indexConformance(t, open)
		})
	}
}

func indexConformance(t *testing.T, open func(t *testing.T) Index) {
	ctx := context.Background()

	t.Run("record then lookup both ways", func(t *testing.T) {
		idx := open(t)
		if err := idx.Record(ctx, models.Mapping{"en": hashOf("a"), "fr": hashOf("b")}, "en"); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		got, _ := idx.Lookup(ctx, "en", hashOf("a"))
		if got["fr"] != hashOf("b") {
			t.Errorf("Lookup(en) = %v", got)
		}
		back, _ := idx.Lookup(ctx, "fr", hashOf("b"))
		if back["en"] != hashOf("a") {
			t.Errorf("Lookup(fr) = %v", back)
		}
	})

	t.Run("record is idempotent", func(t *testing.T) {
		idx := open(t)
		m := models.Mapping{"en": hashOf("a"), "fr": hashOf("b")}
		for i := 0; i < 3; i++ {
			if err := idx.Record(ctx, m, "en"); err != nil {
				t.Fatalf("Record() #%d error = %v", i, err)
			}
		}
		rows, _ := idx.Rows(ctx)
		if len(rows) != 1 {
			t.Errorf("rows = %d, want 1", len(rows))
		}
	})

	t.Run("new language extends the existing row", func(t *testing.T) {
		idx := open(t)
		_ = idx.Record(ctx, models.Mapping{"en": hashOf("a"), "fr": hashOf("b")}, "en")
		if err := idx.Record(ctx, models.Mapping{"en": hashOf("a"), "de": hashOf("c")}, "en"); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		langs, _ := idx.Languages(ctx)
		if len(langs) != 3 || langs[0] != "en" || langs[1] != "fr" || langs[2] != "de" {
			t.Errorf("Languages() = %v, want [en fr de]", langs)
		}
		got, _ := idx.Lookup(ctx, "de", hashOf("c"))
		if got["en"] != hashOf("a") || got["fr"] != hashOf("b") {
			t.Errorf("Lookup(de) = %v", got)
		}
	})

	t.Run("conflict leaves row untouched", func(t *testing.T) {
		idx := open(t)
		_ = idx.Record(ctx, models.Mapping{"en": hashOf("a"), "fr": hashOf("b")}, "en")
		err := idx.Record(ctx, models.Mapping{"en": hashOf("a"), "fr": hashOf("c")}, "en")
		var ce *errs.ConflictError
		if !errors.As(err, &ce) {
			t.Fatalf("Record() error = %v, want ConflictError", err)
		}
		if ce.Language != "fr" {
			t.Errorf("ConflictError.Language = %s, want fr", ce.Language)
		}
		got, _ := idx.Lookup(ctx, "en", hashOf("a"))
		if got["fr"] != hashOf("b") {
			t.Errorf("row changed after conflict: %v", got)
		}
	})

	t.Run("hash shared in another language merges into that row", func(t *testing.T) {
		idx := open(t)
		_ = idx.Record(ctx, models.Mapping{"en": hashOf("a"), "fr": hashOf("x")}, "en")
		if err := idx.Record(ctx, models.Mapping{"de": hashOf("d"), "en": hashOf("a"), "fr": hashOf("x")}, "de"); err != nil {
			t.Fatalf("Record() keyed by de error = %v", err)
		}
		err := idx.Record(ctx, models.Mapping{"en": hashOf("a"), "de": hashOf("d2")}, "en")
		if !errors.Is(err, errs.ErrCorrespondenceConflict) {
			t.Errorf("Record() with a second de hash error = %v, want conflict", err)
		}
		rows, _ := idx.Rows(ctx)
		if len(rows) != 1 {
			t.Fatalf("rows = %d, want 1", len(rows))
		}
		if rows[0].Cells["de"] != hashOf("d") || rows[0].Cells["fr"] != hashOf("x") {
			t.Errorf("row = %v", rows[0].Cells)
		}
	})

	t.Run("shared translation of different sources is a conflict", func(t *testing.T) {
		idx := open(t)
		_ = idx.Record(ctx, models.Mapping{"en": hashOf("a"), "fr": hashOf("f")}, "en")
		err := idx.Record(ctx, models.Mapping{"en": hashOf("b"), "fr": hashOf("f")}, "en")
		var ce *errs.ConflictError
		if !errors.As(err, &ce) || ce.Language != "en" {
			t.Fatalf("Record() error = %v, want en conflict", err)
		}
		rows, _ := idx.Rows(ctx)
		if len(rows) != 1 {
			t.Errorf("rows = %d, want 1", len(rows))
		}
	})

	t.Run("mapping spanning two rows is a conflict", func(t *testing.T) {
		idx := open(t)
		_ = idx.Record(ctx, models.Mapping{"en": hashOf("a"), "fr": hashOf("b")}, "en")
		_ = idx.Record(ctx, models.Mapping{"en": hashOf("c"), "de": hashOf("d")}, "en")
		err := idx.Record(ctx, models.Mapping{"fr": hashOf("b"), "de": hashOf("d")}, "fr")
		if !errors.Is(err, errs.ErrCorrespondenceConflict) {
			t.Fatalf("Record() error = %v, want conflict", err)
		}
		rows, _ := idx.Rows(ctx)
		if len(rows) != 2 || rows[0].Cells["de"] != "" || rows[1].Cells["fr"] != "" {
			t.Errorf("rows changed after conflict: %v", rows)
		}
	})

	t.Run("replace overwrites in place", func(t *testing.T) {
		idx := open(t)
		_ = idx.Record(ctx, models.Mapping{"en": hashOf("a"), "fr": hashOf("b")}, "en")
		if err := idx.Replace(ctx, models.Mapping{"en": hashOf("a"), "fr": hashOf("c")}, "en"); err != nil {
			t.Fatalf("Replace() error = %v", err)
		}
		got, _ := idx.Lookup(ctx, "en", hashOf("a"))
		if got["fr"] != hashOf("c") {
			t.Errorf("Lookup() = %v, want corrected fr", got)
		}
		old, _ := idx.Lookup(ctx, "fr", hashOf("b"))
		if len(old) != 0 {
			t.Errorf("old translation still resolves: %v", old)
		}
		err := idx.Replace(ctx, models.Mapping{"en": hashOf("d"), "fr": hashOf("e")}, "en")
		if !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("Replace() missing row error = %v, want ErrNotFound", err)
		}
	})

	t.Run("prune", func(t *testing.T) {
		idx := open(t)
		_ = idx.Record(ctx, models.Mapping{"en": hashOf("a"), "fr": hashOf("b"), "de": hashOf("c")}, "en")
		_ = idx.Record(ctx, models.Mapping{"en": hashOf("d"), "fr": hashOf("e")}, "en")
		gone := map[models.ChunkHash]bool{hashOf("c"): true, hashOf("e"): true}
		stats, err := idx.Prune(ctx, func(_ models.Language, h models.ChunkHash) bool { return !gone[h] })
		if err != nil {
			t.Fatalf("Prune() error = %v", err)
		}
		if stats.ClearedCells != 2 || stats.RemovedRows != 1 {
			t.Errorf("Prune() = %+v", stats)
		}
		rows, _ := idx.Rows(ctx)
		if len(rows) != 1 {
			t.Errorf("rows = %d, want 1", len(rows))
		}
	})

	t.Run("review ledger", func(t *testing.T) {
		idx := open(t)
		if ok, _ := idx.IsReviewed(ctx, "fr", hashOf("b")); ok {
			t.Error("IsReviewed() = true before MarkReviewed")
		}
		if err := idx.MarkReviewed(ctx, "fr", hashOf("b")); err != nil {
			t.Fatalf("MarkReviewed() error = %v", err)
		}
		if ok, _ := idx.IsReviewed(ctx, "fr", hashOf("b")); !ok {
			t.Error("IsReviewed() = false after MarkReviewed")
		}
		if ok, _ := idx.IsReviewed(ctx, "de", hashOf("b")); ok {
			t.Error("review is per language")
		}
	})

	t.Run("invalid mapping", func(t *testing.T) {
		idx := open(t)
		tests := []struct {
			name string
			m    models.Mapping
			key  models.Language
		}{
			{"single language", models.Mapping{"en": hashOf("a")}, "en"},
			{"missing key", models.Mapping{"fr": hashOf("a"), "de": hashOf("b")}, "en"},
			{"bad hash", models.Mapping{"en": hashOf("a"), "fr": "nothex"}, "en"},
		}
		for _, tt := range tests {
			if err := idx.Record(ctx, tt.m, tt.key); !errors.Is(err, errs.ErrInvalidInput) {
				t.Errorf("%s: Record() error = %v, want ErrInvalidInput", tt.name, err)
			}
		}
	})
}

func TestCSVIndex_FileLayout(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	idx, err := OpenCSVIndex(root)
	if err != nil {
		t.Fatalf("OpenCSVIndex() error = %v", err)
	}

	if _, err := os.Stat(idx.Path()); !os.IsNotExist(err) {
		t.Error("opening an empty index should not create the table")
	}

	_ = idx.Record(ctx, models.Mapping{"en": hashOf("a"), "fr": hashOf("b")}, "en")
	_ = idx.Record(ctx, models.Mapping{"en": hashOf("c"), "de": hashOf("d")}, "en")

	data, err := os.ReadFile(idx.Path())
	if err != nil {
		t.Fatalf("reading table: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "en,fr,de" {
		t.Errorf("header = %q, want en,fr,de", lines[0])
	}
	if len(lines) != 3 {
		t.Fatalf("table has %d lines, want 3", len(lines))
	}
	want := string(hashOf("a")) + "," + string(hashOf("b")) + ","
	if lines[1] != want {
		t.Errorf("row 1 = %q, want trailing empty de cell", lines[1])
	}
}

func TestCSVIndex_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	idx, _ := OpenCSVIndex(root)
	_ = idx.Record(ctx, models.Mapping{"en": hashOf("a"), "fr": hashOf("b")}, "en")
	_ = idx.MarkReviewed(ctx, "fr", hashOf("b"))

	reopened, err := OpenCSVIndex(root)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	got, _ := reopened.Lookup(ctx, "en", hashOf("a"))
	if got["fr"] != hashOf("b") {
		t.Errorf("Lookup() after reopen = %v", got)
	}
	if ok, _ := reopened.IsReviewed(ctx, "fr", hashOf("b")); !ok {
		t.Error("review ledger lost on reopen")
	}
}

func TestCSVIndex_RejectsBadHeader(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, CorrespondenceFileName), []byte("English,fr\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenCSVIndex(root); !errors.Is(err, errs.ErrInvalidInput) {
		t.Errorf("OpenCSVIndex() error = %v, want ErrInvalidInput", err)
	}
}

func TestCSVIndex_FailedWriteKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	idx, _ := OpenCSVIndex(t.TempDir())
	_ = idx.Record(ctx, models.Mapping{"en": hashOf("a"), "fr": hashOf("b")}, "en")

	orig := osRename
	osRename = func(string, string) error { return os.ErrPermission }
	defer func() { osRename = orig }()

	err := idx.Record(ctx, models.Mapping{"en": hashOf("c"), "fr": hashOf("d")}, "en")
	if !errors.Is(err, errs.ErrIO) {
		t.Fatalf("Record() error = %v, want ErrIO", err)
	}
	rows, _ := idx.Rows(ctx)
	if len(rows) != 1 {
		t.Errorf("rows = %d after failed write, want 1", len(rows))
	}
}
