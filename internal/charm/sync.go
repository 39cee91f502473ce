// ABOUTME: Push and pull of the translation memory through a key/value store
// ABOUTME: Records, the correspondence table and the review ledger each map to their own keys
package charm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harper/transdoc/internal/errs"
	"github.com/harper/transdoc/internal/models"
	"github.com/harper/transdoc/internal/storage"
)

// Key prefixes for the synced entities
const (
	RecordPrefix   = "record:"
	ReviewedPrefix = "reviewed:"
	IndexKey       = "index:csv"
)

// Store is the key/value surface sync needs; Client implements it. Get reports a missing key
// with an error matching errs.ErrNotFound.
type Store interface {
	Set(key string, value []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
	ListKeys(prefix string) ([]string, error)
}

// SyncReport counts what a push or pull moved
type SyncReport struct {
	Records   int `json:"records"`
	Unchanged int `json:"unchanged"`
	Rows      int `json:"rows"`
	Conflicts int `json:"conflicts"`
	Reviewed  int `json:"reviewed"`
	Rejected  int `json:"rejected"`
}

// Status describes the remote side
type Status struct {
	Records  int  `json:"records"`
	Reviewed int  `json:"reviewed"`
	HasIndex bool `json:"has_index"`
}

// RecordKey generates a key for a content record
func RecordKey(lang models.Language, hash models.ChunkHash) string {
	return RecordPrefix + string(lang) + ":" + string(hash)
}

// ReviewedKey generates a key for a review ledger entry
func ReviewedKey(lang models.Language, hash models.ChunkHash) string {
	return ReviewedPrefix + string(lang) + ":" + string(hash)
}

// parseKey splits "<prefix><lang>:<hash>"
func parseKey(key, prefix string) (models.Language, models.ChunkHash, bool) {
	lang, hash, ok := strings.Cut(strings.TrimPrefix(key, prefix), ":")
	if !ok {
		return "", "", false
	}
	l, h := models.Language(lang), models.ChunkHash(hash)
	return l, h, l.Valid() && h.Valid()
}

// Push copies every local record, the correspondence table and the review ledger to kv.
// Records already present remotely are not rewritten.
func Push(ctx context.Context, s *storage.Storage, kv Store) (*SyncReport, error) {
	report := &SyncReport{}

	remote, err := kv.ListKeys(RecordPrefix)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(remote))
	for _, k := range remote {
		have[k] = true
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
			if reviewed, err := s.Index.IsReviewed(ctx, lang, hash); err != nil {
				return report, err
			} else if reviewed {
				if err := kv.Set(ReviewedKey(lang, hash), []byte("1")); err != nil {
					return report, err
				}
				report.Reviewed++
			}

			key := RecordKey(lang, hash)
			if have[key] {
				report.Unchanged++
				continue
			}
			text, err := s.Content.Get(ctx, lang, hash)
			if err != nil {
				return report, err
			}
			if err := kv.Set(key, []byte(text)); err != nil {
				return report, err
			}
			report.Records++
		}
	}

	var table bytes.Buffer
	if err := storage.Export(ctx, s.Index, &table, storage.FormatCSV); err != nil {
		return report, fmt.Errorf("exporting index: %w", err)
	}
	rows, err := s.Index.Rows(ctx)
	if err != nil {
		return report, err
	}
	report.Rows = len(rows)
	if err := kv.Set(IndexKey, table.Bytes()); err != nil {
		return report, err
	}
	return report, nil
}

// Pull merges remote records, rows and review marks into the local memory. Records whose text
// does not hash to their key are rejected; rows that conflict with local mappings are skipped.
func Pull(ctx context.Context, s *storage.Storage, kv Store) (*SyncReport, error) {
	report := &SyncReport{}

	keys, err := kv.ListKeys(RecordPrefix)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		lang, hash, ok := parseKey(key, RecordPrefix)
		if !ok {
			report.Rejected++
			continue
		}
		if exists, err := s.Content.Has(lang, hash); err != nil {
			return report, err
		} else if exists {
			report.Unchanged++
			continue
		}
		value, err := kv.Get(key)
		if err != nil {
			return report, fmt.Errorf("reading %s: %w", key, err)
		}
		got, err := s.Content.Put(ctx, lang, string(value))
		if err != nil {
			if errs.IsFatal(err) {
				return report, err
			}
			report.Rejected++
			continue
		}
		if got != hash {
			// The text landed under its real hash; the remote key was wrong
			report.Rejected++
			continue
		}
		report.Records++
	}

	table, err := kv.Get(IndexKey)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return report, fmt.Errorf("reading remote index: %w", err)
	}
	if len(table) > 0 {
		_, rows, err := storage.ReadTable(bytes.NewReader(table))
		if err != nil {
			return report, fmt.Errorf("reading remote index: %w", err)
		}
		for _, row := range rows {
			m := row.Others("")
			langs := m.Languages()
			if len(langs) < 2 {
				continue
			}
			err := s.Index.Record(ctx, m, langs[0])
			switch {
			case err == nil:
				report.Rows++
			case errors.Is(err, errs.ErrCorrespondenceConflict), errors.Is(err, errs.ErrInvalidInput):
				report.Conflicts++
			default:
				return report, err
			}
		}
	}

	reviewed, err := kv.ListKeys(ReviewedPrefix)
	if err != nil {
		return report, err
	}
	for _, key := range reviewed {
		lang, hash, ok := parseKey(key, ReviewedPrefix)
		if !ok {
			continue
		}
		if err := s.Index.MarkReviewed(ctx, lang, hash); err != nil {
			return report, err
		}
		report.Reviewed++
	}
	return report, nil
}

// RemoteStatus counts what kv holds
func RemoteStatus(kv Store) (*Status, error) {
	records, err := kv.ListKeys(RecordPrefix)
	if err != nil {
		return nil, err
	}
	reviewed, err := kv.ListKeys(ReviewedPrefix)
	if err != nil {
		return nil, err
	}
	index, err := kv.ListKeys(IndexKey)
	if err != nil {
		return nil, err
	}
	return &Status{Records: len(records), Reviewed: len(reviewed), HasIndex: len(index) > 0}, nil
}

// Wipe deletes every synced key from kv
func Wipe(kv Store) (int, error) {
	deleted := 0
	for _, prefix := range []string{RecordPrefix, ReviewedPrefix, IndexKey} {
		keys, err := kv.ListKeys(prefix)
		if err != nil {
			return deleted, err
		}
		for _, k := range keys {
			if err := kv.Delete(k); err != nil {
				return deleted, err
			}
			deleted++
		}
	}
	return deleted, nil
}
