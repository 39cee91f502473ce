// ABOUTME: Correspondence types link per-language content hashes that translate each other
// ABOUTME: A Mapping is one row's worth of (language, hash) pairs
package models

import (
	"regexp"
	"sort"
	"strings"

	"github.com/harper/transdoc/internal/errs"
)

// ChunkHash is the lowercase hex digest of a chunk's normalized text
type ChunkHash string

// Both supported digests are 32 bytes, so hashes are always 64 hex characters
var hashPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Valid reports whether h is well formed; it is safe to use as a file name once valid
func (h ChunkHash) Valid() bool {
	return hashPattern.MatchString(string(h))
}

// Short returns the first 12 hex characters for display
func (h ChunkHash) Short() string {
	if len(h) > 12 {
		return string(h[:12])
	}
	return string(h)
}

// Mapping asserts that the referenced records are mutual translations
type Mapping map[Language]ChunkHash

// Languages returns the mapping's languages in sorted order
func (m Mapping) Languages() []Language {
	langs := make([]Language, 0, len(m))
	for l := range m {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

// Without returns a copy of the mapping minus one language
func (m Mapping) Without(lang Language) Mapping {
	out := make(Mapping, len(m))
	for l, h := range m {
		if l != lang {
			out[l] = h
		}
	}
	return out
}

// String renders the mapping as "en=abc123 fr=def456" for logs
func (m Mapping) String() string {
	parts := make([]string, 0, len(m))
	for _, l := range m.Languages() {
		parts = append(parts, string(l)+"="+m[l].Short())
	}
	return strings.Join(parts, " ")
}

// Validate checks languages and hashes, and that the key language is present
func (m Mapping) Validate(key Language) error {
	if len(m) < 2 {
		return errs.Invalid("mapping needs at least two languages, got %d", len(m))
	}
	if _, ok := m[key]; !ok {
		return errs.Invalid("mapping has no %s hash", key)
	}
	for lang, hash := range m {
		if !lang.Valid() {
			return errs.Invalid("language %q", lang)
		}
		if !hash.Valid() {
			return errs.Invalid("hash %q for %s", hash, lang)
		}
	}
	return nil
}

// Row is one persisted correspondence; empty cells mean the language is not part of it
type Row struct {
	ID    int     `json:"id"`
	Cells Mapping `json:"cells"`
}

// Has reports whether the row holds hash for lang
func (r Row) Has(lang Language, hash ChunkHash) bool {
	return hash != "" && r.Cells[lang] == hash
}

// MatchRow returns the position in rows of the row sharing any (language, hash) pair with m,
// or -1 when none does. A mapping that touches two different rows is a conflict.
func MatchRow(rows []Row, m Mapping) (int, error) {
	match := -1
	langs := m.Languages()
	for i, r := range rows {
		for _, lang := range langs {
			if !r.Has(lang, m[lang]) {
				continue
			}
			if match >= 0 {
				existing := rows[match].Cells[lang]
				if existing == "" {
					existing = "(none)"
				}
				return -1, &errs.ConflictError{
					Language: string(lang),
					Existing: string(existing),
					Incoming: string(m[lang]),
				}
			}
			match = i
			break
		}
	}
	return match, nil
}

// Merge fills empty cells from m. A non-empty cell holding a different hash is a conflict
// and leaves the row unchanged. It reports whether any cell changed.
func (r *Row) Merge(m Mapping) (bool, error) {
	for lang, hash := range m {
		if hash == "" {
			continue
		}
		if existing := r.Cells[lang]; existing != "" && existing != hash {
			return false, &errs.ConflictError{
				Language: string(lang),
				Existing: string(existing),
				Incoming: string(hash),
			}
		}
	}
	if r.Cells == nil {
		r.Cells = make(Mapping, len(m))
	}
	changed := false
	for lang, hash := range m {
		if hash != "" && r.Cells[lang] != hash {
			r.Cells[lang] = hash
			changed = true
		}
	}
	return changed, nil
}

// Overwrite replaces cells with m's non-empty hashes; only the correction path calls it
func (r *Row) Overwrite(m Mapping) bool {
	if r.Cells == nil {
		r.Cells = make(Mapping, len(m))
	}
	changed := false
	for lang, hash := range m {
		if hash != "" && r.Cells[lang] != hash {
			r.Cells[lang] = hash
			changed = true
		}
	}
	return changed
}

// Others returns the row's non-empty cells except lang
func (r Row) Others(lang Language) Mapping {
	out := make(Mapping)
	for l, h := range r.Cells {
		if l != lang && h != "" {
			out[l] = h
		}
	}
	return out
}

// Prune clears cells whose record is gone and reports how many it cleared
// and whether the row still links at least two records
func (r *Row) Prune(exists func(Language, ChunkHash) bool) (int, bool) {
	cleared := 0
	filled := 0
	for lang, hash := range r.Cells {
		if hash == "" {
			continue
		}
		if !exists(lang, hash) {
			r.Cells[lang] = ""
			cleared++
			continue
		}
		filled++
	}
	return cleared, filled >= 2
}

// PruneStats reports what an index prune changed
type PruneStats struct {
	ClearedCells int `json:"cleared_cells"`
	RemovedRows  int `json:"removed_rows"`
}

// Provenance is the metadata embedded after each translatable chunk of an output document
type Provenance struct {
	Source      ChunkHash `json:"src"`
	Anchor      int       `json:"anchor"`
	NeedsReview bool      `json:"needs_review"`
}
