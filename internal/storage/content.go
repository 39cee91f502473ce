// ABOUTME: Content store: one file per (language, hash) holding normalized chunk text
// ABOUTME: Puts are idempotent, writes are atomic, and collisions are rejected
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/harper/transdoc/internal/checksum"
	"github.com/harper/transdoc/internal/errs"
	"github.com/harper/transdoc/internal/models"
)

const (
	contentDir   = "content"
	metaFileName = "store.json"
)

// storeMeta pins the hash algorithm for the lifetime of a store
type storeMeta struct {
	HashAlgorithm checksum.Algorithm `json:"hash_algorithm"`
	CreatedAt     time.Time          `json:"created_at"`
}

// ContentStore persists chunk text per language, addressed by hash
type ContentStore struct {
	root   string
	hasher checksum.Hasher
}

// CorruptRecord is a record whose contents no longer hash to its name
type CorruptRecord struct {
	Language models.Language
	Hash     models.ChunkHash
	Actual   models.ChunkHash
}

// OpenContentStore opens or creates a store under root. An existing store
// keeps the algorithm it was created with; asking for another one is an error.
func OpenContentStore(root string, alg checksum.Algorithm) (*ContentStore, error) {
	if err := os.MkdirAll(filepath.Join(root, contentDir), 0755); err != nil {
		return nil, errs.NewIO("create content directory", root, err)
	}

	metaPath := filepath.Join(root, metaFileName)
	data, err := os.ReadFile(metaPath)
	switch {
	case err == nil:
		var meta storeMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", metaPath, err)
		}
		if alg != "" && meta.HashAlgorithm != alg {
			return nil, errs.Invalid("store %s uses %s, not %s", root, meta.HashAlgorithm, alg)
		}
		alg = meta.HashAlgorithm
	case errors.Is(err, fs.ErrNotExist):
		if alg == "" {
			alg = checksum.SHA256
		}
		meta, _ := json.MarshalIndent(storeMeta{HashAlgorithm: alg, CreatedAt: time.Now().UTC()}, "", "  ")
		if err := WriteFileAtomic(metaPath, meta, 0644); err != nil {
			return nil, err
		}
	default:
		return nil, errs.NewIO("read", metaPath, err)
	}

	return &ContentStore{root: root, hasher: checksum.New(alg)}, nil
}

// Hasher returns the hasher the store addresses records with
func (s *ContentStore) Hasher() checksum.Hasher {
	return s.hasher
}

// Root returns the store's root directory
func (s *ContentStore) Root() string {
	return s.root
}

// Path returns the file path of a record
func (s *ContentStore) Path(lang models.Language, hash models.ChunkHash) string {
	return filepath.Join(s.root, contentDir, string(lang), string(hash))
}

// Put stores text under hash(normalize(text)) and returns the hash.
// An existing identical record is left alone; an existing different one is a collision.
func (s *ContentStore) Put(ctx context.Context, lang models.Language, text string) (models.ChunkHash, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !lang.Valid() {
		return "", errs.Invalid("language %q", lang)
	}

	normalized := checksum.Normalize(text)
	hash := s.hasher.HashNormalized(normalized)
	path := s.Path(lang, hash)

	existing, err := os.ReadFile(path)
	if err == nil {
		if string(existing) != normalized {
			return "", &errs.CollisionError{Language: string(lang), Hash: string(hash)}
		}
		return hash, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", errs.NewIO("read", path, err)
	}

	if err := WriteFileAtomic(path, []byte(normalized), 0644); err != nil {
		return "", err
	}
	return hash, nil
}

// Get returns the text of a record, or a NotFound error
func (s *ContentStore) Get(ctx context.Context, lang models.Language, hash models.ChunkHash) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !lang.Valid() {
		return "", errs.Invalid("language %q", lang)
	}
	if !checksum.Valid(string(hash)) {
		return "", errs.Invalid("hash %q", hash)
	}

	path := s.Path(lang, hash)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", errs.NewNotFound("content record", fmt.Sprintf("%s/%s", lang, hash))
		}
		return "", errs.NewIO("read", path, err)
	}
	return string(data), nil
}

// Has reports whether a record exists
func (s *ContentStore) Has(lang models.Language, hash models.ChunkHash) (bool, error) {
	if !lang.Valid() || !checksum.Valid(string(hash)) {
		return false, nil
	}
	_, err := os.Stat(s.Path(lang, hash))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, errs.NewIO("stat", s.Path(lang, hash), err)
}

// Languages lists the languages that have at least a directory in the store
func (s *ContentStore) Languages() ([]models.Language, error) {
	dir := filepath.Join(s.root, contentDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.NewIO("list", dir, err)
	}

	var langs []models.Language
	for _, e := range entries {
		if l := models.Language(e.Name()); e.IsDir() && l.Valid() {
			langs = append(langs, l)
		}
	}
	return langs, nil
}

// List returns every record hash stored for lang, sorted
func (s *ContentStore) List(lang models.Language) ([]models.ChunkHash, error) {
	dir := filepath.Join(s.root, contentDir, string(lang))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errs.NewIO("list", dir, err)
	}

	var hashes []models.ChunkHash
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !checksum.Valid(e.Name()) {
			continue
		}
		hashes = append(hashes, models.ChunkHash(e.Name()))
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
	return hashes, nil
}

// Delete removes a record. Normal operation never deletes; only garbage collection does.
func (s *ContentStore) Delete(lang models.Language, hash models.ChunkHash) error {
	if !lang.Valid() || !checksum.Valid(string(hash)) {
		return errs.Invalid("record %s/%s", lang, hash)
	}
	path := s.Path(lang, hash)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errs.NewIO("remove", path, err)
	}
	return nil
}

// Verify re-hashes every record and returns the ones whose contents do not match their name
func (s *ContentStore) Verify(ctx context.Context) ([]CorruptRecord, int, error) {
	langs, err := s.Languages()
	if err != nil {
		return nil, 0, err
	}

	var corrupt []CorruptRecord
	checked := 0
	for _, lang := range langs {
		hashes, err := s.List(lang)
		if err != nil {
			return nil, checked, err
		}
		for _, hash := range hashes {
			if err := ctx.Err(); err != nil {
				return corrupt, checked, err
			}
			data, err := os.ReadFile(s.Path(lang, hash))
			if err != nil {
				return corrupt, checked, errs.NewIO("read", s.Path(lang, hash), err)
			}
			checked++
			if actual := s.hasher.HashNormalized(string(data)); actual != hash {
				corrupt = append(corrupt, CorruptRecord{Language: lang, Hash: hash, Actual: actual})
			}
		}
	}
	return corrupt, checked, nil
}
