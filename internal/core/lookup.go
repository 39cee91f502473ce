// ABOUTME: Lookup resolves a source chunk to its known translations in the memory
// ABOUTME: Shared by the lookup command and the MCP lookup_translation tool
package core

import (
	"context"
	"errors"

	"github.com/harper/transdoc/internal/errs"
	"github.com/harper/transdoc/internal/models"
	"github.com/harper/transdoc/internal/storage"
)

// Translation is one counterpart of a looked-up chunk
type Translation struct {
	Language models.Language  `json:"language"`
	Hash     models.ChunkHash `json:"hash"`
	Text     string           `json:"text,omitempty"`
	Reviewed bool             `json:"reviewed"`
	Missing  bool             `json:"missing,omitempty"`
}

// LookupResult lists the counterparts of (Language, Hash)
type LookupResult struct {
	Language     models.Language  `json:"language"`
	Hash         models.ChunkHash `json:"hash"`
	Stored       bool             `json:"stored"`
	Translations []Translation    `json:"translations"`
}

// Lookup returns the translations of (lang, hash). When only is set, other languages are dropped
// and a missing counterpart is a NotFound error.
func Lookup(ctx context.Context, store *storage.Storage, lang models.Language, hash models.ChunkHash, only models.Language) (*LookupResult, error) {
	if !lang.Valid() {
		return nil, errs.Invalid("language %q", lang)
	}
	if !hash.Valid() {
		return nil, errs.Invalid("hash %q", hash)
	}

	stored, err := store.Content.Has(lang, hash)
	if err != nil {
		return nil, err
	}
	others, err := store.Index.Lookup(ctx, lang, hash)
	if err != nil {
		return nil, err
	}

	res := &LookupResult{Language: lang, Hash: hash, Stored: stored, Translations: []Translation{}}
	for _, l := range others.Languages() {
		if only != "" && l != only {
			continue
		}
		t := Translation{Language: l, Hash: others[l]}
		text, err := store.Content.Get(ctx, l, t.Hash)
		switch {
		case errors.Is(err, errs.ErrNotFound):
			t.Missing = true
		case err != nil:
			return nil, err
		default:
			t.Text = text
		}
		if t.Reviewed, err = store.Index.IsReviewed(ctx, l, t.Hash); err != nil {
			return nil, err
		}
		res.Translations = append(res.Translations, t)
	}

	if only != "" && len(res.Translations) == 0 {
		return res, errs.NewNotFound("translation", string(only)+" of "+hash.Short())
	}
	return res, nil
}
