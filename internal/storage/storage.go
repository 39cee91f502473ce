// ABOUTME: Storage bundles the content store and correspondence index under one root directory
// ABOUTME: Resolves the XDG default root and selects the index backend
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harper/transdoc/internal/checksum"
	"github.com/harper/transdoc/internal/storage/sqlite"
)

// Index backends
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// SQLiteFileName is the database file used by the sqlite backend
const SQLiteFileName = "correspondence.db"

// Options configures Open
type Options struct {
	Root    string
	Hash    checksum.Algorithm
	Backend string
}

// Storage is the translation memory: content records plus correspondence rows
type Storage struct {
	Content *ContentStore
	Index   Index
	root    string
	backend string
}

// DefaultRoot returns the default translation memory directory following the XDG base directory layout
func DefaultRoot() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ".transdoc"
		}
		dataHome = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataHome, "transdoc")
}

// Open opens or creates the translation memory described by opts
func Open(opts Options) (*Storage, error) {
	root := opts.Root
	if root == "" {
		root = DefaultRoot()
	}

	content, err := OpenContentStore(root, opts.Hash)
	if err != nil {
		return nil, fmt.Errorf("opening content store: %w", err)
	}

	backend := strings.ToLower(opts.Backend)
	if backend == "" {
		backend = BackendCSV
	}

	var index Index
	switch backend {
	case BackendCSV:
		index, err = OpenCSVIndex(root)
	case BackendSQLite:
		index, err = sqlite.OpenIndex(filepath.Join(root, SQLiteFileName))
	default:
		return nil, fmt.Errorf("unknown index backend %q (want csv or sqlite)", opts.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("opening correspondence index: %w", err)
	}

	return &Storage{Content: content, Index: index, root: root, backend: backend}, nil
}

// Root returns the translation memory directory
func (s *Storage) Root() string {
	return s.root
}

// Backend returns the index backend name
func (s *Storage) Backend() string {
	return s.backend
}

// Close releases the index
func (s *Storage) Close() error {
	if s.Index != nil {
		return s.Index.Close()
	}
	return nil
}
