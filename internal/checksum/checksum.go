// ABOUTME: Chunk identity: normalization rules and content hashing
// ABOUTME: The hash of normalized text is the address of every content record
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/harper/transdoc/internal/models"
	"github.com/zeebo/blake3"
)

// Algorithm names a supported digest; it is fixed per store
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

// ParseAlgorithm validates an algorithm name; empty means SHA256
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case "", SHA256:
		return SHA256, nil
	case BLAKE3:
		return BLAKE3, nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm %q (want sha256 or blake3)", s)
	}
}

// Hasher computes chunk hashes with a fixed algorithm
type Hasher struct {
	alg Algorithm
}

// New creates a Hasher for the given algorithm
func New(alg Algorithm) Hasher {
	if alg == "" {
		alg = SHA256
	}
	return Hasher{alg: alg}
}

// Algorithm returns the digest in use
func (h Hasher) Algorithm() Algorithm {
	if h.alg == "" {
		return SHA256
	}
	return h.alg
}

// Hash returns the digest of Normalize(text)
func (h Hasher) Hash(text string) models.ChunkHash {
	return h.HashNormalized(Normalize(text))
}

// HashNormalized hashes text that is already normalized
func (h Hasher) HashNormalized(normalized string) models.ChunkHash {
	var sum [32]byte
	switch h.Algorithm() {
	case BLAKE3:
		sum = blake3.Sum256([]byte(normalized))
	default:
		sum = sha256.Sum256([]byte(normalized))
	}
	return models.ChunkHash(hex.EncodeToString(sum[:]))
}

// Hash hashes with SHA256
func Hash(text string) models.ChunkHash {
	return New(SHA256).Hash(text)
}

// Valid reports whether s looks like a chunk hash
func Valid(s string) bool {
	return models.ChunkHash(s).Valid()
}

// Normalize canonicalizes line endings to LF and strips trailing whitespace from every line.
// All other bytes, including leading indentation and blank lines, are kept.
func Normalize(text string) string {
	if strings.IndexByte(text, '\r') >= 0 {
		text = strings.ReplaceAll(text, "\r\n", "\n")
		text = strings.ReplaceAll(text, "\r", "\n")
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\v\f")
	}
	return strings.Join(lines, "\n")
}
