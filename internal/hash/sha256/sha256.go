// Package sha256 derives strong entity tags from response bodies.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// tagLen is the number of hex digits kept from the digest.
const tagLen = 32

// Hasher implements movie.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() Hasher {
	return Hasher{}
}

// ETag returns a quoted, truncated hex digest of data suitable for the ETag
// header.
func (Hasher) ETag(data []byte) string {
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:])[:tagLen] + `"`
}
