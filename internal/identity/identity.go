// Package identity derives the persistent snapshot key of a product from its
// canonical URL.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
)

// ID is the lowercase hex SHA-256 digest of a product's canonical URL.
type ID string

// Hash returns the ID of key. The output is stable across processes and
// must stay byte-identical to sha256(utf8(key)) in lowercase hex.
func Hash(key string) ID {
	sum := sha256.Sum256([]byte(key))
	return ID(hex.EncodeToString(sum[:]))
}

// Valid reports whether s has the shape of an ID.
func Valid(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
