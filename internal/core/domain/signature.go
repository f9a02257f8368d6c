package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// Signature computes a deterministic content hash of a text string.
// It is used as the labeling cache key and as the staleness detector:
// a version whose signature no longer equals the signature of the current
// text has been edited since it was saved.
func Signature(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
