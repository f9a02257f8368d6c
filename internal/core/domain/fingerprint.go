package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// FingerprintDisabled is the constant fingerprint returned while the
// highlighting layer is disabled. A projector seeing it must not touch the
// render surface.
const FingerprintDisabled = "disabled"

// Fingerprint derives a render-change fingerprint from a parse result.
// Two calls with structurally identical spans and display text produce an
// identical fingerprint, letting the projector skip re-rendering, which is
// the most expensive operation in this subsystem.
//
// The fingerprint is distinct from Signature: the signature hashes the text
// alone, the fingerprint hashes the ordered (start, end, category, id)
// tuples plus the display text.
func Fingerprint(enabled bool, result ParseResult) string {
	if !enabled {
		return FingerprintDisabled
	}

	var b strings.Builder
	fmt.Fprintf(&b, "len=%d;text=%s;", len(result.DisplayText), Signature(result.DisplayText))
	for i := range result.Spans {
		s := &result.Spans[i]
		fmt.Fprintf(&b, "%d:%d:%s:%s;", s.Start, s.End, s.Category, s.ID)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
