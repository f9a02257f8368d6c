package domain

import "golang.org/x/text/unicode/norm"

// Normalise canonicalises text to Unicode NFC so character offsets computed
// once remain valid for the lifetime of a text snapshot. It is idempotent.
// All text entering the system from an editable surface or an external caller
// must pass through here before being compared, signed, or labeled.
func Normalise(raw string) string {
	if norm.NFC.IsNormalString(raw) {
		return raw
	}
	return norm.NFC.String(raw)
}

// NormalisePtr normalises optional text. Absence is preserved, not coerced
// to the empty string.
func NormalisePtr(raw *string) *string {
	if raw == nil {
		return nil
	}
	n := Normalise(*raw)
	return &n
}
