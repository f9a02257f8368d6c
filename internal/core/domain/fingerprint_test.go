package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFingerprint_Stable tests structurally identical inputs yield identical output
func TestFingerprint_Stable(t *testing.T) {
	a := ParseResult{
		Spans:       []Span{{ID: "s1", Start: 0, End: 4, Category: "style"}},
		DisplayText: "neon skyline",
	}
	b := ParseResult{
		Spans:       []Span{{ID: "s1", Start: 0, End: 4, Category: "style"}},
		DisplayText: "neon skyline",
	}

	assert.Equal(t, Fingerprint(true, a), Fingerprint(true, b))
}

// TestFingerprint_Disabled tests the constant sentinel when disabled
func TestFingerprint_Disabled(t *testing.T) {
	result := ParseResult{Spans: []Span{{ID: "s1", Start: 0, End: 4}}, DisplayText: "text"}

	assert.Equal(t, FingerprintDisabled, Fingerprint(false, result))
	assert.Equal(t, FingerprintDisabled, Fingerprint(false, ParseResult{}))
}

// TestFingerprint_ChangesWithSpans tests span changes change the fingerprint
func TestFingerprint_ChangesWithSpans(t *testing.T) {
	base := ParseResult{
		Spans:       []Span{{ID: "s1", Start: 0, End: 4, Category: "style"}},
		DisplayText: "neon skyline",
	}

	movedSpan := base
	movedSpan.Spans = []Span{{ID: "s1", Start: 5, End: 12, Category: "style"}}
	assert.NotEqual(t, Fingerprint(true, base), Fingerprint(true, movedSpan))

	recategorised := base
	recategorised.Spans = []Span{{ID: "s1", Start: 0, End: 4, Category: "subject"}}
	assert.NotEqual(t, Fingerprint(true, base), Fingerprint(true, recategorised))

	editedText := base
	editedText.DisplayText = "neon skylines"
	assert.NotEqual(t, Fingerprint(true, base), Fingerprint(true, editedText))
}

// TestFingerprint_DistinctFromSignature tests fingerprint and signature differ
func TestFingerprint_DistinctFromSignature(t *testing.T) {
	result := ParseResult{Spans: []Span{}, DisplayText: "neon skyline"}

	assert.NotEqual(t, Signature("neon skyline"), Fingerprint(true, result))
}
