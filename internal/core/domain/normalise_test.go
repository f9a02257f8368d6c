package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNormalise_Idempotent tests normalize(normalize(x)) == normalize(x)
func TestNormalise_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain ascii",
		"café",         // decomposed é
		"café",          // precomposed é
		"Å",            // decomposed Å
		"한국어 텍스트",
		"é́ stacked",
	}

	for _, in := range inputs {
		once := Normalise(in)
		twice := Normalise(once)
		assert.Equal(t, once, twice, "input %q", in)
	}
}

// TestNormalise_ComposesNFC tests decomposed sequences compose to NFC
func TestNormalise_ComposesNFC(t *testing.T) {
	assert.Equal(t, "café", Normalise("café"))
	assert.Equal(t, Normalise("café"), Normalise("café"))
}

// TestNormalisePtr_PreservesAbsence tests nil input yields nil output
func TestNormalisePtr_PreservesAbsence(t *testing.T) {
	assert.Nil(t, NormalisePtr(nil))

	in := "café"
	out := NormalisePtr(&in)
	require.NotNil(t, out)
	assert.Equal(t, "café", *out)

	empty := ""
	out = NormalisePtr(&empty)
	require.NotNil(t, out)
	assert.Equal(t, "", *out)
}

// TestSignature_Deterministic tests repeated calls return the same value
func TestSignature_Deterministic(t *testing.T) {
	assert.Equal(t, Signature("Hello"), Signature("Hello"))
	assert.NotEqual(t, Signature("Hello"), Signature("Hello!"))
	assert.NotEqual(t, Signature(""), Signature(" "))
	assert.Len(t, Signature("anything"), 64)
}

// TestSignature_NormalisedInputsAgree tests NFC-equal strings sign equal after normalisation
func TestSignature_NormalisedInputsAgree(t *testing.T) {
	assert.Equal(t, Signature(Normalise("café")), Signature(Normalise("café")))
}
