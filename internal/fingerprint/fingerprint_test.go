package fingerprint

import (
	"testing"

	"github.com/corpusworks/docindex/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Hello World", "hello world"},
		{"collapses whitespace", "hello   \t\n  world", "hello world"},
		{"strips punctuation", "hello, world!", "hello world"},
		{"strips symbols", "total: $100 + tax", "total 100 tax"},
		{"trims edges", "  hello  ", "hello"},
		{"empty", "", ""},
		{"only punctuation", "...!?", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.in))
		})
	}
}

func TestCompute_FormattingInvariant(t *testing.T) {
	// The same prose in different formatting fingerprints identically, so
	// re-uploads of the same content dedupe regardless of source format.
	a := Compute("The Quarterly Report.\n\nRevenue grew by 10%.")
	b := Compute("the quarterly report   revenue grew by 10")

	assert.True(t, a.Equal(b))
	assert.Equal(t, domain.FingerprintAlgorithmSHA256, a.Algorithm)
	assert.Len(t, a.Value, 64)
}

func TestCompute_DistinctContent(t *testing.T) {
	a := Compute("the quarterly report")
	b := Compute("the annual report")

	assert.False(t, a.Equal(b))
}

func TestCompute_Deterministic(t *testing.T) {
	text := "Procurement policy for office equipment."
	assert.Equal(t, Compute(text), Compute(text))
}
