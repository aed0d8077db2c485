// Package fingerprint canonicalizes extracted text and hashes it so that
// uploads with the same content dedupe regardless of filename or original
// file format.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/corpusworks/docindex/internal/domain"
)

// Canonicalize folds case, strips punctuation and collapses all runs of
// whitespace to a single space. Two texts that differ only in formatting
// canonicalize to the same string.
func Canonicalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			// dropped from the canonical form
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}

	return strings.TrimSpace(b.String())
}

// Compute returns the SHA-256 fingerprint of the canonicalized text.
func Compute(text string) domain.ContentFingerprint {
	sum := sha256.Sum256([]byte(Canonicalize(text)))
	return domain.ContentFingerprint{
		Algorithm: domain.FingerprintAlgorithmSHA256,
		Value:     hex.EncodeToString(sum[:]),
	}
}
