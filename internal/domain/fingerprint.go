package domain

// FingerprintAlgorithmSHA256 is the only algorithm currently produced.
const FingerprintAlgorithmSHA256 = "sha256"

// ContentFingerprint is a canonical hash of a document's extracted text,
// used to detect duplicate uploads regardless of filename or original
// format. Equality is structural.
type ContentFingerprint struct {
	Algorithm string
	Value     string
}

// Equal reports whether two fingerprints identify the same content.
func (f ContentFingerprint) Equal(other ContentFingerprint) bool {
	return f.Algorithm == other.Algorithm && f.Value == other.Value
}

// IsZero reports whether the fingerprint is unset.
func (f ContentFingerprint) IsZero() bool {
	return f.Algorithm == "" && f.Value == ""
}
