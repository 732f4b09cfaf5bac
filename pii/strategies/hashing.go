package strategies

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/hannes/pii-shield/pii"
)

// HashingStrategy pseudonymizes matches with a salted SHA-256 digest
// truncated to a fixed hex length. The same input and salt always
// produce the same pseudonym, so entities stay trackable across texts
// without exposing the PII; different salts produce unlinkable
// pseudonyms.
type HashingStrategy struct {
	Salt   string
	Length int
}

// NewHashingStrategy creates a hashing strategy with the given salt
// and the default output length of 16 hex characters
func NewHashingStrategy(salt string) *HashingStrategy {
	return &HashingStrategy{Salt: salt, Length: 16}
}

// GetName returns the strategy selector name
func (s *HashingStrategy) GetName() string {
	return "hashing"
}

// Replacement returns the truncated hex digest of salt + matched text
func (s *HashingStrategy) Replacement(span pii.Span) string {
	digest := sha256.Sum256([]byte(s.Salt + span.Text))
	encoded := hex.EncodeToString(digest[:])
	if s.Length > 0 && s.Length < len(encoded) {
		return encoded[:s.Length]
	}
	return encoded
}
