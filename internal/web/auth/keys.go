package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// KeyVerifier checks presented API keys against a set of bcrypt hashes
type KeyVerifier struct {
	hashes []string
}

// NewKeyVerifier creates a verifier for the given bcrypt hashes
func NewKeyVerifier(hashes []string) *KeyVerifier {
	return &KeyVerifier{hashes: hashes}
}

// Verify reports whether the presented key matches any configured hash.
// On success it returns a stable client identity derived from the key,
// suitable for rate-limit keying and log correlation.
func (v *KeyVerifier) Verify(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	for _, hash := range v.hashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil {
			return ClientID(key), true
		}
	}
	return "", false
}

// ClientID derives a stable non-reversible identity from an API key
func ClientID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "key:" + hex.EncodeToString(sum[:8])
}

// HashKey hashes a plain text API key using bcrypt for storage in the
// service configuration. Rejects keys longer than 72 bytes (bcrypt's
// maximum).
func HashKey(key string) (string, error) {
	if len(key) > 72 {
		return "", fmt.Errorf("key exceeds maximum length of 72 bytes")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}
