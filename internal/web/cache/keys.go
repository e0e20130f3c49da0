package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/jsonsql-dev/jsonsql"
)

// KeyGenerator builds cache keys for compile requests. Keys are
// derived from the canonical request body plus the output mode, and
// prefixed with a fingerprint of the active policy so a policy change
// invalidates every cached result at once.
type KeyGenerator struct {
	fingerprint string
}

// NewKeyGenerator creates a key generator bound to the given policy
func NewKeyGenerator(policy *jsonsql.Policy) *KeyGenerator {
	return &KeyGenerator{
		fingerprint: PolicyFingerprint(policy),
	}
}

// CompileKey generates a cache key for a compile request body.
// withValues distinguishes parameterized from materialized output
func (kg *KeyGenerator) CompileKey(body []byte, withValues bool) string {
	mode := "params"
	if withValues {
		mode = "values"
	}
	return kg.fingerprint + ":compile:" + mode + ":" + hashBody(body)
}

// ConditionKey generates a cache key for a condition request body
func (kg *KeyGenerator) ConditionKey(body []byte) string {
	return kg.fingerprint + ":condition:" + hashBody(body)
}

// PolicyFingerprint derives a short stable digest of a policy snapshot
func PolicyFingerprint(policy *jsonsql.Policy) string {
	snapshot, err := json.Marshal(policy.Snapshot())
	if err != nil {
		return "policy:unknown"
	}
	sum := sha256.Sum256(snapshot)
	return hex.EncodeToString(sum[:8])
}

// hashBody hashes the canonical form of a JSON body so key-order and
// whitespace differences map to the same cache entry
func hashBody(body []byte) string {
	var decoded interface{}
	canonical := body
	if err := json.Unmarshal(body, &decoded); err == nil {
		if remarshaled, err := json.Marshal(decoded); err == nil {
			canonical = remarshaled
		}
	}

	sum := sha256.Sum256(canonical)
	// 16 bytes keeps keys short while leaving collisions implausible
	return hex.EncodeToString(sum[:16])
}
