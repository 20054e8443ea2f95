package canonical

import (
	"crypto/sha256"
	"encoding/hex"
)

// keyPrefix namespaces stable keys so identities cannot collide with hashes
// of the same text produced elsewhere. Changing it invalidates every stored
// key, so it is fixed for the life of the schema.
const keyPrefix = "lexpipe:work:v1:"

// StableKey derives the deterministic identity key for a normalized title.
// Two runs over the same raw text always produce the same key.
func StableKey(normalizedTitle string) string {
	sum := sha256.Sum256([]byte(keyPrefix + normalizedTitle))
	return hex.EncodeToString(sum[:])
}
