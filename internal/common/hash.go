package common

import (
	"crypto/sha256"
	"fmt"
)

// Sha256Hex hashes the input with SHA-256 and returns the lowercase hex
// digest. Replay and idempotency keys go through this so raw payloads never
// land in Redis.
func Sha256Hex(input string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(input)))
}
