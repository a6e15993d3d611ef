package llm

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// MaskKey returns a display-safe form of an API key: the first and last four
// characters, or "****" for keys too short to reveal anything.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// Fingerprint returns a short, non-reversible identifier for a key so that
// log lines can be correlated without ever containing the secret.
func Fingerprint(key string) string {
	if key == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:6])
}
