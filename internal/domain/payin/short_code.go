package payin

import (
	"crypto/rand"
	"fmt"
)

// ShortCodeLength is the fixed length of the per-request matching code.
const ShortCodeLength = 5

// shortCodeAlphabet omits characters that are easily confused in bank
// narrations (0/O, 1/I/L).
const shortCodeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// GenerateShortCode returns a random 5-character code used as an alternative
// matching key to the UTR. Uniqueness among unused candidates is enforced at
// the persistence layer per company.
func GenerateShortCode() (string, error) {
	buf := make([]byte, ShortCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate short code: %w", err)
	}
	for i, b := range buf {
		buf[i] = shortCodeAlphabet[int(b)%len(shortCodeAlphabet)]
	}
	return string(buf), nil
}

// IsValidShortCode reports whether a candidate short code is usable as a
// matching key: exactly five characters and not a serialized null artifact.
func IsValidShortCode(code string) bool {
	if code == "nil" || code == "undefined" {
		return false
	}
	return len(code) == ShortCodeLength
}
