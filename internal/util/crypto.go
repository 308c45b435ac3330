package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// CryptoRandomString returns length hex characters from crypto/rand.
// The portal uses it for OAuth state, CSRF tokens, and Roblox
// verification codes.
func CryptoRandomString(length int) (string, error) {
	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf)[:length], nil
}

// SHA256Hex returns the SHA-256 hash of s as a lowercase hex string.
// Used to derive stable cache keys from session identifiers.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
