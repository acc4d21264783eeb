package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateToken returns nBytes of cryptographically random data, hex-encoded
func GenerateToken(nBytes int) (string, error) {
	if nBytes <= 0 {
		return "", fmt.Errorf("invalid token size: %d", nBytes)
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
