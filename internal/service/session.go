package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const sessionIDBytes = 32

// GenerateSessionID generates a cryptographically secure session ID
// Uses 32 bytes of random data encoded as base64 URL-safe string
func GenerateSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return base64.URLEncoding.EncodeToString(b), nil
}

// ValidSessionID reports whether id has the shape GenerateSessionID produces.
// Anything else from a cookie is replaced with a fresh session.
func ValidSessionID(id string) bool {
	b, err := base64.URLEncoding.DecodeString(id)
	return err == nil && len(b) == sessionIDBytes
}
