package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateSecret returns n random bytes hex-encoded
func GenerateSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateSigningSecrets returns the JWT signing secret and the mobile-money
// merchant check secret for a fresh deployment
func GenerateSigningSecrets() (jwtSecret, merchantSecret string, err error) {
	jwtSecret, err = GenerateSecret(32)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate jwt secret: %w", err)
	}
	merchantSecret, err = GenerateSecret(32)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate merchant secret: %w", err)
	}
	return jwtSecret, merchantSecret, nil
}
