package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Random token sizes in bytes, before base64url encoding.
const (
	// TokenSize128 is for internal nonces such as lock owners.
	TokenSize128 = 16
	// TokenSize256 is for client secrets.
	TokenSize256 = 32
	// TokenSize384 is for access tokens, refresh tokens and authorization
	// codes. It encodes to exactly 64 characters.
	TokenSize384 = 48
)

// GenerateToken returns size random bytes as unpadded base64url.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken is the SHA-256 of a token as 43 base64url characters.
// Lock keys use it so raw tokens never reach Redis.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
