package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// Configuration for scrypt client secret derivation.
const (
	scryptLogN    = 14 // N = 2^14
	scryptR       = 8
	scryptP       = 1
	scryptKeyLen  = 64
	scryptSaltLen = 16

	maxScryptLogN = 20
)

// ErrSecretMismatch is returned when a candidate client secret does not match.
var ErrSecretMismatch = errors.New("secret does not match")

// HashSecret derives a PHC-style scrypt hash of a client secret including its
// salt and cost parameters:
//
//	$scrypt$ln=14,r=8,p=1$<salt>$<hash>
func HashSecret(secret string) (string, error) {
	salt := make([]byte, scryptSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key, err := scrypt.Key([]byte(secret+GetPepper()), salt, 1<<scryptLogN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("failed to derive secret: %w", err)
	}

	return encodePHC(fmt.Sprintf("$scrypt$ln=%d,r=%d,p=%d", scryptLogN, scryptR, scryptP), salt, key), nil
}

// VerifySecret compares a candidate client secret against a hash produced by
// HashSecret. The comparison is constant time.
func VerifySecret(secret, encodedHash string) error {
	h, err := parsePHC(encodedHash, "scrypt", false)
	if err != nil {
		return err
	}

	var logN, r, p int
	if _, err := fmt.Sscanf(h.params, "ln=%d,r=%d,p=%d", &logN, &r, &p); err != nil {
		return fmt.Errorf("%w: failed to parse parameters: %v", errHashFormat, err)
	}
	if logN < 1 || logN > maxScryptLogN || r < 1 || p < 1 {
		return fmt.Errorf("%w: parameters out of range", errHashFormat)
	}

	computed, err := scrypt.Key([]byte(secret+GetPepper()), h.salt, 1<<logN, r, p, len(h.hash))
	if err != nil {
		return fmt.Errorf("failed to derive secret: %w", err)
	}

	if subtle.ConstantTimeCompare(computed, h.hash) == 1 {
		return nil
	}
	return ErrSecretMismatch
}
