package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// ErrPasswordMismatch is returned when a password does not match its hash.
var ErrPasswordMismatch = errors.New("password does not match")

const argon2Version = "v=19"

// HashPassword hashes an end-user password with peppered Argon2id:
//
//	$argon2id$v=19$m=19456,t=2,p=1$<salt>$<hash>
//
// This is the format the users file expects.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password+GetPepper()), salt, iterations, memory, parallelism, keyLength)

	head := fmt.Sprintf("$argon2id$%s$m=%d,t=%d,p=%d", argon2Version, memory, iterations, parallelism)
	return encodePHC(head, salt, key), nil
}

// VerifyPassword checks password against a hash from HashPassword using the
// parameters stored in the hash. The comparison is constant time.
func VerifyPassword(password, encodedHash string) error {
	h, err := parsePHC(encodedHash, "argon2id", true)
	if err != nil {
		return err
	}
	if h.version != argon2Version {
		return fmt.Errorf("%w: wrong version", errHashFormat)
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(h.params, "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("%w: failed to parse parameters: %v", errHashFormat, err)
	}
	if mem == 0 || iters == 0 || par == 0 {
		return fmt.Errorf("%w: parameters out of range", errHashFormat)
	}

	// #nosec G115 - the hash length comes from our own encoder
	computed := argon2.IDKey([]byte(password+GetPepper()), h.salt, iters, mem, par, uint32(len(h.hash)))
	if subtle.ConstantTimeCompare(computed, h.hash) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

// NeedsRehash reports whether a valid hash was made with weaker parameters
// than the current ones, so an operator can regenerate it.
func NeedsRehash(encodedHash string) bool {
	h, err := parsePHC(encodedHash, "argon2id", true)
	if err != nil {
		return false
	}
	return h.params != fmt.Sprintf("m=%d,t=%d,p=%d", memory, iterations, parallelism)
}
