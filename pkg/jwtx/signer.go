package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// minSecretLen is the shortest HMAC secret accepted, 256 bits.
const minSecretLen = 32

var ErrWeakSecret = errors.New("jwtx: session secret must be at least 32 bytes")

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// HS256Signer signs session tokens with a shared secret.
type HS256Signer struct {
	secret []byte
}

// NewSignerHS256 creates an HS256 signer. The secret is shared with the
// service that issues sessions.
func NewSignerHS256(secret []byte) (*HS256Signer, error) {
	if len(secret) < minSecretLen {
		return nil, ErrWeakSecret
	}
	return &HS256Signer{secret: secret}, nil
}

func (s *HS256Signer) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Sign takes your claims and turns them into a signed JWT string.
func (s *HS256Signer) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
