package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashSecret(t *testing.T) {
	secret, err := GenerateToken(TokenSize256)
	require.NoError(t, err)

	hash, err := HashSecret(secret)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$scrypt$ln=14,r=8,p=1$"))

	parts := strings.Split(hash, "$")
	require.Len(t, parts, 5)
	require.NotEmpty(t, parts[3], "salt should not be empty")
	require.NotEmpty(t, parts[4], "hash should not be empty")

	// Raw secret must never appear in the derived form
	require.NotContains(t, hash, secret)
}

func TestHashSecret_UniqueSalts(t *testing.T) {
	hash1, err := HashSecret("same-secret")
	require.NoError(t, err)
	hash2, err := HashSecret("same-secret")
	require.NoError(t, err)

	require.NotEqual(t, hash1, hash2, "hashes should differ due to unique salts")
	require.NoError(t, VerifySecret("same-secret", hash1))
	require.NoError(t, VerifySecret("same-secret", hash2))
}

func TestVerifySecret(t *testing.T) {
	hash, err := HashSecret("correct-secret")
	require.NoError(t, err)

	t.Run("matching secret", func(t *testing.T) {
		require.NoError(t, VerifySecret("correct-secret", hash))
	})

	t.Run("wrong secrets", func(t *testing.T) {
		for _, candidate := range []string{"", "correct-secre", "Correct-secret", "correct-secret "} {
			err := VerifySecret(candidate, hash)
			require.ErrorIs(t, err, ErrSecretMismatch, "candidate %q", candidate)
		}
	})
}

func TestVerifySecret_InvalidHashFormat(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty hash", ""},
		{"argon2 hash", "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
		{"missing parts", "$scrypt$ln=14,r=8,p=1"},
		{"malformed parameters", "$scrypt$invalid$c2FsdA$aGFzaA"},
		{"cost too high", "$scrypt$ln=40,r=8,p=1$c2FsdA$aGFzaA"},
		{"zero parallelism", "$scrypt$ln=14,r=8,p=0$c2FsdA$aGFzaA"},
		{"invalid base64 salt", "$scrypt$ln=14,r=8,p=1$!!!$aGFzaA"},
		{"invalid base64 hash", "$scrypt$ln=14,r=8,p=1$c2FsdA$!!!"},
		{"empty hash part", "$scrypt$ln=14,r=8,p=1$c2FsdA$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySecret("secret", tt.hash)
			require.Error(t, err)
			require.NotErrorIs(t, err, ErrSecretMismatch)
		})
	}
}
