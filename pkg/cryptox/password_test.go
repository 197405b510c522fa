package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "cryptox")
	if err != nil {
		panic(err)
	}
	SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func TestHashPassword(t *testing.T) {
	passwords := map[string]string{
		"simple":     "password123",
		"symbols":    "P@ssw0rd!#$%^&*()",
		"long":       strings.Repeat("a", 100),
		"empty":      "",
		"unicode":    "пароль🔒密码",
		"whitespace": "   spaces   ",
	}

	for name, password := range passwords {
		t.Run(name, func(t *testing.T) {
			hash, err := HashPassword(password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$"), hash)
			require.Len(t, strings.Split(hash, "$"), 6)

			require.NoError(t, VerifyPassword(password, hash))
			require.ErrorIs(t, VerifyPassword(password+"x", hash), ErrPasswordMismatch)
		})
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	a, err := HashPassword("same")
	require.NoError(t, err)
	b, err := HashPassword("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifyPassword_WrongPassword(t *testing.T) {
	hash, err := HashPassword("correct-password")
	require.NoError(t, err)

	for _, wrong := range []string{"wrong-password", "Correct-Password", "correct-password ", "", "correct-passwor", strings.Repeat("x", 10000)} {
		require.ErrorIs(t, VerifyPassword(wrong, hash), ErrPasswordMismatch, wrong)
	}
}

func TestVerifyPassword_InvalidHashFormat(t *testing.T) {
	tests := map[string]string{
		"empty hash":          "",
		"wrong algorithm":     "$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"missing parts":       "$argon2id$v=19$m=19456",
		"malformed params":    "$argon2id$v=19$invalid$c2FsdA$aGFzaA",
		"zero memory":         "$argon2id$v=19$m=0,t=2,p=1$c2FsdA$aGFzaA",
		"invalid base64 salt": "$argon2id$v=19$m=19456,t=2,p=1$!!!invalid!!!$aGFzaA",
		"invalid base64 hash": "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$!!!invalid!!!",
		"wrong version":       "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"missing version":     "$argon2id$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"scrypt secret":       "$scrypt$ln=14,r=8,p=1$c2FsdA$aGFzaA",
	}

	for name, hash := range tests {
		t.Run(name, func(t *testing.T) {
			err := VerifyPassword("test-password", hash)
			require.Error(t, err)
			require.NotErrorIs(t, err, ErrPasswordMismatch)
		})
	}
}

func TestVerifyPassword_UsesStoredParameters(t *testing.T) {
	// A hash with cheaper parameters than the current defaults still
	// verifies, and is flagged for rehashing.
	salt := []byte("0123456789abcdef")
	h := encodePHC("$argon2id$v=19$m=1024,t=1,p=1", salt, argon2.IDKey([]byte("legacy"+GetPepper()), salt, 1, 1024, 1, keyLength))

	require.NoError(t, VerifyPassword("legacy", h))
	require.True(t, NeedsRehash(h))

	current, err := HashPassword("legacy")
	require.NoError(t, err)
	require.False(t, NeedsRehash(current))
	require.False(t, NeedsRehash("garbage"))
}

func TestHashPassword_PepperIntegration(t *testing.T) {
	hash, err := HashPassword("peppered")
	require.NoError(t, err)

	orig := pepperFile
	other := filepath.Join(t.TempDir(), "other-pepper")
	require.NoError(t, os.WriteFile(other, []byte("a-different-pepper"), 0o600))
	SetPepperPath(other)
	t.Cleanup(func() { SetPepperPath(orig) })

	require.ErrorIs(t, VerifyPassword("peppered", hash), ErrPasswordMismatch,
		"a hash must not verify under a different pepper")
}
