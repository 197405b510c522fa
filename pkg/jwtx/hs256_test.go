package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/grantd/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "grantd"

var exampleSecret = []byte(strings.Repeat("s", 32))

func TestHS256SignAndVerify(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(exampleSecret)
	require.NoError(t, err)
	require.Equal(t, "HS256", signer.Alg())

	now := time.Now().UTC()
	claims := jwtx.NewSessionClaims("user-123", "alice", []string{"clients:read"}, 2*time.Minute, exampleIssuer, now)

	token, err := signer.Sign(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	verifier, err := jwtx.NewVerifierHS256(exampleSecret, exampleIssuer, nil)
	require.NoError(t, err)

	parsed, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-123", parsed.Subject)
	require.Equal(t, "alice", parsed.Username)
	require.Equal(t, []string{"clients:read"}, parsed.Scopes)
	require.Equal(t, claims.ID, parsed.ID)
}

func TestHS256VerifyRejects(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(exampleSecret)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(exampleSecret, exampleIssuer, nil)
	require.NoError(t, err)

	now := time.Now().UTC()
	sign := func(c jwtx.Claims) string {
		tok, err := signer.Sign(c)
		require.NoError(t, err)
		return tok
	}

	t.Run("wrong secret", func(t *testing.T) {
		other, err := jwtx.NewSignerHS256([]byte(strings.Repeat("x", 32)))
		require.NoError(t, err)
		tok, err := other.Sign(jwtx.NewSessionClaims("u", "", nil, time.Minute, exampleIssuer, now))
		require.NoError(t, err)

		_, err = verifier.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("expired", func(t *testing.T) {
		tok := sign(jwtx.NewSessionClaims("u", "", nil, time.Minute, exampleIssuer, now.Add(-time.Hour)))
		_, err := verifier.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("clock", func(t *testing.T) {
		tok := sign(jwtx.NewSessionClaims("u", "", nil, time.Minute, exampleIssuer, now))
		v, err := jwtx.NewVerifierHS256(exampleSecret, exampleIssuer, nil)
		require.NoError(t, err)

		v.Now = func() time.Time { return now.Add(90 * time.Second) }
		_, err = v.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrExpired)

		v.Leeway = time.Minute
		_, err = v.Verify(tok)
		require.NoError(t, err)
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		tok := sign(jwtx.NewSessionClaims("u", "", nil, time.Minute, "someone-else", now))
		_, err := verifier.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("missing subject", func(t *testing.T) {
		tok := sign(jwtx.NewSessionClaims("", "", nil, time.Minute, exampleIssuer, now))
		_, err := verifier.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrNoSubject)
	})

	t.Run("algorithm none", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwtx.NewSessionClaims("u", "", nil, time.Minute, exampleIssuer, now)).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = verifier.Verify(tok)
		require.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := verifier.Verify("not.a.jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}

func TestHS256WeakSecret(t *testing.T) {
	_, err := jwtx.NewSignerHS256([]byte("short"))
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)

	_, err = jwtx.NewVerifierHS256(nil, "", nil)
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
}
