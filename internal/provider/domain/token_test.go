package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenIsRevoked(t *testing.T) {
	t.Parallel()

	now := time.Now()

	t.Run("zero lifetime is revoked immediately", func(t *testing.T) {
		tok := Token{IssuedAt: now, ExpiresIn: 0}
		require.True(t, tok.IsRevoked(now))
	})

	t.Run("ten second lifetime is live", func(t *testing.T) {
		tok := Token{IssuedAt: now, ExpiresIn: 10 * time.Second}
		require.False(t, tok.IsRevoked(now))
		require.False(t, tok.IsRevoked(now.Add(9*time.Second)))
		require.True(t, tok.IsRevoked(now.Add(10*time.Second)))
	})

	t.Run("explicit revoke wins over lifetime", func(t *testing.T) {
		tok := Token{IssuedAt: now, ExpiresIn: time.Hour}
		tok.Revoke(now)
		require.True(t, tok.IsRevoked(now))
	})
}

func TestTokenRevokeIsIdempotent(t *testing.T) {
	t.Parallel()

	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tok := Token{IssuedAt: first, ExpiresIn: DefaultTokenLifetime}

	tok.Revoke(first)
	tok.Revoke(first.Add(time.Minute))

	require.True(t, tok.Revoked)
	require.NotNil(t, tok.RevokedAt)
	require.Equal(t, first, *tok.RevokedAt)
	require.Equal(t, first.Add(time.Hour), tok.ExpiresAt())
}
