package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAuthorizationCodeRedeemable(t *testing.T) {
	t.Parallel()

	now := time.Now()
	code := AuthorizationCode{CreatedAt: now, ExpiresIn: DefaultCodeLifetime}
	require.True(t, code.IsRedeemable(now))
	require.False(t, code.IsExpired(now.Add(599*time.Second)))
	require.True(t, code.IsExpired(now.Add(600*time.Second)))

	used := code
	used.UsedAt = &now
	require.False(t, used.IsRedeemable(now))

	revoked := code
	revoked.Revoked = true
	require.False(t, revoked.IsRedeemable(now))
}

func TestClientRevokeAndURIs(t *testing.T) {
	t.Parallel()

	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Client{RedirectURIs: []RedirectURI{{URI: "https://a.example/cb"}, {URI: "https://b.example/cb"}}}
	require.Equal(t, []string{"https://a.example/cb", "https://b.example/cb"}, c.URIs())

	c.Revoke(first)
	c.Revoke(first.Add(time.Hour))
	require.True(t, c.Revoked)
	require.Equal(t, first, *c.RevokedAt)
}
