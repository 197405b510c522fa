package domain

import "time"

// TokenType is the token_type reported for every issued token.
const TokenType = "bearer"

// DefaultTokenLifetime applies when no lifetime is configured.
const DefaultTokenLifetime = 3600 * time.Second

// Token is an issued access/refresh token pair. Both values are opaque
// 64-character strings and each is unique across all tokens.
type Token struct {
	ID           string
	AccessToken  string
	RefreshToken string
	ClientID     string
	UserID       string
	Scope        string
	ExpiresIn    time.Duration
	IssuedAt     time.Time
	Revoked      bool
	RevokedAt    *time.Time
}

// ExpiresAt is the moment the access token stops being valid.
func (t Token) ExpiresAt() time.Time {
	return t.IssuedAt.Add(t.ExpiresIn)
}

// IsRevoked reports whether the token was explicitly revoked or its lifetime
// has elapsed at now.
func (t Token) IsRevoked(now time.Time) bool {
	return t.Revoked || !now.Before(t.ExpiresAt())
}

// Revoke permanently flags the token. Revoking an already revoked token is a
// no-op and keeps the first revocation time.
func (t *Token) Revoke(now time.Time) {
	if t.Revoked {
		return
	}
	t.Revoked = true
	t.RevokedAt = &now
}
