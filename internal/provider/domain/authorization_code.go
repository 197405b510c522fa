package domain

import "time"

// DefaultCodeLifetime applies when no code lifetime is configured.
const DefaultCodeLifetime = 600 * time.Second

// AuthorizationCode is a short lived, single use credential bound to the
// client, user and redirect URI it was issued for.
type AuthorizationCode struct {
	ID          string
	Code        string
	ClientID    string
	UserID      string
	RedirectURI string
	Scope       string
	State       string
	ExpiresIn   time.Duration
	Revoked     bool
	UsedAt      *time.Time
	CreatedAt   time.Time
}

// IsExpired reports whether the code's lifetime has elapsed at now.
func (c AuthorizationCode) IsExpired(now time.Time) bool {
	return !now.Before(c.CreatedAt.Add(c.ExpiresIn))
}

// IsRedeemable reports whether the code can still be exchanged.
func (c AuthorizationCode) IsRedeemable(now time.Time) bool {
	return !c.Revoked && c.UsedAt == nil && !c.IsExpired(now)
}
