package domain

import "time"

// Client is a registered application allowed to request codes and tokens.
type Client struct {
	ID           string
	Name         string
	SecretHash   string // scrypt, see cryptox.HashSecret
	RedirectURIs []RedirectURI
	Revoked      bool
	RevokedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RedirectURI is a callback target registered to exactly one client.
type RedirectURI struct {
	ID        string
	ClientID  string
	URI       string
	CreatedAt time.Time
}

// URIs returns the registered redirect URIs as plain strings.
func (c Client) URIs() []string {
	out := make([]string, len(c.RedirectURIs))
	for i, r := range c.RedirectURIs {
		out[i] = r.URI
	}
	return out
}

// Revoke marks the client as revoked. Calling it again keeps the original
// revocation time.
func (c *Client) Revoke(now time.Time) {
	if c.Revoked {
		return
	}
	c.Revoked = true
	c.RevokedAt = &now
}
