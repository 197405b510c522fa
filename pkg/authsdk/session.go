package authsdk

// Admin scopes checked by the client administration endpoints.
const (
	ScopeClientsRead  = "clients:read"
	ScopeClientsWrite = "clients:write"
)

// Session performs client administration with a session bearer token
// carrying the admin scopes.
type Session struct {
	client *SDKClient
	token  string
}

// NewSession wraps a session token minted for an administrator.
func (c *SDKClient) NewSession(token string) *Session {
	return &Session{client: c, token: token}
}
