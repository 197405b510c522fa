package authsdk

import "time"

// ============================================================================
// Error Types
// ============================================================================

// ErrorResponse is the error payload of every endpoint.
type ErrorResponse struct {
	// Error is the OAuth2 error code (e.g., "invalid_request", "invalid_grant")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// ValidationErrorResponse lists the rejected fields of a JSON request.
type ValidationErrorResponse struct {
	Error            string            `json:"error"`
	ErrorDescription string            `json:"error_description"`
	Details          map[string]string `json:"details"`
}

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse is the token endpoint response. It is also what the
// implicit grant puts in the redirect fragment, minus the refresh token.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is always "bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int64 `json:"expires_in"`

	// UserID is the opaque identity the token was issued for
	UserID string `json:"user_id"`

	Scope string `json:"scope,omitempty"`
}

// IntrospectionResponse is the RFC 7662 style introspection response. An
// inactive token only carries Active=false.
type IntrospectionResponse struct {
	Active    bool   `json:"active"`
	ClientID  string `json:"client_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Scope     string `json:"scope,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
}

// ============================================================================
// Client Administration Types
// ============================================================================

// CreateClientRequest registers a new client.
type CreateClientRequest struct {
	Name         string   `json:"name"`
	RedirectURIs []string `json:"redirect_uris"`
}

// ClientInfo is the admin view of a client. The secret is never included.
type ClientInfo struct {
	ID           string     `json:"client_id"`
	Name         string     `json:"name"`
	RedirectURIs []string   `json:"redirect_uris"`
	Revoked      bool       `json:"revoked"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// CreateClientResponse carries the raw secret. It is only ever returned by
// creation, bootstrap and rotation.
type CreateClientResponse struct {
	ClientInfo
	ClientSecret string `json:"client_secret"`
}

// ListClientsResponse lists every registered client.
type ListClientsResponse struct {
	Clients []ClientInfo `json:"clients"`
}

// RotateSecretResponse carries the new raw secret.
type RotateSecretResponse struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// RedirectURIRequest adds or removes one redirect URI.
type RedirectURIRequest struct {
	URI string `json:"uri"`
}

// ============================================================================
// Bootstrap Types
// ============================================================================

// BootstrapRequest creates the first client on an empty server.
type BootstrapRequest struct {
	ClientName   string   `json:"client_name"`
	RedirectURIs []string `json:"redirect_uris"`
}

// BootstrapResponse is returned once, it holds the only copy of the secret.
type BootstrapResponse = CreateClientResponse

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	// Status is "ok" or "unavailable"
	Status string `json:"status"`

	Uptime  string `json:"uptime,omitempty"`
	Version string `json:"version,omitempty"`

	// Checks holds per-dependency results, e.g. "database": "ok"
	Checks map[string]string `json:"checks,omitempty"`
}
