package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Endpoint paths served by grantd.
const (
	AuthorizePath  = "/v1/oauth2/authorize"
	TokenPath      = "/v1/oauth2/token"
	RevokePath     = "/v1/oauth2/revoke"
	IntrospectPath = "/v1/oauth2/introspect"
)

// SDKClient talks to grantd as one registered client. Token calls go
// through x/oauth2 with the client credentials in the Basic header.
type SDKClient struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
}

// NewSDKClient creates a new client. clientID and clientSecret may be empty
// for calls that need no client authentication.
func NewSDKClient(baseURL, clientID, clientSecret string) *SDKClient {
	return &SDKClient{
		BaseURL:      strings.TrimSuffix(baseURL, "/"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// OAuth2Config returns the x/oauth2 configuration for this client.
func (c *SDKClient) OAuth2Config(redirectURI string, scopes ...string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.url(AuthorizePath),
			TokenURL:  c.url(TokenPath),
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// oauth2Context makes x/oauth2 use our HTTP client.
func (c *SDKClient) oauth2Context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.HTTPClient)
}
