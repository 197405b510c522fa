package authsdk

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"golang.org/x/oauth2"
)

// Response types accepted by the authorize endpoint.
const (
	ResponseTypeCode  = "code"
	ResponseTypeToken = "token"
)

// BuildAuthorizeURL builds the authorize endpoint URL for this client.
// redirectURI may be empty when the client has exactly one registered.
func (c *SDKClient) BuildAuthorizeURL(responseType, redirectURI, state string, scopes ...string) string {
	var opts []oauth2.AuthCodeOption
	if responseType != "" && responseType != ResponseTypeCode {
		opts = append(opts, oauth2.SetAuthURLParam("response_type", responseType))
	}
	return c.OAuth2Config(redirectURI, scopes...).AuthCodeURL(state, opts...)
}

// Callback is what the authorize endpoint put on the redirect.
type Callback struct {
	Code  string
	State string

	// Set for the implicit grant only
	Token *oauth2.Token
}

// ParseCallback reads a redirect produced by the authorize endpoint. Code
// grants carry their parameters in the query, implicit grants in the
// fragment.
func ParseCallback(raw string) (*Callback, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("authsdk: parse callback: %w", err)
	}

	if u.Fragment != "" {
		frag, err := url.ParseQuery(u.Fragment)
		if err != nil {
			return nil, fmt.Errorf("authsdk: parse callback fragment: %w", err)
		}
		if frag.Get("access_token") == "" {
			return nil, errors.New("authsdk: callback fragment has no access_token")
		}

		tok := &oauth2.Token{
			AccessToken: frag.Get("access_token"),
			TokenType:   frag.Get("token_type"),
		}
		if secs, err := strconv.ParseInt(frag.Get("expires_in"), 10, 64); err == nil {
			tok.ExpiresIn = secs
		}
		tok = tok.WithExtra(map[string]any{"user_id": frag.Get("user_id")})
		return &Callback{State: frag.Get("state"), Token: tok}, nil
	}

	q := u.Query()
	if q.Get("code") == "" {
		return nil, errors.New("authsdk: callback has no code")
	}
	return &Callback{Code: q.Get("code"), State: q.Get("state")}, nil
}
