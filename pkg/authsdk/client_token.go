package authsdk

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
)

// PasswordGrant exchanges end-user credentials for a token pair.
func (c *SDKClient) PasswordGrant(
	ctx context.Context,
	username, password string,
	scopes ...string,
) (*oauth2.Token, error) {
	tok, err := c.OAuth2Config("", scopes...).PasswordCredentialsToken(c.oauth2Context(ctx), username, password)
	if err != nil {
		return nil, fromRetrieveError(err)
	}
	return tok, nil
}

// RefreshGrant mints a new pair from a refresh token. grantd requires the
// user_id the token was issued for alongside it.
func (c *SDKClient) RefreshGrant(ctx context.Context, refreshToken, userID string) (*oauth2.Token, error) {
	// x/oauth2 has no refresh call that carries extra parameters, so the
	// grant type of a plain Exchange is overridden.
	tok, err := c.OAuth2Config("").Exchange(c.oauth2Context(ctx), "",
		oauth2.SetAuthURLParam("grant_type", "refresh_token"),
		oauth2.SetAuthURLParam("refresh_token", refreshToken),
		oauth2.SetAuthURLParam("user_id", userID),
	)
	if err != nil {
		return nil, fromRetrieveError(err)
	}
	return tok, nil
}

// ExchangeCode redeems an authorization code. redirectURI may be empty.
func (c *SDKClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	tok, err := c.OAuth2Config(redirectURI).Exchange(c.oauth2Context(ctx), code)
	if err != nil {
		return nil, fromRetrieveError(err)
	}
	return tok, nil
}

// UserID returns the user_id grantd adds to token responses.
func UserID(tok *oauth2.Token) string {
	if tok == nil {
		return ""
	}
	id, _ := tok.Extra("user_id").(string)
	return id
}

// TokenSource returns a source that refreshes tok with RefreshGrant once it
// expires.
func (c *SDKClient) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(tok, &refreshSource{ctx: ctx, client: c, current: tok})
}

type refreshSource struct {
	ctx     context.Context
	client  *SDKClient
	current *oauth2.Token
}

func (s *refreshSource) Token() (*oauth2.Token, error) {
	if s.current == nil || s.current.RefreshToken == "" {
		return nil, errors.New("authsdk: no refresh token available")
	}
	userID := UserID(s.current)

	tok, err := s.client.RefreshGrant(s.ctx, s.current.RefreshToken, userID)
	if err != nil {
		return nil, err
	}
	// Keep the user id on tokens that do not echo it
	if UserID(tok) == "" {
		tok = tok.WithExtra(map[string]any{"user_id": userID})
	}
	s.current = tok
	return tok, nil
}

// Revoke revokes an access or refresh token owned by this client. Unknown
// tokens are not an error.
func (c *SDKClient) Revoke(ctx context.Context, token, tokenTypeHint string) error {
	form := url.Values{"token": {token}}
	if tokenTypeHint != "" {
		form.Set("token_type_hint", tokenTypeHint)
	}

	resp, err := c.postClientForm(ctx, RevokePath, form)
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusOK)
}

// Introspect reports the state of a token owned by this client.
func (c *SDKClient) Introspect(ctx context.Context, token string) (*IntrospectionResponse, error) {
	resp, err := c.postClientForm(ctx, IntrospectPath, url.Values{"token": {token}})
	if err != nil {
		return nil, err
	}

	var out IntrospectionResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
