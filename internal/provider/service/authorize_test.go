package service

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/aussiebroadwan/grantd/internal/provider/domain"
	"github.com/stretchr/testify/require"
)

type authorizeFixture struct {
	svc     *AuthorizeService
	clients *ClientService
	client  testClient
}

func newAuthorizeFixture(t *testing.T, uris ...string) authorizeFixture {
	t.Helper()

	st := newTestStore(t)
	clients := &ClientService{Store: st}
	return authorizeFixture{
		svc:     &AuthorizeService{Store: st, RequireSecure: true},
		clients: clients,
		client:  newTestClient(t, clients, uris...),
	}
}

func (f authorizeFixture) request(mutate ...func(*AuthorizeRequest)) AuthorizeRequest {
	req := AuthorizeRequest{
		Secure:       true,
		ResponseType: ResponseTypeCode,
		ClientID:     f.client.ID,
		UserID:       "1",
	}
	for _, m := range mutate {
		m(&req)
	}
	return req
}

func TestAuthorize_CodeGrant(t *testing.T) {
	ctx := context.Background()
	f := newAuthorizeFixture(t, "https://app.example/cb?some=value")

	resp, err := f.svc.Authorize(ctx, f.request(func(r *AuthorizeRequest) {
		r.State = "xyz"
		r.Scope = "read"
	}))
	require.NoError(t, err)
	require.Len(t, resp.Code, 64)

	loc, err := url.Parse(resp.Location)
	require.NoError(t, err)
	require.Equal(t, "app.example", loc.Host)
	require.Equal(t, "/cb", loc.Path)
	require.Equal(t, resp.Code, loc.Query().Get("code"))
	require.Equal(t, "xyz", loc.Query().Get("state"))
	require.Equal(t, "value", loc.Query().Get("some"))
	require.Empty(t, loc.Fragment)

	code, err := f.svc.Store.AuthorizationCodes().GetAuthorizationCode(ctx, resp.Code)
	require.NoError(t, err)
	require.Equal(t, f.client.ID, code.ClientID)
	require.Equal(t, "1", code.UserID)
	require.Equal(t, "https://app.example/cb?some=value", code.RedirectURI)
	require.Equal(t, "read", code.Scope)
	require.Equal(t, "xyz", code.State)
	require.Equal(t, domain.DefaultCodeLifetime, code.ExpiresIn)
}

func TestAuthorize_NoStateNoStateParam(t *testing.T) {
	f := newAuthorizeFixture(t, "https://app.example/cb")

	resp, err := f.svc.Authorize(context.Background(), f.request())
	require.NoError(t, err)

	loc, err := url.Parse(resp.Location)
	require.NoError(t, err)
	require.False(t, loc.Query().Has("state"))
}

func TestAuthorize_ImplicitGrant(t *testing.T) {
	ctx := context.Background()
	f := newAuthorizeFixture(t, "https://app.example/cb?some=value")
	f.svc.TokenLifetime = 10 * time.Second

	resp, err := f.svc.Authorize(ctx, f.request(func(r *AuthorizeRequest) {
		r.ResponseType = ResponseTypeToken
		r.State = "abc"
	}))
	require.NoError(t, err)
	require.NotNil(t, resp.Token)

	loc, err := url.Parse(resp.Location)
	require.NoError(t, err)
	require.Equal(t, "value", loc.Query().Get("some"))
	require.False(t, loc.Query().Has("access_token"))

	frag, err := url.ParseQuery(loc.Fragment)
	require.NoError(t, err)
	require.Equal(t, resp.Token.AccessToken, frag.Get("access_token"))
	require.Equal(t, "bearer", frag.Get("token_type"))
	require.Equal(t, "10", frag.Get("expires_in"))
	require.Equal(t, "1", frag.Get("user_id"))
	require.Equal(t, "abc", frag.Get("state"))
	require.False(t, frag.Has("refresh_token"))

	stored, err := f.svc.Store.Tokens().GetTokenByAccessToken(ctx, resp.Token.AccessToken)
	require.NoError(t, err)
	require.Equal(t, f.client.ID, stored.ClientID)
}

func TestAuthorize_SchemeEnforcement(t *testing.T) {
	ctx := context.Background()
	f := newAuthorizeFixture(t, "https://app.example/cb")

	_, err := f.svc.Authorize(ctx, f.request(func(r *AuthorizeRequest) { r.Secure = false }))
	require.ErrorIs(t, err, ErrInsecureTransport)
	require.ErrorIs(t, err, ErrInvalidRequest)

	f.svc.RequireSecure = false
	_, err = f.svc.Authorize(ctx, f.request(func(r *AuthorizeRequest) { r.Secure = false }))
	require.NoError(t, err)
}

func TestAuthorize_Rejections(t *testing.T) {
	f := newAuthorizeFixture(t, "https://app.example/one", "https://app.example/two")

	tests := []struct {
		name   string
		mutate func(*AuthorizeRequest)
		want   error
		code   string
	}{
		{"missing client_id", func(r *AuthorizeRequest) { r.ClientID = "" }, ErrClientIDRequired, CodeInvalidRequest},
		{"unknown client", func(r *AuthorizeRequest) { r.ClientID = "nope" }, ErrUnknownClient, CodeInvalidRequest},
		{"missing response_type", func(r *AuthorizeRequest) { r.ResponseType = "" }, ErrResponseTypeRequired, CodeInvalidRequest},
		{"unknown response_type", func(r *AuthorizeRequest) { r.ResponseType = "id_token" }, ErrUnsupportedResponse, CodeUnsupportedResponseType},
		{"ambiguous redirect", func(r *AuthorizeRequest) {}, ErrRedirectURIAmbiguous, CodeInvalidRequest},
		{"unregistered redirect", func(r *AuthorizeRequest) { r.RedirectURI = "https://evil.example/cb" }, ErrRedirectURIInvalid, CodeInvalidRequest},
		{"fragment redirect", func(r *AuthorizeRequest) { r.RedirectURI = "https://app.example/one#x" }, ErrRedirectURIFragment, CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := f.svc.Authorize(context.Background(), f.request(tt.mutate))
			require.Nil(t, resp)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, ErrInvalidRequest)

			var pe *ProtocolError
			require.ErrorAs(t, err, &pe)
			require.Equal(t, tt.code, pe.Code)
		})
	}

	require.Zero(t, countRows(t, f.svc.Store, "authorization_codes"))
}

func TestAuthorize_LoginRequired(t *testing.T) {
	ctx := context.Background()
	f := newAuthorizeFixture(t, "https://app.example/cb")

	resp, err := f.svc.Authorize(ctx, f.request(func(r *AuthorizeRequest) { r.UserID = "" }))
	require.Nil(t, resp)
	require.ErrorIs(t, err, ErrLoginRequired)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthorize_RevokedClient(t *testing.T) {
	ctx := context.Background()
	f := newAuthorizeFixture(t, "https://app.example/cb")
	require.NoError(t, f.clients.RevokeClient(ctx, f.client.ID))

	_, err := f.svc.Authorize(ctx, f.request())
	require.ErrorIs(t, err, ErrUnknownClient)
}

func TestAuthorize_ExplicitRedirectAmongMany(t *testing.T) {
	f := newAuthorizeFixture(t, "https://app.example/one", "https://app.example/two")

	resp, err := f.svc.Authorize(context.Background(), f.request(func(r *AuthorizeRequest) {
		r.RedirectURI = "https://app.example/two?extra=1"
	}))
	require.NoError(t, err)

	loc, err := url.Parse(resp.Location)
	require.NoError(t, err)
	require.Equal(t, "/two", loc.Path)
	require.Equal(t, "1", loc.Query().Get("extra"))
}
