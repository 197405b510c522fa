package service

import (
	"net/url"
	"testing"

	"github.com/aussiebroadwan/grantd/internal/provider/domain"
	"github.com/stretchr/testify/require"
)

func clientWith(uris ...string) domain.Client {
	c := domain.Client{ID: "client"}
	for _, u := range uris {
		c.RedirectURIs = append(c.RedirectURIs, domain.RedirectURI{URI: u})
	}
	return c
}

func TestRedirectResolver(t *testing.T) {
	t.Parallel()

	var r RedirectResolver

	t.Run("single registered uri without request", func(t *testing.T) {
		got, err := r.Resolve(clientWith("https://app.example/cb"), "")
		require.NoError(t, err)
		require.Equal(t, "https://app.example/cb", got.Registered)
		require.Equal(t, "https://app.example/cb?code=abc", got.WithQuery(url.Values{"code": {"abc"}}))
	})

	t.Run("zero registered uris", func(t *testing.T) {
		_, err := r.Resolve(clientWith(), "")
		require.ErrorIs(t, err, ErrRedirectURIAmbiguous)
		require.ErrorIs(t, err, ErrInvalidRequest)

		_, err = r.Resolve(clientWith(), "https://app.example/cb")
		require.ErrorIs(t, err, ErrRedirectURIInvalid)
	})

	t.Run("several registered uris require a choice", func(t *testing.T) {
		c := clientWith("https://app.example/one", "https://app.example/two")

		_, err := r.Resolve(c, "")
		require.ErrorIs(t, err, ErrRedirectURIAmbiguous)

		got, err := r.Resolve(c, "https://app.example/two")
		require.NoError(t, err)
		require.Equal(t, "https://app.example/two", got.Registered)
	})

	t.Run("supplied uri must match a registered one", func(t *testing.T) {
		c := clientWith("https://app.example/cb")

		for _, requested := range []string{
			"https://evil.example/cb",
			"http://app.example/cb",
			"https://app.example/cb/extra",
			"https://app.example/CB",
			"/cb",
		} {
			_, err := r.Resolve(c, requested)
			require.ErrorIs(t, err, ErrRedirectURIInvalid, requested)
		}
	})

	t.Run("scheme and host compare case-insensitively", func(t *testing.T) {
		got, err := r.Resolve(clientWith("https://app.example/cb"), "HTTPS://App.Example/cb")
		require.NoError(t, err)
		require.Equal(t, "https://app.example/cb?code=x", got.WithQuery(url.Values{"code": {"x"}}))
	})

	t.Run("fragment is rejected", func(t *testing.T) {
		_, err := r.Resolve(clientWith("https://app.example/cb"), "https://app.example/cb#frag")
		require.ErrorIs(t, err, ErrRedirectURIFragment)
	})

	t.Run("registered query is preserved", func(t *testing.T) {
		got, err := r.Resolve(clientWith("https://app.example/cb?some=value"), "")
		require.NoError(t, err)

		loc, err := url.Parse(got.WithQuery(url.Values{"code": {"abc"}, "state": {"xyz"}}))
		require.NoError(t, err)
		require.Equal(t, "value", loc.Query().Get("some"))
		require.Equal(t, "abc", loc.Query().Get("code"))
		require.Equal(t, "xyz", loc.Query().Get("state"))
	})

	t.Run("query precedence registered then request then issuer", func(t *testing.T) {
		c := clientWith("https://app.example/cb?a=registered&b=registered&code=registered")
		got, err := r.Resolve(c, "https://app.example/cb?b=request&c=request&code=request")
		require.NoError(t, err)

		loc, err := url.Parse(got.WithQuery(url.Values{"code": {"issued"}}))
		require.NoError(t, err)
		q := loc.Query()
		require.Equal(t, "registered", q.Get("a"))
		require.Equal(t, "request", q.Get("b"))
		require.Equal(t, "request", q.Get("c"))
		require.Equal(t, "issued", q.Get("code"))
	})

	t.Run("fragment output keeps the merged query", func(t *testing.T) {
		got, err := r.Resolve(clientWith("https://app.example/cb?some=value"), "")
		require.NoError(t, err)

		loc, err := url.Parse(got.WithFragment(url.Values{"access_token": {"tok"}}))
		require.NoError(t, err)
		require.Equal(t, "value", loc.Query().Get("some"))
		require.Empty(t, loc.Query().Get("access_token"))

		frag, err := url.ParseQuery(loc.Fragment)
		require.NoError(t, err)
		require.Equal(t, "tok", frag.Get("access_token"))
	})
}

func TestSameRedirectTarget(t *testing.T) {
	t.Parallel()

	require.True(t, SameRedirectTarget("https://app.example/cb?x=1", "https://APP.example/cb"))
	require.False(t, SameRedirectTarget("https://app.example/cb", "https://app.example/other"))
	require.False(t, SameRedirectTarget("https://app.example/cb", "%zz"))
}

func TestValidateRedirectURI(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateRedirectURI("https://app.example/cb?some=value"))
	require.NoError(t, ValidateRedirectURI("myapp://callback/path"))
	for _, bad := range []string{"", "/relative", "https://app.example/cb#frag", "https:///nohost", "::"} {
		require.ErrorIs(t, ValidateRedirectURI(bad), ErrInvalidRedirectURI, bad)
	}
}
