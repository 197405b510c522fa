package service

import (
	"net/url"
	"strings"

	"github.com/aussiebroadwan/grantd/internal/provider/domain"
)

// RedirectResolver picks the redirect target for an authorization request
// from the URIs registered to the client.
type RedirectResolver struct{}

// ResolvedRedirect is a verified redirect target. Build the final location
// with WithQuery or WithFragment.
type ResolvedRedirect struct {
	// Registered is the stored URI the request matched.
	Registered string

	base  url.URL
	query url.Values
}

// Resolve returns the redirect target for client. requested may be empty.
//
// Without a requested URI the client must have exactly one registered URI.
// With one, it must match a registered URI on scheme, host and path; the
// query is not compared and is merged over the registered query.
func (RedirectResolver) Resolve(client domain.Client, requested string) (*ResolvedRedirect, error) {
	if requested == "" {
		if len(client.RedirectURIs) != 1 {
			return nil, ErrRedirectURIAmbiguous
		}
		registered, err := url.Parse(client.RedirectURIs[0].URI)
		if err != nil {
			return nil, ErrRedirectURIInvalid
		}
		return newResolved(client.RedirectURIs[0].URI, registered, nil), nil
	}

	req, err := url.Parse(requested)
	if err != nil || !req.IsAbs() {
		return nil, ErrRedirectURIInvalid
	}
	if req.Fragment != "" || strings.Contains(requested, "#") {
		return nil, ErrRedirectURIFragment
	}

	for _, r := range client.RedirectURIs {
		registered, err := url.Parse(r.URI)
		if err != nil {
			continue
		}
		if sameTarget(registered, req) {
			return newResolved(r.URI, registered, req.Query()), nil
		}
	}
	return nil, ErrRedirectURIInvalid
}

func newResolved(raw string, registered *url.URL, requested url.Values) *ResolvedRedirect {
	query := registered.Query()
	for k, v := range requested {
		query[k] = v
	}

	base := url.URL{Scheme: registered.Scheme, Host: registered.Host, Path: registered.Path, RawPath: registered.RawPath}
	return &ResolvedRedirect{Registered: raw, base: base, query: query}
}

// sameTarget compares scheme and host case-insensitively and path exactly.
func sameTarget(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) &&
		strings.EqualFold(a.Host, b.Host) &&
		a.EscapedPath() == b.EscapedPath()
}

// SameRedirectTarget reports whether two redirect URIs point at the same
// scheme, host and path.
func SameRedirectTarget(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return sameTarget(ua, ub)
}

// Query returns a copy of the merged query without issuer parameters.
func (r *ResolvedRedirect) Query() url.Values {
	out := make(url.Values, len(r.query))
	for k, v := range r.query {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// WithQuery returns the location with params set over the merged query.
func (r *ResolvedRedirect) WithQuery(params url.Values) string {
	q := r.Query()
	for k, v := range params {
		q[k] = v
	}
	u := r.base
	u.RawQuery = q.Encode()
	return u.String()
}

// WithFragment returns the location with the merged query kept and params
// encoded in the fragment.
func (r *ResolvedRedirect) WithFragment(params url.Values) string {
	u := r.base
	u.RawQuery = r.query.Encode()
	return u.String() + "#" + params.Encode()
}
