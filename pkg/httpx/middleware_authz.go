package httpx

import (
	"net/http"
	"slices"
	"strings"
)

// RequireAnyScope admits a session holding at least one of scopes. It must
// run after AuthnMiddleware.
func RequireAnyScope(scopes ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			have := scopesFromCtx(r.Context())
			if slices.ContainsFunc(scopes, func(s string) bool { return slices.Contains(have, s) }) {
				next.ServeHTTP(w, r)
				return
			}

			// RFC 6750 section 3.1
			w.Header().Set("WWW-Authenticate",
				`Bearer error="insufficient_scope", scope="`+strings.Join(scopes, " ")+`"`)
			WriteJSON(w, http.StatusForbidden, map[string]string{
				"error":             "insufficient_scope",
				"error_description": "session requires one of: " + strings.Join(scopes, ", "),
			})
		})
	}
}
