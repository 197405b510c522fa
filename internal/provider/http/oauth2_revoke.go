package http

import (
	"net/http"

	"github.com/aussiebroadwan/grantd/internal/provider/metrics"
	"github.com/aussiebroadwan/grantd/internal/provider/service"
	"github.com/aussiebroadwan/grantd/pkg/httpx"
)

// RevokeHandler serves /v1/oauth2/revoke (RFC 7009). Unknown tokens and
// tokens of other clients still get a 200 so tokens cannot be probed.
type RevokeHandler struct {
	TokenService *service.TokenService
	TrustProxy   bool
	Metrics      *metrics.Metrics
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Revocation Endpoint
//	@Description	Revokes an access or refresh token owned by the authenticated client (RFC 7009).
//	@Description	Returns 200 OK even for unknown tokens.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			Authorization	header		string	true	"Basic client credentials"
//	@Param			token			formData	string	true	"The token to revoke"
//	@Param			token_type_hint	formData	string	false	"Hint about token type"	Enums(access_token, refresh_token)
//	@Success		200				"Token revoked (or was unknown)"
//	@Failure		400				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		405				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Router			/v1/oauth2/revoke [post]
func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.TokenService.Revoke(r.Context(), parseTokenForm(r, h.TrustProxy)); err != nil {
		writeProtocolError(w, r, h.Metrics, endpointRevoke, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusOK)
}

// parseTokenForm reads the token and hint shared by revocation and
// introspection.
func parseTokenForm(r *http.Request, trustProxy bool) service.RevokeRequest {
	bodyErr := readForm(r)
	return service.RevokeRequest{
		Method:        r.Method,
		Secure:        httpx.IsSecure(r, trustProxy),
		Authorization: r.Header.Get("Authorization"),
		Token:         r.PostForm.Get("token"),
		TokenTypeHint: r.PostForm.Get("token_type_hint"),
		BodyErr:       bodyErr,
	}
}
