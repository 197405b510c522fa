package http

import (
	"net/http"

	"github.com/aussiebroadwan/grantd/internal/provider/metrics"
	"github.com/aussiebroadwan/grantd/internal/provider/service"
	"github.com/aussiebroadwan/grantd/pkg/httpx"
)

// AuthorizeHandler serves the authorization endpoint for both the code and
// the implicit grant. The end user comes from the session middleware.
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
	TrustProxy       bool
	Metrics          *metrics.Metrics
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 authorization endpoint
//	@Description	Issues an authorization code (response_type=code) or an access token (response_type=token) for the user of the session token.
//	@Description	Parameters are read from the query, and for POST also from the form body.
//	@Description
//	@Description	**Response:**
//	@Description	- Success: 302 to the redirect URI. Codes are in the query, implicit tokens in the fragment.
//	@Description	- No session: 401 login_required
//	@Description	- Invalid request: 400, never a redirect
//	@Tags			OAuth2
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Security		BearerAuth
//	@Param			response_type	query		string					true	"code or token"	Enums(code, token)
//	@Param			client_id		query		string					true	"OAuth2 client identifier"
//	@Param			redirect_uri	query		string					false	"Callback URI, required unless exactly one is registered"
//	@Param			scope			query		string					false	"Space-delimited list of scopes"
//	@Param			state			query		string					false	"Opaque value echoed on the redirect"
//	@Success		302				{string}	string					"Redirect to redirect_uri"
//	@Failure		400				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/oauth2/authorize [get]
//	@Router			/v1/oauth2/authorize [post]
func (h *AuthorizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && !isFormContentType(r) {
		writeBadContentType(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeBadBody(w, "form")
		return
	}

	resp, err := h.AuthorizeService.Authorize(r.Context(), service.AuthorizeRequest{
		Secure:       httpx.IsSecure(r, h.TrustProxy),
		ResponseType: r.Form.Get("response_type"),
		ClientID:     r.Form.Get("client_id"),
		RedirectURI:  r.Form.Get("redirect_uri"),
		State:        r.Form.Get("state"),
		Scope:        r.Form.Get("scope"),
		UserID:       httpx.UserIDFromContext(r.Context()),
	})
	if err != nil {
		writeProtocolError(w, r, h.Metrics, endpointAuthorize, err)
		return
	}

	httpx.NoCache(w)
	http.Redirect(w, r, resp.Location, http.StatusFound)
}
