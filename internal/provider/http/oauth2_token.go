package http

import (
	"net/http"

	"github.com/aussiebroadwan/grantd/internal/provider/domain"
	"github.com/aussiebroadwan/grantd/internal/provider/metrics"
	"github.com/aussiebroadwan/grantd/internal/provider/service"
	"github.com/aussiebroadwan/grantd/pkg/authsdk"
	"github.com/aussiebroadwan/grantd/pkg/httpx"
)

// TokenHandler serves /v1/oauth2/token. It is mounted for every method so
// non-POST requests get a 405 in the OAuth2 error format.
type TokenHandler struct {
	TokenService *service.TokenService
	TrustProxy   bool
	Metrics      *metrics.Metrics
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Endpoint
//	@Description	Issues an access and refresh token pair. The client authenticates with HTTP Basic.
//	@Description	Supported grants are password, refresh_token and authorization_code.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			Authorization	header		string					true	"Basic client credentials"
//	@Param			grant_type		formData	string					true	"Grant type"	Enums(password, refresh_token, authorization_code)
//	@Param			username		formData	string					false	"Username (password grant)"
//	@Param			password		formData	string					false	"Password (password grant)"
//	@Param			refresh_token	formData	string					false	"Refresh token (refresh_token grant)"
//	@Param			user_id			formData	string					false	"User the refresh token was issued for (refresh_token grant)"
//	@Param			code			formData	string					false	"Authorization code (authorization_code grant)"
//	@Param			redirect_uri	formData	string					false	"Must match the authorize request when supplied"
//	@Param			scope			formData	string					false	"Space-delimited list of scopes"
//	@Success		200				{object}	authsdk.TokenResponse	"access_token, refresh_token, token_type, expires_in, user_id"
//	@Failure		400				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		405				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		500				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Header			200				{string}	Pragma					"no-cache"
//	@Router			/v1/oauth2/token [post]
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tok, err := h.TokenService.Issue(r.Context(), service.TokenRequest{
		Method:        r.Method,
		Secure:        httpx.IsSecure(r, h.TrustProxy),
		Authorization: r.Header.Get("Authorization"),
		Form:          r.PostForm,
		BodyErr:       readForm(r),
	})
	if err != nil {
		writeProtocolError(w, r, h.Metrics, endpointToken, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(tok))
}

func tokenResponse(tok *domain.Token) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    domain.TokenType,
		ExpiresIn:    int64(tok.ExpiresIn.Seconds()),
		UserID:       tok.UserID,
		Scope:        tok.Scope,
	}
}
