package http

import (
	"net/http"

	"github.com/aussiebroadwan/grantd/internal/provider/domain"
	"github.com/aussiebroadwan/grantd/internal/provider/metrics"
	"github.com/aussiebroadwan/grantd/internal/provider/service"
	"github.com/aussiebroadwan/grantd/pkg/authsdk"
	"github.com/aussiebroadwan/grantd/pkg/httpx"
)

// IntrospectHandler serves /v1/oauth2/introspect (RFC 7662) for the client
// that owns the token.
type IntrospectHandler struct {
	TokenService *service.TokenService
	TrustProxy   bool
	Metrics      *metrics.Metrics
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Introspection Endpoint
//	@Description	Reports whether a token is active. Tokens owned by other clients are reported inactive.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			Authorization	header		string							true	"Basic client credentials"
//	@Param			token			formData	string							true	"Access or refresh token"
//	@Param			token_type_hint	formData	string							false	"Hint about token type"	Enums(access_token, refresh_token)
//	@Success		200				{object}	authsdk.IntrospectionResponse	"active, client_id, user_id, scope, token_type, exp, iat"
//	@Failure		400				{object}	authsdk.ErrorResponse			"error, error_description"
//	@Failure		401				{object}	authsdk.ErrorResponse			"error, error_description"
//	@Router			/v1/oauth2/introspect [post]
func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	result, err := h.TokenService.Introspect(r.Context(), parseTokenForm(r, h.TrustProxy))
	if err != nil {
		writeProtocolError(w, r, h.Metrics, endpointIntrospect, err)
		return
	}

	// Inactive tokens reveal nothing else
	resp := authsdk.IntrospectionResponse{Active: result.Active}
	if result.Active {
		resp.ClientID = result.Token.ClientID
		resp.UserID = result.Token.UserID
		resp.Scope = result.Token.Scope
		resp.TokenType = domain.TokenType
		resp.Exp = result.Token.ExpiresAt().Unix()
		resp.Iat = result.Token.IssuedAt.Unix()
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
