package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/grantd/internal/provider/domain"
	"github.com/aussiebroadwan/grantd/internal/provider/service"
	"github.com/aussiebroadwan/grantd/pkg/authsdk"
	"github.com/aussiebroadwan/grantd/pkg/httpx"
	"github.com/aussiebroadwan/grantd/pkg/slogx"
)

type BootstrapHandler struct {
	BootstrapService *service.BootstrapService
}

// ServeHTTP handles the bootstrap endpoint for initial system setup.
//
//	@Summary		Bootstrap the authorization server
//	@Description	Creates the first OAuth2 client on an empty server. Only available when a bootstrap token is configured, and only until a client exists.
//	@Tags			Bootstrap
//	@Accept			json
//	@Produce		json
//	@Param			X-Bootstrap-Token	header		string							true	"Bootstrap token for authorization"
//	@Param			request				body		authsdk.BootstrapRequest		true	"Bootstrap configuration"
//	@Success		201					{object}	authsdk.BootstrapResponse		"The first client and its secret"
//	@Failure		400					{object}	authsdk.ValidationErrorResponse	"Invalid request body or validation failed"
//	@Failure		401					{object}	authsdk.ErrorResponse			"Missing or invalid bootstrap token"
//	@Failure		404					{object}	authsdk.ErrorResponse			"Bootstrap not enabled (no token configured)"
//	@Failure		409					{object}	authsdk.ErrorResponse			"Already bootstrapped"
//	@Router			/v1/bootstrap [post]
func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l := slogx.FromContext(r.Context())

	// 1. Check if enabled
	if h.BootstrapService.Token == "" {
		writeError(w, http.StatusNotFound, authsdk.ErrorCodeNotFound, "bootstrap endpoint is not enabled")
		return
	}

	// 2. Require bootstrap token header
	token := r.Header.Get(authsdk.BootstrapTokenHeader)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized",
			"bootstrap token is required in "+authsdk.BootstrapTokenHeader+" header")
		return
	}

	// 3. Parse request body and validate
	var req authsdk.BootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadBody(w, "json")
		return
	}
	if errs := req.Validate(); errs != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ValidationErrorResponse{
			Error:            authsdk.ErrorCodeInvalidRequest,
			ErrorDescription: "validation failed for some fields",
			Details:          errs,
		})
		return
	}

	// 4. Perform bootstrap
	client, secret, err := h.BootstrapService.Bootstrap(r.Context(), token, domain.BootstrapData{
		ClientName:   strings.TrimSpace(req.ClientName),
		RedirectURIs: req.RedirectURIs,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBootstrapUnauthorized):
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid bootstrap token")
		case errors.Is(err, service.ErrBootstrapAlready):
			writeError(w, http.StatusConflict, authsdk.ErrorCodeConflict, "system has already been bootstrapped")
		case errors.Is(err, service.ErrInvalidRedirectURI), errors.Is(err, service.ErrRedirectURIExists):
			writeError(w, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, err.Error())
		default:
			l.Error("bootstrap failed", "error", err)
			writeServerError(w)
		}
		return
	}

	// 5. Respond with the client and its secret (only shown once)
	httpx.WriteJSON(w, http.StatusCreated, authsdk.BootstrapResponse{
		ClientInfo:   clientInfo(client),
		ClientSecret: secret,
	})
}
