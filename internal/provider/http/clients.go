package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/grantd/internal/provider/domain"
	"github.com/aussiebroadwan/grantd/internal/provider/service"
	"github.com/aussiebroadwan/grantd/pkg/authsdk"
	"github.com/aussiebroadwan/grantd/pkg/httpx"
)

// ClientsHandler handles the client administration endpoints.
type ClientsHandler struct {
	ClientService *service.ClientService
}

func clientInfo(c domain.Client) authsdk.ClientInfo {
	uris := c.URIs()
	return authsdk.ClientInfo{
		ID:           c.ID,
		Name:         c.Name,
		RedirectURIs: uris,
		Revoked:      c.Revoked,
		RevokedAt:    c.RevokedAt,
		CreatedAt:    c.CreatedAt,
	}
}

// HandleCreate handles POST /v1/clients
//
//	@Summary		Create OAuth2 Client
//	@Description	Registers a client with its redirect URIs. The secret is returned once.
//	@Tags			Clients
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		authsdk.CreateClientRequest		true	"Client creation request"
//	@Success		201		{object}	authsdk.CreateClientResponse	"client and its secret"
//	@Failure		400		{object}	authsdk.ErrorResponse			"error, error_description"
//	@Failure		401		{object}	authsdk.ErrorResponse			"error, error_description"
//	@Failure		403		{object}	authsdk.ErrorResponse			"error, error_description"
//	@Router			/v1/clients [post]
func (h *ClientsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadBody(w, "json")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, "client name is required")
		return
	}

	client, secret, err := h.ClientService.CreateClient(r.Context(), req.Name, req.RedirectURIs)
	if err != nil {
		clientError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.CreateClientResponse{
		ClientInfo:   clientInfo(client),
		ClientSecret: secret,
	})
}

// HandleList handles GET /v1/clients
//
//	@Summary		List OAuth2 Clients
//	@Description	Lists every client, revoked ones included. Secrets are never returned.
//	@Tags			Clients
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.ListClientsResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		403	{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/clients [get]
func (h *ClientsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	clients, err := h.ClientService.ListClients(r.Context())
	if err != nil {
		clientError(w, r, err)
		return
	}

	out := authsdk.ListClientsResponse{Clients: make([]authsdk.ClientInfo, 0, len(clients))}
	for _, c := range clients {
		out.Clients = append(out.Clients, clientInfo(c))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /v1/clients/{id}
//
//	@Summary		Get OAuth2 Client
//	@Tags			Clients
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Client ID"
//	@Success		200	{object}	authsdk.ClientInfo
//	@Failure		404	{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/clients/{id} [get]
func (h *ClientsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	client, err := h.ClientService.GetClient(r.Context(), r.PathValue("id"))
	if err != nil {
		clientError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, clientInfo(client))
}

// HandleRotateSecret handles POST /v1/clients/{id}/secret
//
//	@Summary		Rotate Client Secret
//	@Description	Issues a new secret. The previous one stops working immediately.
//	@Tags			Clients
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Client ID"
//	@Success		200	{object}	authsdk.RotateSecretResponse
//	@Failure		404	{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/clients/{id}/secret [post]
func (h *ClientsHandler) HandleRotateSecret(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("id")
	secret, err := h.ClientService.RotateSecret(r.Context(), clientID)
	if err != nil {
		clientError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.RotateSecretResponse{ClientID: clientID, ClientSecret: secret})
}

// HandleRevoke handles POST /v1/clients/{id}/revoke
//
//	@Summary		Revoke OAuth2 Client
//	@Description	Disables the client for every grant. Revoking twice is a no-op.
//	@Tags			Clients
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Client ID"
//	@Success		204	"Client revoked"
//	@Failure		404	{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/clients/{id}/revoke [post]
func (h *ClientsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	if err := h.ClientService.RevokeClient(r.Context(), r.PathValue("id")); err != nil {
		clientError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddRedirectURI handles POST /v1/clients/{id}/redirect-uris
//
//	@Summary		Add Redirect URI
//	@Tags			Clients
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string						true	"Client ID"
//	@Param			request	body		authsdk.RedirectURIRequest	true	"Redirect URI"
//	@Success		200		{object}	authsdk.ClientInfo
//	@Failure		400		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		404		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		409		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/clients/{id}/redirect-uris [post]
func (h *ClientsHandler) HandleAddRedirectURI(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RedirectURIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadBody(w, "json")
		return
	}

	ctx := r.Context()
	clientID := r.PathValue("id")
	if _, err := h.ClientService.AddRedirectURI(ctx, clientID, req.URI); err != nil {
		clientError(w, r, err)
		return
	}

	client, err := h.ClientService.GetClient(ctx, clientID)
	if err != nil {
		clientError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, clientInfo(client))
}

// HandleRemoveRedirectURI handles DELETE /v1/clients/{id}/redirect-uris
//
//	@Summary		Remove Redirect URI
//	@Tags			Clients
//	@Accept			json
//	@Security		BearerAuth
//	@Param			id		path	string						true	"Client ID"
//	@Param			request	body	authsdk.RedirectURIRequest	true	"Redirect URI"
//	@Success		204		"Redirect URI removed"
//	@Failure		404		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/clients/{id}/redirect-uris [delete]
func (h *ClientsHandler) HandleRemoveRedirectURI(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RedirectURIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadBody(w, "json")
		return
	}

	if err := h.ClientService.RemoveRedirectURI(r.Context(), r.PathValue("id"), req.URI); err != nil {
		clientError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
