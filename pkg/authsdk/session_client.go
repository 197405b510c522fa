package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// CreateClient registers a client. Requires clients:write.
func (s *Session) CreateClient(ctx context.Context, req CreateClientRequest) (*CreateClientResponse, error) {
	var out CreateClientResponse
	if err := s.sendJSON(ctx, http.MethodPost, "/v1/clients", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListClients returns every client, revoked ones included. Requires clients:read.
func (s *Session) ListClients(ctx context.Context) (*ListClientsResponse, error) {
	var out ListClientsResponse
	if err := s.sendJSON(ctx, http.MethodGet, "/v1/clients", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetClient returns one client. Requires clients:read.
func (s *Session) GetClient(ctx context.Context, clientID string) (*ClientInfo, error) {
	var out ClientInfo
	if err := s.sendJSON(ctx, http.MethodGet, clientPath(clientID, ""), nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RotateSecret issues a new secret and invalidates the old one. Requires clients:write.
func (s *Session) RotateSecret(ctx context.Context, clientID string) (*RotateSecretResponse, error) {
	var out RotateSecretResponse
	if err := s.sendJSON(ctx, http.MethodPost, clientPath(clientID, "/secret"), nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeClient revokes a client. Requires clients:write.
func (s *Session) RevokeClient(ctx context.Context, clientID string) error {
	return s.sendJSON(ctx, http.MethodPost, clientPath(clientID, "/revoke"), nil, nil, http.StatusNoContent)
}

// AddRedirectURI registers another redirect URI. Requires clients:write.
func (s *Session) AddRedirectURI(ctx context.Context, clientID, uri string) (*ClientInfo, error) {
	var out ClientInfo
	err := s.sendJSON(ctx, http.MethodPost, clientPath(clientID, "/redirect-uris"), RedirectURIRequest{URI: uri}, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveRedirectURI deletes a redirect URI. Requires clients:write.
func (s *Session) RemoveRedirectURI(ctx context.Context, clientID, uri string) error {
	return s.sendJSON(ctx, http.MethodDelete, clientPath(clientID, "/redirect-uris"), RedirectURIRequest{URI: uri}, nil, http.StatusNoContent)
}

func clientPath(clientID, suffix string) string {
	return "/v1/clients/" + url.PathEscape(clientID) + suffix
}

// sendJSON encodes in (when non-nil), sends it and decodes the response
// into out (when non-nil).
func (s *Session) sendJSON(ctx context.Context, method, path string, in, out any, expected int) error {
	body, contentType, err := jsonBody(in)
	if err != nil {
		return err
	}

	resp, err := s.client.do(ctx, method, path, body, contentType, withBearer(s.token))
	if err != nil {
		return err
	}
	if out == nil {
		return checkStatus(resp, expected)
	}
	return decodeJSON(resp, out, expected)
}
