package provider_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/grantd/pkg/authsdk"
)

// TestBootstrap verifies the first client can be registered exactly once.
func TestBootstrap(t *testing.T) {
	baseURL := setupAuthContainer(t)
	anon := authsdk.NewSDKClient(baseURL, "", "")
	req := authsdk.BootstrapRequest{ClientName: clientName, RedirectURIs: []string{redirectURI}}

	_, err := anon.Bootstrap(t.Context(), "wrong-token", req)
	assertOAuth2Error(t, err, http.StatusUnauthorized, "")

	client := bootstrapService(t, baseURL)

	// The bootstrapped client works straight away.
	passwordLogin(t, client)

	_, err = anon.Bootstrap(t.Context(), bootstrapToken, req)
	assertOAuth2Error(t, err, http.StatusConflict, authsdk.ErrorCodeConflict)
}

// TestBootstrapValidation verifies malformed bootstrap bodies are rejected
// before the token is considered.
func TestBootstrapValidation(t *testing.T) {
	baseURL := setupAuthContainer(t)
	anon := authsdk.NewSDKClient(baseURL, "", "")

	_, err := anon.Bootstrap(t.Context(), bootstrapToken, authsdk.BootstrapRequest{
		ClientName:   clientName,
		RedirectURIs: []string{"not a uri"},
	})
	assertOAuth2Error(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)

	// A rejected request does not consume the bootstrap.
	bootstrapService(t, baseURL)
}
