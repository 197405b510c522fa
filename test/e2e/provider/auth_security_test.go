package provider_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/grantd/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestInvalidCredentials verifies a wrong password is rejected.
func TestInvalidCredentials(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := bootstrapService(t, baseURL)

	_, err := client.PasswordGrant(t.Context(), testUsername, "wrong-password")
	assertOAuth2Error(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)

	_, err = client.PasswordGrant(t.Context(), "nobody", testPassword)
	assertOAuth2Error(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)
}

// TestInvalidClientSecret verifies the token endpoint rejects a client with
// the wrong secret.
func TestInvalidClientSecret(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := bootstrapService(t, baseURL)

	bad := authsdk.NewSDKClient(baseURL, client.ClientID, "wrong-secret")
	_, err := bad.PasswordGrant(t.Context(), testUsername, testPassword)
	assertOAuth2Error(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidClient)
}

// TestAdminRequiresSession verifies the client admin API needs a session
// token carrying the right scope.
func TestAdminRequiresSession(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := bootstrapService(t, baseURL)

	_, err := client.NewSession("").ListClients(t.Context())
	assertOAuth2Error(t, err, http.StatusUnauthorized, "")

	_, err = client.NewSession("garbage").ListClients(t.Context())
	assertOAuth2Error(t, err, http.StatusUnauthorized, "")

	readOnly := client.NewSession(sessionToken(t, "admin", authsdk.ScopeClientsRead))
	_, err = readOnly.ListClients(t.Context())
	require.NoError(t, err)

	_, err = readOnly.CreateClient(t.Context(), authsdk.CreateClientRequest{Name: "nope"})
	assertOAuth2Error(t, err, http.StatusForbidden, "")
}
