/*
Package authsdk is the Go client for grantd.

An SDKClient acts as one registered client. Token calls are made through
golang.org/x/oauth2 with the client credentials in the Basic header:

	client := authsdk.NewSDKClient("https://auth.example.com", clientID, clientSecret)

	tok, err := client.PasswordGrant(ctx, "alice", "wonderland", "read")
	userID := authsdk.UserID(tok)

	// Refresh needs the user id the token was issued for
	tok, err = client.RefreshGrant(ctx, tok.RefreshToken, userID)

	// Or let x/oauth2 refresh on demand
	src := client.TokenSource(ctx, tok)

Authorization code flow:

	u := client.BuildAuthorizeURL(authsdk.ResponseTypeCode, redirectURI, state)
	// ... user agent is redirected back ...
	cb, err := authsdk.ParseCallback(callbackURL)
	tok, err := client.ExchangeCode(ctx, cb.Code, redirectURI)

A Session performs client administration with a session token that carries
the clients:read and clients:write scopes:

	admin := client.NewSession(sessionToken)
	created, err := admin.CreateClient(ctx, authsdk.CreateClientRequest{Name: "web"})

Every failure from the server is returned as an *OAuth2Error holding the
HTTP status, error code and description.
*/
package authsdk
