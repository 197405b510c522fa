package service

import "errors"

// Error classes. Every ProtocolError unwraps to exactly one of these so the
// transport layer can pick a status code with errors.Is.
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// ProtocolError is an OAuth2 error response: a class for the status code
// plus the error code and description sent to the client.
type ProtocolError struct {
	Class       error
	Code        string
	Description string
}

func (e *ProtocolError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return e.Code + ": " + e.Description
}

func (e *ProtocolError) Unwrap() error { return e.Class }

func invalidRequest(code, description string) *ProtocolError {
	return &ProtocolError{Class: ErrInvalidRequest, Code: code, Description: description}
}

func unauthorized(code, description string) *ProtocolError {
	return &ProtocolError{Class: ErrUnauthorized, Code: code, Description: description}
}

// OAuth2 error codes (RFC 6749 section 5.2 and 4.1.2.1).
const (
	CodeInvalidRequest          = "invalid_request"
	CodeInvalidClient           = "invalid_client"
	CodeInvalidGrant            = "invalid_grant"
	CodeUnsupportedGrantType    = "unsupported_grant_type"
	CodeUnsupportedResponseType = "unsupported_response_type"
	CodeLoginRequired           = "login_required"
	CodeServerError             = "server_error"
)

var (
	ErrInsecureTransport = invalidRequest(CodeInvalidRequest, "OAuth2 requires all requests to be made via HTTPS")
	ErrMethodPostOnly    = &ProtocolError{Class: ErrMethodNotAllowed, Code: CodeInvalidRequest, Description: "this endpoint only supports the POST method"}

	// Client authentication
	ErrClientIDRequired      = invalidRequest(CodeInvalidRequest, "client_id is required")
	ErrUnknownClient         = invalidRequest(CodeInvalidRequest, "invalid client credentials")
	ErrMissingCredentials    = unauthorized(CodeInvalidClient, "client credentials are required")
	ErrMalformedCredentials  = invalidRequest(CodeInvalidRequest, "malformed Authorization header")
	ErrClientAuthFailed      = invalidRequest(CodeInvalidClient, "invalid client credentials")
	ErrRedirectURIInvalid    = invalidRequest(CodeInvalidRequest, "redirect URI validation failed")
	ErrRedirectURIAmbiguous  = invalidRequest(CodeInvalidRequest, "redirect_uri is required when a client has zero or several registered URIs")
	ErrRedirectURIFragment   = invalidRequest(CodeInvalidRequest, "redirect_uri must not contain a fragment")
	ErrResponseTypeRequired  = invalidRequest(CodeInvalidRequest, "response_type is required")
	ErrUnsupportedResponse   = invalidRequest(CodeUnsupportedResponseType, "response_type must be code or token")
	ErrLoginRequired         = unauthorized(CodeLoginRequired, "the user must be authenticated")
	ErrGrantTypeRequired     = invalidRequest(CodeInvalidRequest, "grant_type is required")
	ErrUnsupportedGrantType  = invalidRequest(CodeUnsupportedGrantType, "supported grant types are password, refresh_token and authorization_code")
	ErrUsernamePasswordReq   = invalidRequest(CodeInvalidRequest, "both username and password are required")
	ErrInvalidUserCredential = unauthorized(CodeInvalidGrant, "username and password are invalid")
	ErrRefreshTokenRequired  = invalidRequest(CodeInvalidRequest, "refresh_token field required")
	ErrUserIDRequired        = invalidRequest(CodeInvalidRequest, "user_id field required")
	ErrInvalidRefreshToken   = unauthorized(CodeInvalidGrant, "provided refresh_token is not valid")
	ErrRefreshClientMismatch = invalidRequest(CodeInvalidGrant, "client does not own this refresh_token")
	ErrRefreshUserMismatch   = invalidRequest(CodeInvalidGrant, "the given user_id does not match the given refresh_token")
	ErrCodeRequired          = invalidRequest(CodeInvalidRequest, "code field required")
	ErrInvalidAuthCode       = unauthorized(CodeInvalidGrant, "authorization code is invalid, expired or already used")
	ErrTokenRequired         = invalidRequest(CodeInvalidRequest, "token field required")
	ErrFormContentType       = invalidRequest(CodeInvalidRequest, "content-type must be application/x-www-form-urlencoded")
	ErrMalformedForm         = invalidRequest(CodeInvalidRequest, "invalid form body")
)
