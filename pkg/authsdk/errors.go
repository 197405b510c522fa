package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// OAuth2 error codes (RFC 6749 and OIDC login_required).
const (
	ErrorCodeInvalidRequest          = "invalid_request"
	ErrorCodeInvalidClient           = "invalid_client"
	ErrorCodeInvalidGrant            = "invalid_grant"
	ErrorCodeUnsupportedGrantType    = "unsupported_grant_type"
	ErrorCodeUnsupportedResponseType = "unsupported_response_type"
	ErrorCodeLoginRequired           = "login_required"
	ErrorCodeServerError             = "server_error"
	ErrorCodeNotFound                = "not_found"
	ErrorCodeConflict                = "conflict"
)

// OAuth2Error is an error response returned by the server.
type OAuth2Error struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *OAuth2Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return e.Code + ": " + e.Description
}

// IsErrorCode reports whether err is an *OAuth2Error carrying code.
func IsErrorCode(err error, code string) bool {
	var oe *OAuth2Error
	return errors.As(err, &oe) && oe.Code == code
}

// parseErrorResponse builds the error for a response with an unexpected
// status.
func parseErrorResponse(resp *http.Response, raw []byte) *OAuth2Error {
	oe := &OAuth2Error{StatusCode: resp.StatusCode}
	var body ErrorResponse
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		oe.Code, oe.Description = body.Error, body.ErrorDescription
		return oe
	}

	// Proxies may answer without a JSON body
	oe.Code = ErrorCodeServerError
	oe.Description = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	return oe
}

// fromRetrieveError converts x/oauth2 token endpoint failures so callers
// see one error type across the SDK.
func fromRetrieveError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) || re.Response == nil {
		return err
	}
	return parseErrorResponse(re.Response, re.Body)
}
