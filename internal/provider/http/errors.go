package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/grantd/internal/provider/metrics"
	"github.com/aussiebroadwan/grantd/internal/provider/service"
	"github.com/aussiebroadwan/grantd/pkg/authsdk"
	"github.com/aussiebroadwan/grantd/pkg/httpx"
	"github.com/aussiebroadwan/grantd/pkg/slogx"
)

// Endpoint labels for rejection metrics.
const (
	endpointAuthorize  = "authorize"
	endpointToken      = "token"
	endpointRevoke     = "revoke"
	endpointIntrospect = "introspect"
)

// writeError writes an OAuth2 style error body.
func writeError(w http.ResponseWriter, status int, code, description string) {
	httpx.WriteJSON(w, status, authsdk.ErrorResponse{Error: code, ErrorDescription: description})
}

func writeServerError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, authsdk.ErrorCodeServerError, "internal server error")
}

// writeBadBody answers a request body that could not be decoded. what names
// the expected encoding.
func writeBadBody(w http.ResponseWriter, what string) {
	writeError(w, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, "invalid "+what+" body")
}

func writeBadContentType(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest,
		"content-type must be application/x-www-form-urlencoded")
}

// writeProtocolError answers a service error. Protocol errors map their
// class onto the status code, anything else is a 500.
func writeProtocolError(w http.ResponseWriter, r *http.Request, m *metrics.Metrics, endpoint string, err error) {
	ctx := r.Context()

	var pe *service.ProtocolError
	if !errors.As(err, &pe) {
		slogx.FromContext(ctx).Error("request failed", "endpoint", endpoint, "error", err)
		m.Rejected(ctx, endpoint, authsdk.ErrorCodeServerError)
		writeServerError(w)
		return
	}

	status := http.StatusBadRequest
	switch {
	case errors.Is(pe, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(pe, service.ErrMethodNotAllowed):
		status = http.StatusMethodNotAllowed
		w.Header().Set("Allow", http.MethodPost)
	}
	if errors.Is(err, service.ErrMissingCredentials) {
		w.Header().Set("WWW-Authenticate", `Basic realm="grantd"`)
	}

	m.Rejected(ctx, endpoint, pe.Code)
	writeError(w, status, pe.Code, pe.Description)
}

// clientError maps client registry errors for the admin endpoints.
func clientError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrClientNotFound):
		writeError(w, http.StatusNotFound, authsdk.ErrorCodeNotFound, "client not found")
	case errors.Is(err, service.ErrRedirectURINotFound):
		writeError(w, http.StatusNotFound, authsdk.ErrorCodeNotFound, err.Error())
	case errors.Is(err, service.ErrRedirectURIExists):
		writeError(w, http.StatusConflict, authsdk.ErrorCodeConflict, err.Error())
	case errors.Is(err, service.ErrInvalidRedirectURI):
		writeError(w, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, err.Error())
	default:
		slogx.FromContext(r.Context()).Error("client administration failed", "error", err)
		writeServerError(w)
	}
}

// isFormContentType accepts an empty content type as form encoded.
func isFormContentType(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return ct == "" || strings.HasPrefix(ct, "application/x-www-form-urlencoded")
}

// readForm parses a POST form body. Failures are handed to the service,
// which reports them after client authentication.
func readForm(r *http.Request) error {
	if r.Method != http.MethodPost {
		return nil
	}
	if !isFormContentType(r) {
		return service.ErrFormContentType
	}
	if err := r.ParseForm(); err != nil {
		return service.ErrMalformedForm
	}
	return nil
}
