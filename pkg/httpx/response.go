package httpx

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes v as the JSON body with status code. Every response of
// this server may carry a secret or a token, so none of them are cacheable.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache marks a response as not storable (RFC 6749 section 5.1).
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
