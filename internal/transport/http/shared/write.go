// Package shared centralizes JSON response and domain error translation so
// every handler returns the same envelope.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "custodia/pkg/domain-errors"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the HTTP envelope. Non-domain
// errors become opaque 500s so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	WriteJSON(w, dErrors.ToHTTPStatus(code), ErrorResponse{
		Error:   string(code),
		Message: dErrors.MessageOf(err),
	})
}
