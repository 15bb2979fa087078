// Package httputil centralizes the JSON response envelope so every handler
// emits the same shape: {"success": true, "message": ..., "data": ...} on
// success and {"success": false, "message": ..., "code": ...} on failure.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "folio/pkg/domain-errors"
)

// Envelope is the wire shape of every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// WriteJSON writes a success envelope with the given status.
func WriteJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// WriteError translates a domain error into the failure envelope. Internal
// errors hide their message from clients; everything else passes it through.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.GetCode(err)
	message := "Internal server error"
	var de *dErrors.Error
	if code != dErrors.CodeInternal && errors.As(err, &de) {
		message = de.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(Envelope{
		Success: false,
		Message: message,
		Code:    string(code),
	})
}
