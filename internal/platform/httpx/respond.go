// Package httpx provides JSON response helpers for the API surface.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the wire shape shared by every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK sends a success payload with HTTP 200.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Fail sends a failure envelope with a machine-readable reason.
func Fail(w http.ResponseWriter, status int, errMsg, reason string) {
	JSON(w, status, Envelope{Success: false, Error: errMsg, Reason: reason})
}

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
