// Package handler provides HTTP handlers for the threadbot server.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/capitalize-ai/threadbot/internal/model"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, model.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
