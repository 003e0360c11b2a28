package api

import (
	"encoding/json"
	"net/http"
)

// Error types returned in {"error":{"type":N,...}} entries.
const (
	ErrTypeUnauthorized          = 1
	ErrTypeInvalidJSON           = 2
	ErrTypeResourceNotAvailable  = 3
	ErrTypeMissingParameter      = 5
	ErrTypeParameterNotAvailable = 6
	ErrTypeInvalidValue          = 7
	ErrTypeParameterReadOnly     = 8
	ErrTypeInternal              = 901
)

// Error is the body of a single error entry.
type Error struct {
	Type        int    `json:"type"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

// errorItem wraps an Error as a response list entry.
func errorItem(typ int, address, description string) map[string]any {
	return map[string]any{"error": Error{Type: typ, Address: address, Description: description}}
}

// successItem wraps a value as a response list entry.
func successItem(v any) map[string]any {
	return map[string]any{"success": v}
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a one-entry error list.
func writeError(w http.ResponseWriter, status, typ int, address, description string) {
	writeJSON(w, status, []any{errorItem(typ, address, description)})
}

// writeNotAvailable writes a 404 for a missing resource.
func writeNotAvailable(w http.ResponseWriter, address string) {
	writeError(w, http.StatusNotFound, ErrTypeResourceNotAvailable, address,
		"resource, "+address+", not available")
}

// writeInvalidJSON writes a 400 for an unparsable body.
func writeInvalidJSON(w http.ResponseWriter, address string) {
	writeError(w, http.StatusBadRequest, ErrTypeInvalidJSON, address, "body contains invalid JSON")
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, address, description string) {
	writeError(w, http.StatusInternalServerError, ErrTypeInternal, address, description)
}
