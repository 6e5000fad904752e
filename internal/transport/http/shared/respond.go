// Package shared holds the JSON response envelope used by every handler so
// error payloads stay uniform across the API.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "aerostore/pkg/domain-errors"
)

// WriteJSON writes a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError translates a domain error into the JSON error envelope. The
// message of coded errors is user-safe; anything uncoded collapses to a
// generic internal error.
func WriteError(w http.ResponseWriter, err error) {
	var de *dErrors.Error
	if !errors.As(err, &de) {
		WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error":             string(dErrors.CodeInternal),
			"error_description": "internal error",
		})
		return
	}
	WriteJSON(w, dErrors.ToHTTPStatus(de.Code), map[string]string{
		"error":             string(de.Code),
		"error_description": de.Msg,
	})
}
