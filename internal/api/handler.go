// Package api provides HTTP handlers for the UMIT portal API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ashureev/umit-portal/internal/validation"
)

// defaultMaxRequestBodySize caps JSON request bodies (1MB).
const defaultMaxRequestBodySize = 1 << 20

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// bind decodes a JSON body into dst and validates it. It writes the error
// response itself and returns false when the request is unusable.
func bind(w http.ResponseWriter, r *http.Request, v *validation.Validator, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := v.Struct(dst); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			JSON(w, http.StatusBadRequest, map[string]any{
				"error":  "invalid request",
				"fields": verr.Fields,
			})
			return false
		}
		Error(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
