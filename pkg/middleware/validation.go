package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ErrorResponse is the standard shape for request validation failures.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ValidateRequest rejects malformed requests before they reach a handler.
func ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			contentType := r.Header.Get("Content-Type")
			if contentType != "" && !strings.Contains(contentType, "application/json") {
				writeValidationError(w, ErrorResponse{Error: "Invalid Content-Type, expected application/json"})
				return
			}

			if r.ContentLength == 0 {
				writeValidationError(w, ErrorResponse{Error: "Request body cannot be empty"})
				return
			}
		}

		const maxSize = 1 << 20 // 1 MB
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)

		next.ServeHTTP(w, r)
	})
}

func writeValidationError(w http.ResponseWriter, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(resp)
}
