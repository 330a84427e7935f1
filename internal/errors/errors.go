// ABOUTME: JSON error responses for the service's non-oEmbed endpoints.
// ABOUTME: The oEmbed endpoint itself answers failures with fixed plain-text bodies instead.

package errors

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// WriteError writes a JSON error with the given status.
//
// Example:
//   WriteError(w, http.StatusTooManyRequests, ErrRateLimited, "Slow down")
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeErrorResponse(w, ErrorResponse{
		Code:    code,
		Message: message,
		Status:  status,
	})
}

func writeErrorResponse(w http.ResponseWriter, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	json.NewEncoder(w).Encode(resp)
}

// Error codes
const (
	ErrNotFound         = "not_found"
	ErrMethodNotAllowed = "method_not_allowed"
	ErrRateLimited      = "rate_limited"
	ErrInternal         = "internal_error"
)
