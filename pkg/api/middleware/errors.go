package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody mirrors the API's error response so clients see one shape
// whether a request failed in a handler or in the chain.
type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Code      int    `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      status,
		RequestID: GetRequestID(r),
	})
}
