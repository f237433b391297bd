package api

import (
	"encoding/json"
	"net/http"

	"github.com/dd0wney/infrasim/pkg/api/middleware"
	"github.com/dd0wney/infrasim/pkg/logging"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("error encoding JSON response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      status,
		RequestID: middleware.GetRequestID(r),
	})
}

// sanitizeError logs err in full and returns a client-safe message.
func (s *Server) sanitizeError(r *http.Request, err error, operation string) string {
	s.logger.Error(operation+" failed", logging.Error(err),
		logging.String("request_id", middleware.GetRequestID(r)))
	return operation + " failed"
}
