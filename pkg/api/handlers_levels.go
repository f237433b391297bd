package api

import (
	"net/http"
	"time"

	"github.com/dd0wney/infrasim/pkg/level"
	"github.com/dd0wney/infrasim/pkg/logging"
	"github.com/dd0wney/infrasim/pkg/report"
	"github.com/dd0wney/infrasim/pkg/validation"
)

// handleValidate validates one level document. Invalid levels are a normal
// outcome and answer 422 with the error list.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	data, format, status, err := readDocument(r)
	if err != nil {
		s.respondError(w, r, status, err.Error())
		return
	}

	v, _, _ := s.settings()
	res := s.validate(v, data, format)

	resp := ValidateResponse{Valid: res.Valid, Errors: res.Errors}
	if resp.Errors == nil {
		resp.Errors = []validation.ValidationError{}
	}
	if res.Level != nil {
		resp.LevelID = res.Level.ID
	}

	code := http.StatusOK
	if !res.Valid {
		code = http.StatusUnprocessableEntity
	}
	s.respondJSON(w, code, resp)
}

// validate runs the validator and records the outcome.
func (s *Server) validate(v *validation.Validator, data []byte, format level.Format) *validation.Result {
	start := time.Now()
	res := v.ValidateFormat(data, format)
	elapsed := time.Since(start)

	s.metricsRegistry.RecordValidation(res.Valid, elapsed)
	for _, e := range res.Errors {
		s.metricsRegistry.RecordValidationError(e.Class.String(), e.Code.String())
	}
	s.logger.Debug("level validated", logging.Bool("valid", res.Valid),
		logging.Count(len(res.Errors)), logging.Latency(elapsed))
	return res
}

// handleCheck validates every document in the configured level source.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if s.source == nil {
		s.respondError(w, r, http.StatusServiceUnavailable, "no level source configured")
		return
	}

	v, _, workers := s.settings()
	batch, err := report.Run(r.Context(), s.source, report.RunOptions{
		Validator: v,
		Workers:   workers,
		Logger:    s.logger,
		Metrics:   s.metricsRegistry,
	})
	if err != nil {
		s.respondError(w, r, http.StatusBadGateway, s.sanitizeError(r, err, "level source listing"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := batch.RenderJSON(w); err != nil {
		s.logger.Warn("error encoding batch report", logging.Error(err))
	}
}
