package api

import (
	"github.com/dd0wney/infrasim/pkg/simulation"
	"github.com/dd0wney/infrasim/pkg/validation"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Code      int    `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

// ValidateResponse is the outcome of POST /api/v1/levels/validate.
type ValidateResponse struct {
	Valid   bool                         `json:"valid"`
	LevelID string                       `json:"levelId,omitempty"`
	Errors  []validation.ValidationError `json:"errors"`
}

// SimulateResponse is the outcome of POST /api/v1/levels/simulate.
type SimulateResponse struct {
	RunID   string             `json:"runId"`
	LevelID string             `json:"levelId"`
	Seed    int64              `json:"seed"`
	Ticks   int                `json:"ticks"`
	Summary simulation.Summary `json:"summary"`
	// Frames holds every frame, only the last, or none (?frames=all|last|none).
	Frames []simulation.Frame `json:"frames"`
}

// DocsIndexResponse lists the documentation pages.
type DocsIndexResponse struct {
	Pages []string `json:"pages"`
}

// VersionResponse represents version information
type VersionResponse struct {
	Version   string  `json:"version"`
	UptimeSec float64 `json:"uptimeSeconds"`
}
