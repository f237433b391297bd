package api

import (
	"sync"
	"time"

	"github.com/dd0wney/infrasim/pkg/config"
	"github.com/dd0wney/infrasim/pkg/health"
	"github.com/dd0wney/infrasim/pkg/logging"
	"github.com/dd0wney/infrasim/pkg/metrics"
	"github.com/dd0wney/infrasim/pkg/source"
	"github.com/dd0wney/infrasim/pkg/validation"
)

// Server represents the HTTP API server
type Server struct {
	// settings guarded by mu; Reconfigure swaps them on SIGHUP
	mu         sync.RWMutex
	validator  *validation.Validator
	simulation   config.SimulationConfig
	workers      int
	maxBodyBytes int64

	source          source.Source // nil disables the batch check endpoint
	docsDir         string
	corsOrigins     []string
	logger          logging.Logger
	metricsRegistry *metrics.Registry
	healthChecker   *health.HealthChecker
	startTime       time.Time
	version         string
}

// Options carries the server's collaborators.
type Options struct {
	// Source backs GET /api/v1/levels/check. Optional.
	Source  source.Source
	Logger  logging.Logger
	Metrics *metrics.Registry
	Version string
}
