// Package api is the HTTP surface of infrasim: level validation,
// headless simulation runs, batch checks over the configured level source
// and the game's documentation pages.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/infrasim/pkg/api/middleware"
	"github.com/dd0wney/infrasim/pkg/config"
	"github.com/dd0wney/infrasim/pkg/health"
	"github.com/dd0wney/infrasim/pkg/logging"
	"github.com/dd0wney/infrasim/pkg/metrics"
	"github.com/dd0wney/infrasim/pkg/validation"
)

// NewServer builds a server from cfg.
func NewServer(cfg config.Config, opts Options) (*Server, error) {
	v, err := validation.NewValidator(cfg.Limits)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	reg := opts.Metrics
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		validator:       v,
		simulation:      cfg.Simulation,
		workers:         cfg.Levels.Workers,
		source:          opts.Source,
		docsDir:         cfg.Server.DocsDir,
		maxBodyBytes:    cfg.Server.MaxBodyBytes,
		corsOrigins:     cfg.Server.CORSOrigins,
		logger:          logger.With(logging.Component("api")),
		metricsRegistry: reg,
		healthChecker:   health.NewHealthChecker(5 * time.Second),
		startTime:       time.Now(),
		version:         version,
	}
	s.registerHealthChecks()
	return s, nil
}

// Reconfigure applies reloadable settings: validation limits, simulation
// bounds, the body size limit and batch workers. Listener and source settings need a restart.
func (s *Server) Reconfigure(cfg config.Config) error {
	v, err := validation.NewValidator(cfg.Limits)
	if err != nil {
		return fmt.Errorf("reconfigure: %w", err)
	}

	s.mu.Lock()
	s.validator = v
	s.simulation = cfg.Simulation
	s.workers = cfg.Levels.Workers
	s.maxBodyBytes = cfg.Server.MaxBodyBytes
	s.mu.Unlock()

	s.logger.Info("configuration applied",
		logging.Int("max_ticks", cfg.Simulation.MaxTicks),
		logging.Int("horizon_ticks", cfg.Limits.HorizonTicks))
	return nil
}

// Metrics returns the registry the server records into.
func (s *Server) Metrics() *metrics.Registry {
	return s.metricsRegistry
}

// remoteSourceCheckTTL spaces out bucket listings made by health probes.
const remoteSourceCheckTTL = 30 * time.Second

func (s *Server) registerHealthChecks() {
	s.healthChecker.RegisterLivenessCheck("alive", health.SimpleCheck("alive"))
	s.healthChecker.RegisterCheck("memory", health.MemoryCheck(health.RuntimeMemory))
	if s.docsDir != "" {
		s.healthChecker.RegisterCheck("docs", health.DocsCheck(s.docsDir))
	}
	if s.source != nil {
		check := health.LevelSourceCheck(s.source)
		if s.source.Kind() == "s3" {
			check = health.Cached(check, remoteSourceCheckTTL)
		}
		s.healthChecker.RegisterCheck("level_source", check)
		s.healthChecker.RegisterReadinessCheck("level_source", check)
	}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/levels/validate", s.handleValidate)
	mux.HandleFunc("POST /api/v1/levels/simulate", s.handleSimulate)
	mux.HandleFunc("GET /api/v1/levels/check", s.handleCheck)
	mux.HandleFunc("GET /api/v1/version", s.handleVersion)

	if s.docsDir != "" {
		mux.HandleFunc("GET /docs", s.handleDocsIndex)
		mux.HandleFunc("GET /docs/{page}", s.handleDoc)
	}

	mux.HandleFunc("GET /health", s.healthChecker.HTTPHandler())
	mux.HandleFunc("GET /health/ready", s.healthChecker.ReadinessHandler())
	mux.HandleFunc("GET /health/live", s.healthChecker.LivenessHandler())
	mux.Handle("GET /metrics", s.metricsHandler())

	var handler http.Handler = mux
	handler = middleware.Metrics(s.metricsRegistry)(handler)
	handler = middleware.BodySizeLimit(s.bodyLimit)(handler)
	handler = middleware.PanicRecovery(s.logger)(handler)
	handler = middleware.Logging(s.logger)(handler)
	handler = middleware.CORS(s.corsOrigins)(handler)
	handler = middleware.RequestID()(handler)
	return handler
}

// metricsHandler refreshes the system gauges before each scrape.
func (s *Server) metricsHandler() http.Handler {
	prom := promhttp.HandlerFor(s.metricsRegistry.GetPrometheusRegistry(), promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.metricsRegistry.UpdateSystemMetrics(s.startTime)
		prom.ServeHTTP(w, r)
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, VersionResponse{
		Version:   s.version,
		UptimeSec: time.Since(s.startTime).Seconds(),
	})
}

// settings returns a consistent view of the reloadable settings.
func (s *Server) settings() (*validation.Validator, config.SimulationConfig, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validator, s.simulation, s.workers
}

func (s *Server) bodyLimit() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxBodyBytes
}
