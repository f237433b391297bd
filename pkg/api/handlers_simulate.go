package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dd0wney/infrasim/pkg/config"
	"github.com/dd0wney/infrasim/pkg/logging"
	"github.com/dd0wney/infrasim/pkg/simulation"
	"github.com/dd0wney/infrasim/pkg/validation"
)

// simulateParams are the query parameters of a simulate request.
type simulateParams struct {
	Ticks    int    `validate:"gt=0,ltefield=MaxTicks"`
	MaxTicks int    `validate:"gt=0"`
	Frames   string `validate:"oneof=all last none"`
	Seed     int64
}

func (s *Server) parseSimulateParams(r *http.Request, sim config.SimulationConfig) (simulateParams, error) {
	q := r.URL.Query()

	ticks, _, err := intParam(q, "ticks", int64(sim.DefaultTicks))
	if err != nil {
		return simulateParams{}, err
	}
	seed, given, err := intParam(q, "seed", 0)
	if err != nil {
		return simulateParams{}, err
	}
	if !given {
		// echoed back in the response so the run can be replayed
		seed = time.Now().UnixNano()
	}

	p := simulateParams{
		Ticks:    int(ticks),
		MaxTicks: sim.MaxTicks,
		Frames:   q.Get("frames"),
		Seed:     seed,
	}
	if p.Frames == "" {
		p.Frames = "all"
	}
	if err := validation.Struct(p); err != nil {
		return simulateParams{}, err
	}
	return p, nil
}

// handleSimulate validates the posted level and runs it headlessly. The
// level must be valid; the engine never sees a rejected document.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	v, sim, _ := s.settings()

	params, err := s.parseSimulateParams(r, sim)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	data, format, status, err := readDocument(r)
	if err != nil {
		s.respondError(w, r, status, err.Error())
		return
	}

	res := s.validate(v, data, format)
	if !res.Valid {
		s.respondJSON(w, http.StatusUnprocessableEntity, ValidateResponse{Valid: false, Errors: res.Errors})
		return
	}

	engine, err := simulation.New(res.Level, simulation.Options{
		Seed:    params.Seed,
		Logger:  s.logger,
		Metrics: s.metricsRegistry,
	})
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, s.sanitizeError(r, err, "simulation setup"))
		return
	}

	frames, err := engine.Run(r.Context(), params.Ticks)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.logger.Info("simulation abandoned by client", logging.RunID(engine.RunID()), logging.Tick(len(frames)))
			return
		}
		s.respondError(w, r, http.StatusInternalServerError, s.sanitizeError(r, err, "simulation"))
		return
	}

	resp := SimulateResponse{
		RunID:   engine.RunID(),
		LevelID: res.Level.ID,
		Seed:    params.Seed,
		Ticks:   params.Ticks,
		Summary: simulation.Summarize(frames),
		Frames:  []simulation.Frame{},
	}
	switch params.Frames {
	case "all":
		resp.Frames = frames
	case "last":
		resp.Frames = frames[len(frames)-1:]
	}
	s.respondJSON(w, http.StatusOK, resp)
}
