package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/infrasim/pkg/algorithms"
	"github.com/dd0wney/infrasim/pkg/level"
	"github.com/dd0wney/infrasim/pkg/logging"
	"github.com/dd0wney/infrasim/pkg/metrics"
)

// ErrNilLevel is returned when the engine is handed no level.
var ErrNilLevel = errors.New("simulation: nil level")

// ErrNegativeTicks is returned by Run for a negative tick count.
var ErrNegativeTicks = errors.New("simulation: negative tick count")

// maxPrealloc bounds the frame buffer Run reserves up front; longer runs
// grow it as they go.
const maxPrealloc = 4096

// Options configures an Engine.
type Options struct {
	// Source drives incident rolls. When nil a source seeded with Seed is used.
	Source rand.Source
	Seed   int64

	Logger   logging.Logger
	Metrics  *metrics.Registry
	Observer Observer
}

// Engine advances a validated level tick by tick. A tick is atomic: Tick,
// Snapshot and the control methods are safe for concurrent use and never
// observe a half-applied tick.
type Engine struct {
	mu sync.Mutex

	lvl       *level.Level
	rng       *rand.Rand
	runID     string
	tick      int
	incidents []*occurrence
	usage     map[string]float64
	incoming  map[string][]string
	last      Frame

	logger   logging.Logger
	metrics  *metrics.Registry
	observer Observer

	// gate is non-nil while paused; Resume closes it
	ctl  sync.Mutex
	gate chan struct{}
}

// New creates an engine for lvl. The level must already have passed
// validation; the engine assumes every reference resolves.
func New(lvl *level.Level, opts Options) (*Engine, error) {
	if lvl == nil {
		return nil, ErrNilLevel
	}

	src := opts.Source
	if src == nil {
		src = rand.NewSource(opts.Seed)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	e := &Engine{
		lvl:      lvl,
		rng:      rand.New(src),
		runID:    uuid.NewString(),
		usage:    make(map[string]float64),
		incoming: algorithms.Predecessors(lvl),
		metrics:  opts.Metrics,
		observer: opts.Observer,
	}
	e.logger = logger.With(logging.Component("simulation"), logging.LevelID(lvl.ID), logging.RunID(e.runID))

	for i := range lvl.Incidents {
		e.incidents = append(e.incidents, newOccurrence(&lvl.Incidents[i], lvl))
	}
	e.last = e.frame(0, nil, newModifiers())

	return e, nil
}

// RunID identifies this engine's run in logs and trace files.
func (e *Engine) RunID() string {
	return e.runID
}

// Level returns the level being simulated.
func (e *Engine) Level() *level.Level {
	return e.lvl
}

// Snapshot returns the frame of the most recently completed tick.
func (e *Engine) Snapshot() Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last.clone()
}

// CurrentTick returns the number of completed ticks.
func (e *Engine) CurrentTick() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Tick advances the simulation by one tick and returns the resulting frame.
func (e *Engine) Tick() Frame {
	start := time.Now()

	e.mu.Lock()
	f := e.step()
	e.last = f
	out := f.clone()
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.RecordTick(time.Since(start))
	}
	return out
}

// Run advances up to ticks ticks, honouring Pause and cancellation between
// ticks, and hands every frame to the observer. It returns the frames it
// produced; on cancellation the frames so far are returned with ctx.Err().
// Zero ticks is a no-op.
func (e *Engine) Run(ctx context.Context, ticks int) ([]Frame, error) {
	if ticks < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeTicks, ticks)
	}
	if e.metrics != nil {
		e.metrics.SimulationsActive.Inc()
		defer e.metrics.SimulationsActive.Dec()
	}

	timer := logging.StartTimer(e.logger, "simulation run finished", logging.Int("ticks", ticks))
	defer timer.End()

	frames := make([]Frame, 0, min(ticks, maxPrealloc))
	for i := 0; i < ticks; i++ {
		if err := e.waitIfPaused(ctx); err != nil {
			return frames, err
		}
		if err := ctx.Err(); err != nil {
			return frames, err
		}

		f := e.Tick()
		frames = append(frames, f)

		if e.observer != nil {
			if err := e.observer.ObserveFrame(f); err != nil {
				return frames, fmt.Errorf("observer failed at tick %d: %w", f.Tick, err)
			}
		}
	}
	return frames, nil
}

// Pause stops Run before its next tick. A tick in progress completes.
func (e *Engine) Pause() {
	e.ctl.Lock()
	defer e.ctl.Unlock()
	if e.gate == nil {
		e.gate = make(chan struct{})
		e.logger.Info("simulation paused")
	}
}

// Resume releases a paused Run.
func (e *Engine) Resume() {
	e.ctl.Lock()
	defer e.ctl.Unlock()
	if e.gate != nil {
		close(e.gate)
		e.gate = nil
		e.logger.Info("simulation resumed")
	}
}

// Paused reports whether the engine is paused.
func (e *Engine) Paused() bool {
	e.ctl.Lock()
	defer e.ctl.Unlock()
	return e.gate != nil
}

func (e *Engine) waitIfPaused(ctx context.Context) error {
	e.ctl.Lock()
	gate := e.gate
	e.ctl.Unlock()

	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// step runs one tick. Caller holds e.mu.
func (e *Engine) step() Frame {
	// 1. advance the clock
	e.tick++
	tick := e.tick
	mods := newModifiers()

	// 2. scheduled jobs
	fired := e.fireJobs(tick, mods)

	// 3. incident rolls
	e.rollIncidents(tick)

	// 4. lifecycle transitions
	e.advanceIncidents(tick)
	for _, occ := range e.incidents {
		if occ.phase == Active {
			occ.apply(mods)
		}
	}

	// 5. recompute
	e.accumulate(mods)
	f := e.frame(tick, fired, mods)

	for _, a := range f.Alerts {
		e.logger.Debug("threshold alert",
			logging.NodeID(a.NodeID), logging.String("kind", a.Kind.String()),
			logging.String("severity", a.Severity.String()), logging.Float64("value", a.Value), logging.Tick(tick))
		if e.metrics != nil {
			e.metrics.RecordAlert(a.Kind.String(), a.Severity.String())
		}
	}
	return f
}

func (e *Engine) fireJobs(tick int, mods *modifiers) []string {
	var fired []string
	for _, job := range e.lvl.Jobs {
		if !job.FiresAt(tick) {
			continue
		}
		fired = append(fired, job.ID)

		if job.Effect.Metric == level.MetricStorageUsage {
			// usage is a stock: jobs change it permanently
			e.usage[job.Target] = e.mutateUsage(e.usage[job.Target], job.Effect)
		} else {
			mods.applyNode(job.Target, job.Effect)
		}

		e.logger.Debug("job fired", logging.JobID(job.ID), logging.NodeID(job.Target), logging.Tick(tick))
		if e.metrics != nil {
			e.metrics.RecordJobFiring(e.lvl.ID, job.ID)
		}
	}
	return fired
}

func (e *Engine) mutateUsage(usage float64, effect level.Effect) float64 {
	if amount, ok := effect.Addend(); ok {
		usage += amount
	}
	if factor, ok := effect.Multiplier(); ok {
		usage *= factor
	}
	if usage < 0 {
		return 0
	}
	return usage
}

// rollIncidents draws exactly one number per dormant incident, in document
// order, so the random stream is identical for identical histories.
func (e *Engine) rollIncidents(tick int) {
	for _, occ := range e.incidents {
		if occ.phase == Resolved {
			occ.phase = Dormant
		}
	}

	for _, occ := range e.incidents {
		if occ.phase != Dormant {
			continue
		}
		if e.rng.Float64() >= occ.def.TriggerProbabilityPerTick {
			continue
		}
		if blocker := e.conflicting(occ); blocker != nil {
			e.logger.Debug("incident suppressed",
				logging.IncidentID(occ.def.ID), logging.String("blocked_by", blocker.def.ID), logging.Tick(tick))
			continue
		}

		occ.trigger(tick)
		e.transitioned(occ, tick)
	}
}

// conflicting returns an in-flight occurrence of the same type that shares
// a target with occ.
func (e *Engine) conflicting(occ *occurrence) *occurrence {
	for _, other := range e.incidents {
		if other == occ || !other.phase.InFlight() || other.def.Type != occ.def.Type {
			continue
		}
		if occ.overlaps(other) {
			return other
		}
	}
	return nil
}

func (e *Engine) advanceIncidents(tick int) {
	for _, occ := range e.incidents {
		if occ.advance(tick) {
			e.transitioned(occ, tick)
		}
	}
}

func (e *Engine) transitioned(occ *occurrence, tick int) {
	e.logger.Info("incident "+occ.phase.String(),
		logging.IncidentID(occ.def.ID), logging.String("type", occ.def.Type.String()), logging.Tick(tick))
	if e.metrics != nil {
		e.metrics.RecordIncidentTransition(occ.def.Type.String(), occ.phase.String())
	}
}
