package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dd0wney/infrasim/pkg/level"
	"github.com/dd0wney/infrasim/pkg/simulation"
)

// Verify replays lvl with the seed recorded in the trace and compares every
// tick with the recorded frame. It returns the number of ticks checked. Only
// traces of runs seeded through simulation.Options.Seed can be replayed.
func Verify(ctx context.Context, lvl *level.Level, r *Reader) (int, error) {
	if lvl.ID != r.Header().LevelID {
		return 0, fmt.Errorf("%w: trace is for level %q, not %q", ErrDiverged, r.Header().LevelID, lvl.ID)
	}

	engine, err := simulation.New(lvl, simulation.Options{Seed: r.Header().Seed})
	if err != nil {
		return 0, err
	}

	checked := 0
	for {
		if err := ctx.Err(); err != nil {
			return checked, err
		}

		recorded, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return checked, nil
			}
			return checked, err
		}

		replayed := engine.Tick()
		if !sameFrame(recorded, replayed) {
			return checked, fmt.Errorf("%w at tick %d", ErrDiverged, replayed.Tick)
		}
		checked++
	}
}

// sameFrame compares frames by their encoding, which is what a trace stores.
func sameFrame(a, b simulation.Frame) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}
