package simulation

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"testing"

	"github.com/dd0wney/infrasim/pkg/level"
	"github.com/dd0wney/infrasim/pkg/validation"
)

// shop describes a four node level: gw -> api -> {db, disk} with one flow
// browse over gw, api, db. Every knob a test needs is a parameter.
type shop struct {
	rate      float64
	fill      float64
	jobs      string
	incidents string
}

func (s shop) json() string {
	if s.jobs == "" {
		s.jobs = "[]"
	}
	if s.incidents == "" {
		s.incidents = "[]"
	}
	return fmt.Sprintf(`{
  "id": "shop",
  "nodes": [
    {"id": "gw", "kind": "gateway", "capacity": 1000,
     "physics": {"baseLatencyMs": 1, "saturationPenalty": 2, "criticalThreshold": 0.9}},
    {"id": "api", "kind": "compute", "capacity": 100,
     "physics": {"baseLatencyMs": 10, "saturationPenalty": 3, "criticalThreshold": 0.8}},
    {"id": "db", "kind": "database", "capacity": 200,
     "physics": {"baseLatencyMs": 5, "saturationPenalty": 10, "criticalThreshold": 0.75}},
    {"id": "disk", "kind": "storage", "capacity": 100,
     "physics": {"baseLatencyMs": 2, "fullnessThreshold": 90, "fillRatePerTick": %g}}
  ],
  "edges": [
    {"source": "gw", "target": "api"},
    {"source": "api", "target": "db"},
    {"source": "api", "target": "disk"}
  ],
  "flows": [{"name": "browse", "path": ["gw", "api", "db"], "requestsPerTick": %g}],
  "jobs": %s,
  "incidents": %s
}`, s.fill, s.rate, s.jobs, s.incidents)
}

func (s shop) level(t testing.TB) *level.Level {
	t.Helper()
	return mustLevel(t, "shop.json", []byte(s.json()))
}

func mustLevel(t testing.TB, name string, data []byte) *level.Level {
	t.Helper()
	res := validation.Default().ValidateBytes(name, data)
	if !res.Valid {
		t.Fatalf("%s is not a valid level: %v", name, res.Err())
	}
	return res.Level
}

func ecommerce(t testing.TB) *level.Level {
	t.Helper()
	data, err := os.ReadFile("../../levels/ecommerce.json")
	if err != nil {
		t.Fatalf("read level: %v", err)
	}
	return mustLevel(t, "ecommerce.json", data)
}

func newEngine(t testing.TB, lvl *level.Level, src rand.Source) *Engine {
	t.Helper()
	e, err := New(lvl, Options{Source: src})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// scripted is a rand.Source whose Float64 is 0 on the listed draws (0-based)
// and 0.99 otherwise, so incidents trigger exactly when a test wants.
type scripted struct {
	zeroAt map[int]bool
	calls  int
}

// high makes Float64 return roughly 0.99.
const high int64 = 9_131_138_316_486_228_000

func never() *scripted { return &scripted{} }

func triggerOn(draws ...int) *scripted {
	s := &scripted{zeroAt: make(map[int]bool)}
	for _, d := range draws {
		s.zeroAt[d] = true
	}
	return s
}

func (s *scripted) Int63() int64 {
	n := s.calls
	s.calls++
	if s.zeroAt[n] {
		return 0
	}
	return high
}

func (s *scripted) Seed(int64) {}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func node(t testing.TB, f Frame, id string) NodeState {
	t.Helper()
	n, ok := f.Node(id)
	if !ok {
		t.Fatalf("tick %d: node %q missing from frame", f.Tick, id)
	}
	return n
}

func incident(t testing.TB, f Frame, id string) IncidentState {
	t.Helper()
	inc, ok := f.Incident(id)
	if !ok {
		t.Fatalf("tick %d: incident %q missing from frame", f.Tick, id)
	}
	return inc
}

func hasAlert(f Frame, nodeID string, kind AlertKind) bool {
	for _, b := range f.Alerts {
		if b.NodeID == nodeID && b.Kind == kind {
			return true
		}
	}
	return false
}
