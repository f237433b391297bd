package simulation

import (
	"fmt"

	"github.com/dd0wney/infrasim/pkg/level"
)

// Phase is the lifecycle state of an incident occurrence
type Phase int

const (
	Dormant Phase = iota
	Warning
	Active
	Resolved
)

func (p Phase) String() string {
	switch p {
	case Dormant:
		return "dormant"
	case Warning:
		return "warning"
	case Active:
		return "active"
	case Resolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase by name
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	return decodeName(p, b, Dormant, Warning, Active, Resolved)
}

// InFlight reports whether an occurrence is between trigger and resolution.
func (p Phase) InFlight() bool {
	return p == Warning || p == Active
}

// AlertKind names a threshold condition detected on a node
type AlertKind int

const (
	// Saturated: utilization at or above 100% of effective capacity.
	Saturated AlertKind = iota
	// Critical: utilization above the node's critical threshold.
	Critical
	// NearFull: storage usage at or above the fullness threshold.
	NearFull
	// Full: storage usage at or above effective capacity.
	Full
)

func (k AlertKind) String() string {
	switch k {
	case Saturated:
		return "saturated"
	case Critical:
		return "critical"
	case NearFull:
		return "near_full"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name
func (k AlertKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *AlertKind) UnmarshalText(b []byte) error {
	return decodeName(k, b, Saturated, Critical, NearFull, Full)
}

// Severity grades a breach. Only SeverityBreach conditions fail a node and
// cascade to its dependents.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityBreach
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityBreach:
		return "breach"
	default:
		return "unknown"
	}
}

// MarshalText encodes the severity by name
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	return decodeName(s, b, SeverityWarning, SeverityBreach)
}

func (k AlertKind) Severity() Severity {
	if k == Saturated || k == Full {
		return SeverityBreach
	}
	return SeverityWarning
}

// Status summarizes a node's condition for one tick. Higher values win.
type Status int

const (
	StatusOK Status = iota
	StatusWarning
	StatusDegraded
	StatusBreached
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarning:
		return "warning"
	case StatusDegraded:
		return "degraded"
	case StatusBreached:
		return "breached"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	return decodeName(s, b, StatusOK, StatusWarning, StatusDegraded, StatusBreached)
}

// decodeName sets dst to the candidate whose String matches b. Frames are
// machine written, so an unknown name is an error.
func decodeName[T interface {
	~int
	String() string
}](dst *T, b []byte, candidates ...T) error {
	for _, c := range candidates {
		if c.String() == string(b) {
			*dst = c
			return nil
		}
	}
	return fmt.Errorf("unknown %T %q", *dst, b)
}

// NodeState is the live metric view of one node at the end of a tick.
type NodeState struct {
	ID           string     `json:"id"`
	Kind         level.Kind `json:"kind"`
	Load         float64    `json:"load"`
	Capacity     float64    `json:"capacity"`
	Utilization  float64    `json:"utilization"`
	LatencyMs    float64    `json:"latencyMs"`
	StorageUsage float64    `json:"storageUsage,omitempty"`
	Status       Status     `json:"status"`
}

// IncidentState is the lifecycle view of one incident definition.
type IncidentState struct {
	ID          string             `json:"id"`
	Type        level.IncidentType `json:"type"`
	Phase       Phase              `json:"phase"`
	TriggeredAt int                `json:"triggeredAt,omitempty"`
	ActiveSince int                `json:"activeSince,omitempty"`
	Occurrences int                `json:"occurrences"`
}

// Alert is a threshold condition on a node. Alerts are simulated
// conditions for the game to react to, never engine failures.
type Alert struct {
	NodeID   string    `json:"nodeId"`
	Kind     AlertKind `json:"kind"`
	Severity Severity  `json:"severity"`
	Value    float64   `json:"value"`
}

// Frame is the complete, externally visible state after one tick.
type Frame struct {
	Tick      int             `json:"tick"`
	FiredJobs []string        `json:"firedJobs,omitempty"`
	Nodes     []NodeState     `json:"nodes"`
	Incidents []IncidentState `json:"incidents"`
	Alerts    []Alert         `json:"alerts,omitempty"`
	Degraded  []string        `json:"degraded,omitempty"`
}

// Node returns the state of the node with the given id.
func (f Frame) Node(id string) (NodeState, bool) {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeState{}, false
}

// Incident returns the state of the incident with the given id.
func (f Frame) Incident(id string) (IncidentState, bool) {
	for _, inc := range f.Incidents {
		if inc.ID == id {
			return inc, true
		}
	}
	return IncidentState{}, false
}

// Fired reports whether the job fired on this tick.
func (f Frame) Fired(jobID string) bool {
	for _, id := range f.FiredJobs {
		if id == jobID {
			return true
		}
	}
	return false
}

// Failures returns the breach-severity conditions of this tick.
func (f Frame) Failures() []Alert {
	var out []Alert
	for _, b := range f.Alerts {
		if b.Severity == SeverityBreach {
			out = append(out, b)
		}
	}
	return out
}

// clone deep-copies a frame so callers can keep it after later ticks.
func (f Frame) clone() Frame {
	out := f
	out.FiredJobs = append([]string(nil), f.FiredJobs...)
	out.Nodes = append([]NodeState(nil), f.Nodes...)
	out.Incidents = append([]IncidentState(nil), f.Incidents...)
	out.Alerts = append([]Alert(nil), f.Alerts...)
	out.Degraded = append([]string(nil), f.Degraded...)
	return out
}

// Observer receives every frame after its tick completes. An error stops
// the run.
type Observer interface {
	ObserveFrame(Frame) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Frame) error

func (fn ObserverFunc) ObserveFrame(f Frame) error {
	return fn(f)
}
