package level

import "sort"

// Level is the aggregate root of one level document. It is built by the
// structural validator and treated as immutable once validation succeeds.
type Level struct {
	ID          string     `json:"id"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	Nodes       []Node     `json:"nodes"`
	Edges       []Edge     `json:"edges"`
	Flows       []Flow     `json:"flows,omitempty"`
	Jobs        []Job      `json:"jobs"`
	Incidents   []Incident `json:"incidents"`

	nodeIndex map[string]int
}

// Node is a simulated infrastructure element.
type Node struct {
	ID       string  `json:"id"`
	Name     string  `json:"name,omitempty"`
	Kind     Kind    `json:"kind"`
	Capacity float64 `json:"capacity"`
	Physics  Physics `json:"physics"`

	// Loc is the document path of the node, e.g. "nodes[3]".
	Loc string `json:"-"`
}

// Physics holds the kind-specific behaviour parameters of a node.
// Optional fields are pointers so validation can tell "absent" from zero.
type Physics struct {
	BaseLatencyMs     float64  `json:"baseLatencyMs"`
	SaturationPenalty float64  `json:"saturationPenalty,omitempty"`
	CriticalThreshold *float64 `json:"criticalThreshold,omitempty"`
	FullnessThreshold *float64 `json:"fullnessThreshold,omitempty"`
	MaxConnections    *float64 `json:"maxConnections,omitempty"`
	FillRatePerTick   float64  `json:"fillRatePerTick,omitempty"`
}

// FullnessFraction returns the storage fullness threshold as a fraction of
// capacity. Declared values above 1 are percentages. Without a declaration
// the node is only considered full at 100%.
func (p Physics) FullnessFraction() float64 {
	if p.FullnessThreshold == nil {
		return 1
	}
	v := *p.FullnessThreshold
	if v > 1 {
		return v / 100
	}
	return v
}

// Critical returns the critical-utilization threshold, or 1 when absent.
func (p Physics) Critical() float64 {
	if p.CriticalThreshold == nil {
		return 1
	}
	return *p.CriticalThreshold
}

// Edge is a directed traffic relation from Source to Target.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Loc    string `json:"-"`
}

// Flow is a documented traffic path (search, cart, checkout, ...). Route
// lists node ids from the entry gateway to the leaf.
type Flow struct {
	Name            string   `json:"name"`
	Route           []string `json:"path"`
	RequestsPerTick float64  `json:"requestsPerTick,omitempty"`
	Loc             string   `json:"-"`
}

// Effect is a change applied to one metric.
type Effect struct {
	Mode    EffectMode `json:"mode"`
	Metric  Metric     `json:"metric"`
	Amount  *float64   `json:"amount,omitempty"`
	Factor  *float64   `json:"factor,omitempty"`
	Percent *float64   `json:"percent,omitempty"`
	Loc     string     `json:"-"`
}

// Multiplier returns the multiplicative factor of an amplify or dampen
// effect. Percentages are converted according to the mode. ok is false for
// inject effects and for effects carrying no multiplicative magnitude.
func (e Effect) Multiplier() (factor float64, ok bool) {
	switch e.Mode {
	case ModeAmplify, ModeDampen:
	default:
		return 0, false
	}
	if e.Factor != nil {
		return *e.Factor, true
	}
	if e.Percent != nil {
		if e.Mode == ModeDampen {
			return 1 - *e.Percent/100, true
		}
		return 1 + *e.Percent/100, true
	}
	return 0, false
}

// Addend returns the absolute volume of an inject effect.
func (e Effect) Addend() (amount float64, ok bool) {
	if e.Mode != ModeInject || e.Amount == nil {
		return 0, false
	}
	return *e.Amount, true
}

// Job is a recurring scheduled action.
type Job struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	IntervalTicks int    `json:"intervalTicks"`
	Target        string `json:"target"`
	Effect        Effect `json:"effect"`
	Loc           string `json:"-"`
}

// FiresAt reports whether the job fires on the given tick.
func (j Job) FiresAt(tick int) bool {
	return j.IntervalTicks > 0 && tick > 0 && tick%j.IntervalTicks == 0
}

// Impact is an incident effect scoped to target nodes, a flow, or both.
type Impact struct {
	Effect
	Targets []string `json:"targets,omitempty"`
	Flow    string   `json:"flow,omitempty"`
}

// Incident is a probabilistic, time-bounded perturbation.
type Incident struct {
	ID                        string       `json:"id"`
	Name                      string       `json:"name,omitempty"`
	Type                      IncidentType `json:"type"`
	TriggerProbabilityPerTick float64      `json:"triggerProbabilityPerTick"`
	WarningDelayTicks         int          `json:"warningDelayTicks"`
	DurationTicks             int          `json:"durationTicks"`
	Impacts                   []Impact     `json:"impact"`
	Loc                       string       `json:"-"`
}

// Lifecycle is the number of ticks an occurrence spends between trigger and
// resolution.
func (i Incident) Lifecycle() int {
	return i.WarningDelayTicks + i.DurationTicks
}

// Reindex rebuilds the node id lookup. The structural validator calls it;
// code that assembles a Level by hand should call it before sharing it.
func (l *Level) Reindex() {
	l.nodeIndex = make(map[string]int, len(l.Nodes))
	for i, n := range l.Nodes {
		if _, dup := l.nodeIndex[n.ID]; !dup {
			l.nodeIndex[n.ID] = i
		}
	}
}

// NodeByID returns the node with the given id.
func (l *Level) NodeByID(id string) (*Node, bool) {
	if l.nodeIndex != nil {
		i, ok := l.nodeIndex[id]
		if !ok {
			return nil, false
		}
		return &l.Nodes[i], true
	}
	for i := range l.Nodes {
		if l.Nodes[i].ID == id {
			return &l.Nodes[i], true
		}
	}
	return nil, false
}

// FlowByName returns the flow with the given name.
func (l *Level) FlowByName(name string) (*Flow, bool) {
	for i := range l.Flows {
		if l.Flows[i].Name == name {
			return &l.Flows[i], true
		}
	}
	return nil, false
}

// Gateways returns the ids of all gateway-kind nodes in declaration order.
func (l *Level) Gateways() []string {
	var ids []string
	for _, n := range l.Nodes {
		if n.Kind == KindGateway {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// NodeIDs returns every node id in declaration order.
func (l *Level) NodeIDs() []string {
	ids := make([]string, len(l.Nodes))
	for i, n := range l.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// Successors returns the sorted, de-duplicated targets of edges leaving id.
func (l *Level) Successors(id string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range l.Edges {
		if e.Source == id && !seen[e.Target] {
			seen[e.Target] = true
			out = append(out, e.Target)
		}
	}
	sort.Strings(out)
	return out
}

// HasEdge reports whether a directed edge source->target is declared.
func (l *Level) HasEdge(source, target string) bool {
	for _, e := range l.Edges {
		if e.Source == source && e.Target == target {
			return true
		}
	}
	return false
}
