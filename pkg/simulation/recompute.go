package simulation

import (
	"math"

	"github.com/dd0wney/infrasim/pkg/algorithms"
	"github.com/dd0wney/infrasim/pkg/level"
)

// accumulate grows every storage stock by its fill rate and the storage
// effects in force this tick. Caller holds e.mu.
func (e *Engine) accumulate(mods *modifiers) {
	for _, n := range e.lvl.Nodes {
		if n.Kind != level.KindStorage {
			continue
		}
		usage := e.usage[n.ID] + n.Physics.FillRatePerTick
		usage = mods.adjust(n.ID, level.MetricStorageUsage, usage)
		e.usage[n.ID] = math.Max(0, usage)
	}
}

// frame derives every node's metrics from the current state and the tick's
// modifiers, raises alerts and marks upstream nodes of failures as
// degraded. It does not mutate engine state.
func (e *Engine) frame(tick int, fired []string, mods *modifiers) Frame {
	flowLoad := make(map[string]float64)
	for _, flow := range e.lvl.Flows {
		rate := mods.flowRate(flow)
		seen := make(map[string]bool, len(flow.Route))
		for _, id := range flow.Route {
			if !seen[id] {
				seen[id] = true
				flowLoad[id] += rate
			}
		}
	}

	f := Frame{Tick: tick, FiredJobs: fired}
	var failed []string
	for i := range e.lvl.Nodes {
		n := &e.lvl.Nodes[i]
		state, alerts := e.nodeState(n, flowLoad[n.ID], mods)
		f.Nodes = append(f.Nodes, state)
		f.Alerts = append(f.Alerts, alerts...)
		if state.Status == StatusBreached {
			failed = append(failed, n.ID)
		}
	}

	if len(failed) > 0 {
		f.Degraded = algorithms.Dependents(e.incoming, failed...)
		degraded := make(map[string]bool, len(f.Degraded))
		for _, id := range f.Degraded {
			degraded[id] = true
		}
		for i := range f.Nodes {
			if degraded[f.Nodes[i].ID] && f.Nodes[i].Status < StatusDegraded {
				f.Nodes[i].Status = StatusDegraded
			}
		}
	}

	for _, occ := range e.incidents {
		f.Incidents = append(f.Incidents, occ.state())
	}
	return f
}

func (e *Engine) nodeState(n *level.Node, flowLoad float64, mods *modifiers) (NodeState, []Alert) {
	p := n.Physics
	capacity := mods.adjust(n.ID, level.MetricCapacity, n.Capacity)
	state := NodeState{ID: n.ID, Kind: n.Kind, Capacity: capacity}

	var alerts []Alert
	alert := func(kind AlertKind, value float64) {
		alerts = append(alerts, Alert{NodeID: n.ID, Kind: kind, Severity: kind.Severity(), Value: value})
	}

	if n.Kind == level.KindStorage {
		usage := e.usage[n.ID]
		state.StorageUsage = usage
		state.Utilization = ratio(usage, capacity)
		state.LatencyMs = p.BaseLatencyMs

		// storage has no connection concept: fullness is its only failure mode
		switch {
		case usage >= capacity:
			alert(Full, state.Utilization)
		case p.FullnessThreshold != nil && usage >= p.FullnessFraction()*capacity:
			alert(NearFull, state.Utilization)
		}
		state.Status = statusOf(alerts)
		return state, alerts
	}

	load := (flowLoad + mods.loadDelta(n.ID)) * mods.loadFactor(n.ID)
	utilization := mods.adjust(n.ID, level.MetricUtilization, ratio(load, capacity))
	critical := p.Critical()

	base := p.BaseLatencyMs
	latency := base * (1 + utilization)
	if n.Kind == level.KindDatabase {
		// discontinuous jump once past the critical threshold
		if utilization > critical {
			latency *= p.SaturationPenalty
		}
	} else {
		latency += base * p.SaturationPenalty * math.Max(0, utilization-critical)
	}

	state.Load = load
	state.Utilization = utilization
	state.LatencyMs = mods.adjust(n.ID, level.MetricLatency, latency)

	switch {
	case utilization >= 1:
		alert(Saturated, utilization)
	case utilization > critical:
		alert(Critical, utilization)
	}
	state.Status = statusOf(alerts)
	return state, alerts
}

// ratio divides, treating a non-positive capacity as fully saturated when
// anything is asking for it.
func ratio(amount, capacity float64) float64 {
	if capacity > 0 {
		return amount / capacity
	}
	if amount > 0 {
		return 1
	}
	return 0
}

func statusOf(alerts []Alert) Status {
	status := StatusOK
	for _, b := range alerts {
		if b.Severity == SeverityBreach {
			return StatusBreached
		}
		status = StatusWarning
	}
	return status
}
