package simulation

import (
	"github.com/dd0wney/infrasim/pkg/level"
)

// occurrence tracks the lifecycle of one incident definition. Only one
// occurrence per definition is ever in flight.
type occurrence struct {
	def         *level.Incident
	targets     map[string]bool
	phase       Phase
	triggeredAt int
	activeSince int
	count       int
}

func newOccurrence(def *level.Incident, lvl *level.Level) *occurrence {
	occ := &occurrence{def: def, targets: make(map[string]bool)}
	for _, imp := range def.Impacts {
		for _, id := range imp.Targets {
			occ.targets[id] = true
		}
		if imp.Flow == "" {
			continue
		}
		if f, ok := lvl.FlowByName(imp.Flow); ok {
			for _, id := range f.Route {
				occ.targets[id] = true
			}
		}
	}
	return occ
}

func (o *occurrence) overlaps(other *occurrence) bool {
	for id := range o.targets {
		if other.targets[id] {
			return true
		}
	}
	return false
}

// trigger starts a new occurrence at tick.
func (o *occurrence) trigger(tick int) {
	o.count++
	o.triggeredAt = tick
	o.activeSince = 0
	if o.def.WarningDelayTicks > 0 {
		o.phase = Warning
		return
	}
	o.phase = Active
	o.activeSince = tick
}

// advance applies the time-based transitions and reports whether the phase
// changed. Triggered at T: Warning for T..T+warn-1, Active for
// T+warn..T+warn+dur-1, Resolved at T+warn+dur.
func (o *occurrence) advance(tick int) bool {
	switch o.phase {
	case Warning:
		if tick >= o.triggeredAt+o.def.WarningDelayTicks {
			o.phase = Active
			o.activeSince = tick
			return true
		}
	case Active:
		if tick >= o.activeSince+o.def.DurationTicks {
			o.phase = Resolved
			return true
		}
	}
	return false
}

// apply adds the occurrence's impacts to the tick's modifiers.
func (o *occurrence) apply(mods *modifiers) {
	for _, imp := range o.def.Impacts {
		if imp.Flow != "" {
			mods.applyFlow(imp.Flow, imp.Effect)
		}
		for _, id := range imp.Targets {
			mods.applyNode(id, imp.Effect)
		}
	}
}

func (o *occurrence) state() IncidentState {
	s := IncidentState{
		ID:          o.def.ID,
		Type:        o.def.Type,
		Phase:       o.phase,
		Occurrences: o.count,
	}
	if o.phase != Dormant {
		s.TriggeredAt = o.triggeredAt
		s.ActiveSince = o.activeSince
	}
	return s
}
