package validation

import (
	"slices"
	"strings"

	"github.com/dd0wney/infrasim/pkg/algorithms"
	"github.com/dd0wney/infrasim/pkg/level"
)

// Semantic applies the domain rules to a level that passed structural
// validation: numeric ranges, effect direction, kind-appropriate metrics and
// realizable traffic flows. It is pure; the same level always yields the same
// errors in the same order.
//
// A nil level is a caller bug, not an empty level, and panics with
// ErrNilLevel.
func Semantic(lvl *level.Level, limits Limits) []ValidationError {
	if lvl == nil {
		panic(ErrNilLevel)
	}
	c := NewCollector(ClassSemantic)

	for i := range lvl.Nodes {
		checkNode(c, &lvl.Nodes[i])
	}
	checkEdges(c, lvl)
	for i := range lvl.Flows {
		checkFlow(c, lvl, &lvl.Flows[i])
	}
	for i := range lvl.Jobs {
		checkJob(c, lvl, &lvl.Jobs[i], limits)
	}
	for i := range lvl.Incidents {
		checkIncident(c, lvl, &lvl.Incidents[i], limits)
	}

	return c.Errors()
}

func checkNode(c *Collector, n *level.Node) {
	physics := Field(n.Loc, "physics")
	p := n.Physics

	c.Positive(Field(n.Loc, "capacity"), n.Capacity)
	c.NonNegative(Field(physics, "baseLatencyMs"), p.BaseLatencyMs)
	c.NonNegative(Field(physics, "fillRatePerTick"), p.FillRatePerTick)

	if n.Kind == level.KindStorage {
		if p.CriticalThreshold != nil {
			c.Add(Field(physics, "criticalThreshold"), CodeKindMismatch,
				"storage nodes have no connection utilization; declare fullnessThreshold instead")
		}
		if p.FullnessThreshold != nil {
			c.OpenClosed(Field(physics, "fullnessThreshold"), *p.FullnessThreshold, 0, 100)
		}
		return
	}

	c.AtLeast(Field(physics, "saturationPenalty"), p.SaturationPenalty, 1)
	if p.CriticalThreshold != nil {
		c.OpenClosed(Field(physics, "criticalThreshold"), *p.CriticalThreshold, 0, 1)
	}
	if p.MaxConnections != nil {
		c.Positive(Field(physics, "maxConnections"), *p.MaxConnections)
	}
	if p.FullnessThreshold != nil {
		c.Add(Field(physics, "fullnessThreshold"), CodeKindMismatch,
			"fullnessThreshold only applies to storage nodes, not %s", n.Kind)
	}
}

func checkEdges(c *Collector, lvl *level.Level) {
	type pair struct{ source, target string }
	first := make(map[pair]string, len(lvl.Edges))

	for _, e := range lvl.Edges {
		if e.Source == e.Target {
			c.Add(e.Loc, CodeSelfLoop, "edge from %q to itself", e.Source)
			continue
		}
		key := pair{e.Source, e.Target}
		if prev, dup := first[key]; dup {
			c.Add(e.Loc, CodeDuplicate, "duplicate edge %s -> %s (first declared at %s)", e.Source, e.Target, prev)
			continue
		}
		first[key] = e.Loc
	}
}

func checkFlow(c *Collector, lvl *level.Level, f *level.Flow) {
	path := Field(f.Loc, "path")
	c.NonNegative(Field(f.Loc, "requestsPerTick"), f.RequestsPerTick)

	if len(f.Route) == 0 {
		c.Add(path, CodeRequired, "flow %q must list at least one node", f.Name)
		return
	}

	if entry, ok := lvl.NodeByID(f.Route[0]); ok && entry.Kind != level.KindGateway {
		c.Add(Index(path, 0), CodeKindMismatch,
			"flow %q must start at a gateway node, %q is %s", f.Name, entry.ID, entry.Kind)
	}

	broken := false
	for k := 1; k < len(f.Route); k++ {
		from, to := f.Route[k-1], f.Route[k]
		if lvl.HasEdge(from, to) {
			continue
		}
		broken = true
		if detour := algorithms.ShortestRoute(lvl, from, to); detour != nil {
			c.Add(Index(path, k), CodeBrokenChain, "flow %q has no edge from %q to %q; the topology routes it as %s",
				f.Name, from, to, strings.Join(detour, " -> "))
			continue
		}
		c.Add(Index(path, k), CodeBrokenChain, "flow %q has no edge from %q to %q", f.Name, from, to)
	}
	if !broken {
		return
	}

	leaf := f.Route[len(f.Route)-1]
	orphans := algorithms.Unreachable(lvl, lvl.Gateways()...)
	if slices.Contains(orphans, leaf) {
		c.Add(path, CodeUnreachable, "node %q at the end of flow %q is unreachable from every gateway (cut off: %s)",
			leaf, f.Name, strings.Join(orphans, ", "))
	}
}

func checkJob(c *Collector, lvl *level.Level, j *level.Job, limits Limits) {
	c.When(j.IntervalTicks <= 0, func(c *Collector) {
		c.Add(Field(j.Loc, "intervalTicks"), CodeOutOfRange, "value %d must be positive", j.IntervalTicks)
	}).When(j.IntervalTicks > limits.HorizonTicks, func(c *Collector) {
		c.Add(Field(j.Loc, "intervalTicks"), CodeOutOfRange,
			"interval %d exceeds the simulation horizon of %d ticks; the job would never fire", j.IntervalTicks, limits.HorizonTicks)
	})

	checkMagnitude(c, j.Effect)

	target, ok := lvl.NodeByID(j.Target)
	if !ok {
		return
	}
	checkMetric(c, j.Effect, target)

	if amount, ok := j.Effect.Addend(); ok && j.Effect.Metric == level.MetricStorageUsage && amount > target.Capacity {
		c.Add(Field(j.Effect.Loc, "amount"), CodeOutOfRange,
			"job adds %s per firing but %q only holds %s", formatNumber(amount), target.ID, formatNumber(target.Capacity))
	}
}

func checkIncident(c *Collector, lvl *level.Level, inc *level.Incident, limits Limits) {
	probability := Field(inc.Loc, "triggerProbabilityPerTick")
	switch p := inc.TriggerProbabilityPerTick; {
	case p == 0:
		c.Add(probability, CodeNeverFires, "probability 0 never fires, remove or fix the incident")
	case p < 0 || p > 1:
		c.Add(probability, CodeOutOfRange, "value %s is outside range (0, 1]", formatNumber(p))
	}

	c.When(inc.WarningDelayTicks < 0, func(c *Collector) {
		c.Add(Field(inc.Loc, "warningDelayTicks"), CodeOutOfRange, "value %d must be non-negative", inc.WarningDelayTicks)
	})
	c.When(inc.DurationTicks <= 0, func(c *Collector) {
		c.Add(Field(inc.Loc, "durationTicks"), CodeOutOfRange, "value %d must be positive", inc.DurationTicks)
	})
	if life := inc.Lifecycle(); life > limits.MaxLifecycleTicks {
		c.Add(inc.Loc, CodeOutOfRange,
			"warningDelayTicks + durationTicks = %d exceeds the lifecycle limit of %d ticks", life, limits.MaxLifecycleTicks)
	}

	for _, imp := range inc.Impacts {
		checkMagnitude(c, imp.Effect)
		for _, id := range imp.Targets {
			if target, ok := lvl.NodeByID(id); ok {
				checkMetric(c, imp.Effect, target)
			}
		}
		if imp.Flow != "" && imp.Metric != level.MetricRequests {
			c.Add(Field(imp.Loc, "metric"), CodeMetricNotSupported,
				"flow-scoped impacts only change requests, not %s", imp.Metric)
		}
	}
}

// checkMagnitude rejects magnitudes on the wrong side of 1.0 for the mode.
func checkMagnitude(c *Collector, e level.Effect) {
	switch e.Mode {
	case level.ModeInject:
		if e.Amount != nil && *e.Amount <= 0 {
			c.Add(Field(e.Loc, "amount"), CodeWrongDirection, "inject amount %s must be positive", formatNumber(*e.Amount))
		}
	case level.ModeAmplify:
		if e.Factor != nil && *e.Factor <= 1 {
			c.Add(Field(e.Loc, "factor"), CodeWrongDirection,
				"amplify factor %s must be greater than 1; use dampen to reduce", formatNumber(*e.Factor))
		}
		if e.Percent != nil {
			c.OpenClosed(Field(e.Loc, "percent"), *e.Percent, 0, 100)
		}
	case level.ModeDampen:
		if e.Factor != nil && (*e.Factor <= 0 || *e.Factor > 1) {
			c.Add(Field(e.Loc, "factor"), CodeWrongDirection,
				"dampen factor %s must lie in (0, 1]; use amplify to increase", formatNumber(*e.Factor))
		}
		if e.Percent != nil && (*e.Percent < 0 || *e.Percent >= 100) {
			c.Add(Field(e.Loc, "percent"), CodeWrongDirection,
				"dampen percent %s must lie in [0, 100)", formatNumber(*e.Percent))
		}
	}
}

func checkMetric(c *Collector, e level.Effect, target *level.Node) {
	if e.Metric == level.MetricUnknown || target.Kind.Supports(e.Metric) {
		return
	}
	c.Add(Field(e.Loc, "metric"), CodeMetricNotSupported,
		"metric %s is not valid for %s node %q", e.Metric, target.Kind, target.ID)
}
