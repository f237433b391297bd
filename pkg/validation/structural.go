package validation

import (
	"strings"

	"github.com/dd0wney/infrasim/pkg/level"
)

// magnitudeFields are the mutually exclusive effect magnitudes.
var magnitudeFields = []string{"amount", "factor", "percent"}

// connectionFields have no meaning on storage nodes.
var connectionFields = []string{"maxConnections", "connections"}

// Structural checks an untyped document (as produced by level.Parse) against
// the level schema and builds the typed Level. It never panics on malformed
// input: every problem is returned as a ValidationError and checking carries
// on, so one run reports everything that needs fixing.
//
// The returned Level is nil only when the document is not an object. When
// errors are present it is partial and must not be simulated.
func Structural(doc any) (*level.Level, []ValidationError) {
	c := NewCollector(ClassStructural)

	fields, ok := doc.(map[string]any)
	if !ok {
		c.Add("", CodeInvalidType, "level document must be an object, got %s", describe(doc))
		return nil, c.Errors()
	}

	s := &structuralPass{
		c:        c,
		lvl:      &level.Level{},
		nodeIDs:  make(map[string]string),
		flowName: make(map[string]string),
	}
	s.run(object{path: "", fields: fields, c: c})
	s.lvl.Reindex()

	return s.lvl, c.Errors()
}

type structuralPass struct {
	c   *Collector
	lvl *level.Level

	// first declaration path per id, used for duplicate reporting and
	// reference resolution
	nodeIDs  map[string]string
	flowName map[string]string

	// every node or flow reference read, kept or not, in document order
	refs []reference
}

type reference struct {
	path string
	id   string
	flow bool
}

func (s *structuralPass) refer(path, id string) {
	if id != "" {
		s.refs = append(s.refs, reference{path: path, id: id})
	}
}

type nodeCandidate struct {
	node  level.Node
	valid bool
}

func (s *structuralPass) run(root object) {
	// 1. top-level shape
	if id, ok := root.requiredString("id"); ok {
		s.lvl.ID = id
	}
	s.lvl.Name = root.optionalString("name")
	s.lvl.Description = root.optionalString("description")

	nodes, _ := root.array("nodes", true)
	edges, _ := root.array("edges", true)
	jobs, _ := root.array("jobs", true)
	incidents, _ := root.array("incidents", true)
	flows, _ := root.array("flows", false)

	// 2. per node
	candidates := make([]nodeCandidate, 0, len(nodes))
	for i, raw := range nodes {
		candidates = append(candidates, s.node(raw, Index("nodes", i)))
	}

	// 3. node id uniqueness, first occurrence wins
	for _, cand := range candidates {
		if !cand.valid {
			continue
		}
		if first, dup := s.nodeIDs[cand.node.ID]; dup {
			s.c.Add(Field(cand.node.Loc, "id"), CodeDuplicate,
				"duplicate node id %q (first declared at %s)", cand.node.ID, first)
			continue
		}
		s.nodeIDs[cand.node.ID] = cand.node.Loc
		s.lvl.Nodes = append(s.lvl.Nodes, cand.node)
	}

	// 4. per edge
	for i, raw := range edges {
		s.edge(raw, Index("edges", i))
	}

	// 5. per flow, job and incident
	for i, raw := range flows {
		s.flow(raw, Index("flows", i))
	}
	jobIDs := make(map[string]string)
	for i, raw := range jobs {
		s.job(raw, Index("jobs", i), jobIDs)
	}
	incidentIDs := make(map[string]string)
	for i, raw := range incidents {
		s.incident(raw, Index("incidents", i), incidentIDs)
	}

	// 6. cross references
	s.resolve()
}

func (s *structuralPass) node(raw any, path string) nodeCandidate {
	o, ok := asObject(raw, path, s.c)
	if !ok {
		return nodeCandidate{}
	}

	n := level.Node{Loc: path}
	id, idOK := o.requiredString("id")
	n.ID = id
	n.Name = o.optionalString("name")

	if kind, ok := o.requiredString("kind"); ok {
		n.Kind = level.ParseKind(kind)
		s.c.When(n.Kind == level.KindUnknown, func(c *Collector) {
			c.OneOf(Field(path, "kind"), "node kind", kind, kindNames())
		})
	}

	if capacity, ok := o.requiredNumber("capacity"); ok {
		n.Capacity = capacity
	}

	if n.Kind == level.KindStorage {
		s.forbidConnections(o)
	}
	if physics, ok := o.child("physics"); ok {
		n.Physics = s.physics(physics, n.Kind)
	}

	return nodeCandidate{node: n, valid: idOK}
}

func (s *structuralPass) physics(o object, kind level.Kind) level.Physics {
	var p level.Physics
	optional := func(name string, dst *float64) {
		if v := o.optionalNumber(name); v != nil {
			*dst = *v
		}
	}

	switch kind {
	case level.KindStorage:
		s.forbidConnections(o)
		p.FullnessThreshold = o.optionalNumber("fullnessThreshold")
		// parsed so the semantic pass can explain why it does not belong here
		p.CriticalThreshold = o.optionalNumber("criticalThreshold")
		optional("baseLatencyMs", &p.BaseLatencyMs)
		optional("saturationPenalty", &p.SaturationPenalty)
		optional("fillRatePerTick", &p.FillRatePerTick)

	case level.KindCompute, level.KindDatabase, level.KindGateway:
		if v, ok := o.requiredNumber("baseLatencyMs"); ok {
			p.BaseLatencyMs = v
		}
		if v, ok := o.requiredNumber("saturationPenalty"); ok {
			p.SaturationPenalty = v
		}
		if v, ok := o.requiredNumber("criticalThreshold"); ok {
			p.CriticalThreshold = &v
		}
		p.MaxConnections = o.optionalNumber("maxConnections")
		p.FullnessThreshold = o.optionalNumber("fullnessThreshold")
		optional("fillRatePerTick", &p.FillRatePerTick)
	}

	return p
}

func (s *structuralPass) forbidConnections(o object) {
	for _, name := range connectionFields {
		if o.has(name) {
			s.c.Add(Field(o.path, name), CodeForbiddenField,
				"storage nodes have no connection concept; remove %s", name)
		}
	}
}

func (s *structuralPass) edge(raw any, path string) {
	o, ok := asObject(raw, path, s.c)
	if !ok {
		return
	}
	source, sourceOK := o.requiredString("source")
	target, targetOK := o.requiredString("target")
	s.refer(Field(path, "source"), source)
	s.refer(Field(path, "target"), target)
	if sourceOK && targetOK {
		s.lvl.Edges = append(s.lvl.Edges, level.Edge{Source: source, Target: target, Loc: path})
	}
}

func (s *structuralPass) flow(raw any, path string) {
	o, ok := asObject(raw, path, s.c)
	if !ok {
		return
	}

	f := level.Flow{Loc: path}
	name, nameOK := o.requiredString("name")
	f.Name = name
	f.Route, _ = o.stringList("path", true)
	for k, id := range f.Route {
		s.refer(Index(Field(path, "path"), k), id)
	}
	if v := o.optionalNumber("requestsPerTick"); v != nil {
		f.RequestsPerTick = *v
	}

	if !nameOK {
		return
	}
	if first, dup := s.flowName[name]; dup {
		s.c.Add(Field(path, "name"), CodeDuplicate, "duplicate flow name %q (first declared at %s)", name, first)
		return
	}
	s.flowName[name] = path
	s.lvl.Flows = append(s.lvl.Flows, f)
}

func (s *structuralPass) job(raw any, path string, seen map[string]string) {
	o, ok := asObject(raw, path, s.c)
	if !ok {
		return
	}

	j := level.Job{Loc: path}
	id, idOK := o.requiredString("id")
	j.ID = id
	j.Name = o.optionalString("name")
	if interval, ok := o.requiredInteger("intervalTicks"); ok {
		j.IntervalTicks = interval
	}
	if target, ok := o.requiredString("target"); ok {
		j.Target = target
		s.refer(Field(path, "target"), target)
	}
	if effect, ok := o.child("effect"); ok {
		j.Effect = s.effect(effect)
	}

	if !idOK {
		return
	}
	if first, dup := seen[id]; dup {
		s.c.Add(Field(path, "id"), CodeDuplicate, "duplicate job id %q (first declared at %s)", id, first)
		return
	}
	seen[id] = path
	s.lvl.Jobs = append(s.lvl.Jobs, j)
}

func (s *structuralPass) incident(raw any, path string, seen map[string]string) {
	o, ok := asObject(raw, path, s.c)
	if !ok {
		return
	}

	inc := level.Incident{Loc: path}
	id, idOK := o.requiredString("id")
	inc.ID = id
	inc.Name = o.optionalString("name")

	if typ, ok := o.requiredString("type"); ok {
		inc.Type = level.ParseIncidentType(typ)
		s.c.When(inc.Type == level.IncidentUnknown, func(c *Collector) {
			c.OneOf(Field(path, "type"), "incident type", typ, incidentTypeNames())
		})
	}
	if p, ok := o.requiredNumber("triggerProbabilityPerTick"); ok {
		inc.TriggerProbabilityPerTick = p
	}
	if warn, ok := o.requiredInteger("warningDelayTicks"); ok {
		inc.WarningDelayTicks = warn
	}
	if dur, ok := o.requiredInteger("durationTicks"); ok {
		inc.DurationTicks = dur
	}
	inc.Impacts = s.impacts(o)

	if !idOK {
		return
	}
	if first, dup := seen[id]; dup {
		s.c.Add(Field(path, "id"), CodeDuplicate, "duplicate incident id %q (first declared at %s)", id, first)
		return
	}
	seen[id] = path
	s.lvl.Incidents = append(s.lvl.Incidents, inc)
}

// impacts accepts either a single impact object or an array of them.
func (s *structuralPass) impacts(o object) []level.Impact {
	path := Field(o.path, "impact")
	raw, ok := o.fields["impact"]
	if !ok {
		s.c.Add(path, CodeRequired, "required field is missing")
		return nil
	}

	switch v := raw.(type) {
	case map[string]any:
		return []level.Impact{s.impact(object{path: path, fields: v, c: s.c})}
	case []any:
		if len(v) == 0 {
			s.c.Add(path, CodeRequired, "incident needs at least one impact")
			return nil
		}
		out := make([]level.Impact, 0, len(v))
		for k, item := range v {
			if io, ok := asObject(item, Index(path, k), s.c); ok {
				out = append(out, s.impact(io))
			}
		}
		return out
	default:
		s.c.Add(path, CodeInvalidType, "expected object or array, got %s", describe(raw))
		return nil
	}
}

func (s *structuralPass) impact(o object) level.Impact {
	imp := level.Impact{Effect: s.effect(o)}
	scoped := false

	if targets, ok := o.stringList("targets", false); ok {
		imp.Targets = targets
		scoped = len(targets) > 0
		for k, id := range targets {
			s.refer(Index(Field(o.path, "targets"), k), id)
		}
	}
	if raw, ok := o.fields["flow"]; ok {
		scoped = true
		name, isString := raw.(string)
		switch {
		case !isString:
			s.c.Add(Field(o.path, "flow"), CodeInvalidType, "expected string, got %s", describe(raw))
		case name == "":
			s.c.Add(Field(o.path, "flow"), CodeRequired, "must be a non-empty string")
		default:
			imp.Flow = name
			s.refs = append(s.refs, reference{path: Field(o.path, "flow"), id: name, flow: true})
		}
	}

	if !scoped {
		s.c.Add(o.path, CodeRequired, "impact must name target nodes, a flow, or both")
	}
	return imp
}

func (s *structuralPass) effect(o object) level.Effect {
	e := level.Effect{Loc: o.path}

	if mode, ok := o.requiredString("mode"); ok {
		e.Mode = level.ParseEffectMode(mode)
		s.c.When(e.Mode == level.ModeUnknown, func(c *Collector) {
			c.OneOf(Field(o.path, "mode"), "effect mode", mode, effectModeNames())
		})
	}
	if metric, ok := o.requiredString("metric"); ok {
		e.Metric = level.ParseMetric(metric)
		s.c.When(e.Metric == level.MetricUnknown, func(c *Collector) {
			c.OneOf(Field(o.path, "metric"), "metric", metric, metricNames())
		})
	}

	e.Amount = o.optionalNumber("amount")
	e.Factor = o.optionalNumber("factor")
	e.Percent = o.optionalNumber("percent")

	var declared []string
	for _, name := range magnitudeFields {
		if o.has(name) {
			declared = append(declared, name)
		}
	}

	switch len(declared) {
	case 0:
		s.c.Add(o.path, CodeRequired, "effect needs exactly one of amount, factor or percent")
	case 1:
		name := declared[0]
		switch {
		case e.Mode == level.ModeInject && name != "amount":
			s.c.Add(Field(o.path, name), CodeConflict, "inject effects take an absolute amount, not %s", name)
		case (e.Mode == level.ModeAmplify || e.Mode == level.ModeDampen) && name == "amount":
			s.c.Add(Field(o.path, name), CodeConflict, "%s effects take a factor or percent, not amount", e.Mode)
		}
	default:
		s.c.Add(o.path, CodeConflict, "effect declares %s; exactly one magnitude is allowed",
			strings.Join(declared, " and "))
	}

	return e
}

// resolve reports every reference to an undeclared node or flow, one error
// per reference. References on items dropped earlier (duplicate or missing
// ids, incomplete edges) are still checked.
func (s *structuralPass) resolve() {
	for _, ref := range s.refs {
		if ref.flow {
			if _, ok := s.flowName[ref.id]; !ok {
				s.c.Add(ref.path, CodeUnresolved, "unresolved reference: flow %q is not declared", ref.id)
			}
			continue
		}
		if _, ok := s.nodeIDs[ref.id]; !ok {
			s.c.Add(ref.path, CodeUnresolved, "unresolved reference: node %q is not declared", ref.id)
		}
	}
}

func kindNames() []string {
	var names []string
	for _, k := range level.Kinds() {
		names = append(names, k.String())
	}
	return names
}

func incidentTypeNames() []string {
	var names []string
	for _, t := range level.IncidentTypes() {
		names = append(names, t.String())
	}
	return names
}

func effectModeNames() []string {
	var names []string
	for _, m := range level.EffectModes() {
		names = append(names, m.String())
	}
	return names
}

func metricNames() []string {
	var names []string
	for _, m := range level.Metrics() {
		names = append(names, m.String())
	}
	return names
}
