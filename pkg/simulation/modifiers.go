package simulation

import (
	"github.com/dd0wney/infrasim/pkg/level"
)

type metricKey struct {
	node   string
	metric level.Metric
}

// modifiers accumulates the effects in force for one tick. Multipliers on
// the same metric compound; additive deltas sum.
type modifiers struct {
	add     map[metricKey]float64
	mul     map[metricKey]float64
	flowAdd map[string]float64
	flowMul map[string]float64
}

func newModifiers() *modifiers {
	return &modifiers{
		add:     make(map[metricKey]float64),
		mul:     make(map[metricKey]float64),
		flowAdd: make(map[string]float64),
		flowMul: make(map[string]float64),
	}
}

// applyNode records an effect against one node metric.
func (m *modifiers) applyNode(node string, e level.Effect) {
	k := metricKey{node, e.Metric}
	if amount, ok := e.Addend(); ok {
		m.add[k] += amount
		return
	}
	if factor, ok := e.Multiplier(); ok {
		if prev, seen := m.mul[k]; seen {
			factor *= prev
		}
		m.mul[k] = factor
	}
}

// applyFlow records an effect against a flow's request volume.
func (m *modifiers) applyFlow(flow string, e level.Effect) {
	if amount, ok := e.Addend(); ok {
		m.flowAdd[flow] += amount
		return
	}
	if factor, ok := e.Multiplier(); ok {
		if prev, seen := m.flowMul[flow]; seen {
			factor *= prev
		}
		m.flowMul[flow] = factor
	}
}

func (m *modifiers) factor(node string, metric level.Metric) float64 {
	if f, ok := m.mul[metricKey{node, metric}]; ok {
		return f
	}
	return 1
}

func (m *modifiers) delta(node string, metric level.Metric) float64 {
	return m.add[metricKey{node, metric}]
}

// adjust applies the node's delta then factor for a metric to v.
func (m *modifiers) adjust(node string, metric level.Metric, v float64) float64 {
	return (v + m.delta(node, metric)) * m.factor(node, metric)
}

// loadDelta sums the additive volume over all load metrics.
func (m *modifiers) loadDelta(node string) float64 {
	var sum float64
	for _, metric := range loadMetrics {
		sum += m.delta(node, metric)
	}
	return sum
}

// loadFactor compounds the multipliers over all load metrics.
func (m *modifiers) loadFactor(node string) float64 {
	f := 1.0
	for _, metric := range loadMetrics {
		f *= m.factor(node, metric)
	}
	return f
}

func (m *modifiers) flowRate(f level.Flow) float64 {
	rate := f.RequestsPerTick + m.flowAdd[f.Name]
	if factor, ok := m.flowMul[f.Name]; ok {
		rate *= factor
	}
	return rate
}

var loadMetrics = []level.Metric{level.MetricRequests, level.MetricQueries, level.MetricConnections}
