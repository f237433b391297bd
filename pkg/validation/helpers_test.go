package validation

import (
	"strings"
	"testing"

	"github.com/dd0wney/infrasim/pkg/level"
)

// tinyLevel is the smallest document exercising every collection. Node order:
// 0 gw (gateway), 1 api (compute), 2 db (database), 3 disk (storage).
const tinyLevel = `{
  "id": "tiny",
  "nodes": [
    {"id": "gw", "kind": "gateway", "capacity": 1000,
     "physics": {"baseLatencyMs": 1, "saturationPenalty": 2, "criticalThreshold": 0.9}},
    {"id": "api", "kind": "compute", "capacity": 100,
     "physics": {"baseLatencyMs": 10, "saturationPenalty": 3, "criticalThreshold": 0.8, "maxConnections": 200}},
    {"id": "db", "kind": "database", "capacity": 200,
     "physics": {"baseLatencyMs": 5, "saturationPenalty": 10, "criticalThreshold": 0.75}},
    {"id": "disk", "kind": "storage", "capacity": 2000,
     "physics": {"fullnessThreshold": 90, "fillRatePerTick": 1}}
  ],
  "edges": [
    {"source": "gw", "target": "api"},
    {"source": "api", "target": "db"},
    {"source": "api", "target": "disk"}
  ],
  "flows": [
    {"name": "browse", "path": ["gw", "api", "db"], "requestsPerTick": 50}
  ],
  "jobs": [
    {"id": "sync", "intervalTicks": 60, "target": "db",
     "effect": {"mode": "inject", "metric": "queries", "amount": 100}}
  ],
  "incidents": [
    {"id": "spike", "type": "traffic", "triggerProbabilityPerTick": 0.01,
     "warningDelayTicks": 2, "durationTicks": 5,
     "impact": {"mode": "amplify", "metric": "requests", "factor": 10, "flow": "browse"}}
  ]
}`

// tinyDoc parses tinyLevel into a fresh untyped document.
func tinyDoc(t testing.TB) map[string]any {
	t.Helper()
	res := level.Parse([]byte(tinyLevel), level.FormatJSON)
	if !res.OK() {
		t.Fatalf("tinyLevel does not parse: %v", res.Err)
	}
	return res.Document.(map[string]any)
}

// at walks a document by keys and indexes, e.g. at(doc, "nodes", 1, "physics").
func at(doc any, steps ...any) map[string]any {
	cur := doc
	for _, s := range steps {
		switch k := s.(type) {
		case string:
			cur = cur.(map[string]any)[k]
		case int:
			cur = cur.([]any)[k]
		}
	}
	return cur.(map[string]any)
}

func appendTo(doc map[string]any, collection string, item any) {
	doc[collection] = append(doc[collection].([]any), item)
}

// hasError reports whether errs contains an error at path with the code.
func hasError(errs []ValidationError, path string, code Code) bool {
	for _, e := range errs {
		if e.Path == path && e.Code == code {
			return true
		}
	}
	return false
}

func dump(errs []ValidationError) string {
	var b strings.Builder
	for _, e := range errs {
		b.WriteString("\n  ")
		b.WriteString(e.Class.String())
		b.WriteString(" ")
		b.WriteString(e.Code.String())
		b.WriteString(" ")
		b.WriteString(e.Error())
	}
	return b.String()
}
