package validation

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/dd0wney/infrasim/pkg/level"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{nil, "null"},
		{"x", "string"},
		{true, "boolean"},
		{map[string]any{}, "object"},
		{[]any{}, "array"},
		{3.5, "number"},
		{7, "number"},
		{json.Number("12"), "number"},
		{math.Inf(1), "non-finite number"},
		{math.NaN(), "non-finite number"},
		{json.Number("1e999"), "non-finite number"},
		{time.Date(2024, 11, 29, 0, 0, 0, 0, time.UTC), "timestamp"},
		{struct{}{}, "unsupported value"},
	}

	for _, tt := range tests {
		if got := describe(tt.value); got != tt.want {
			t.Errorf("describe(%#v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestStructural_NonFiniteCapacity(t *testing.T) {
	doc := `
id: inf
nodes:
  - id: gw
    kind: gateway
    capacity: .inf
    physics: {baseLatencyMs: 1, saturationPenalty: 2, criticalThreshold: 0.9}
edges: []
jobs: []
incidents: []
`
	res := level.Parse([]byte(doc), level.FormatYAML)
	if !res.OK() {
		t.Fatalf("parse: %v", res.Err)
	}

	_, errs := Structural(res.Document)
	if len(errs) != 1 || errs[0].Path != "nodes[0].capacity" {
		t.Fatalf("unexpected errors:%s", dump(errs))
	}
	if !strings.Contains(errs[0].Message, "non-finite number") {
		t.Errorf("message = %q", errs[0].Message)
	}
}
