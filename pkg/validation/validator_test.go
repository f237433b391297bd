package validation

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dd0wney/infrasim/pkg/level"
)

func TestValidator_NilDocument(t *testing.T) {
	res, err := Default().Validate(nil)
	if !errors.Is(err, ErrNilDocument) {
		t.Errorf("Validate(nil) error = %v, want ErrNilDocument", err)
	}
	if res != nil {
		t.Errorf("Validate(nil) result = %+v, want nil", res)
	}
}

func TestValidator_SemanticOnlyAfterStructural(t *testing.T) {
	doc := tinyDoc(t)
	at(doc, "nodes", 1)["capacity"] = "many"                 // structural
	at(doc, "incidents", 0)["triggerProbabilityPerTick"] = 0.0 // semantic

	res, err := Default().Validate(doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(res.Errors) != 1 || res.Errors[0].Class != ClassStructural {
		t.Errorf("expected only the structural error:%s", dump(res.Errors))
	}
}

func TestValidator_ValidResultCarriesLevel(t *testing.T) {
	res, err := Default().Validate(tinyDoc(t))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !res.Valid || res.Level == nil || res.Err() != nil {
		t.Fatalf("expected a valid result:%s", dump(res.Errors))
	}
	if res.Errors == nil {
		t.Error("Errors should be an empty list, not nil")
	}
}

func TestValidateBytes_ParseError(t *testing.T) {
	tests := []struct {
		name string
		file string
		data []byte
	}{
		{"bad encoding", "a.json", []byte{0xff, 0xfe}},
		{"truncated json", "a.json", []byte(`{"id": "x", "nodes": [`)},
		{"broken yaml", "a.yaml", []byte("id: [\n")},
		{"empty", "a.yml", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Default().ValidateBytes(tt.file, tt.data)
			if res.Valid {
				t.Fatal("expected failure")
			}
			if len(res.Errors) != 1 {
				t.Fatalf("parse failures are a single error:%s", dump(res.Errors))
			}
			if e := res.Errors[0]; e.Class != ClassParse || e.Code != CodeParse || e.Path != "" {
				t.Errorf("unexpected parse error %+v", e)
			}
		})
	}
}

func TestValidateBytes_YAMLAndJSONAgree(t *testing.T) {
	yamlDoc := `
id: tiny
nodes:
  - id: gw
    kind: gateway
    capacity: 10
    physics: {baseLatencyMs: 1, saturationPenalty: 2, criticalThreshold: 0.5}
edges: []
jobs: []
incidents:
  - id: probe
    type: network
    triggerProbabilityPerTick: 0
    warningDelayTicks: 0
    durationTicks: 1
    impact: {mode: amplify, metric: latency, percent: 10, targets: [gw]}
`
	fromYAML := Default().ValidateBytes("tiny.yaml", []byte(yamlDoc))
	jsonBytes, _ := json.Marshal(map[string]any{
		"id": "tiny",
		"nodes": []any{map[string]any{
			"id": "gw", "kind": "gateway", "capacity": 10,
			"physics": map[string]any{"baseLatencyMs": 1, "saturationPenalty": 2, "criticalThreshold": 0.5},
		}},
		"edges": []any{},
		"jobs":  []any{},
		"incidents": []any{map[string]any{
			"id": "probe", "type": "network", "triggerProbabilityPerTick": 0,
			"warningDelayTicks": 0, "durationTicks": 1,
			"impact": map[string]any{"mode": "amplify", "metric": "latency", "percent": 10, "targets": []any{"gw"}},
		}},
	})
	fromJSON := Default().ValidateBytes("tiny.json", jsonBytes)

	if len(fromYAML.Errors) != 1 || len(fromJSON.Errors) != 1 {
		t.Fatalf("yaml:%s\njson:%s", dump(fromYAML.Errors), dump(fromJSON.Errors))
	}
	if fromYAML.Errors[0] != fromJSON.Errors[0] {
		t.Errorf("yaml %+v != json %+v", fromYAML.Errors[0], fromJSON.Errors[0])
	}
}

func TestExampleLevelsAreValid(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "levels", "*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Skip("no example levels found")
	}

	v := Default()
	for _, file := range files {
		if !level.IsDocumentName(file) {
			continue
		}
		t.Run(filepath.Base(file), func(t *testing.T) {
			data, err := os.ReadFile(file)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			res := v.ValidateBytes(file, data)
			if !res.Valid {
				t.Errorf("%s is not valid:%s", file, dump(res.Errors))
			}
		})
	}
}

func TestNewValidator_Limits(t *testing.T) {
	tests := []struct {
		name      string
		limits    Limits
		expectErr string
	}{
		{"defaults", DefaultLimits(), ""},
		{"zero lifecycle", Limits{MaxLifecycleTicks: 0, HorizonTicks: 10}, "MaxLifecycleTicks"},
		{"horizon shorter than lifecycle", Limits{MaxLifecycleTicks: 100, HorizonTicks: 50}, "HorizonTicks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewValidator(tt.limits)
			if tt.expectErr == "" {
				if err != nil || v == nil {
					t.Fatalf("NewValidator: %v", err)
				}
				if v.Limits() != tt.limits {
					t.Errorf("Limits() = %+v, want %+v", v.Limits(), tt.limits)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.expectErr) {
				t.Errorf("NewValidator error = %v, want mention of %s", err, tt.expectErr)
			}
		})
	}
}

func TestResult_Err(t *testing.T) {
	res := &Result{Errors: []ValidationError{
		{Path: "nodes[0].id", Message: "must be a non-empty string", Class: ClassStructural, Code: CodeRequired},
		{Path: "edges", Message: "required field is missing", Class: ClassStructural, Code: CodeRequired},
	}}

	err := res.Err()
	if err == nil || !strings.Contains(err.Error(), "2 errors") {
		t.Fatalf("Err() = %v", err)
	}
	var first ValidationError
	if !errors.As(err, &first) || first.Path != "nodes[0].id" {
		t.Errorf("Err() does not wrap the first error: %v", err)
	}
}

func TestValidationError_JSON(t *testing.T) {
	data, err := json.Marshal(ValidationError{Path: "jobs[0]", Message: "m", Class: ClassSemantic, Code: CodeNeverFires})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"path":"jobs[0]","message":"m","class":"semantic","code":"never_fires"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
