package validation

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// corruptions are small edits that break a level in different ways. The
// property tests pick a random subset and apply them with random values.
var corruptions = []func(doc map[string]any, v any){
	func(d map[string]any, v any) { at(d, "nodes", 0)["capacity"] = v },
	func(d map[string]any, v any) { at(d, "nodes", 1)["kind"] = v },
	func(d map[string]any, v any) { at(d, "nodes", 3, "physics")["criticalThreshold"] = v },
	func(d map[string]any, v any) { at(d, "edges", 1)["target"] = v },
	func(d map[string]any, v any) { at(d, "jobs", 0)["intervalTicks"] = v },
	func(d map[string]any, v any) { at(d, "jobs", 0, "effect")["amount"] = v },
	func(d map[string]any, v any) { at(d, "incidents", 0)["triggerProbabilityPerTick"] = v },
	func(d map[string]any, v any) { at(d, "incidents", 0, "impact")["factor"] = v },
	func(d map[string]any, v any) { at(d, "flows", 0)["path"] = []any{v, "db"} },
}

// dropKey removes a top-level collection. It runs after the corruptions,
// which expect the collections to exist.
func dropKey(d map[string]any, v any) { delete(d, fmt.Sprint(v)) }

// genValue produces the kinds of values a hand-edited document contains.
func genValue() gopter.Gen {
	return gen.OneGenOf(
		gen.Float64Range(-10, 10).Map(func(f float64) any { return f }),
		gen.IntRange(-100, 20000).Map(func(i int) any { return float64(i) }),
		gen.OneConstOf("", "api", "ghost", "storage", "nodes", "edges", "jobs").Map(func(s string) any { return s }),
		gen.Bool().Map(func(b bool) any { return b }),
	)
}

func TestValidatorProperties(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	v := Default()

	// Property 1: validating the same document twice yields identical errors
	properties.Property("validation is idempotent", prop.ForAll(
		func(picks []int, values []any, drop bool) bool {
			doc := tinyDoc(t)
			for i, pick := range picks {
				corruptions[pick](doc, values[i%len(values)])
			}
			if drop {
				dropKey(doc, values[0])
			}

			first, err := v.Validate(doc)
			if err != nil {
				return false
			}
			second, err := v.Validate(doc)
			if err != nil {
				return false
			}
			return reflect.DeepEqual(first.Errors, second.Errors) && first.Valid == second.Valid
		},
		gen.SliceOfN(3, gen.IntRange(0, len(corruptions)-1)),
		gen.SliceOfN(3, genValue()),
		gen.Bool(),
	))

	// Property 2: any probability in (0, 1] is accepted
	properties.Property("probabilities in (0, 1] pass", prop.ForAll(
		func(p float64) bool {
			doc := tinyDoc(t)
			at(doc, "incidents", 0)["triggerProbabilityPerTick"] = p
			res, err := v.Validate(doc)
			return err == nil && res.Valid
		},
		gen.Float64Range(1e-12, 1),
	))

	// Property 3: probabilities outside (0, 1] are rejected semantically
	properties.Property("probabilities outside (0, 1] fail", prop.ForAll(
		func(p float64) bool {
			doc := tinyDoc(t)
			at(doc, "incidents", 0)["triggerProbabilityPerTick"] = p
			res, _ := v.Validate(doc)
			path := "incidents[0].triggerProbabilityPerTick"
			return !res.Valid && (hasError(res.Errors, path, CodeOutOfRange) || hasError(res.Errors, path, CodeNeverFires))
		},
		gen.OneGenOf(gen.Float64Range(-5, 0), gen.Float64Range(1.000001, 5)),
	))

	// Property 4: reusing any node id is reported at the reusing node
	properties.Property("duplicate node ids are reported at the second path", prop.ForAll(
		func(victim int) bool {
			doc := tinyDoc(t)
			id := at(doc, "nodes", victim)["id"]
			appendTo(doc, "nodes", map[string]any{
				"id": id, "kind": "storage", "capacity": 1.0, "physics": map[string]any{},
			})
			res, _ := v.Validate(doc)
			return hasError(res.Errors, "nodes[4].id", CodeDuplicate)
		},
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}
