package validation

import (
	"encoding/json"
	"math"
	"time"
)

// maxExactInt is the largest integer a float64 holds without rounding.
const maxExactInt = 1 << 53

// describe names the document type of a value for "expected X, got Y" messages.
func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case time.Time:
		return "timestamp"
	case json.Number, float64, float32, int, int64, int32, uint64, uint32, uint:
		if _, ok := toNumber(v); ok {
			return "number"
		}
		return "non-finite number"
	default:
		return "unsupported value"
	}
}

// toNumber converts any numeric representation produced by the JSON or YAML
// decoders to float64. Booleans, NaN and infinities are not numbers here.
func toNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toInteger accepts numbers with no fractional part.
func toInteger(v any) (int, bool) {
	f, ok := toNumber(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) > maxExactInt {
		return 0, false
	}
	return int(f), true
}

// object wraps one document map together with its path so field lookups can
// report errors at the right location.
type object struct {
	path   string
	fields map[string]any
	c      *Collector
}

func (o object) has(name string) bool {
	_, ok := o.fields[name]
	return ok
}

// requiredString reads a non-empty string field.
func (o object) requiredString(name string) (string, bool) {
	path := Field(o.path, name)
	raw, ok := o.fields[name]
	if !ok {
		o.c.Add(path, CodeRequired, "required field is missing")
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		o.c.Add(path, CodeInvalidType, "expected string, got %s", describe(raw))
		return "", false
	}
	if s == "" {
		o.c.Add(path, CodeRequired, "must be a non-empty string")
		return "", false
	}
	return s, true
}

// optionalString reads a string field that may be absent.
func (o object) optionalString(name string) string {
	raw, ok := o.fields[name]
	if !ok || raw == nil {
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		o.c.Add(Field(o.path, name), CodeInvalidType, "expected string, got %s", describe(raw))
		return ""
	}
	return s
}

// requiredNumber reads a numeric field.
func (o object) requiredNumber(name string) (float64, bool) {
	path := Field(o.path, name)
	raw, ok := o.fields[name]
	if !ok {
		o.c.Add(path, CodeRequired, "required field is missing")
		return 0, false
	}
	f, ok := toNumber(raw)
	if !ok {
		o.c.Add(path, CodeInvalidType, "expected number, got %s", describe(raw))
		return 0, false
	}
	return f, true
}

// optionalNumber reads a numeric field that may be absent. The pointer is
// nil when the field is absent or mistyped.
func (o object) optionalNumber(name string) *float64 {
	raw, ok := o.fields[name]
	if !ok {
		return nil
	}
	f, ok := toNumber(raw)
	if !ok {
		o.c.Add(Field(o.path, name), CodeInvalidType, "expected number, got %s", describe(raw))
		return nil
	}
	return &f
}

// requiredInteger reads an integral numeric field.
func (o object) requiredInteger(name string) (int, bool) {
	path := Field(o.path, name)
	raw, ok := o.fields[name]
	if !ok {
		o.c.Add(path, CodeRequired, "required field is missing")
		return 0, false
	}
	n, ok := toInteger(raw)
	if !ok {
		if _, numeric := toNumber(raw); numeric {
			o.c.Add(path, CodeInvalidType, "expected integer, got fractional number")
		} else {
			o.c.Add(path, CodeInvalidType, "expected integer, got %s", describe(raw))
		}
		return 0, false
	}
	return n, true
}

// array reads an array field. Absent arrays are reported only when required.
func (o object) array(name string, required bool) ([]any, bool) {
	path := Field(o.path, name)
	raw, ok := o.fields[name]
	if !ok {
		if required {
			o.c.Add(path, CodeRequired, "required field is missing")
		}
		return nil, false
	}
	items, ok := raw.([]any)
	if !ok {
		o.c.Add(path, CodeInvalidType, "expected array, got %s", describe(raw))
		return nil, false
	}
	return items, true
}

// child reads a nested object field.
func (o object) child(name string) (object, bool) {
	path := Field(o.path, name)
	raw, ok := o.fields[name]
	if !ok {
		o.c.Add(path, CodeRequired, "required field is missing")
		return object{}, false
	}
	return asObject(raw, path, o.c)
}

// asObject checks that v is an object.
func asObject(v any, path string, c *Collector) (object, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		c.Add(path, CodeInvalidType, "expected object, got %s", describe(v))
		return object{}, false
	}
	return object{path: path, fields: m, c: c}, true
}

// stringList reads an array of non-empty strings. Bad entries are reported
// and kept as "" so later indexes still line up with the document.
func (o object) stringList(name string, required bool) ([]string, bool) {
	items, ok := o.array(name, required)
	if !ok {
		return nil, false
	}
	base := Field(o.path, name)
	out := make([]string, 0, len(items))
	for i, raw := range items {
		s, isString := raw.(string)
		switch {
		case !isString:
			o.c.Add(Index(base, i), CodeInvalidType, "expected string, got %s", describe(raw))
		case s == "":
			o.c.Add(Index(base, i), CodeRequired, "must be a non-empty string")
		}
		out = append(out, s)
	}
	return out, true
}
