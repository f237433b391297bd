package validation

import (
	"errors"
	"fmt"
)

// ErrNilDocument is returned when the validator is handed no document at all.
// That is a caller bug, not a level-authoring problem.
var ErrNilDocument = errors.New("validation: nil document")

// ErrNilLevel is the panic value of Semantic when handed no level.
var ErrNilLevel = errors.New("validation: semantic check of a nil level")

// Class tells which validation phase produced an error
type Class int

const (
	ClassParse Class = iota
	ClassStructural
	ClassSemantic
)

func (c Class) String() string {
	switch c {
	case ClassParse:
		return "parse"
	case ClassStructural:
		return "structural"
	case ClassSemantic:
		return "semantic"
	default:
		return "unknown"
	}
}

// MarshalText encodes the class by name
func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Code categorizes a validation error
type Code int

const (
	CodeParse Code = iota
	CodeRequired
	CodeInvalidType
	CodeUnknownValue
	CodeForbiddenField
	CodeConflict
	CodeDuplicate
	CodeUnresolved
	CodeOutOfRange
	CodeWrongDirection
	CodeNeverFires
	CodeMetricNotSupported
	CodeKindMismatch
	CodeSelfLoop
	CodeBrokenChain
	CodeUnreachable
)

func (c Code) String() string {
	switch c {
	case CodeParse:
		return "parse_error"
	case CodeRequired:
		return "required"
	case CodeInvalidType:
		return "invalid_type"
	case CodeUnknownValue:
		return "unknown_value"
	case CodeForbiddenField:
		return "forbidden_field"
	case CodeConflict:
		return "conflict"
	case CodeDuplicate:
		return "duplicate"
	case CodeUnresolved:
		return "unresolved_reference"
	case CodeOutOfRange:
		return "out_of_range"
	case CodeWrongDirection:
		return "wrong_direction"
	case CodeNeverFires:
		return "never_fires"
	case CodeMetricNotSupported:
		return "metric_not_supported"
	case CodeKindMismatch:
		return "kind_mismatch"
	case CodeSelfLoop:
		return "self_loop"
	case CodeBrokenChain:
		return "broken_chain"
	case CodeUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// MarshalText encodes the code by name
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ValidationError is one problem found in a level document. Path locates the
// offending field, e.g. "nodes[2].capacity"; it is empty for problems with
// the document as a whole.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Class   Class  `json:"class"`
	Code    Code   `json:"code"`
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Field appends a field name to a document path.
func Field(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

// Index appends an array index to a document path.
func Index(base string, i int) string {
	return fmt.Sprintf("%s[%d]", base, i)
}
