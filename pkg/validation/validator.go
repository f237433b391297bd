package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/infrasim/pkg/level"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Default limits
	DefaultMaxLifecycleTicks = 1440  // one simulated day at one tick per minute
	DefaultHorizonTicks      = 10080 // one simulated week
)

func init() {
	validate = validator.New()
}

// Struct validates a struct against its `validate` tags and reports the
// first failure in a readable form. Other packages use it for their own
// configuration types.
func Struct(s any) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// Limits bounds what a level may ask of the simulation.
type Limits struct {
	// MaxLifecycleTicks caps warningDelayTicks + durationTicks per incident.
	MaxLifecycleTicks int `json:"maxLifecycleTicks" yaml:"max_lifecycle_ticks" validate:"gt=0"`
	// HorizonTicks caps job intervals.
	HorizonTicks int `json:"horizonTicks" yaml:"horizon_ticks" validate:"gt=0,gtefield=MaxLifecycleTicks"`
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxLifecycleTicks: DefaultMaxLifecycleTicks,
		HorizonTicks:      DefaultHorizonTicks,
	}
}

// Validate checks the limits themselves.
func (l Limits) Validate() error {
	return Struct(l)
}

// Result is the outcome of validating one document.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors"`
	// Level is the accepted level; nil unless Valid.
	Level *level.Level `json:"-"`
}

// Err returns the first error as a Go error, or nil for a valid result.
func (r *Result) Err() error {
	if r.Valid || len(r.Errors) == 0 {
		return nil
	}
	if len(r.Errors) == 1 {
		return r.Errors[0]
	}
	return fmt.Errorf("level validation failed with %d errors: %w", len(r.Errors), r.Errors[0])
}

// Validator runs the structural and semantic passes in sequence.
type Validator struct {
	limits Limits
}

// NewValidator creates a validator with the given limits.
func NewValidator(limits Limits) (*Validator, error) {
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("invalid validation limits: %w", err)
	}
	return &Validator{limits: limits}, nil
}

// Default returns a validator using DefaultLimits.
func Default() *Validator {
	return &Validator{limits: DefaultLimits()}
}

// Limits returns the limits the validator enforces.
func (v *Validator) Limits() Limits {
	return v.limits
}

// Validate checks an untyped document. Semantic rules only run when the
// structural pass found nothing, since they assume a well-formed level.
// The error return is reserved for caller bugs: a nil document.
func (v *Validator) Validate(doc any) (*Result, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}

	lvl, errs := Structural(doc)
	if len(errs) == 0 {
		errs = Semantic(lvl, v.limits)
	}

	res := &Result{Valid: len(errs) == 0, Errors: errs}
	if res.Valid {
		res.Level = lvl
	}
	return res, nil
}

// ValidateBytes parses raw bytes, choosing the format from name, then
// validates the document. A document that does not parse is reported as a
// single parse-class error.
func (v *Validator) ValidateBytes(name string, data []byte) *Result {
	return v.ValidateFormat(data, level.FormatFromName(name))
}

// ValidateFormat is ValidateBytes with an explicit format.
func (v *Validator) ValidateFormat(data []byte, format level.Format) *Result {
	parsed := level.Parse(data, format)
	if !parsed.OK() {
		return &Result{
			Errors: []ValidationError{{
				Message: parsed.Err.Error(),
				Class:   ClassParse,
				Code:    CodeParse,
			}},
		}
	}

	res, err := v.Validate(parsed.Document)
	if err != nil {
		// Parse never yields a nil document without an error.
		return &Result{Errors: []ValidationError{{Message: err.Error(), Class: ClassParse, Code: CodeParse}}}
	}
	return res
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		// Namespace is Type.Outer.Field; drop the type name
		field := e.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "gte", "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "lte", "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gtefield":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "ltefield":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "hostname_port":
			return fmt.Errorf("%s: must be a host:port address", field)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
