package validation

import (
	"fmt"
	"strings"
)

// Collector provides a fluent interface for checking level fields.
// It collects every error rather than stopping at the first one, and
// stamps each error with the phase that produced it.
type Collector struct {
	class  Class
	errors []ValidationError
}

// NewCollector creates a collector for the given validation phase.
func NewCollector(class Class) *Collector {
	return &Collector{
		class:  class,
		errors: make([]ValidationError, 0),
	}
}

// Add records an error at path.
func (c *Collector) Add(path string, code Code, format string, args ...any) *Collector {
	c.errors = append(c.errors, ValidationError{
		Path:    path,
		Message: fmt.Sprintf(format, args...),
		Class:   c.class,
		Code:    code,
	})
	return c
}

// Positive validates that a value is > 0.
func (c *Collector) Positive(path string, value float64) *Collector {
	if value <= 0 {
		c.Add(path, CodeOutOfRange, "value %s must be positive", formatNumber(value))
	}
	return c
}

// NonNegative validates that a value is >= 0.
func (c *Collector) NonNegative(path string, value float64) *Collector {
	if value < 0 {
		c.Add(path, CodeOutOfRange, "value %s must be non-negative", formatNumber(value))
	}
	return c
}

// AtLeast validates that a value is >= min.
func (c *Collector) AtLeast(path string, value, min float64) *Collector {
	if value < min {
		c.Add(path, CodeOutOfRange, "value %s is below minimum %s", formatNumber(value), formatNumber(min))
	}
	return c
}

// OpenClosed validates that a value lies in (lo, hi].
func (c *Collector) OpenClosed(path string, value, lo, hi float64) *Collector {
	if value <= lo || value > hi {
		c.Add(path, CodeOutOfRange, "value %s is outside range (%s, %s]",
			formatNumber(value), formatNumber(lo), formatNumber(hi))
	}
	return c
}

// OneOf validates that a value is one of the allowed names.
func (c *Collector) OneOf(path, what, value string, allowed []string) *Collector {
	for _, a := range allowed {
		if value == a {
			return c
		}
	}
	c.Add(path, CodeUnknownValue, "unrecognized %s %q (expected one of %s)", what, value, strings.Join(allowed, ", "))
	return c
}

// When conditionally applies validations if the condition is true.
func (c *Collector) When(condition bool, validations func(*Collector)) *Collector {
	if condition {
		validations(c)
	}
	return c
}

// Merge appends errors produced elsewhere, keeping their class.
func (c *Collector) Merge(errs []ValidationError) *Collector {
	c.errors = append(c.errors, errs...)
	return c
}

// HasErrors returns true if any validation errors occurred.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Len returns the number of collected errors.
func (c *Collector) Len() int {
	return len(c.errors)
}

// Errors returns all validation errors in insertion order.
func (c *Collector) Errors() []ValidationError {
	return c.errors
}

// formatNumber prints integral values without a fractional part so
// messages read "capacity 0" rather than "capacity 0.000000".
func formatNumber(v float64) string {
	return fmt.Sprintf("%g", v)
}
