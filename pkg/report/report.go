// Package report collects per-file validation results and renders them for
// people (styled text) or tools (JSON).
package report

import (
	"time"

	"github.com/dd0wney/infrasim/pkg/validation"
)

// Exit codes of the batch driver.
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitUsage  = 2
)

// FileResult is the outcome of validating one document.
type FileResult struct {
	Name   string                       `json:"name"`
	Errors []validation.ValidationError `json:"errors,omitempty"`
	// ReadErr is set when the document could not be fetched, or when
	// validating it panicked.
	ReadErr  error         `json:"-"`
	Duration time.Duration `json:"-"`
}

// Passed reports whether the document was read and had no errors.
func (r FileResult) Passed() bool {
	return r.ReadErr == nil && len(r.Errors) == 0
}

// Batch is the ordered set of results from one validation run.
type Batch struct {
	Results []FileResult
}

// Add appends a result.
func (b *Batch) Add(r FileResult) {
	b.Results = append(b.Results, r)
}

// Passed returns the number of files that passed.
func (b *Batch) Passed() int {
	n := 0
	for _, r := range b.Results {
		if r.Passed() {
			n++
		}
	}
	return n
}

// Failed returns the number of files that failed or could not be read.
func (b *Batch) Failed() int {
	return len(b.Results) - b.Passed()
}

// ExitCode is ExitFailed when any file failed. An empty batch passes.
func (b *Batch) ExitCode() int {
	if b.Failed() > 0 {
		return ExitFailed
	}
	return ExitOK
}
