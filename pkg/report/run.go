package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/infrasim/pkg/logging"
	"github.com/dd0wney/infrasim/pkg/metrics"
	"github.com/dd0wney/infrasim/pkg/parallel"
	"github.com/dd0wney/infrasim/pkg/source"
	"github.com/dd0wney/infrasim/pkg/validation"
)

// ErrValidatorPanic marks a document whose validation panicked.
var ErrValidatorPanic = errors.New("validator panicked")

// RunOptions configures a batch validation run.
type RunOptions struct {
	Validator *validation.Validator
	Workers   int
	Logger    logging.Logger
	Metrics   *metrics.Registry
}

// Run lists every document in src, validates them concurrently and returns
// the results in listing order. Only a failure to list the source, a
// cancelled context, or a rejected worker count are returned as errors; a
// document that cannot be read becomes a failed FileResult.
func Run(ctx context.Context, src source.Source, opts RunOptions) (*Batch, error) {
	v := opts.Validator
	if v == nil {
		v = validation.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.With(logging.Component("levelcheck"))

	names, err := src.List(ctx)
	if err != nil {
		return nil, err
	}

	pool, err := parallel.NewWorkerPoolWithLogger(opts.Workers, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid worker count: %w", err)
	}
	defer pool.Close()

	timer := logging.StartTimer(logger, "batch validation finished",
		logging.Count(len(names)), logging.Int("workers", pool.Workers()))

	results, err := parallel.Ordered(ctx, pool, names, func(ctx context.Context, name string) FileResult {
		return check(ctx, src, v, name, logger, opts.Metrics)
	})
	if err != nil {
		timer.EndError(err)
		return nil, err
	}

	batch := &Batch{Results: results}
	timer.End(logging.Int("passed", batch.Passed()), logging.Int("failed", batch.Failed()))
	return batch, nil
}

// check validates one document. A panic inside the validator fails only
// this document.
func check(ctx context.Context, src source.Source, v *validation.Validator, name string, logger logging.Logger, reg *metrics.Registry) (res FileResult) {
	start := time.Now()
	res = FileResult{Name: name}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("validator panicked", logging.File(name), logging.Any("panic", r))
			res = FileResult{Name: name, ReadErr: fmt.Errorf("%w: %v", ErrValidatorPanic, r), Duration: time.Since(start)}
		}
	}()

	data, err := src.Read(ctx, name)
	if err != nil {
		res.ReadErr = err
		res.Duration = time.Since(start)
		return res
	}

	out := v.ValidateBytes(name, data)
	res.Errors = out.Errors
	res.Duration = time.Since(start)

	if reg != nil {
		reg.RecordValidation(out.Valid, res.Duration)
		for _, e := range out.Errors {
			reg.RecordValidationError(e.Class.String(), e.Code.String())
		}
	}
	logger.Debug("level validated", logging.File(name),
		logging.Bool("valid", out.Valid), logging.Count(len(out.Errors)), logging.Latency(res.Duration))
	return res
}
