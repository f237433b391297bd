// Package source enumerates and fetches level documents from a local
// directory or an S3 bucket.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/dd0wney/infrasim/pkg/logging"
	"github.com/dd0wney/infrasim/pkg/metrics"
)

// ErrNotFound is returned by Read for a name the source does not hold.
var ErrNotFound = errors.New("source: document not found")

// Source lists level documents and reads them by name. List returns names in
// a stable, sorted order so batch reports are reproducible.
type Source interface {
	Kind() string
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, name string) ([]byte, error)
}

// instrumented decorates a Source with logging and metrics.
type instrumented struct {
	Source
	logger  logging.Logger
	metrics *metrics.Registry
}

// Instrument wraps src so every list and read is logged and recorded. Either
// logger or reg may be nil.
func Instrument(src Source, logger logging.Logger, reg *metrics.Registry) Source {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &instrumented{
		Source:  src,
		logger:  logger.With(logging.Component("source"), logging.String("source", src.Kind())),
		metrics: reg,
	}
}

func (s *instrumented) List(ctx context.Context) ([]string, error) {
	names, err := s.Source.List(ctx)
	if err != nil {
		s.logger.Error("failed to list level documents", logging.Error(err))
		if s.metrics != nil {
			s.metrics.RecordSourceListError(s.Kind())
		}
		return nil, err
	}
	s.logger.Debug("listed level documents", logging.Count(len(names)))
	return names, nil
}

func (s *instrumented) Read(ctx context.Context, name string) ([]byte, error) {
	start := time.Now()
	data, err := s.Source.Read(ctx, name)
	if s.metrics != nil {
		s.metrics.RecordSourceRead(s.Kind(), time.Since(start), err)
	}
	if err != nil {
		s.logger.Warn("failed to read level document", logging.File(name), logging.Error(err))
		return nil, err
	}
	return data, nil
}
