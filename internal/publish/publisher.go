// Package publish delivers finished reports to downstream consumers.
package publish

import (
	"context"
	"errors"

	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/observability"
)

// Publisher delivers a finished report.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, r *domain.Report) error
	Close() error
}

// Fanout publishes to every sink and joins their errors.
// A failing sink does not stop delivery to the others.
type Fanout struct {
	sinks []Publisher
}

// NewFanout creates a publisher over the given sinks. Nil sinks are skipped.
func NewFanout(sinks ...Publisher) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Name returns "fanout".
func (f *Fanout) Name() string { return "fanout" }

// Publish delivers r to every sink.
func (f *Fanout) Publish(ctx context.Context, r *domain.Report) error {
	var errs []error
	for _, s := range f.sinks {
		err := s.Publish(ctx, r)
		observability.RecordReportPublished(s.Name(), err)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of sinks.
func (f *Fanout) Len() int { return len(f.sinks) }
