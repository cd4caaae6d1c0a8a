package sink

import (
	"strings"

	"ekaraca522/dolapscraper/internal/parser"
	scrapeerrors "ekaraca522/dolapscraper/pkg/errors"
)

// Fanout forwards every record to all member sinks. A failing member does
// not stop the others; errors are collected and reported together.
type Fanout struct {
	sinks []Sink
}

// NewFanout builds a fanout over the given sinks.
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

// Append writes the record to every member sink.
func (f *Fanout) Append(record *parser.Listing) error {
	var failures []string
	for _, s := range f.sinks {
		if err := s.Append(record); err != nil {
			failures = append(failures, err.Error())
		}
	}
	if len(failures) > 0 {
		return scrapeerrors.NewSink("", strings.Join(failures, "; "), nil)
	}
	return nil
}

// Close closes every member sink, returning the first failure.
func (f *Fanout) Close() error {
	var first error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
