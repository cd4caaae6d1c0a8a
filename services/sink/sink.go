package sink

import "ekaraca522/dolapscraper/internal/parser"

// Sink receives scraped listing records one at a time. Implementations
// must tolerate Append being called again after an earlier Append failed;
// a batch never stops because one record could not be written.
type Sink interface {
	// Append writes one record.
	Append(record *parser.Listing) error

	// Close flushes and releases the sink.
	Close() error
}
